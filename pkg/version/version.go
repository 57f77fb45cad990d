// Package version carries build-time version information, set via ldflags.
package version

var (
	// Version is the semantic version of this build.
	Version = "dev"
	// GitCommit is the commit the build was produced from.
	GitCommit = ""
)
