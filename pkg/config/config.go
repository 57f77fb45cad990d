package config

type Config interface {
	// ForceOverwrite bypasses the blank check at boot and erases the
	// calibration segment before writing.
	ForceOverwrite() bool
	// VolatileOnly skips all persistent-store access; the device operates
	// purely on the in-memory working set.
	VolatileOnly() bool
	// Diagnostics retains per-target found-parameter and error history.
	Diagnostics() bool
	// MaxErrorPercent is the accepted calibration tolerance.
	MaxErrorPercent() int
	// MaxAttempts is the per-target retry ceiling.
	MaxAttempts() int

	SetForceOverwrite(bool)
	SetVolatileOnly(bool)
	SetDiagnostics(bool)
	SetMaxErrorPercent(int)
	SetMaxAttempts(int)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
