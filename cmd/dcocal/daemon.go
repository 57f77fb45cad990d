package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/osctools/dcocal/pkg/daemon"
	"github.com/osctools/dcocal/pkg/version"
)

var (
	forceOverwrite = false
	volatileOnly   = false
	diagnostics    = false
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run the calibration daemon in the foreground",
		GroupID: gAdvanced,
		Long: `Run the calibration daemon in the foreground.

At boot the daemon checks the calibration store: a populated store resumes
directly into the frequency loop, a blank one triggers a full calibration of
all targets followed by a store commit.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("dcocal daemon starting")
			return daemon.Run(daemon.Options{
				ConfigPath:     configPath,
				SocketPath:     unixSocketPath,
				ForceOverwrite: forceOverwrite,
				VolatileOnly:   volatileOnly,
				Diagnostics:    diagnostics,
			})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&forceOverwrite, "force-overwrite", false,
		"Recalibrate and overwrite a populated calibration store.")
	f.BoolVar(&volatileOnly, "volatile-only", false,
		"Never touch the persistent store; work from memory only.")
	f.BoolVar(&diagnostics, "diagnostics", false,
		"Retain per-target search history for inspection.")

	return cmd
}
