package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/osctools/dcocal/pkg/client"
	"github.com/osctools/dcocal/pkg/config"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/dcocal.sock"
	configPath     = "/etc/dcocal.json"
)

var (
	gBasic    = "Basic:"
	gAdvanced = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: dcocal daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with \"dcocal daemon\"")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
	}
}

func main() {
	if paths, err := config.PathsFromEnv(); err == nil {
		unixSocketPath = paths.Socket
		configPath = paths.Config
	}

	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dcocal",
		Short: "dcocal calibrates a digitally-controlled oscillator against a reference clock",
		Long: `dcocal calibrates a digitally-controlled oscillator against a precise
low-frequency reference clock, persists the configurations found for a fixed
set of target frequencies, and cycles the live oscillator through them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	for _, group := range commandGroups {
		cmd.AddGroup(&cobra.Group{ID: group, Title: group})
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&logLevel, "log-level", "l", logLevel, "log level (trace, debug, info, warn, error)")
	pf.StringVar(&unixSocketPath, "socket", unixSocketPath, "daemon unix socket path")
	pf.StringVar(&configPath, "config", configPath, "config file path")

	cmd.AddCommand(
		NewDaemonCommand(),
		NewStatusCommand(),
		NewResultsCommand(),
		NewTargetsCommand(),
		NewHistoryCommand(),
		NewVersionCommand(),
	)

	return cmd
}
