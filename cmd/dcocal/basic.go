package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/osctools/dcocal/pkg/client"
	"github.com/osctools/dcocal/pkg/version"
)

var apiClient *client.Client

func daemonClient() *client.Client {
	if apiClient == nil {
		apiClient = client.NewClient(unixSocketPath)
	}
	return apiClient
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
			if daemonVersion, err := daemonClient().GetVersion(); err == nil {
				cmd.Printf("daemon: %s\n", daemonVersion)
			}
		},
	}
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show controller state",
		GroupID: gBasic,
		RunE: func(_ *cobra.Command, _ []string) error {
			info, err := daemonClient().GetState()
			if err != nil {
				return fmt.Errorf("failed to get controller state: %w", err)
			}

			bold := color.New(color.Bold)
			switch info.State {
			case "RUN":
				bold.Print("State: ")
				color.New(color.FgGreen).Println(info.State)
				fmt.Printf("Active target: #%d (%d kHz)\n", info.RunIndex, info.RunKHz)
			case "FATAL":
				bold.Print("State: ")
				color.New(color.FgRed).Printf("%s (%s)\n", info.State, info.FatalName)
				fmt.Printf("Indicator pattern: %d blinks\n", info.FatalKind)
			default:
				bold.Print("State: ")
				color.New(color.FgYellow).Println(info.State)
			}
			return nil
		},
	}
}

func NewResultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "results",
		Short:   "Show the calibration working set",
		GroupID: gBasic,
		RunE: func(_ *cobra.Command, _ []string) error {
			results, err := daemonClient().GetResults()
			if err != nil {
				return fmt.Errorf("failed to get calibration results: %w", err)
			}
			if len(results) == 0 {
				fmt.Println("no calibration results yet")
				return nil
			}
			for _, r := range results {
				fmt.Printf("#%d %6d kHz  %-24s measured=%d error=%+d%%\n",
					r.Target.Index, r.Target.LabelKHz, r.Config.String(), r.Measured, r.ErrorPct)
			}
			return nil
		},
	}
}

func NewTargetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "targets",
		Short:   "List the fixed calibration targets",
		GroupID: gBasic,
		RunE: func(_ *cobra.Command, _ []string) error {
			targets, err := daemonClient().GetTargets()
			if err != nil {
				return fmt.Errorf("failed to get targets: %w", err)
			}
			for _, t := range targets {
				fmt.Printf("#%d %6d kHz  goal=%d\n", t.Index, t.LabelKHz, t.GoalCount)
			}
			return nil
		},
	}
}

func NewHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "history",
		Short:   "Show per-attempt search history (needs --diagnostics on the daemon)",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			history, err := daemonClient().GetHistory()
			if err != nil {
				return fmt.Errorf("failed to get attempt history: %w", err)
			}
			for _, a := range history {
				mark := " "
				if a.Accepted {
					mark = "*"
				}
				fmt.Printf("%s target=%d goal=%-5d %-24s measured=%d error=%+d%%\n",
					mark, a.TargetIndex, a.GoalCount, a.Config.String(), a.Measured, a.ErrorPct)
			}
			return nil
		},
	}
}
