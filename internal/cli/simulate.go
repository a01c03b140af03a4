package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beacon-analytics/beacon-go/internal/harness"
)

// SimulationResult is the simulate command's output payload.
type SimulationResult struct {
	Scenario string   `json:"scenario"`
	Passed   bool     `json:"passed"`
	Events   []string `json:"events"`
	Failures []string `json:"failures,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Replay a scripted tracking session",
		Long: `Run a scenario file against a fresh in-process tracking pipeline and
report the emitted event stream.

Scenarios script host signals (page loads, checkout snapshots, scrolls,
unloads) and assert the exact event sequence the pipeline must produce.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, args[0], cmd)
		},
	}
}

func runSimulate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot load scenario", err)
	}
	formatter.VerboseLog("Running scenario %q: %s", scenario.Name, scenario.Description)

	result, err := harness.Run(scenario)
	if err != nil {
		formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitFailure, "scenario execution failed", err)
	}

	payload := SimulationResult{
		Scenario: scenario.Name,
		Passed:   result.Passed(),
		Events:   result.EventTypes(),
		Failures: result.Failures,
	}

	if opts.Format == "json" {
		if err := formatter.Success("", payload); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Scenario: %s\n", scenario.Name)
		for i, typ := range payload.Events {
			fmt.Fprintf(out, "  %2d. %s\n", i+1, typ)
		}
		if payload.Passed {
			fmt.Fprintf(out, "PASS (%d events)\n", len(payload.Events))
		} else {
			for _, failure := range payload.Failures {
				fmt.Fprintf(out, "FAIL: %s\n", failure)
			}
		}
	}

	if !payload.Passed {
		return NewExitError(ExitFailure, "scenario expectations not met")
	}
	return nil
}
