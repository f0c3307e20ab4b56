package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"lanlink-core/internal/diagnostics"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var diagnoseJSON bool

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run connectivity diagnostics against the overlay engine",
	Long: `Start a throwaway guest instance and check each stage of a connection:
engine availability, config generation and parsing, instance start,
network info collection and the game port forward. Any leftover instance
is stopped first, so do not run this while a session is active.

Example:
  lanlink diagnose
  lanlink diagnose --json`,
	Args: cobra.NoArgs,
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().BoolVar(&diagnoseJSON, "json", false, "Print results as JSON")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := setup()
	if err != nil {
		return err
	}
	cfg.API.Enabled = false

	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := newOutput(cmd)
	var onStep func(int, diagnostics.StepResult)
	if !diagnoseJSON {
		out.Header("LanLink diagnostics")
		onStep = func(i int, r diagnostics.StepResult) {
			if r.Status == diagnostics.StatusPending || r.Status == diagnostics.StatusRunning {
				return
			}
			out.Plain("  [%d] %-28s %s %s", i+1, r.Name, stepLabel(r.Status), r.Message)
		}
	}

	results, err := a.Diagnose(ctx, onStep)
	if err != nil {
		return err
	}

	if diagnoseJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	}

	failed := countFailed(results)
	if failed > 0 {
		return fmt.Errorf("%d diagnostic step(s) failed", failed)
	}
	if !diagnoseJSON {
		out.Success("All checks passed")
	}
	return nil
}

func countFailed(results []diagnostics.StepResult) int {
	n := 0
	for _, r := range results {
		if r.Status == diagnostics.StatusFailed {
			n++
		}
	}
	return n
}

func stepLabel(s diagnostics.StepStatus) string {
	switch s {
	case diagnostics.StatusSuccess:
		return color.GreenString(string(s))
	case diagnostics.StatusFailed:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}
