package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/output"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Project balances over a date window",
	Long: `Run the cash-flow simulation over a date window.

Every scheduled transaction inside the window is applied to the stored
balances, recurring ones at each interval step, and the projected balance of
every node is reported next to its current one.

Example:
  fingraph simulate --from 2025-01-01 --to 2025-06-30`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().String("from", "", "window start date (YYYY-MM-DD)")
	simulateCmd.Flags().String("to", "", "window end date (YYYY-MM-DD)")
	_ = simulateCmd.MarkFlagRequired("from")
	_ = simulateCmd.MarkFlagRequired("to")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	start, err := parseDateFlag(cmd, "from")
	if err != nil {
		return err
	}
	end, err := parseDateFlag(cmd, "to")
	if err != nil {
		return err
	}
	if end.Before(start.Time) {
		return &output.CLIError{
			Summary:  "--to must not precede --from",
			ExitCode: output.ExitUsageError,
		}
	}

	// The node listing is only needed for display, so fetch it alongside the
	// simulation call.
	var (
		nodes  []models.Node
		result *models.SimulationResult
	)
	group, ctx := errgroup.WithContext(cmd.Context())
	group.Go(func() error {
		var err error
		nodes, err = app.graph.ListNodes(ctx)
		return err
	})
	group.Go(func() error {
		var err error
		result, err = app.graph.Simulate(ctx, start, end)
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}

	return app.renderer.Simulation(nodes, result)
}

func parseDateFlag(cmd *cobra.Command, name string) (models.Date, error) {
	raw, _ := cmd.Flags().GetString(name)
	date, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, &output.CLIError{
			Summary:    fmt.Sprintf("invalid --%s date %q", name, raw),
			Suggestion: "dates use the YYYY-MM-DD form",
			ExitCode:   output.ExitUsageError,
		}
	}
	return date, nil
}
