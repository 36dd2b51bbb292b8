package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/output"
)

var transactionCmd = &cobra.Command{
	Use:     "transaction",
	Aliases: []string{"tx", "transactions"},
	Short:   "Manage scheduled transactions",
	Long: `Manage scheduled transactions on the edges of the graph.

A transaction moves a fixed amount along its edge on a scheduled date. A
recurring transaction repeats at a fixed interval, e.g. --every 7d for a
weekly transfer.`,
}

var transactionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		txs, err := app.graph.ListTransactions(cmd.Context())
		if err != nil {
			return err
		}
		return app.renderer.Transactions(txs)
	},
}

var transactionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Schedule a transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		edge, _ := cmd.Flags().GetInt64("edge")
		amount, _ := cmd.Flags().GetString("amount")
		dateArg, _ := cmd.Flags().GetString("date")
		everyArg, _ := cmd.Flags().GetString("every")

		if edge <= 0 {
			return &output.CLIError{
				Summary:  "edge must be a positive edge id",
				ExitCode: output.ExitUsageError,
			}
		}
		scheduled, err := models.ParseDate(dateArg)
		if err != nil {
			return &output.CLIError{
				Summary:    fmt.Sprintf("invalid date %q", dateArg),
				Suggestion: "dates use the YYYY-MM-DD form",
				ExitCode:   output.ExitUsageError,
			}
		}

		req := models.TransactionRequest{Edge: edge, Amount: amount, ScheduledDate: scheduled}
		if everyArg != "" {
			seconds, err := parseEvery(everyArg)
			if err != nil {
				return err
			}
			req.IsRecurring = true
			req.RecurrenceSeconds = &seconds
		}

		tx, err := app.graph.CreateTransaction(cmd.Context(), &req)
		if err != nil {
			return err
		}
		app.printer.Success("Scheduled transaction %d for %s", tx.ID, tx.ScheduledDate)
		if app.cfg.Output.Format == string(output.FormatJSON) {
			return app.renderer.JSON(tx)
		}
		return app.renderer.Transactions([]models.Transaction{*tx})
	},
}

var transactionDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a scheduled transaction",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := app.graph.DeleteTransaction(cmd.Context(), id); err != nil {
			return err
		}
		app.printer.Success("Deleted transaction %d", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transactionCmd)
	transactionCmd.AddCommand(transactionListCmd, transactionCreateCmd, transactionDeleteCmd)

	transactionCreateCmd.Flags().Int64("edge", 0, "edge id the transaction runs along")
	transactionCreateCmd.Flags().String("amount", "", "amount to move, e.g. 2500.00")
	transactionCreateCmd.Flags().String("date", "", "scheduled date (YYYY-MM-DD)")
	transactionCreateCmd.Flags().String("every", "", "recurrence interval, e.g. 7d or 12h")
	_ = transactionCreateCmd.MarkFlagRequired("edge")
	_ = transactionCreateCmd.MarkFlagRequired("amount")
	_ = transactionCreateCmd.MarkFlagRequired("date")
}

// parseEvery converts a recurrence interval into whole seconds. Day counts
// use a "d" suffix since Go durations stop at hours.
func parseEvery(s string) (int64, error) {
	usage := &output.CLIError{
		Summary:    fmt.Sprintf("invalid recurrence interval %q", s),
		Suggestion: "use a day count like 7d or a duration like 12h",
		ExitCode:   output.ExitUsageError,
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil || n <= 0 {
			return 0, usage
		}
		return n * 86400, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d < time.Second || d%time.Second != 0 {
		return 0, usage
	}
	return int64(d / time.Second), nil
}
