// Package cli contains all commands of the fingraph binary.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fingraph-app/fingraph-cli/internal/config"
	"github.com/fingraph-app/fingraph-cli/internal/logger"
	"github.com/fingraph-app/fingraph-cli/internal/output"
)

var (
	cfgFile string
	jsonOut bool
	noColor bool
	verbose bool
	cfg     *config.Config
	app     *appContext
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "fingraph",
	Short: "Financial graph CLI",
	Long: `fingraph manages a personal money-flow graph against the FinGraph API:
income sources, accounts, and expenses as nodes, flows as weighted edges,
and scheduled transactions that a simulation projects over a date window.

The session survives between invocations: login once, and every later call
reuses the stored credentials, refreshing them behind the scenes when the
server rejects an expired access token.

Example usage:
  fingraph login alice             # Start a session
  fingraph node list               # List nodes of the graph
  fingraph simulate --from 2025-01-01 --to 2025-06-30
  fingraph logout                  # End the session`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
}

// Execute runs the root command and maps failures onto stable exit codes.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cliErr := classify(err)
		printerFor(app).FormatError(cliErr)
		return cliErr.ExitCode
	}
	return output.ExitSuccess
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.fingraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().String("api-url", "", "base URL of the graph API")

	_ = viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("output.no_color", rootCmd.PersistentFlags().Lookup("no-color"))
}

func initApp() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	if jsonOut {
		cfg.Output.Format = string(output.FormatJSON)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Environment)

	app, err = newAppContext(cfg)
	return err
}

func printerFor(a *appContext) *output.Printer {
	if a != nil {
		return a.printer
	}
	return output.NewPrinter(false)
}
