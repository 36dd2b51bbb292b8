package cli

import (
	"github.com/spf13/cobra"

	"github.com/fingraph-app/fingraph-cli/internal/output"
	"github.com/fingraph-app/fingraph-cli/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and connection status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	state, err := app.manager.State(cmd.Context())
	if err != nil {
		return err
	}

	if app.cfg.Output.Format == string(output.FormatJSON) {
		return app.renderer.JSON(map[string]string{
			"state":   string(state),
			"api":     app.cfg.API.BaseURL,
			"backend": app.cfg.Credentials.Backend,
		})
	}

	switch state {
	case service.StateAuthenticated:
		app.printer.Success("Session active")
	case service.StateRefreshing:
		app.printer.Info("Session active (credential refresh in flight)")
	default:
		app.printer.Info("Not logged in")
	}
	app.printer.Print("API:      %s", app.cfg.API.BaseURL)
	app.printer.Print("Backend:  %s credentials", app.cfg.Credentials.Backend)
	return nil
}
