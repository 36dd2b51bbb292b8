package cli

import (
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and clear stored credentials",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	hadSession, err := app.manager.Resume(cmd.Context())
	if err != nil {
		return err
	}

	if err := app.manager.Logout(cmd.Context()); err != nil {
		return err
	}

	if hadSession {
		app.printer.Success("Logged out; stored credentials cleared")
	} else {
		app.printer.Info("No active session")
	}
	return nil
}
