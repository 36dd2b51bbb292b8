package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Start a session against the graph API",
	Long: `Authenticate with the graph API and persist the issued credentials.

The password is read from the --password flag when given, otherwise from an
interactive prompt (or stdin when piped).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringP("username", "u", "", "username to authenticate as")
	loginCmd.Flags().String("password", "", "password (omit to be prompted)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	if len(args) == 1 {
		username = args[0]
	}
	if username == "" {
		var err error
		username, err = promptLine("Username: ")
		if err != nil {
			return err
		}
	}

	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		var err error
		password, err = promptPassword("Password: ")
		if err != nil {
			return err
		}
	}

	if err := app.manager.Login(cmd.Context(), username, password); err != nil {
		return err
	}

	app.printer.Success("Logged in as %s", username)
	return nil
}

func promptLine(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(label)
	}
	fmt.Fprint(os.Stderr, label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(secret), nil
}
