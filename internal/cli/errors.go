package cli

import (
	"errors"
	"fmt"

	"github.com/fingraph-app/fingraph-cli/internal/output"
	"github.com/fingraph-app/fingraph-cli/internal/service"
	"github.com/fingraph-app/fingraph-cli/internal/transport"
)

// classify maps stack errors onto structured CLI errors with stable exit
// codes: 3 means the session is gone and a new login is needed, 4 means the
// presented credentials were rejected outright.
func classify(err error) *output.CLIError {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		return &output.CLIError{
			Summary:    "not logged in",
			Detail:     err.Error(),
			Suggestion: "run 'fingraph login' to start a session",
			ExitCode:   output.ExitSessionExpired,
		}
	case errors.Is(err, service.ErrSessionExpired):
		return &output.CLIError{
			Summary:    "session expired",
			Detail:     err.Error(),
			Suggestion: "run 'fingraph login' to start a new session",
			ExitCode:   output.ExitSessionExpired,
		}
	case errors.Is(err, service.ErrAuthenticationRejected):
		return &output.CLIError{
			Summary:    "authentication rejected",
			Detail:     err.Error(),
			Suggestion: "check the username and password",
			ExitCode:   output.ExitAuthRejected,
		}
	case errors.Is(err, service.ErrRequestFailedAfterRetry):
		return &output.CLIError{
			Summary:  "request failed after credential refresh",
			Detail:   err.Error(),
			ExitCode: output.ExitGeneral,
		}
	}

	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		return &output.CLIError{
			Summary:  fmt.Sprintf("API request failed (status %d)", apiErr.Status),
			Detail:   apiErr.Detail,
			ExitCode: output.ExitGeneral,
		}
	}

	return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitGeneral}
}
