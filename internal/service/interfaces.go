package service

import (
	"context"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/transport"
)

// Dispatcher sends a single request with the currently stored access
// credential stamped on it. It never refreshes; rejection surfaces as
// *transport.UnauthorizedError for the coordinator to act on.
type Dispatcher interface {
	Send(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Authenticator exchanges a username and password for a credential pair.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.CredentialPair, error)
}

// CredentialExchanger exchanges a refresh credential for a new access
// credential. The returned pair carries an empty Refresh field when the
// backend did not rotate the refresh credential.
type CredentialExchanger interface {
	Refresh(ctx context.Context, refreshToken string) (*models.CredentialPair, error)
}

var _ Dispatcher = (*transport.Client)(nil)
