package repository

import (
	"context"
	"errors"

	"github.com/fingraph-app/fingraph-cli/internal/models"
)

// ErrNoCredentials is returned when no credential pair is stored.
var ErrNoCredentials = errors.New("no stored credentials")

// CredentialStore persists the session's credential pair. Save and Clear are
// atomic with respect to concurrent Current reads: a reader never observes a
// half-written pair. Load is called once at startup to seed session state.
type CredentialStore interface {
	// Load returns the stored pair, or ErrNoCredentials when absent.
	Load(ctx context.Context) (*models.CredentialPair, error)
	// Save stores both tokens as one unit.
	Save(ctx context.Context, pair *models.CredentialPair) error
	// Clear removes the stored pair. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
	// Current returns the access token to stamp on an outgoing request,
	// or ErrNoCredentials when absent. Read at dispatch time, never earlier.
	Current(ctx context.Context) (string, error)
}
