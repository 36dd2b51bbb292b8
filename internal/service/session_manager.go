package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/fingraph-app/fingraph-cli/internal/repository"
	"github.com/fingraph-app/fingraph-cli/internal/transport"
)

// State describes the session as seen by callers.
type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateAuthenticated   State = "AUTHENTICATED"
	StateRefreshing      State = "REFRESHING"
)

// SessionManager owns the explicit session boundaries: logging in, logging
// out, and resuming a session persisted by an earlier run. Everything in
// between is the RefreshCoordinator's job.
type SessionManager struct {
	store       repository.CredentialStore
	auth        Authenticator
	coordinator *RefreshCoordinator
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(store repository.CredentialStore, auth Authenticator, coordinator *RefreshCoordinator) *SessionManager {
	return &SessionManager{store: store, auth: auth, coordinator: coordinator}
}

// Login exchanges a username and password for a credential pair and persists
// it. A response that is missing either credential is a protocol violation
// and nothing is persisted.
func (m *SessionManager) Login(ctx context.Context, username, password string) error {
	if username == "" {
		return errors.New("username cannot be empty")
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	log.Printf("[SessionManager.Login] Attempting login for user: %s", username)

	pair, err := m.auth.Login(ctx, username, password)
	if err != nil {
		var apiErr *transport.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			log.Printf("[SessionManager.Login] Login rejected for user '%s': %s", username, apiErr.Detail)
			if apiErr.Detail != "" {
				return fmt.Errorf("%w: %s", ErrAuthenticationRejected, apiErr.Detail)
			}
			return ErrAuthenticationRejected
		}
		log.Printf("[SessionManager.Login] ERROR: Login request failed for user '%s': %v", username, err)
		return fmt.Errorf("login request failed: %w", err)
	}

	if !pair.IsComplete() {
		log.Printf("[SessionManager.Login] ERROR: Login response for user '%s' is missing a credential (access present: %t, refresh present: %t)",
			username, pair.Access != "", pair.Refresh != "")
		return fmt.Errorf("%w: login response must carry both an access and a refresh credential", ErrProtocolViolation)
	}

	if err := m.coordinator.installSession(ctx, pair); err != nil {
		log.Printf("[SessionManager.Login] ERROR: Failed to persist credentials for user '%s': %v", username, err)
		return err
	}

	log.Printf("[SessionManager.Login] SUCCESS: Session established for user: %s", username)
	return nil
}

// Logout ends the session and clears stored credentials. Logging out while
// not logged in is fine and does nothing. A refresh still in flight when
// Logout is called cannot bring the session back.
func (m *SessionManager) Logout(ctx context.Context) error {
	_, err := m.store.Load(ctx)
	missing := errors.Is(err, repository.ErrNoCredentials)
	if err != nil && !missing {
		return fmt.Errorf("failed to inspect credential store: %w", err)
	}

	if err := m.coordinator.endSession(ctx, SessionEndLogout, !missing); err != nil {
		log.Printf("[SessionManager.Logout] ERROR: Failed to end session: %v", err)
		return err
	}

	if missing {
		log.Printf("[SessionManager.Logout] No session to end")
	} else {
		log.Printf("[SessionManager.Logout] SUCCESS: Session ended")
	}
	return nil
}

// Resume reports whether a previous run left a session behind. It reads the
// store only; the credentials are validated lazily by the first request.
func (m *SessionManager) Resume(ctx context.Context) (bool, error) {
	_, err := m.store.Load(ctx)
	if errors.Is(err, repository.ErrNoCredentials) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read credential store: %w", err)
	}
	return true, nil
}

// State reports the current session state.
func (m *SessionManager) State(ctx context.Context) (State, error) {
	if m.coordinator.refreshInFlight() {
		return StateRefreshing, nil
	}
	_, err := m.store.Current(ctx)
	if errors.Is(err, repository.ErrNoCredentials) {
		return StateUnauthenticated, nil
	}
	if err != nil {
		return StateUnauthenticated, fmt.Errorf("failed to read credential store: %w", err)
	}
	return StateAuthenticated, nil
}

// OnSessionEnd registers a listener for session end events.
func (m *SessionManager) OnSessionEnd(listener func(reason string)) {
	m.coordinator.OnSessionEnd(listener)
}
