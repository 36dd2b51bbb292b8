package api

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/service"
	"github.com/fingraph-app/fingraph-cli/internal/transport"
)

// AuthClient drives the two token endpoints. Both calls go out without an
// Authorization header: login has nothing to stamp yet and refresh
// authenticates with the refresh credential in its body.
type AuthClient struct {
	transport *transport.Client
}

var (
	_ service.Authenticator       = (*AuthClient)(nil)
	_ service.CredentialExchanger = (*AuthClient)(nil)
)

// NewAuthClient creates an AuthClient.
func NewAuthClient(tr *transport.Client) *AuthClient {
	return &AuthClient{transport: tr}
}

// Login exchanges a username and password for a credential pair. Rejected
// credentials surface as a *transport.APIError with status 401.
func (c *AuthClient) Login(ctx context.Context, username, password string) (*models.CredentialPair, error) {
	body, err := json.Marshal(models.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := c.transport.SendUnauthenticated(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/api/token/",
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	var out models.TokenResponse
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return &models.CredentialPair{Access: out.Access, Refresh: out.Refresh}, nil
}

// Refresh exchanges a refresh credential for a new access credential. The
// returned pair carries an empty Refresh field unless the backend rotated
// the refresh credential in the same exchange.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*models.CredentialPair, error) {
	body, err := json.Marshal(models.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	resp, err := c.transport.SendUnauthenticated(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/api/token/refresh/",
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	var out models.RefreshResponse
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	return &models.CredentialPair{Access: out.Access, Refresh: out.Refresh}, nil
}
