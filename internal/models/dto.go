package models

// LoginRequest is the credential-exchange payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the body of a successful login: both tokens, always.
type TokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RefreshRequest carries the refresh token to the refresh endpoint.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse is the body of a successful refresh. Refresh is only set
// when the backend rotated the refresh token; when set it must replace the
// stored one.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// ErrorBody is the backend's error envelope. Code distinguishes expired
// access tokens ("token_not_valid") from other authorization failures.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}
