package service

import "errors"

var (
	// ErrAuthenticationRejected is returned by Login when the backend refuses
	// the supplied username and password.
	ErrAuthenticationRejected = errors.New("authentication rejected")

	// ErrSessionExpired is returned when the stored refresh credential could
	// not be exchanged for a new access credential. The session is over and
	// the user has to log in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrRequestFailedAfterRetry is returned when a request was rejected,
	// the credential refresh succeeded, and the retried request was rejected
	// again. A second refresh is never attempted.
	ErrRequestFailedAfterRetry = errors.New("request failed after credential refresh")

	// ErrNotAuthenticated is returned when no credentials are stored. No
	// network call is made in that case.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrProtocolViolation is returned when an authentication response is
	// missing one of the two expected credentials. Nothing is persisted.
	ErrProtocolViolation = errors.New("authentication response violated the token protocol")
)
