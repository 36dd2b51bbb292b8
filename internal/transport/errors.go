package transport

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks a 401 response whose body indicates an expired access
// credential. Matched with errors.Is; the concrete *UnauthorizedError carries
// the stamped credential so the refresh path can detect stale rejections.
var ErrUnauthorized = errors.New("access credential rejected")

// UnauthorizedError is returned by Send when the backend rejected the stamped
// access credential. Only status 401 with a token_not_valid (or absent) error
// code produces it; every other failure shape stays an *APIError.
type UnauthorizedError struct {
	// Credential is the access token that was stamped on the rejected request.
	Credential string
	Code       string
	Detail     string
}

func (e *UnauthorizedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("access credential rejected: %s", e.Detail)
	}
	return "access credential rejected"
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// APIError is any non-2xx backend response outside the refresh path. It
// passes through the coordinator untouched.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	switch {
	case e.Detail != "" && e.Code != "":
		return fmt.Sprintf("backend returned status %d: %s (%s)", e.Status, e.Detail, e.Code)
	case e.Detail != "":
		return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Detail)
	default:
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
}
