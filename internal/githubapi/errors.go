// internal/githubapi/errors.go
package githubapi

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoToken indicates a token source had nothing to offer. Chain sources
// treat it as "try the next one".
var ErrNoToken = errors.New("github: no access token available")

// AuthError indicates the client could not authenticate: either no usable
// token was resolvable or the remote rejected the one it had. It is fatal
// to a whole sync pass.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("github: authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError indicates the remote refused the request because the API
// quota is exhausted. ResetAt is zero when the reset header was absent.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "github: rate limit exceeded"
	}
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// APIError is any other transport or HTTP failure from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("github: request failed: %s", e.Message)
	}
	return fmt.Sprintf("github: API error %d: %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether the error is an authentication failure.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRateLimited reports whether the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateErr *RateLimitError
	return errors.As(err, &rateErr)
}
