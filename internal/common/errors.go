// Package common defines shared constants and sentinel errors used across
// classgate layers. Callers should use errors.Is / errors.As to match these
// values.
package common

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Auth errors (invalid, malformed or expired local token).
	ErrInvalidToken = errors.New("invalid token")

	// The decoded token references an account that no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// The upstream identity API rejected or could not serve a refresh.
	ErrRefreshFailed = errors.New("upstream refresh failed")

	// Upstream rejected the stored access token.
	ErrUpstreamUnauthorized = errors.New("upstream unauthorized")

	// OTP flow errors.
	ErrOTPExpired     = errors.New("otp expired or not requested")
	ErrOTPRateLimited = errors.New("too many otp requests")
	ErrOTPAttempts    = errors.New("too many otp attempts")

	// Admin console errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports a request body that failed boundary validation.
// Fields maps a JSON field name to a human readable problem.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a problem for field.
func (e *ValidationError) Add(field, problem string) {
	e.Fields[field] = problem
}

// OrNil returns nil when no problems were recorded.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
