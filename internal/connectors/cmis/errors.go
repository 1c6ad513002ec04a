package cmis

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// CMIS-specific errors.
var (
	// ErrInvalidURL indicates the endpoint URL is not an http(s) service URL.
	ErrInvalidURL = errors.New("cmis: invalid service url")

	// ErrRepositoryNotFound indicates the configured repository id is not advertised.
	ErrRepositoryNotFound = errors.New("cmis: repository not found")

	// ErrMalformedResponse indicates a response body could not be interpreted.
	ErrMalformedResponse = errors.New("cmis: malformed response")
)

// Browser binding exception names.
const (
	ExceptionObjectNotFound  = "objectNotFound"
	ExceptionInvalidArgument = "invalidArgument"
	ExceptionConstraint      = "constraint"
	ExceptionNameConstraint  = "nameConstraintViolation"
	ExceptionPermission      = "permissionDenied"
	ExceptionNotSupported    = "notSupported"
)

// RateLimitError represents a throttled request with its retry time.
type RateLimitError struct {
	RetryAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("cmis: rate limited, retry at %s", e.RetryAt.Format(time.RFC3339))
}

// Unwrap maps the error onto domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError represents a browser binding error response.
type APIError struct {
	StatusCode int
	Exception  string
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	if e.Exception != "" {
		return fmt.Sprintf("cmis: %s (%d): %s (URL: %s)", e.Exception, e.StatusCode, e.Message, e.URL)
	}
	return fmt.Sprintf("cmis: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps the error onto the matching domain sentinel, if any.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound || e.Exception == ExceptionObjectNotFound:
		return domain.ErrNotFound
	case e.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuthInvalid
	case e.Exception == ExceptionNameConstraint:
		return domain.ErrAlreadyExists
	case e.Exception == ExceptionInvalidArgument:
		return domain.ErrInvalidInput
	case e.Exception == ExceptionNotSupported:
		return domain.ErrNotImplemented
	}
	return nil
}

// IsNotFound checks if the error indicates an object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// IsConstraint checks if the error is a constraint violation, which the
// browser binding reports for documents without a content stream.
func IsConstraint(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusConflict || apiErr.Exception == ExceptionConstraint
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsForbidden checks if the error indicates a forbidden object.
func IsForbidden(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden || apiErr.Exception == ExceptionPermission
	}
	return false
}

// isRetryable reports whether a status is worth retrying.
func isRetryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
