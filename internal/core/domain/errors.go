package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown sink or object type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrPollInProgress indicates a poll is already running for an endpoint.
	ErrPollInProgress = errors.New("poll in progress")

	// Authentication Errors.

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Connector Errors.

	// ErrConnectorClosed indicates the repository session has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrRateLimited indicates the repository throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoRepository indicates the service document advertised no repositories.
	ErrNoRepository = errors.New("no repository available")
)

// ResolutionError reports a configured path that does not resolve to a node.
// It is fatal to the poll that raised it.
type ResolutionError struct {
	Path string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Path, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// EnumerationError reports a failed page fetch, either of a folder's
// children or of a query's result set. Items emitted before the failure
// are not retracted.
type EnumerationError struct {
	Op     string
	Offset int
	Err    error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("%s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}

// RequiredFieldError reports a node creation request missing a mandatory property.
type RequiredFieldError struct {
	Field string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("required field %q is missing", e.Field)
}

// Is lets errors.Is(err, ErrInvalidInput) match any missing-field error.
func (e *RequiredFieldError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsResolutionError reports whether err is, or wraps, a ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

// IsEnumerationError reports whether err is, or wraps, an EnumerationError.
func IsEnumerationError(err error) bool {
	var ee *EnumerationError
	return errors.As(err, &ee)
}
