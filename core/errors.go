package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Transport-level errors
	ErrTransport    = errors.New("service unreachable")
	ErrUnauthorized = errors.New("unauthorized")

	// Request errors
	ErrValidation = errors.New("request validation failed")
	ErrNotFound   = errors.New("resource not found")
	ErrServer     = errors.New("server error")

	// Client-side precondition errors
	ErrEmptyCart            = errors.New("cart is empty")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrSubmissionInProgress = errors.New("order submission already in progress")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// Operation errors
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

// APIError provides structured error information for a failed backend call.
// It implements the error interface and supports error wrapping, so callers
// can use errors.Is against the sentinel errors above while still getting a
// stable, user-facing message.
type APIError struct {
	Op      string // Operation that failed (e.g., "cart.Add")
	Status  int    // HTTP status code, 0 for transport failures
	Message string // Human-readable, user-facing message
	Err     error  // Underlying sentinel or transport error for wrapping
}

// Error returns the string representation of the error
func (e *APIError) Error() string {
	if e.Op != "" {
		if e.Status != 0 {
			return fmt.Sprintf("%s (status %d): %s", e.Op, e.Status, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError
func NewAPIError(op string, status int, message string, err error) *APIError {
	return &APIError{Op: op, Status: status, Message: message, Err: err}
}

// IsUnauthorized checks if an error is a credential failure handled by the
// auth middleware. Business logic should not retry these.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsValidation checks if an error is a 400-class rejection
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidQuantity)
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable checks if an error is retryable
// Retryable errors are typically transient network or availability issues
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrServer)
}
