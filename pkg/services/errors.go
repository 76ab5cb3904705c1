// Package services provides the application layer between transport and
// persistence.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrInvalidTriggerType   = errors.New("invalid trigger type")
	ErrInvalidGraph         = errors.New("invalid graph")

	// Business logic conflicts (409 Conflict).
	ErrWorkflowInactive = errors.New("workflow is not active")
	ErrRunInProgress    = errors.New("workflow already has a running execution")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Message: message, Err: err}
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrInvalidTriggerType) ||
		errors.Is(err, ErrInvalidGraph)
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowInactive) ||
		errors.Is(err, ErrRunInProgress)
}
