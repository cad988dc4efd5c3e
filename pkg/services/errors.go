// Package services holds the workflow lifecycle operations behind the API.
package services

import (
	"errors"
	"fmt"
)

// Client errors, mapped to 4xx responses by the web layer.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrNodesRequired        = errors.New("workflow must have at least one node")

	// Conflicts (409).
	ErrNotDraft    = errors.New("only draft workflows can be published")
	ErrNotActive   = errors.New("only active workflows can be archived")
	ErrWorkflowNil = errors.New("workflow cannot be nil")
)

// ServiceError wraps a service-level failure with the operation name.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports whether err should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrWorkflowNil)
}

// IsConflictError reports whether err should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNotDraft) || errors.Is(err, ErrNotActive)
}
