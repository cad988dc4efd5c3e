// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types all implementations use.
var (
	// ErrWorkflowNotFound indicates a workflow definition was not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInstanceNotFound indicates a workflow instance was not found.
	ErrInstanceNotFound = errors.New("workflow instance not found")

	// ErrInstanceAlreadyExists indicates a non-terminal instance already
	// exists for the same (workflow, lead) pair.
	ErrInstanceAlreadyExists = errors.New("workflow instance already exists")

	// ErrInstanceTerminal indicates a save was attempted against an instance
	// already in a terminal status.
	ErrInstanceTerminal = errors.New("workflow instance is terminal")
)

// InstanceError wraps instance-related errors with operation context.
type InstanceError struct {
	Op         string
	InstanceID string
	Err        error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("%s operation failed for instance %s: %v", e.Op, e.InstanceID, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}

func (e *InstanceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewInstanceError creates an instance error with context.
func NewInstanceError(op, instanceID string, err error) *InstanceError {
	return &InstanceError{Op: op, InstanceID: instanceID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a missing definition.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsInstanceNotFound checks if an error indicates a missing instance.
func IsInstanceNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}

// IsInstanceAlreadyExists checks if an error indicates a duplicate active
// instance for the same (workflow, lead).
func IsInstanceAlreadyExists(err error) bool {
	return errors.Is(err, ErrInstanceAlreadyExists)
}
