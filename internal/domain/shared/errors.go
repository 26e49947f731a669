// Package shared contains common domain types and errors used across all
// domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyValue   = errors.New("value cannot be empty")

	// Time-string errors. Parse failures are recovered locally (treated as
	// zero duration) and never propagated to the caller.
	ErrParse         = errors.New("malformed time string")
	ErrInvalidFormat = errors.New("invalid format")

	// Remote store errors
	ErrRemoteWrite        = errors.New("remote write failed")
	ErrSubscriptionClosed = errors.New("subscription closed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")

	// Merge errors
	ErrStaleSnapshot    = errors.New("stale snapshot")
	ErrMissingReference = errors.New("entry refers to unknown participant")

	// State errors
	ErrInvalidState = errors.New("invalid state")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "roster", "record", "merge", "stats"
	Op      string // Operation that failed, e.g., "Create", "ApplySnapshot"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Roster domain errors
var (
	ErrParticipantNotFound = NewDomainError("roster", "Find", ErrNotFound, "participant not found")
	ErrParticipantExists   = NewDomainError("roster", "Create", ErrAlreadyExists, "participant already exists")
	ErrEmptyName           = NewDomainError("roster", "Validate", ErrEmptyValue, "participant name cannot be empty")
)

// Record domain errors
var (
	ErrGoalNotFound     = NewDomainError("record", "FindGoal", ErrNotFound, "goal not found")
	ErrScheduleNotFound = NewDomainError("record", "FindSchedule", ErrNotFound, "schedule item not found")
	ErrNoValidSlot      = NewDomainError("record", "Validate", ErrValidation, "at least one valid slot required")
	ErrSlotOrder        = NewDomainError("record", "Validate", ErrValidation, "end time must be later than start time")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error. Validation
// failures are surfaced to the user as warnings and suppress the write.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue)
}

// IsRemoteWrite checks if the error came from a remote store write.
// These are surfaced as user-visible error notifications; optimistic local
// state is not rolled back.
func IsRemoteWrite(err error) bool {
	return errors.Is(err, ErrRemoteWrite) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
