/*
errors.go - Centralized error kinds for the time & compensation engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages wrap these kinds with structured errors carrying context.

ERROR CATEGORIES:
  1. Validation errors - bad ranges, unknown leave types, non-positive durations
  2. Limit errors      - punch caps, max-days-per-request
  3. Conflict errors   - overlapping leave, duplicate overtime day, no open session
  4. State errors      - deciding/cancelling a request in a terminal state
  5. Dependency errors - network policy check or policy lookup failure

USAGE:
  Callers branch with errors.Is():

    if errors.Is(err, ledger.ErrConflict) {
        // surface as 409 / "already exists" to whatever transport sits above
    }

  Structured errors carry details and Unwrap() to a kind:

    var overlap *leave.OverlapError
    if errors.As(err, &overlap) { ... }

SEE ALSO:
  - punch/ledger.go, leave/ledger.go, overtime/ledger.go: wrap these kinds
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERROR KINDS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input: bad date ranges,
	// unknown leave types, non-positive durations.
	ErrValidation = errors.New("validation failed")

	// ErrLimitExceeded is returned when a hard cap is hit: daily punch limits,
	// max days per leave request.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrConflict is returned when a request collides with existing state:
	// overlapping leave, a second overtime request on the same day,
	// clocking out with no open session.
	ErrConflict = errors.New("conflict with existing state")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrState is returned when an operation is invalid for the record's
	// current status, or when a non-owner attempts an owner-only operation.
	ErrState = errors.New("invalid state for operation")

	// ErrDependency is returned when a required collaborator fails:
	// the network policy check or a policy lookup.
	ErrDependency = errors.New("dependency failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// LimitError describes an exceeded cap.
type LimitError struct {
	What  string
	Limit string
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s exceeds limit of %s", e.What, e.Limit)
}

func (e *LimitError) Unwrap() error { return ErrLimitExceeded }

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StateError describes an operation rejected by the record's status.
type StateError struct {
	Operation string
	Status    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: current status is %q", e.Operation, e.Status)
}

func (e *StateError) Unwrap() error { return ErrState }

// DependencyError wraps a collaborator failure.
type DependencyError struct {
	Dependency string
	Err        error
	Reason     string
}

func (e *DependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Dependency, e.Reason)
}

func (e *DependencyError) Unwrap() error { return ErrDependency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is a caller-correctable typed
// failure rather than an infrastructure fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrLimitExceeded) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrState)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
