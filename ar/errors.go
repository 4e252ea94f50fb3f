/*
errors.go - Centralized error types for the AR engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is / the helpers at the bottom; the API
  layer maps IsNotFound to 404 and IsClientError to 400.

ERROR CATEGORIES:
  1. Temporal errors   - enrollment date after the as-of date
  2. Lookup errors     - student/center/setting not found
  3. Reference errors  - input referring to a nonexistent entity
  4. Computation errors - unexpected arithmetic failure

No automatic retries exist anywhere: every failure is a synchronous
return-path signal. The aging aggregator is batch-or-nothing, so a single
failing student aborts the whole report rather than dropping a row.
*/
package ar

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTemporalRange is returned when an enrollment date lies after
	// the as-of date. Fatal to the single computation, never retried.
	ErrInvalidTemporalRange = errors.New("enrollment date after as-of date")

	// ErrStudentNotFound is returned when a referenced student doesn't exist.
	ErrStudentNotFound = errors.New("student not found")

	// ErrCenterNotFound is returned when a referenced center doesn't exist.
	ErrCenterNotFound = errors.New("center not found")

	// ErrSettingNotFound is returned when a settings key doesn't exist.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrInvalidReference is returned when input refers to a nonexistent
	// entity or carries an invalid field (client input error, not retried).
	ErrInvalidReference = errors.New("invalid reference")

	// ErrComputation is returned on unexpected arithmetic failure.
	ErrComputation = errors.New("computation error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TemporalRangeError reports an enrollment date that postdates the as-of date.
type TemporalRangeError struct {
	EnrollmentDate Date
	AsOf           Date
}

func (e *TemporalRangeError) Error() string {
	return fmt.Sprintf("enrollment date %s is after as-of date %s", e.EnrollmentDate, e.AsOf)
}

func (e *TemporalRangeError) Unwrap() error {
	return ErrInvalidTemporalRange
}

// ReferenceError reports input referencing a nonexistent entity.
type ReferenceError struct {
	Field string
	Value string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

func (e *ReferenceError) Unwrap() error {
	return ErrInvalidReference
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrCenterNotFound) ||
		errors.Is(err, ErrSettingNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, ErrInvalidTemporalRange)
}
