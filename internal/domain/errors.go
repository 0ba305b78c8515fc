package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during scoring and election operations.
var (
	// ErrNotFound indicates that a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates that a record with the same identity already exists.
	ErrDuplicate = errors.New("duplicate record")

	// ErrAlreadyVoted indicates that the voter has already voted for the position.
	ErrAlreadyVoted = fmt.Errorf("already voted for position: %w", ErrDuplicate)

	// ErrAlreadyRated indicates that the interviewer has already rated the candidate.
	ErrAlreadyRated = fmt.Errorf("already rated candidate: %w", ErrDuplicate)

	// ErrIneligible indicates that a year/shift combination does not qualify
	// for any position, or not for the claimed one.
	ErrIneligible = errors.New("ineligible for position")

	// ErrInvalidCredentials indicates that a login identifier or secret did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden indicates that the principal lacks the capability for an operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidEnvelope indicates a malformed dataset import document.
	ErrInvalidEnvelope = errors.New("invalid dataset envelope")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// RecordError represents an error that occurred while reading or writing a
// record. It provides context about which collection, record and operation
// caused the error.
type RecordError struct {
	// Collection is the name of the collection involved in the failed operation.
	Collection string

	// ID is the record identifier, empty for collection-wide operations.
	ID string

	// Operation describes what was being performed when the error occurred.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for RecordError.
func (e *RecordError) Error() string {
	return fmt.Sprintf("record error: operation=%s, collection=%s, id=%s, err=%v",
		e.Operation, e.Collection, e.ID, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *RecordError) Unwrap() error { return e.Err }

// NewRecordError creates a new RecordError with the given details.
func NewRecordError(collection, id, operation string, err error) *RecordError {
	return &RecordError{
		Collection: collection,
		ID:         id,
		Operation:  operation,
		Err:        err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// AddErrorf adds a formatted error message to the validation error.
func (e *ValidationError) AddErrorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// OrNil returns the error when it holds messages and nil otherwise, so that
// callers can accumulate failures and return the result directly.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// EligibilityError explains why a nomination was rejected by naming the year
// and shift the claimed position requires.
type EligibilityError struct {
	Position      Position
	Year          int
	Shift         Shift
	RequiredYear  int
	RequiredShift Shift
}

// Error implements the error interface for EligibilityError.
func (e *EligibilityError) Error() string {
	if e.Position == PositionNone {
		return fmt.Sprintf("no position for year %d, shift %d", e.Year, e.Shift)
	}
	if e.RequiredYear == 0 {
		return fmt.Sprintf("unknown position %q", string(e.Position))
	}
	return fmt.Sprintf("not eligible for %s: required year %d, shift %d; got year %d, shift %d",
		e.Position, e.RequiredYear, e.RequiredShift, e.Year, e.Shift)
}

// Unwrap lets callers match the error with errors.Is(err, ErrIneligible).
func (e *EligibilityError) Unwrap() error { return ErrIneligible }
