package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Each typed error below matches one of these with errors.Is.
var (
	ErrSchema             = errors.New("schema error")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrInvalidFilterValue = errors.New("invalid filter value")
	ErrInvalidPivotSpec   = errors.New("invalid pivot spec")
	ErrTooManyColumns     = errors.New("too many columns")
	ErrPivotBuild         = errors.New("pivot build failed")
	ErrLimitExceeded      = errors.New("export limit exceeded")
	ErrExecution          = errors.New("query execution failed")
)

// SchemaError is returned when a relation cannot be inspected.
type SchemaError struct {
	Relation string
	Reason   string
	Cause    error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error on %q: %s", e.Relation, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error { return e.Cause }

// Is matches ErrSchema.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// UnknownColumnError is returned when a name is not in the inspected schema.
type UnknownColumnError struct {
	Column    string
	Available []string
}

// Error implements the error interface.
func (e *UnknownColumnError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown column %q", e.Column)
	}
	return fmt.Sprintf("unknown column %q (available: %s)", e.Column, strings.Join(e.Available, ", "))
}

// Is matches ErrUnknownColumn.
func (e *UnknownColumnError) Is(target error) bool { return target == ErrUnknownColumn }

// InvalidFilterValueError is returned when a filter cannot be compiled.
type InvalidFilterValueError struct {
	Column string
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidFilterValueError) Error() string {
	return fmt.Sprintf("invalid filter value %q for column %q: %s", e.Value, e.Column, e.Reason)
}

// Is matches ErrInvalidFilterValue.
func (e *InvalidFilterValueError) Is(target error) bool { return target == ErrInvalidFilterValue }

// InvalidPivotSpecError lists every violation found in a pivot spec.
type InvalidPivotSpecError struct {
	Violations []string
}

// Error implements the error interface.
func (e *InvalidPivotSpecError) Error() string {
	return "invalid pivot spec: " + strings.Join(e.Violations, "; ")
}

// Is matches ErrInvalidPivotSpec.
func (e *InvalidPivotSpecError) Is(target error) bool { return target == ErrInvalidPivotSpec }

// TooManyColumnsError is returned when a wide pivot would exceed the column cap.
type TooManyColumnsError struct {
	Column string
	Found  int
	Limit  int
}

// Error implements the error interface.
func (e *TooManyColumnsError) Error() string {
	return fmt.Sprintf("column %q has %d distinct values, more than the limit of %d; add filters or use long mode",
		e.Column, e.Found, e.Limit)
}

// Is matches ErrTooManyColumns.
func (e *TooManyColumnsError) Is(target error) bool { return target == ErrTooManyColumns }

// PivotBuildError is returned when a query cannot be assembled.
type PivotBuildError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *PivotBuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pivot build failed: %s: %v", e.Reason, e.Cause)
	}
	return "pivot build failed: " + e.Reason
}

// Unwrap returns the underlying error.
func (e *PivotBuildError) Unwrap() error { return e.Cause }

// Is matches ErrPivotBuild.
func (e *PivotBuildError) Is(target error) bool { return target == ErrPivotBuild }

// LimitExceededError is returned when output does not fit the export format.
type LimitExceededError struct {
	Dimension string
	Found     int
	Limit     int
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("result has %d %s, the export format allows at most %d", e.Found, e.Dimension, e.Limit)
}

// Is matches ErrLimitExceeded.
func (e *LimitExceededError) Is(target error) bool { return target == ErrLimitExceeded }

// ExecutionError wraps an engine failure without altering it.
type ExecutionError struct {
	Query string
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Cause)
}

// Unwrap returns the engine error.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// Is matches ErrExecution.
func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }
