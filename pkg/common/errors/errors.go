// Package errors defines the sentinel and structured errors shared by the
// metricbus packages.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned for work submitted to an executor after shutdown.
	ErrClosed = errors.New("resource is closed")

	// ErrInvalidConfiguration is wrapped by every ValidationError.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrRejected is returned when an executor refuses a task, usually
	// because its queue is full.
	ErrRejected = errors.New("task rejected")

	// ErrUnknownMetric is wrapped by UnregisteredMetricError.
	ErrUnknownMetric = errors.New("unknown metric")
)

// ValidationError describes an invalid constructor or configuration argument.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps a failure of a named operation inside a module.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra detail, such as the name of the failing
// instance, and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// UnregisteredMetricError is raised when a sample reaches a manager under a
// name that was not part of its registration table. It always indicates a
// wiring bug.
type UnregisteredMetricError struct {
	Name  string
	Known []string
}

func (e *UnregisteredMetricError) Error() string {
	return fmt.Sprintf("metric %q is not registered (known: %v)", e.Name, e.Known)
}

func (e *UnregisteredMetricError) Unwrap() error {
	return ErrUnknownMetric
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
