// Package vm provides error handling for the block player runtime.
package vm

import (
	"errors"
	"fmt"

	"github.com/zurustar/entplay/pkg/value"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	// ErrorCoercion is raised when an operand cannot be converted to the
	// type an operation requires.
	ErrorCoercion ErrorType = "COERCION"

	// ErrorTypeMismatch is raised when an ordering comparison, a logic
	// operation or a condition receives operands of the wrong type.
	ErrorTypeMismatch ErrorType = "TYPE_MISMATCH"

	// ErrorLookupFailure is raised when a variable, object or scratch entry
	// is absent.
	ErrorLookupFailure ErrorType = "LOOKUP_FAILURE"

	// ErrorInvalidOperation is raised for corrupt instructions, such as
	// missing jump data or an unknown operator name.
	ErrorInvalidOperation ErrorType = "INVALID_OPERATION"
)

// RuntimeError represents a runtime error raised while stepping a runner.
type RuntimeError struct {
	Type          ErrorType
	Message       string
	InstructionID string // Source block id, "" if not known
	PC            int    // Program counter, -1 if not known
	Err           error  // Underlying cause, if any
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.InstructionID != "" {
		return fmt.Sprintf("[%s] %s at %s (pc %d)", e.Type, e.Message, e.InstructionID, e.PC)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the runner must stop.
// Every runtime error is fatal to its runner; other runners continue.
func (e *RuntimeError) IsFatal() bool {
	switch e.Type {
	case ErrorCoercion, ErrorTypeMismatch, ErrorLookupFailure, ErrorInvalidOperation:
		return true
	default:
		return false
	}
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		PC:      -1,
	}
}

// NewLookupError creates a lookup failure for a missing named entity.
func NewLookupError(kind, key string) *RuntimeError {
	return NewRuntimeError(ErrorLookupFailure, fmt.Sprintf("%s not found: %s", kind, key))
}

// NewTypeMismatchError creates a type mismatch for an operator.
func NewTypeMismatchError(operator string, operands ...value.Value) *RuntimeError {
	return NewRuntimeError(ErrorTypeMismatch, fmt.Sprintf("%s does not accept %v", operator, operands))
}

// wrapValueError maps errors from the value package onto the runtime taxonomy.
func wrapValueError(err error) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re
	}
	var ce *value.CoercionError
	if errors.As(err, &ce) {
		return &RuntimeError{Type: ErrorCoercion, Message: ce.Error(), PC: -1, Err: err}
	}
	var ue *value.UnresolvedError
	if errors.As(err, &ue) {
		return &RuntimeError{Type: ErrorLookupFailure, Message: ue.Error(), PC: -1, Err: err}
	}
	return &RuntimeError{Type: ErrorInvalidOperation, Message: err.Error(), PC: -1, Err: err}
}

// IsRuntimeError reports whether err is a RuntimeError of type t.
func IsRuntimeError(err error, t ErrorType) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Type == t
}
