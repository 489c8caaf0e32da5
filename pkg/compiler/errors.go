// Package compiler provides the block compiler.
// This file defines the CompileError type for structured error reporting.
package compiler

import (
	"errors"
	"fmt"
)

// ErrorKind classifies compile-time problems.
type ErrorKind string

const (
	// KindUnsupported marks a block whose operation is not implemented.
	// It is reported as a warning; the block produces no instructions.
	KindUnsupported ErrorKind = "UnsupportedOperation"

	// KindMalformed marks a structurally invalid block tree, such as a
	// missing required parameter. It aborts compilation of that script only.
	KindMalformed ErrorKind = "MalformedProject"
)

// ErrNoTrigger is returned for a script whose first block is not a trigger.
// Such scripts are never started and are skipped at load time.
var ErrNoTrigger = errors.New("script does not start with a trigger block")

// CompileError represents a structured compilation error with the location
// of the offending block.
type CompileError struct {
	Kind      ErrorKind
	BlockID   string
	BlockType string
	Message   string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: block %s (%s): %s", e.Kind, e.BlockID, e.BlockType, e.Message)
}

// IsUnsupported reports whether err is an UnsupportedOperation compile error.
func IsUnsupported(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Kind == KindUnsupported
}

// IsMalformed reports whether err is a MalformedProject compile error.
func IsMalformed(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Kind == KindMalformed
}

func newMalformed(id, typ, format string, args ...any) *CompileError {
	return &CompileError{Kind: KindMalformed, BlockID: id, BlockType: typ, Message: fmt.Sprintf(format, args...)}
}

func newUnsupported(id, typ string) *CompileError {
	return &CompileError{Kind: KindUnsupported, BlockID: id, BlockType: typ, Message: "unsupported block"}
}
