// Package opcode defines the instruction set for the block player.
// This package is the foundation that both the compiler and VM depend on.
// The compiler flattens block trees into Instruction sequences, and the VM
// executes them with a program counter.
package opcode

import (
	"fmt"

	"github.com/zurustar/entplay/pkg/value"
)

// Op represents an operation kind.
// The VM dispatches on Op with a single switch; there is one constant per
// supported operation.
type Op string

// Operation kinds for all supported blocks.
const (
	// Nop does nothing. It is never emitted for unsupported blocks (those
	// produce no instructions) but keeps the zero Instruction harmless.
	Nop Op = "nop"

	// CalcBasic performs + - * / on two operands.
	// Operands: [left, operator(text), right]
	CalcBasic Op = "calc_basic"

	// Compare performs = ≠ > < ≥ ≤ on two operands.
	// Operands: [left, operator(text), right]
	Compare Op = "boolean_basic_operator"

	// Logic performs AND / OR on two booleans.
	// Operands: [left, operator(text), right]
	Logic Op = "boolean_and_or"

	// Not negates a boolean.
	// Operands: [operand]
	Not Op = "boolean_not"

	// CalcOperation applies a unary math function.
	// Operands: [operand, operator(text)]
	CalcOperation Op = "calc_operation"

	// QuotientMod computes floor quotient or remainder.
	// Operands: [left, right, operator(text)]
	QuotientMod Op = "quotient_and_mod"

	// Combine concatenates two operands as text.
	// Operands: [left, right]
	Combine Op = "combine_something"

	// LengthOf counts the characters of a text operand.
	// Operands: [text]
	LengthOf Op = "length_of_string"

	// GetVariable produces a variable's current value.
	// Operands: [variable id or name]
	GetVariable Op = "get_variable"

	// SetVariable writes a variable.
	// Operands: [variable id or name, value]
	SetVariable Op = "set_variable"

	// ChangeVariable adds to a variable numerically, or appends as text.
	// Operands: [variable id or name, delta]
	ChangeVariable Op = "change_variable"

	// MoveDirection moves the owner by amount along x.
	// Operands: [amount]
	MoveDirection Op = "move_direction"

	// MoveX moves the owner by dx.
	// Operands: [dx]
	MoveX Op = "move_x"

	// MoveY moves the owner by dy.
	// Operands: [dy]
	MoveY Op = "move_y"

	// LocateXY sets the owner's position.
	// Operands: [x, y]
	LocateXY Op = "locate_xy"

	// Locate copies the position of another object or of the pointer.
	// Operands: [target id or "mouse"]
	Locate Op = "locate"

	// MoveXYTime moves the owner by (dx, dy) over a number of seconds.
	// Operands: [seconds, dx, dy]
	MoveXYTime Op = "move_xy_time"

	// Coordinate produces a coordinate of an object.
	// Operands: [target id or "self", coordinate name]
	Coordinate Op = "coordinate_object"

	// WaitSecond suspends until the given number of seconds has elapsed.
	// Operands: [seconds]
	WaitSecond Op = "wait_second"

	// If enters its body when the condition holds, otherwise skips it.
	// Operands: [condition]  Jump: [statements_length]
	If Op = "_if"

	// IfElse enters the then-branch when the condition holds, otherwise the else-branch.
	// Operands: [condition]  Jump: [then_length]
	IfElse Op = "if_else"

	// Jump skips forward unconditionally. It terminates the then-branch of IfElse.
	// Jump: [else_length]
	Jump Op = "jump"

	// RepeatBasic is the header of a counted loop.
	// Operands: [count]  Jump: [statements_length]
	RepeatBasic Op = "repeat_basic"

	// RepeatInf is the header of an endless loop.
	// Jump: [statements_length]
	RepeatInf Op = "repeat_inf"

	// RepeatEnd closes any loop: it jumps back to the header and suspends.
	// Jump: [statements_length]
	RepeatEnd Op = "repeat_basic_end"
)

// Operator names carried as text operands.
const (
	OpPlus   = "PLUS"
	OpMinus  = "MINUS"
	OpMulti  = "MULTI"
	OpDivide = "DIVIDE"

	OpEqual          = "EQUAL"
	OpNotEqual       = "NOT_EQUAL"
	OpGreater        = "GREATER"
	OpLess           = "LESS"
	OpGreaterOrEqual = "GREATER_OR_EQUAL"
	OpLessOrEqual    = "LESS_OR_EQUAL"

	OpAnd = "AND"
	OpOr  = "OR"

	OpQuotient = "QUOTIENT"
	OpMod      = "MOD"
)

// Locate and coordinate targets with special meaning.
const (
	TargetPointer = "mouse"
	TargetSelf    = "self"
)

// Instruction is one compiled, runnable step.
// ID is the source block id; a loop's end marker shares its header's id.
// Instructions are immutable after compilation and shared by every runner
// instantiated from the same program.
type Instruction struct {
	ID       string        `cbor:"id"`
	Op       Op            `cbor:"op"`
	Operands []value.Value `cbor:"args,omitempty"`
	Jump     []value.Value `cbor:"jump,omitempty"`
}

// Operand returns operand i, or an invalid Value when out of range.
func (in Instruction) Operand(i int) value.Value {
	if i < 0 || i >= len(in.Operands) {
		return value.Value{}
	}
	return in.Operands[i]
}

// Length returns the statements_length carried in the jump data.
func (in Instruction) Length() (int, error) {
	if len(in.Jump) == 0 {
		return 0, fmt.Errorf("instruction %s (%s) has no jump data", in.ID, in.Op)
	}
	n, err := in.Jump[0].AsNumber()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("instruction %s (%s) has negative length %v", in.ID, in.Op, n)
	}
	return int(n), nil
}

// String formats the instruction for debug logs.
func (in Instruction) String() string {
	return fmt.Sprintf("%s(%s) %v %v", in.Op, in.ID, in.Operands, in.Jump)
}

// Program is a flat, ordered instruction list produced once at load time.
type Program []Instruction

// Len returns the number of instructions.
func (p Program) Len() int { return len(p) }

// At returns the instruction at pc. ok is false past the end.
func (p Program) At(pc int) (Instruction, bool) {
	if pc < 0 || pc >= len(p) {
		return Instruction{}, false
	}
	return p[pc], true
}

// LastID returns the id of the final instruction, or "" for an empty program.
func (p Program) LastID() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1].ID
}
