package compiler

import "github.com/zurustar/entplay/pkg/opcode"

// shape describes how a block lays out its instructions.
type shape int

const (
	shapeSimple shape = iota // one instruction
	shapeIf                  // header, body
	shapeIfElse              // header, then, jump, else
	shapeLoop                // header, body, end marker
)

// operand describes where an operand comes from in the block's params.
// Operator operands must be compile-time constants from a fixed set.
type operand struct {
	index     int
	operators map[string]bool
}

type blockSpec struct {
	op       opcode.Op
	operands []operand
	shape    shape
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func at(i int) operand { return operand{index: i} }

func operatorAt(i int, names map[string]bool) operand {
	return operand{index: i, operators: names}
}

var (
	calcOperators = set(opcode.OpPlus, opcode.OpMinus, opcode.OpMulti, opcode.OpDivide)

	compareOperators = set(opcode.OpEqual, opcode.OpNotEqual, opcode.OpGreater, opcode.OpLess,
		opcode.OpGreaterOrEqual, opcode.OpLessOrEqual)

	logicOperators = set(opcode.OpAnd, opcode.OpOr)

	quotientOperators = set(opcode.OpQuotient, opcode.OpMod)

	// calc_operation function names.
	unaryOperators = set("square", "root", "sin", "cos", "tan",
		"asin_radian", "acos_radian", "atan_radian", "log", "ln",
		"unnatural", "floor", "ceil", "round", "factorial", "abs")
)

// catalog maps block type names to their compiled form.
// Param indexes follow the editor's layout, which interleaves label slots.
var catalog = map[string]blockSpec{
	"calc_basic":             {op: opcode.CalcBasic, operands: []operand{at(0), operatorAt(1, calcOperators), at(2)}},
	"boolean_basic_operator": {op: opcode.Compare, operands: []operand{at(0), operatorAt(1, compareOperators), at(2)}},
	"boolean_and_or":         {op: opcode.Logic, operands: []operand{at(0), operatorAt(1, logicOperators), at(2)}},
	"boolean_not":            {op: opcode.Not, operands: []operand{at(1)}},
	"calc_operation":         {op: opcode.CalcOperation, operands: []operand{at(1), operatorAt(3, unaryOperators)}},
	"quotient_and_mod":       {op: opcode.QuotientMod, operands: []operand{at(1), at(3), operatorAt(5, quotientOperators)}},
	"combine_something":      {op: opcode.Combine, operands: []operand{at(1), at(3)}},
	"length_of_string":       {op: opcode.LengthOf, operands: []operand{at(0)}},

	"get_variable":    {op: opcode.GetVariable, operands: []operand{at(0)}},
	"set_variable":    {op: opcode.SetVariable, operands: []operand{at(0), at(1)}},
	"change_variable": {op: opcode.ChangeVariable, operands: []operand{at(0), at(1)}},

	"move_direction":    {op: opcode.MoveDirection, operands: []operand{at(0)}},
	"move_x":            {op: opcode.MoveX, operands: []operand{at(0)}},
	"move_y":            {op: opcode.MoveY, operands: []operand{at(0)}},
	"locate_xy":         {op: opcode.LocateXY, operands: []operand{at(0), at(1)}},
	"locate":            {op: opcode.Locate, operands: []operand{at(0)}},
	"move_xy_time":      {op: opcode.MoveXYTime, operands: []operand{at(0), at(1), at(2)}},
	"coordinate_object": {op: opcode.Coordinate, operands: []operand{at(1), at(3)}},

	"wait_second": {op: opcode.WaitSecond, operands: []operand{at(0)}},

	"_if":          {op: opcode.If, operands: []operand{at(0)}, shape: shapeIf},
	"if_else":      {op: opcode.IfElse, operands: []operand{at(0)}, shape: shapeIfElse},
	"repeat_basic": {op: opcode.RepeatBasic, operands: []operand{at(0)}, shape: shapeLoop},
	"repeat_inf":   {op: opcode.RepeatInf, shape: shapeLoop},
}

// Literal wrapper blocks carry a constant and are unwrapped at compile time.
var (
	wrapperBlocks = set("number", "text", "angle")
	booleanBlocks = map[string]bool{"True": true, "False": false}
)
