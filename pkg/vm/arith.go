package vm

import (
	"fmt"
	"math"

	"github.com/zurustar/entplay/pkg/opcode"
	"github.com/zurustar/entplay/pkg/value"
)

// CalcBasic applies + - * / to two resolved operands.
// PLUS concatenates as text when either side is not numeric.
func CalcBasic(a value.Value, operator string, b value.Value) (value.Value, error) {
	if operator == opcode.OpPlus && !(a.IsNumeric() && b.IsNumeric()) {
		return concat(a, b)
	}
	x, err := a.AsNumber()
	if err != nil {
		return value.Value{}, err
	}
	y, err := b.AsNumber()
	if err != nil {
		return value.Value{}, err
	}
	switch operator {
	case opcode.OpPlus:
		return value.Number(x + y), nil
	case opcode.OpMinus:
		return value.Number(x - y), nil
	case opcode.OpMulti:
		return value.Number(x * y), nil
	case opcode.OpDivide:
		return value.Number(x / y), nil
	}
	return value.Value{}, unknownOperator(operator)
}

// Compare applies = ≠ > < ≥ ≤. Equality falls back to text comparison when
// the operands are not both numeric; ordering requires numbers.
func Compare(a value.Value, operator string, b value.Value) (value.Value, error) {
	numeric := a.IsNumeric() && b.IsNumeric()
	switch operator {
	case opcode.OpEqual, opcode.OpNotEqual:
		var eq bool
		if numeric {
			x, _ := a.AsNumber()
			y, _ := b.AsNumber()
			eq = x == y
		} else {
			s, err := a.AsText()
			if err != nil {
				return value.Value{}, err
			}
			t, err := b.AsText()
			if err != nil {
				return value.Value{}, err
			}
			eq = s == t
		}
		return value.Boolean(eq == (operator == opcode.OpEqual)), nil
	case opcode.OpGreater, opcode.OpLess, opcode.OpGreaterOrEqual, opcode.OpLessOrEqual:
	default:
		return value.Value{}, unknownOperator(operator)
	}

	if !numeric {
		return value.Value{}, NewTypeMismatchError(operator, a, b)
	}
	x, _ := a.AsNumber()
	y, _ := b.AsNumber()
	var r bool
	switch operator {
	case opcode.OpGreater:
		r = x > y
	case opcode.OpLess:
		r = x < y
	case opcode.OpGreaterOrEqual:
		r = x >= y
	case opcode.OpLessOrEqual:
		r = x <= y
	}
	return value.Boolean(r), nil
}

// Logic applies AND / OR. Both operands must be booleans.
func Logic(a value.Value, operator string, b value.Value) (value.Value, error) {
	x, ok1 := a.AsBoolean()
	y, ok2 := b.AsBoolean()
	if !ok1 || !ok2 {
		return value.Value{}, NewTypeMismatchError(operator, a, b)
	}
	switch operator {
	case opcode.OpAnd:
		return value.Boolean(x && y), nil
	case opcode.OpOr:
		return value.Boolean(x || y), nil
	}
	return value.Value{}, unknownOperator(operator)
}

// Unary applies a calc_operation function. Trigonometric functions take
// degrees, and the inverse functions return degrees.
func Unary(name string, v float64) (float64, error) {
	switch name {
	case "square":
		return v * v, nil
	case "root":
		return math.Sqrt(v), nil
	case "sin":
		return math.Sin(radians(v)), nil
	case "cos":
		return math.Cos(radians(v)), nil
	case "tan":
		return math.Tan(radians(v)), nil
	case "asin_radian":
		return degrees(math.Asin(v)), nil
	case "acos_radian":
		return degrees(math.Acos(v)), nil
	case "atan_radian":
		return degrees(math.Atan(v)), nil
	case "log":
		return math.Log10(v), nil
	case "ln":
		return math.Log(v), nil
	case "unnatural":
		r := v - math.Round(v)
		if v < 0 {
			return 1 - r, nil
		}
		return r, nil
	case "floor":
		return math.Floor(v), nil
	case "ceil":
		return math.Ceil(v), nil
	case "round":
		return math.Round(v), nil
	case "factorial":
		// The editor labels this "factorial" but projects expect the fractional part.
		_, frac := math.Modf(v)
		return frac, nil
	case "abs":
		return math.Abs(v), nil
	}
	return 0, unknownOperator(name)
}

// QuotientMod computes floor(a/b) for QUOTIENT and a remainder with the
// sign of a for MOD.
func QuotientMod(a, b float64, operator string) (float64, error) {
	switch operator {
	case opcode.OpQuotient:
		return math.Floor(a / b), nil
	case opcode.OpMod:
		return math.Mod(a, b), nil
	}
	return 0, unknownOperator(operator)
}

func concat(a, b value.Value) (value.Value, error) {
	s, err := a.AsText()
	if err != nil {
		return value.Value{}, err
	}
	t, err := b.AsText()
	if err != nil {
		return value.Value{}, err
	}
	return value.Text(s + t), nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func unknownOperator(name string) *RuntimeError {
	return NewRuntimeError(ErrorInvalidOperation, fmt.Sprintf("unknown operator %q", name))
}
