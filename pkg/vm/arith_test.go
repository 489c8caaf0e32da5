package vm

import (
	"math"
	"testing"

	"github.com/zurustar/entplay/pkg/opcode"
	"github.com/zurustar/entplay/pkg/value"
)

func TestCalcBasic(t *testing.T) {
	tests := []struct {
		name string
		a    value.Value
		op   string
		b    value.Value
		want value.Value
	}{
		{"add numbers", value.Number(2), opcode.OpPlus, value.Number(3), value.Number(5)},
		{"add numeric text", value.Text("1.5"), opcode.OpPlus, value.Number(1), value.Number(2.5)},
		{"concat text", value.Text("a"), opcode.OpPlus, value.Text("b"), value.Text("ab")},
		{"concat mixed", value.Number(1), opcode.OpPlus, value.Text("x"), value.Text("1x")},
		{"hex text concatenates", value.Text("0x1p4"), opcode.OpPlus, value.Number(1), value.Text("0x1p41")},
		{"subtract", value.Number(5), opcode.OpMinus, value.Number(7), value.Number(-2)},
		{"multiply bool", value.Boolean(true), opcode.OpMulti, value.Number(4), value.Number(4)},
		{"divide", value.Number(1), opcode.OpDivide, value.Number(4), value.Number(0.25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalcBasic(tt.a, tt.op, tt.b)
			if err != nil {
				t.Fatalf("CalcBasic: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}

	if _, err := CalcBasic(value.Text("a"), opcode.OpMinus, value.Number(1)); err == nil {
		t.Error("MINUS on text must fail")
	}
	if _, err := CalcBasic(value.Number(1), "POW", value.Number(1)); !IsRuntimeError(err, ErrorInvalidOperation) {
		t.Errorf("unknown operator err = %v", err)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a    value.Value
		op   string
		b    value.Value
		want bool
	}{
		{"numeric equal across kinds", value.Text("1.0"), opcode.OpEqual, value.Number(1), true},
		{"text equal", value.Text("a"), opcode.OpEqual, value.Text("a"), true},
		{"text not equal", value.Text("a"), opcode.OpNotEqual, value.Text("b"), true},
		{"greater", value.Number(3), opcode.OpGreater, value.Number(2), true},
		{"less", value.Number(3), opcode.OpLess, value.Number(2), false},
		{"greater or equal", value.Number(2), opcode.OpGreaterOrEqual, value.Number(2), true},
		{"less or equal", value.Text("10"), opcode.OpLessOrEqual, value.Text("9"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.op, tt.b)
			if err != nil {
				t.Fatalf("Compare: %v", err)
			}
			if !got.Equal(value.Boolean(tt.want)) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := Compare(value.Text("a"), opcode.OpLess, value.Text("b")); !IsRuntimeError(err, ErrorTypeMismatch) {
		t.Errorf("ordering on text err = %v, want TYPE_MISMATCH", err)
	}
}

func TestLogic(t *testing.T) {
	got, err := Logic(value.Boolean(true), opcode.OpAnd, value.Boolean(false))
	if err != nil || !got.Equal(value.Boolean(false)) {
		t.Errorf("AND = %v, %v", got, err)
	}
	got, err = Logic(value.Boolean(true), opcode.OpOr, value.Boolean(false))
	if err != nil || !got.Equal(value.Boolean(true)) {
		t.Errorf("OR = %v, %v", got, err)
	}
	if _, err := Logic(value.Number(1), opcode.OpAnd, value.Boolean(true)); !IsRuntimeError(err, ErrorTypeMismatch) {
		t.Errorf("AND on number err = %v", err)
	}
}

func TestUnary(t *testing.T) {
	const eps = 1e-9
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"square", 3, 9},
		{"root", 16, 4},
		{"sin", 30, 0.5},
		{"cos", 60, 0.5},
		{"tan", 45, 1},
		{"asin_radian", 0.5, 30},
		{"acos_radian", 0.5, 60},
		{"atan_radian", 1, 45},
		{"log", 1000, 3},
		{"ln", math.E, 1},
		{"floor", -1.5, -2},
		{"ceil", 1.2, 2},
		{"round", 2.5, 3},
		{"factorial", 3.25, 0.25},
		{"abs", -7, 7},
		{"unnatural", 2.25, 0.25},
		{"unnatural", -2.25, 1.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unary(tt.name, tt.in)
			if err != nil {
				t.Fatalf("Unary: %v", err)
			}
			if math.Abs(got-tt.want) > eps {
				t.Errorf("%s(%v) = %v, want %v", tt.name, tt.in, got, tt.want)
			}
		})
	}
	if _, err := Unary("cube", 1); err == nil {
		t.Error("unknown function must fail")
	}
}

func TestQuotientMod(t *testing.T) {
	tests := []struct {
		a, b float64
		op   string
		want float64
	}{
		{7, 2, opcode.OpQuotient, 3},
		{-7, 2, opcode.OpQuotient, -4},
		{7, 2, opcode.OpMod, 1},
		{-7, 2, opcode.OpMod, -1},
	}
	for _, tt := range tests {
		got, err := QuotientMod(tt.a, tt.b, tt.op)
		if err != nil {
			t.Fatalf("QuotientMod: %v", err)
		}
		if got != tt.want {
			t.Errorf("%v %s %v = %v, want %v", tt.a, tt.op, tt.b, got, tt.want)
		}
	}
}
