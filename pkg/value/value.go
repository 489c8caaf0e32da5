// Package value provides the run-time scalar used by compiled block programs.
// A Value is a tagged union of number, text, boolean, and a reference into a
// runner's scratch memory. Coercion rules follow the block language: numbers
// print as shortest decimals, booleans print as "true"/"false", and text only
// becomes a number when it parses completely.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which field of a Value is meaningful.
type Kind uint8

const (
	KindNumber Kind = iota + 1
	KindText
	KindBoolean
	KindRef
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindRef:
		return "memory-ref"
	default:
		return "invalid"
	}
}

// ReturnLabel is the scratch-memory label under which an instruction's
// produced value is stored.
const ReturnLabel = "return_value"

// Ref addresses one scratch-memory entry: the producing instruction id and a label.
type Ref struct {
	ID    string
	Label string
}

// String formats the reference as id/label.
func (r Ref) String() string {
	return r.ID + "/" + r.Label
}

// Value is an immutable run-time scalar.
// The zero Value is invalid; construct values with Number, Text, Boolean or MemoryRef.
type Value struct {
	kind Kind
	num  float64
	text string
	b    bool
	ref  Ref
}

// Number creates a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Text creates a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Boolean creates a boolean value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, b: b} }

// MemoryRef creates a reference to scratch memory entry (id, label).
func MemoryRef(id, label string) Value {
	return Value{kind: KindRef, ref: Ref{ID: id, Label: label}}
}

// ReturnOf references the return value produced by instruction id.
func ReturnOf(id string) Value { return MemoryRef(id, ReturnLabel) }

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v was built by one of the constructors.
func (v Value) IsValid() bool { return v.kind != 0 }

// IsRef reports whether v is a scratch-memory reference.
func (v Value) IsRef() bool { return v.kind == KindRef }

// Ref returns the referenced entry. ok is false when v is not a reference.
func (v Value) Ref() (Ref, bool) {
	if v.kind != KindRef {
		return Ref{}, false
	}
	return v.ref, true
}

// AsNumber coerces v to a number.
// Text must parse as a decimal number; booleans become 1 or 0.
func (v Value) AsNumber() (float64, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindText:
		if !decimal(v.text) {
			return 0, &CoercionError{From: KindText, To: KindNumber, Reason: ReasonNotANumber, Text: v.text}
		}
		n, err := strconv.ParseFloat(v.text, 64)
		if err != nil {
			return 0, &CoercionError{From: KindText, To: KindNumber, Reason: ReasonNotANumber, Text: v.text}
		}
		return n, nil
	case KindBoolean:
		if v.b {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, &CoercionError{From: v.kind, To: KindNumber, Reason: ReasonUnresolved}
	}
}

// decimal rejects the hex-float and digit-separator forms that
// strconv.ParseFloat accepts beyond plain decimal notation.
func decimal(s string) bool {
	if strings.Contains(s, "_") {
		return false
	}
	s = strings.TrimLeft(s, "+-")
	return !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X")
}

// AsText coerces v to text.
func (v Value) AsText() (string, error) {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num), nil
	case KindText:
		return v.text, nil
	case KindBoolean:
		return strconv.FormatBool(v.b), nil
	default:
		return "", &CoercionError{From: v.kind, To: KindText, Reason: ReasonUnresolved}
	}
}

// AsBoolean returns the boolean held by v. No coercion is applied:
// only a Boolean value satisfies it.
func (v Value) AsBoolean() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.b, true
}

// IsNumeric reports whether v coerces to a number.
func (v Value) IsNumeric() bool {
	_, err := v.AsNumber()
	return err == nil
}

// Equal reports whether v and o hold the same tag and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindBoolean:
		return v.b == o.b
	case KindRef:
		return v.ref == o.ref
	}
	return true
}

// String implements fmt.Stringer for logging.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return strconv.Quote(v.text)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindRef:
		return "@" + v.ref.String()
	default:
		return "<invalid>"
	}
}

// FormatNumber prints n as the shortest decimal that round-trips.
// Integral values print without a fraction ("5", not "5.0").
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Lookup reads scratch-memory entries. It is implemented by the runner memory.
type Lookup interface {
	Get(ref Ref) (Value, bool)
}

// Resolve follows at most one MemoryRef indirection through m.
// Non-reference values resolve to themselves. An absent entry, or an entry
// that is itself a reference, is reported as an UnresolvedError.
func (v Value) Resolve(m Lookup) (Value, error) {
	if v.kind != KindRef {
		return v, nil
	}
	got, ok := m.Get(v.ref)
	if !ok {
		return Value{}, &UnresolvedError{Ref: v.ref}
	}
	if got.kind == KindRef {
		return Value{}, &UnresolvedError{Ref: v.ref, Nested: true}
	}
	return got, nil
}

// GoString helps debugging output in tests.
func (v Value) GoString() string {
	return fmt.Sprintf("value.%s(%s)", v.kind, v.String())
}
