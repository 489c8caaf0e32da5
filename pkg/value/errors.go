package value

import "fmt"

// Reason explains why a coercion failed.
type Reason string

const (
	// ReasonNotANumber is reported when text does not parse as a number.
	ReasonNotANumber Reason = "NotANumber"
	// ReasonUnresolved is reported when a memory reference is coerced before it was resolved.
	ReasonUnresolved Reason = "Unresolved"
)

// CoercionError is returned when a value cannot be interpreted as the
// requested type.
type CoercionError struct {
	From   Kind
	To     Kind
	Reason Reason
	Text   string // offending text, for ReasonNotANumber
}

// Error implements the error interface.
func (e *CoercionError) Error() string {
	if e.Reason == ReasonNotANumber {
		return fmt.Sprintf("cannot convert %s to %s: %q is not a number", e.From, e.To, e.Text)
	}
	return fmt.Sprintf("cannot convert %s to %s: %s", e.From, e.To, e.Reason)
}

// UnresolvedError is returned by Resolve when a referenced scratch entry is
// missing. Correct compilation orders producers before consumers, so this
// indicates a compiler or runtime bug.
type UnresolvedError struct {
	Ref    Ref
	Nested bool // entry exists but holds another reference
}

// Error implements the error interface.
func (e *UnresolvedError) Error() string {
	if e.Nested {
		return fmt.Sprintf("scratch entry %s holds a reference", e.Ref)
	}
	return fmt.Sprintf("scratch entry %s not found", e.Ref)
}
