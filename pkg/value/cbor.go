package value

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode is canonical so a Value encodes to the same bytes wherever it is
// nested.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("value: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// wireValue is the CBOR layout of a Value. Only the field matching K is set.
type wireValue struct {
	K     Kind    `cbor:"k"`
	N     float64 `cbor:"n,omitempty"`
	S     string  `cbor:"s,omitempty"`
	B     bool    `cbor:"b,omitempty"`
	ID    string  `cbor:"id,omitempty"`
	Label string  `cbor:"l,omitempty"`
}

// MarshalCBOR implements cbor.Marshaler.
func (v Value) MarshalCBOR() ([]byte, error) {
	w := wireValue{K: v.kind}
	switch v.kind {
	case KindNumber:
		w.N = v.num
	case KindText:
		w.S = v.text
	case KindBoolean:
		w.B = v.b
	case KindRef:
		w.ID, w.Label = v.ref.ID, v.ref.Label
	default:
		return nil, fmt.Errorf("value: cannot encode invalid value")
	}
	return encMode.Marshal(w)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var w wireValue
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("value: unmarshal: %w", err)
	}
	switch w.K {
	case KindNumber:
		*v = Number(w.N)
	case KindText:
		*v = Text(w.S)
	case KindBoolean:
		*v = Boolean(w.B)
	case KindRef:
		*v = MemoryRef(w.ID, w.Label)
	default:
		return fmt.Errorf("value: unknown kind %d", w.K)
	}
	return nil
}
