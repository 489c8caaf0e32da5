package opcode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses canonical CBOR so identical programs encode to identical bytes.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("opcode: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// EncMode returns the shared canonical CBOR encoder used for programs.
func EncMode() cbor.EncMode { return encMode }
