package export

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// cborMode uses Core Deterministic Encoding so the same statements always
// produce identical bytes.
var cborMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.TextMarshaler = cbor.TextMarshalerTextString
	mode, err := opts.EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}
	cborMode = mode
}

// CBOREncoder writes the Document as one CBOR data item.
type CBOREncoder struct{}

func (CBOREncoder) Name() string        { return "cbor" }
func (CBOREncoder) Extension() string   { return ".cbor" }
func (CBOREncoder) ContentType() string { return "application/cbor" }

func (CBOREncoder) Encode(w io.Writer, doc Document) error {
	if err := cborMode.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encoding cbor: %w", err)
	}
	return nil
}
