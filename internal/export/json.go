package export

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONEncoder writes the Document as a single JSON object.
type JSONEncoder struct {
	Indent bool
}

func (JSONEncoder) Name() string        { return "json" }
func (JSONEncoder) Extension() string   { return ".json" }
func (JSONEncoder) ContentType() string { return "application/json" }

func (e JSONEncoder) Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	if e.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
