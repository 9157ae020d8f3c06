package export

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLEncoder writes the Document as YAML.
type YAMLEncoder struct{}

func (YAMLEncoder) Name() string        { return "yaml" }
func (YAMLEncoder) Extension() string   { return ".yaml" }
func (YAMLEncoder) ContentType() string { return "application/yaml" }

func (YAMLEncoder) Encode(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing yaml encoder: %w", err)
	}
	return nil
}
