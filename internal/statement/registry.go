package statement

import (
	"sort"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// Decoder converts a raw statement payload in one wire format into statements.
// Decoders never fail: malformed input is dropped and reported as diagnostics.
type Decoder interface {
	Decode(content string) Result
	Format() model.Format
}

// Registry holds decoders keyed by format.
type Registry struct {
	decoders map[model.Format]Decoder
}

// NewRegistry creates an empty decoder registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[model.Format]Decoder)}
}

// Register adds a decoder. Panics on duplicate format.
func (r *Registry) Register(d Decoder) {
	f := d.Format()
	if _, ok := r.decoders[f]; ok {
		panic("duplicate decoder format: " + string(f))
	}
	r.decoders[f] = d
}

// Get returns the decoder for format, or nil.
func (r *Registry) Get(f model.Format) Decoder {
	return r.decoders[f]
}

// Formats returns the registered formats in sorted order.
func (r *Registry) Formats() []model.Format {
	formats := make([]model.Format, 0, len(r.decoders))
	for f := range r.decoders {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// DefaultRegistry returns a registry with all built-in decoders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(BAI2Decoder{})
	r.Register(MT940Decoder{})
	r.Register(CAMT053Decoder{})
	return r
}

// BAI2Decoder decodes BAI2 cash-management files.
type BAI2Decoder struct{}

// Format returns model.FormatBAI2.
func (BAI2Decoder) Format() model.Format { return model.FormatBAI2 }

// Decode parses content with ParseBAI2.
func (BAI2Decoder) Decode(content string) Result { return ParseBAI2(content) }

// MT940Decoder decodes SWIFT MT940 customer statements.
type MT940Decoder struct{}

// Format returns model.FormatMT940.
func (MT940Decoder) Format() model.Format { return model.FormatMT940 }

// Decode parses content with ParseMT940.
func (MT940Decoder) Decode(content string) Result { return ParseMT940(content) }

// CAMT053Decoder decodes ISO 20022 camt.053 statements.
type CAMT053Decoder struct{}

// Format returns model.FormatCAMT053.
func (CAMT053Decoder) Format() model.Format { return model.FormatCAMT053 }

// Decode parses content with ParseCAMT053.
func (CAMT053Decoder) Decode(content string) Result { return ParseCAMT053(content) }
