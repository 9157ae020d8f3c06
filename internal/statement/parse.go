// Package statement decodes BAI2, MT940 and camt.053 bank statements into
// the normalized model. Parsing is pure: no I/O, no clock, no shared state.
package statement

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// AutoDetect is the declared-format sentinel that requests detection.
const AutoDetect = "auto"

// Result is the outcome of decoding one payload.
type Result struct {
	Statements  []model.Statement
	Diagnostics []model.Diagnostic
}

// TransactionCount returns the number of transactions across all statements.
func (r Result) TransactionCount() int {
	n := 0
	for _, s := range r.Statements {
		n += len(s.Transactions)
	}
	return n
}

func (r *Result) skip(format model.Format, line int, record, reason string) {
	r.Diagnostics = append(r.Diagnostics, model.Diagnostic{
		Format: format,
		Line:   line,
		Record: record,
		Reason: reason,
	})
}

// FormatError reports a payload whose format is undetectable or a declared
// format that is not supported.
type FormatError struct {
	Declared string // empty when detection failed
}

func (e *FormatError) Error() string {
	if e.Declared == "" {
		return "unknown statement format: content matches no supported signature"
	}
	return fmt.Sprintf("unknown statement format %q", e.Declared)
}

// ParseFormat resolves a declared format hint. It returns the zero Format
// when the hint asks for auto-detection.
func ParseFormat(declared string) (model.Format, error) {
	switch strings.ToUpper(strings.TrimSpace(declared)) {
	case "", "AUTO":
		return "", nil
	case "BAI2", "BAI":
		return model.FormatBAI2, nil
	case "MT940":
		return model.FormatMT940, nil
	case "CAMT053", "CAMT.053":
		return model.FormatCAMT053, nil
	default:
		return "", &FormatError{Declared: declared}
	}
}

// Parser selects a decoder for a payload and runs it.
type Parser struct {
	registry *Registry
}

// NewParser creates a Parser over the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse decodes content using the declared format, detecting it when declared
// is empty or AutoDetect. The only error it returns is *FormatError.
func (p *Parser) Parse(content, declared string) (Result, error) {
	format, err := ParseFormat(declared)
	if err != nil {
		return Result{}, err
	}
	if format == "" {
		format = Detect(content)
		if format == model.FormatUnknown {
			return Result{}, &FormatError{}
		}
	}

	dec := p.registry.Get(format)
	if dec == nil {
		return Result{}, &FormatError{Declared: string(format)}
	}
	return dec.Decode(content), nil
}

// Parse decodes content with the built-in decoders and returns statements only.
func Parse(content, declared string) ([]model.Statement, error) {
	res, err := ParseWithDiagnostics(content, declared)
	if err != nil {
		return nil, err
	}
	return res.Statements, nil
}

// ParseWithDiagnostics is Parse plus the list of lines and fields that were dropped.
func ParseWithDiagnostics(content, declared string) (Result, error) {
	return NewParser(DefaultRegistry()).Parse(content, declared)
}
