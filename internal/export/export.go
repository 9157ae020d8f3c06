// Package export writes decoded statements to files and HTTP responses.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/statement"
)

// Document is the serialized form of one parse run. Amounts are exact
// decimal strings.
type Document struct {
	Statements  []StatementRecord  `json:"statements" yaml:"statements" cbor:"statements"`
	Diagnostics []DiagnosticRecord `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty" cbor:"diagnostics,omitempty"`
	Validation  []ValidationRecord `json:"validation,omitempty" yaml:"validation,omitempty" cbor:"validation,omitempty"`
}

// StatementRecord mirrors model.Statement. Balances are empty when the
// source did not report them.
type StatementRecord struct {
	Format         string              `json:"format" yaml:"format" cbor:"format"`
	AccountNumber  string              `json:"accountNumber" yaml:"accountNumber" cbor:"accountNumber"`
	AccountName    string              `json:"accountName,omitempty" yaml:"accountName,omitempty" cbor:"accountName,omitempty"`
	Currency       string              `json:"currency" yaml:"currency" cbor:"currency"`
	StatementDate  string              `json:"statementDate" yaml:"statementDate" cbor:"statementDate"`
	PeriodStart    string              `json:"periodStart" yaml:"periodStart" cbor:"periodStart"`
	PeriodEnd      string              `json:"periodEnd" yaml:"periodEnd" cbor:"periodEnd"`
	OpeningBalance string              `json:"openingBalance,omitempty" yaml:"openingBalance,omitempty" cbor:"openingBalance,omitempty"`
	ClosingBalance string              `json:"closingBalance,omitempty" yaml:"closingBalance,omitempty" cbor:"closingBalance,omitempty"`
	Transactions   []TransactionRecord `json:"transactions" yaml:"transactions" cbor:"transactions"`
}

// TransactionRecord mirrors model.Transaction.
type TransactionRecord struct {
	Date            string `json:"date" yaml:"date" cbor:"date"`
	ValueDate       string `json:"valueDate" yaml:"valueDate" cbor:"valueDate"`
	Amount          string `json:"amount" yaml:"amount" cbor:"amount"`
	Type            string `json:"type" yaml:"type" cbor:"type"`
	TransactionCode string `json:"transactionCode,omitempty" yaml:"transactionCode,omitempty" cbor:"transactionCode,omitempty"`
	Reference       string `json:"reference,omitempty" yaml:"reference,omitempty" cbor:"reference,omitempty"`
	BankReference   string `json:"bankReference,omitempty" yaml:"bankReference,omitempty" cbor:"bankReference,omitempty"`
	Description     string `json:"description" yaml:"description" cbor:"description"`
	Counterparty    string `json:"counterparty,omitempty" yaml:"counterparty,omitempty" cbor:"counterparty,omitempty"`
}

// DiagnosticRecord mirrors model.Diagnostic.
type DiagnosticRecord struct {
	Format string `json:"format" yaml:"format" cbor:"format"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty" cbor:"line,omitempty"`
	Record string `json:"record" yaml:"record" cbor:"record"`
	Reason string `json:"reason" yaml:"reason" cbor:"reason"`
}

// ValidationRecord mirrors statement.ValidationError.
type ValidationRecord struct {
	Check       string `json:"check" yaml:"check" cbor:"check"`
	Account     string `json:"account,omitempty" yaml:"account,omitempty" cbor:"account,omitempty"`
	Description string `json:"description" yaml:"description" cbor:"description"`
}

// NewDocument converts a parse result and any validation failures.
func NewDocument(res statement.Result, validation []statement.ValidationError) Document {
	doc := Document{Statements: make([]StatementRecord, 0, len(res.Statements))}
	for _, s := range res.Statements {
		doc.Statements = append(doc.Statements, newStatementRecord(s))
	}
	for _, d := range res.Diagnostics {
		doc.Diagnostics = append(doc.Diagnostics, DiagnosticRecord{
			Format: string(d.Format),
			Line:   d.Line,
			Record: d.Record,
			Reason: d.Reason,
		})
	}
	for _, v := range validation {
		doc.Validation = append(doc.Validation, ValidationRecord{
			Check:       v.Check,
			Account:     v.Account,
			Description: v.Description,
		})
	}
	return doc
}

func newStatementRecord(s model.Statement) StatementRecord {
	rec := StatementRecord{
		Format:        string(s.Format),
		AccountNumber: s.AccountNumber,
		AccountName:   s.AccountName,
		Currency:      s.Currency,
		StatementDate: s.StatementDate,
		PeriodStart:   s.PeriodStart,
		PeriodEnd:     s.PeriodEnd,
		Transactions:  make([]TransactionRecord, 0, len(s.Transactions)),
	}
	if s.HasOpeningBalance {
		rec.OpeningBalance = FormatAmount(s.OpeningBalance)
	}
	if s.HasClosingBalance {
		rec.ClosingBalance = FormatAmount(s.ClosingBalance)
	}
	for _, t := range s.Transactions {
		rec.Transactions = append(rec.Transactions, TransactionRecord{
			Date:            t.Date,
			ValueDate:       t.ValueDate,
			Amount:          FormatAmount(t.Amount),
			Type:            string(t.Type),
			TransactionCode: t.TransactionCode,
			Reference:       t.Reference,
			BankReference:   t.BankReference,
			Description:     t.Description,
			Counterparty:    t.Counterparty,
		})
	}
	return rec
}

// FormatAmount renders at least two decimal places and never rounds.
func FormatAmount(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}

// Encoder writes a Document in one output format.
type Encoder interface {
	Encode(w io.Writer, doc Document) error
	Name() string
	Extension() string
	ContentType() string
}

// Registry holds named encoders.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry creates an empty encoder registry.
func NewRegistry() *Registry {
	return &Registry{encoders: make(map[string]Encoder)}
}

// Register adds an encoder. Panics on duplicate name.
func (r *Registry) Register(e Encoder) {
	key := strings.ToLower(e.Name())
	if _, ok := r.encoders[key]; ok {
		panic("duplicate encoder name: " + key)
	}
	r.encoders[key] = e
}

// Get returns the encoder for name, or nil.
func (r *Registry) Get(name string) Encoder {
	return r.encoders[strings.ToLower(name)]
}

// Lookup is Get with an error naming the supported encoders.
func (r *Registry) Lookup(name string) (Encoder, error) {
	if e := r.Get(name); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("unknown output format %q (supported: %s)", name, strings.Join(r.Names(), ", "))
}

// Names returns the registered encoder names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.encoders))
	for n := range r.encoders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with all built-in encoders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(JSONEncoder{Indent: true})
	r.Register(YAMLEncoder{})
	r.Register(CSVEncoder{})
	r.Register(XLSXEncoder{})
	r.Register(CBOREncoder{})
	return r
}
