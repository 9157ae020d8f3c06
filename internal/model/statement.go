package model

import "github.com/shopspring/decimal"

// Format identifies a bank statement wire format.
type Format string

const (
	FormatBAI2    Format = "BAI2"
	FormatMT940   Format = "MT940"
	FormatCAMT053 Format = "CAMT053"
	// FormatUnknown is only ever returned by detection; no statement carries it.
	FormatUnknown Format = "UNKNOWN"
)

// TransactionType is the direction of a movement. Magnitude lives in Amount.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Statement is one bank statement for one account and period.
type Statement struct {
	Format         Format
	AccountNumber  string // as it appears in the source, not normalized
	AccountName    string // camt.053 only
	Currency       string
	StatementDate  string // ISO 8601, precision varies by format
	PeriodStart    string
	PeriodEnd      string
	OpeningBalance decimal.Decimal // positive = asset-increasing
	ClosingBalance decimal.Decimal
	Transactions   []Transaction

	// Set when the source actually reported the balance; a zero balance is
	// otherwise indistinguishable from a missing one.
	HasOpeningBalance bool
	HasClosingBalance bool
}

// Transaction is one posted or reported movement within a Statement.
type Transaction struct {
	Date            string
	ValueDate       string
	Amount          decimal.Decimal // never negative
	Type            TransactionType
	TransactionCode string
	Reference       string
	BankReference   string
	Description     string // never empty
	Counterparty    string // camt.053 only
}

// IsCredit reports whether the transaction increases the account balance.
func (t Transaction) IsCredit() bool {
	return t.Type == TransactionCredit
}

// Signed returns the amount with the direction folded in. Only for totals;
// the stored record keeps amount and type apart.
func (t Transaction) Signed() decimal.Decimal {
	if t.IsCredit() {
		return t.Amount
	}
	return t.Amount.Neg()
}

// Diagnostic records input the decoders dropped or could not complete.
type Diagnostic struct {
	Format Format
	Line   int    // 1-based source line, 0 when not line-addressable
	Record string // record type, field tag or element name
	Reason string
}
