package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// TransactionHeader is the CSV header for transaction exports.
const TransactionHeader = "format,account_number,currency,statement_date,date,value_date,type,amount,transaction_code,reference,bank_reference,description,counterparty"

const (
	numTxnFields = 13
	colFormat    = 0
	colAccount   = 1
	colCurrency  = 2
	colStmtDate  = 3
	colDate      = 4
	colValueDate = 5
	colType      = 6
	colAmount    = 7
	colCode      = 8
	colRef       = 9
	colBankRef   = 10
	colDesc      = 11
	colCparty    = 12
)

// CSVEncoder writes one row per transaction. Statements without
// transactions produce no rows; diagnostics are not written.
type CSVEncoder struct{}

func (CSVEncoder) Name() string        { return "csv" }
func (CSVEncoder) Extension() string   { return ".csv" }
func (CSVEncoder) ContentType() string { return "text/csv" }

func (CSVEncoder) Encode(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(TransactionHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, s := range doc.Statements {
		for _, t := range s.Transactions {
			if err := cw.Write(MarshalTransaction(s, t)); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction flattens a transaction and its statement into a row.
func MarshalTransaction(s StatementRecord, t TransactionRecord) []string {
	row := make([]string, numTxnFields)
	row[colFormat] = s.Format
	row[colAccount] = s.AccountNumber
	row[colCurrency] = s.Currency
	row[colStmtDate] = s.StatementDate
	row[colDate] = t.Date
	row[colValueDate] = t.ValueDate
	row[colType] = t.Type
	row[colAmount] = t.Amount
	row[colCode] = t.TransactionCode
	row[colRef] = t.Reference
	row[colBankRef] = t.BankReference
	row[colDesc] = t.Description
	row[colCparty] = t.Counterparty
	return row
}
