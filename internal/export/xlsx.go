package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	sheetStatements   = "Statements"
	sheetTransactions = "Transactions"
)

var statementColumns = []string{
	"format", "account_number", "account_name", "currency", "statement_date",
	"period_start", "period_end", "opening_balance", "closing_balance", "transactions",
}

// XLSXEncoder writes a workbook with a Statements sheet and a Transactions
// sheet. Amounts are stored as text to keep them exact.
type XLSXEncoder struct{}

func (XLSXEncoder) Name() string      { return "xlsx" }
func (XLSXEncoder) Extension() string { return ".xlsx" }
func (XLSXEncoder) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXEncoder) Encode(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetStatements); err != nil {
		return fmt.Errorf("naming statements sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetTransactions); err != nil {
		return fmt.Errorf("creating transactions sheet: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	stmtRows := make([][]string, 0, len(doc.Statements))
	var txnRows [][]string
	for _, s := range doc.Statements {
		stmtRows = append(stmtRows, []string{
			s.Format, s.AccountNumber, s.AccountName, s.Currency, s.StatementDate,
			s.PeriodStart, s.PeriodEnd, s.OpeningBalance, s.ClosingBalance,
			fmt.Sprint(len(s.Transactions)),
		})
		for _, t := range s.Transactions {
			txnRows = append(txnRows, MarshalTransaction(s, t))
		}
	}

	if err := writeSheet(f, sheetStatements, statementColumns, stmtRows, style); err != nil {
		return err
	}
	if err := writeSheet(f, sheetTransactions, strings.Split(TransactionHeader, ","), txnRows, style); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string, style int) error {
	widths := make([]int, len(header))
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("%s header: %w", sheet, err)
		}
		widths[i] = len(h)
	}

	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}

	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return fmt.Errorf("%s row %d: %w", sheet, r+2, err)
			}
			if len(v) > widths[c] {
				widths[c] = len(v)
			}
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(w + 2)
		if width < 12 {
			width = 12
		}
		if width > 60 {
			width = 60
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("%s column width: %w", sheet, err)
		}
	}
	return nil
}
