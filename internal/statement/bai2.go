package statement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankfeed/internal/model"
)

const (
	bai2FileHeader     = "01"
	bai2GroupHeader    = "02"
	bai2AccountIdent   = "03"
	bai2Detail         = "16"
	bai2AccountTrailer = "49"
	bai2Continuation   = "88"
	bai2GroupTrailer   = "98"
	bai2FileTrailer    = "99"
)

// Field positions after the record type.
const (
	bai2FileColCreated   = 3
	bai2GroupColAsOfDate = 4
	bai2GroupColCurrency = 6
	bai2AcctColNumber    = 1
	bai2AcctColCurrency  = 2
	bai2AcctColSummary   = 3
	bai2DetailColCode    = 1
	bai2DetailColAmount  = 2
	bai2DetailColFunds   = 3
)

// bai2Record is one logical record: a physical line plus any 88 continuations.
type bai2Record struct {
	line   int
	fields []string
	breaks map[int]bool // field indexes that start a continuation line
}

func (r bai2Record) recordType() string {
	return r.field(0)
}

func (r bai2Record) field(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// textFrom rejoins the free-text tail. Commas inside the text were split as
// field separators; continuation boundaries become spaces.
func (r bai2Record) textFrom(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	var sb strings.Builder
	for j := i; j < len(r.fields); j++ {
		if j > i {
			if r.breaks[j] {
				sb.WriteByte(' ')
			} else {
				sb.WriteByte(',')
			}
		}
		sb.WriteString(r.fields[j])
	}
	return strings.TrimSpace(sb.String())
}

// readBAI2Records splits content into logical records, folding 88 lines into
// the record they continue.
func readBAI2Records(content string) ([]bai2Record, []model.Diagnostic) {
	var records []bai2Record
	var diags []model.Diagnostic

	for i, raw := range strings.Split(normalizeNewlines(content), "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimSpace(strings.TrimSuffix(line, "/"))
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")

		if strings.TrimSpace(fields[0]) == bai2Continuation {
			if len(records) == 0 {
				diags = append(diags, model.Diagnostic{
					Format: model.FormatBAI2,
					Line:   i + 1,
					Record: bai2Continuation,
					Reason: "continuation without a preceding record",
				})
				continue
			}
			prev := &records[len(records)-1]
			if prev.breaks == nil {
				prev.breaks = make(map[int]bool)
			}
			prev.breaks[len(prev.fields)] = true
			prev.fields = append(prev.fields, fields[1:]...)
			continue
		}

		records = append(records, bai2Record{line: i + 1, fields: fields})
	}
	return records, diags
}

type bai2Decoder struct {
	result    Result
	current   *model.Statement
	fileDate  string
	groupDate string
	groupCcy  string
}

// ParseBAI2 decodes a BAI2 file. It never fails: statements completed before
// a truncation are returned, and dropped records are listed as diagnostics.
func ParseBAI2(content string) Result {
	records, diags := readBAI2Records(content)
	d := &bai2Decoder{}
	d.result.Diagnostics = diags

	for _, rec := range records {
		switch rec.recordType() {
		case bai2FileHeader:
			d.fileDate, _ = isoDateFromYYMMDD(rec.field(bai2FileColCreated))
		case bai2GroupHeader:
			d.groupDate, _ = isoDateFromYYMMDD(rec.field(bai2GroupColAsOfDate))
			d.groupCcy = rec.field(bai2GroupColCurrency)
		case bai2AccountIdent:
			d.emit()
			d.openAccount(rec)
		case bai2Detail:
			d.addDetail(rec)
		case bai2AccountTrailer, bai2GroupTrailer:
			// Control totals are not modeled.
		case bai2FileTrailer:
			d.emit()
		default:
			d.skip(rec, "unknown record type")
		}
	}

	if d.current != nil {
		d.result.skip(model.FormatBAI2, 0, bai2FileTrailer, "missing file trailer; last account may be incomplete")
		d.emit()
	}
	return d.result
}

func (d *bai2Decoder) emit() {
	if d.current == nil {
		return
	}
	d.result.Statements = append(d.result.Statements, *d.current)
	d.current = nil
}

func (d *bai2Decoder) skip(rec bai2Record, reason string) {
	d.result.skip(model.FormatBAI2, rec.line, rec.recordType(), reason)
}

func (d *bai2Decoder) openAccount(rec bai2Record) {
	stmt := &model.Statement{
		Format:        model.FormatBAI2,
		AccountNumber: rec.field(bai2AcctColNumber),
		Currency:      firstNonEmpty(rec.field(bai2AcctColCurrency), d.groupCcy, defaultCurrency),
		StatementDate: firstNonEmpty(d.groupDate, d.fileDate),
	}

	// Summary groups: type, amount, item count, funds type (+ extras).
	for i := bai2AcctColSummary; i < len(rec.fields); {
		typeCode := rec.field(i)
		amountField := rec.field(i + 1)
		extra, ok := bai2FundsExtra(rec, i+3)
		if !ok {
			d.skip(rec, fmt.Sprintf("summary %s: availability count exceeds record", typeCode))
			break
		}
		next := i + 4 + extra

		if typeCode != "" && amountField != "" {
			amount, err := bai2MinorUnits(amountField, true)
			if err != nil {
				d.skip(rec, fmt.Sprintf("summary %s: %v", typeCode, err))
			} else {
				switch typeCode {
				case "010", "015":
					stmt.OpeningBalance = amount
					stmt.HasOpeningBalance = true
				case "040", "045":
					stmt.ClosingBalance = amount
					stmt.HasClosingBalance = true
				}
			}
		}
		i = next
	}

	d.current = stmt
}

func (d *bai2Decoder) addDetail(rec bai2Record) {
	if d.current == nil {
		d.skip(rec, "transaction detail outside an account")
		return
	}

	code := rec.field(bai2DetailColCode)
	amount, err := bai2MinorUnits(rec.field(bai2DetailColAmount), false)
	if err != nil {
		d.skip(rec, err.Error())
		return
	}

	idx := bai2DetailColFunds
	valueDate := ""
	inferred := false
	if strings.EqualFold(rec.field(idx), "V") {
		valueDate, _ = isoDateFromYYMMDD(rec.field(idx + 1))
		idx += 3
	} else {
		extra, ok := bai2FundsExtra(rec, idx)
		if !ok {
			d.skip(rec, "availability count exceeds record")
			return
		}
		idx += 1 + extra
		// Some banks send value date and time without declaring funds type V.
		// That layout carries a bank reference and text but no customer reference.
		if vd, ok := isoDateFromYYMMDD(rec.field(idx)); ok && bai2LooksLikeTime(rec.field(idx+1)) {
			valueDate = vd
			idx += 2
			inferred = true
		}
	}

	bankRef := rec.field(idx)
	customerRef := rec.field(idx + 1)
	textStart := idx + 2
	if inferred {
		customerRef = ""
		textStart = idx + 1
	}

	date := firstNonEmpty(d.current.StatementDate, valueDate, d.fileDate)
	description := rec.textFrom(textStart)
	if description == "" {
		description = bai2Description(code)
	}

	txType := model.TransactionDebit
	if isBAI2Credit(code) {
		txType = model.TransactionCredit
	}

	d.current.Transactions = append(d.current.Transactions, model.Transaction{
		Date:            date,
		ValueDate:       firstNonEmpty(valueDate, date),
		Amount:          amount,
		Type:            txType,
		TransactionCode: code,
		BankReference:   bankRef,
		Reference:       customerRef,
		Description:     description,
	})
}

// bai2FundsExtra returns how many fields follow the funds type code at idx.
// It reports false when a D availability count runs past the end of the record.
func bai2FundsExtra(rec bai2Record, idx int) (int, bool) {
	switch strings.ToUpper(rec.field(idx)) {
	case "V":
		return 2, true
	case "S":
		return 3, true
	case "D":
		n, err := strconv.Atoi(rec.field(idx + 1))
		if err != nil || n < 0 {
			return 1, true
		}
		if n > (len(rec.fields)-idx)/2 {
			return 0, false
		}
		return 1 + 2*n, true
	default:
		return 0, true
	}
}

// bai2LooksLikeTime accepts an empty field or HHMM.
func bai2LooksLikeTime(s string) bool {
	return s == "" || (len(s) == 4 && allDigits(s))
}

// bai2MinorUnits converts a minor-unit integer field to major units exactly.
func bai2MinorUnits(s string, signed bool) (decimal.Decimal, error) {
	digits := s
	negative := false
	if signed && len(digits) > 0 && (digits[0] == '-' || digits[0] == '+') {
		negative = digits[0] == '-'
		digits = digits[1:]
	}
	if !allDigits(digits) {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	amount, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	amount = amount.Shift(-2)
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}
