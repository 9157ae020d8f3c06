package statement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankfeed/internal/model"
)

const (
	mtTagReference    = "20"
	mtTagAccount      = "25"
	mtTagOpeningFinal = "60F"
	mtTagOpeningInter = "60M"
	mtTagClosingFinal = "62F"
	mtTagClosingInter = "62M"
	mtTagLine         = "61"
	mtTagInfo         = "86"
)

// mtField is one tag:value pair. Value keeps its line breaks.
type mtField struct {
	tag    string
	value  string
	offset int // byte offset of the leading colon
}

// lines returns the value's non-empty lines with message trailers ("-", "-}")
// and the next message's envelope headers ("{1:...") removed.
func (f mtField) lines() []string {
	var out []string
	for _, l := range strings.Split(f.value, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || l == "-" || strings.HasPrefix(l, "-}") || strings.HasPrefix(l, "{") {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (f mtField) firstLine() string {
	ls := f.lines()
	if len(ls) == 0 {
		return ""
	}
	return ls[0]
}

// mtTagAt reports whether a tag of the form :NN[A-Z]?: starts at pos, returning
// the tag and the offset where its value begins.
func mtTagAt(s string, pos int) (string, int, bool) {
	if pos+4 > len(s) || s[pos] != ':' || !allDigits(s[pos+1:pos+3]) {
		return "", 0, false
	}
	end := pos + 3
	if end < len(s) && isUpper(s[end]) {
		end++
	}
	if end >= len(s) || s[end] != ':' {
		return "", 0, false
	}
	return s[pos+1 : end], end + 1, true
}

// nextMTField returns the first field at or after pos and the position to
// resume from. Tags are only recognized at the start of a line, so a colon
// sequence inside narrative text never splits a value.
func nextMTField(s string, pos int) (mtField, int, bool) {
	start := -1
	for p := pos; p < len(s); {
		if p == 0 || s[p-1] == '\n' {
			if _, _, ok := mtTagAt(s, p); ok {
				start = p
				break
			}
		}
		nl := strings.IndexByte(s[p:], '\n')
		if nl < 0 {
			break
		}
		p += nl + 1
	}
	if start < 0 {
		return mtField{}, len(s), false
	}

	tag, valueStart, _ := mtTagAt(s, start)
	end := len(s)
	for p := valueStart; p < len(s); {
		nl := strings.IndexByte(s[p:], '\n')
		if nl < 0 {
			break
		}
		lineStart := p + nl + 1
		if _, _, ok := mtTagAt(s, lineStart); ok {
			end = lineStart
			break
		}
		p = lineStart
	}

	return mtField{tag: tag, value: s[valueStart:end], offset: start}, end, true
}

// ParseMT940 decodes one or more MT940 statements. Each :20: tag starts a
// statement. Malformed :61: lines and balances are dropped with a diagnostic.
func ParseMT940(content string) Result {
	content = normalizeNewlines(content)
	lines := newLineIndex(content)

	var res Result
	var block []mtField
	flush := func() {
		if len(block) > 0 {
			decodeMT940Block(block, lines, &res)
		}
		block = nil
	}

	for pos := 0; ; {
		f, next, ok := nextMTField(content, pos)
		if !ok {
			break
		}
		pos = next
		if f.tag == mtTagReference {
			flush()
			block = []mtField{f}
			continue
		}
		// Fields before the first :20: belong to no statement.
		if block != nil {
			block = append(block, f)
		}
	}
	flush()

	return res
}

type mtBalance struct {
	amount   decimal.Decimal
	currency string
	date     string
}

func decodeMT940Block(fields []mtField, lines lineIndex, res *Result) {
	stmt := model.Statement{Format: model.FormatMT940}
	balances := make(map[string]mtBalance)

	for i := 0; i < len(fields); i++ {
		f := fields[i]
		line := lines.lineAt(f.offset)

		switch f.tag {
		case mtTagAccount:
			stmt.AccountNumber = mtAccountNumber(strings.Join(f.lines(), ""))
		case mtTagOpeningFinal, mtTagOpeningInter, mtTagClosingFinal, mtTagClosingInter:
			if _, seen := balances[f.tag]; seen {
				continue
			}
			bal, err := parseMT940Balance(f.firstLine())
			if err != nil {
				res.skip(model.FormatMT940, line, f.tag, err.Error())
				continue
			}
			balances[f.tag] = bal
		case mtTagLine:
			info := ""
			if i+1 < len(fields) && fields[i+1].tag == mtTagInfo {
				info = strings.Join(fields[i+1].lines(), " ")
				i++
			}
			txn, err := parseMT940Line(f.lines(), info)
			if err != nil {
				res.skip(model.FormatMT940, line, f.tag, err.Error())
				continue
			}
			stmt.Transactions = append(stmt.Transactions, txn)
		}
	}

	if opening, ok := mtPick(balances, mtTagOpeningFinal, mtTagOpeningInter); ok {
		stmt.OpeningBalance = opening.amount
		stmt.HasOpeningBalance = true
		stmt.Currency = opening.currency
		stmt.PeriodStart = opening.date
	}
	if closing, ok := mtPick(balances, mtTagClosingFinal, mtTagClosingInter); ok {
		stmt.ClosingBalance = closing.amount
		stmt.HasClosingBalance = true
		stmt.Currency = firstNonEmpty(stmt.Currency, closing.currency)
		stmt.PeriodEnd = closing.date
	}
	stmt.StatementDate = firstNonEmpty(stmt.PeriodEnd, stmt.PeriodStart)

	if len(fields) == 1 {
		res.skip(model.FormatMT940, lines.lineAt(fields[0].offset), mtTagReference, "no tags follow :20: at the start of a line; dropped")
		return
	}
	if stmt.AccountNumber == "" {
		res.skip(model.FormatMT940, lines.lineAt(fields[0].offset), mtTagAccount, "statement has no account identification; dropped")
		return
	}
	res.Statements = append(res.Statements, stmt)
}

// mtPick prefers the final balance over the intermediate one.
func mtPick(balances map[string]mtBalance, final, intermediate string) (mtBalance, bool) {
	if b, ok := balances[final]; ok {
		return b, true
	}
	b, ok := balances[intermediate]
	return b, ok
}

// mtAccountNumber takes the last non-empty segment of a "/"-delimited value.
func mtAccountNumber(value string) string {
	parts := strings.Split(value, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return strings.TrimSpace(value)
}

// parseMT940Balance decodes [C|D]YYMMDD CCY amount, e.g. "C240101USD100000,00".
func parseMT940Balance(s string) (mtBalance, error) {
	s = strings.TrimSpace(s)
	if len(s) < 11 {
		return mtBalance{}, fmt.Errorf("balance field too short: %q", s)
	}

	mark := s[0]
	if mark != 'C' && mark != 'D' {
		return mtBalance{}, fmt.Errorf("invalid debit/credit mark %q", string(mark))
	}
	date, ok := isoDateFromYYMMDD(s[1:7])
	if !ok {
		return mtBalance{}, fmt.Errorf("invalid balance date %q", s[1:7])
	}
	currency := s[7:10]
	if !isUpper(currency[0]) || !isUpper(currency[1]) || !isUpper(currency[2]) {
		return mtBalance{}, fmt.Errorf("invalid currency %q", currency)
	}
	amount, err := parseSwiftAmount(s[10:])
	if err != nil {
		return mtBalance{}, err
	}
	if mark == 'D' {
		amount = amount.Neg()
	}
	return mtBalance{amount: amount, currency: currency, date: date}, nil
}

var (
	errMTNoDate   = errors.New("statement line missing booking date")
	errMTNoMark   = errors.New("statement line missing debit/credit mark")
	errMTNoAmount = errors.New("statement line missing amount")
)

// mtDebitCreditMarks are tried longest first. RD reverses a debit and is a
// credit; RC reverses a credit and is a debit.
var mtDebitCreditMarks = []struct {
	mark   string
	credit bool
}{
	{"CR", true},
	{"DR", false},
	{"RD", true},
	{"RC", false},
	{"C", true},
	{"D", false},
}

// parseMT940Line decodes a :61: statement line:
//
//	YYMMDD[MMDD]<mark>[funds]<amount>[N<code>]<customer ref>[//<bank ref>]
//	[supplementary details]
func parseMT940Line(lines []string, info string) (model.Transaction, error) {
	if len(lines) == 0 {
		return model.Transaction{}, errMTNoDate
	}
	s := lines[0]
	supplementary := strings.Join(lines[1:], " ")

	if len(s) < 6 {
		return model.Transaction{}, errMTNoDate
	}
	date, ok := isoDateFromYYMMDD(s[:6])
	if !ok {
		return model.Transaction{}, fmt.Errorf("invalid booking date %q", s[:6])
	}
	year := swiftCentury + twoDigits(s[:2])
	pos := 6

	valueDate := date
	if pos+4 <= len(s) && allDigits(s[pos:pos+4]) {
		if vd, ok := isoDate(year, s[pos:pos+2], s[pos+2:pos+4]); ok {
			valueDate = vd
		}
		pos += 4
	}

	credit, n := mtDebitCredit(s[pos:])
	if n == 0 {
		return model.Transaction{}, errMTNoMark
	}
	pos += n

	if pos < len(s) && isUpper(s[pos]) {
		pos++ // funds code, third letter of the currency
	}

	amountStart := pos
	for pos < len(s) && (s[pos] >= '0' && s[pos] <= '9' || s[pos] == ',' || s[pos] == '.') {
		pos++
	}
	if !strings.ContainsAny(s[amountStart:pos], "0123456789") {
		return model.Transaction{}, errMTNoAmount
	}
	amount, err := parseSwiftAmount(s[amountStart:pos])
	if err != nil {
		return model.Transaction{}, err
	}

	code := ""
	if pos+4 <= len(s) && strings.IndexByte("NSF", s[pos]) >= 0 {
		code = s[pos+1 : pos+4]
		pos += 4
	}

	customerRef, bankRef, _ := strings.Cut(s[pos:], "//")
	customerRef = strings.TrimSpace(customerRef)
	if strings.EqualFold(customerRef, "NONREF") {
		customerRef = ""
	}

	txType := model.TransactionDebit
	if credit {
		txType = model.TransactionCredit
	}

	return model.Transaction{
		Date:            date,
		ValueDate:       valueDate,
		Amount:          amount,
		Type:            txType,
		TransactionCode: code,
		Reference:       customerRef,
		BankReference:   strings.TrimSpace(bankRef),
		Description:     firstNonEmpty(strings.TrimSpace(info), strings.TrimSpace(supplementary), defaultDescription),
	}, nil
}

func mtDebitCredit(s string) (credit bool, n int) {
	for _, m := range mtDebitCreditMarks {
		if strings.HasPrefix(s, m.mark) {
			return m.credit, len(m.mark)
		}
	}
	return false, 0
}
