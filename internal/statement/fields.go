package statement

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultCurrency    = "USD"
	defaultDescription = "Transaction"
	isoDateFormat      = "2006-01-02"
)

// swiftCentury is added to every two-digit year. Pre-2000 statements are not supported.
const swiftCentury = 2000

// isoDateFromYYMMDD converts "240131" to "2024-01-31".
func isoDateFromYYMMDD(s string) (string, bool) {
	if len(s) != 6 || !allDigits(s) {
		return "", false
	}
	return isoDate(swiftCentury+twoDigits(s[0:2]), s[2:4], s[4:6])
}

// isoDate validates a calendar date and formats it. Rolled-over dates
// such as 02-30 are rejected rather than normalized.
func isoDate(year int, mm, dd string) (string, bool) {
	if len(mm) != 2 || len(dd) != 2 || !allDigits(mm) || !allDigits(dd) {
		return "", false
	}
	month, day := twoDigits(mm), twoDigits(dd)
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return t.Format(isoDateFormat), true
}

func twoDigits(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseSwiftAmount parses "1234,56", "1234," or "1234.56" exactly.
func parseSwiftAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "0123456789") {
		return decimal.Decimal{}, fmt.Errorf("missing amount")
	}
	normalized := strings.TrimSuffix(strings.Replace(s, ",", ".", 1), ".")
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return amount, nil
}

// normalizeNewlines folds CRLF and lone CR line endings to LF.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(s string) lineIndex {
	starts := lineIndex{0}
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (li lineIndex) lineAt(offset int) int {
	return sort.Search(len(li), func(i int) bool { return li[i] > offset })
}
