package statement

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankfeed/internal/model"
)

// Check names used in ValidationError.
const (
	CheckAccount    = "account"
	CheckCurrency   = "currency"
	CheckContinuity = "balance-continuity"
	CheckAmount     = "amount"
)

// ValidationError describes a statement that decoded but does not reconcile.
type ValidationError struct {
	Check       string
	Account     string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Check, e.Account, e.Description)
}

// Validate checks decoded statements for consistency. It never modifies them.
func Validate(stmts []model.Statement) []ValidationError {
	var errs []ValidationError

	for _, s := range stmts {
		// Check: the account is identified.
		if s.AccountNumber == "" {
			errs = append(errs, ValidationError{
				Check:       CheckAccount,
				Description: "statement has no account number",
			})
		}

		// Check: ISO 4217 shape.
		if !isCurrencyCode(s.Currency) {
			errs = append(errs, ValidationError{
				Check:       CheckCurrency,
				Account:     s.AccountNumber,
				Description: fmt.Sprintf("currency %q is not a 3-letter code", s.Currency),
			})
		}

		// Check: magnitudes are never negative.
		for i, t := range s.Transactions {
			if t.Amount.IsNegative() {
				errs = append(errs, ValidationError{
					Check:       CheckAmount,
					Account:     s.AccountNumber,
					Description: fmt.Sprintf("transaction %d has negative amount %s", i+1, t.Amount),
				})
			}
		}

		// Check: opening + credits - debits == closing, when both were reported.
		if s.HasOpeningBalance && s.HasClosingBalance {
			net := decimal.Zero
			for _, t := range s.Transactions {
				net = net.Add(t.Signed())
			}
			expected := s.OpeningBalance.Add(net)
			if !expected.Equal(s.ClosingBalance) {
				errs = append(errs, ValidationError{
					Check:   CheckContinuity,
					Account: s.AccountNumber,
					Description: fmt.Sprintf("opening %s + net %s = %s, closing is %s",
						s.OpeningBalance.StringFixed(2), net.StringFixed(2),
						expected.StringFixed(2), s.ClosingBalance.StringFixed(2)),
				})
			}
		}
	}

	return errs
}

func isCurrencyCode(s string) bool {
	return len(s) == 3 && isUpper(s[0]) && isUpper(s[1]) && isUpper(s[2])
}
