// Package core holds the domain types shared by the calendar generator,
// the accrual engine and the storage layer, plus the amount and date
// format checks applied before anything reaches storage.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the upper bound for any single transaction amount.
var MaxAmount = decimal.NewFromInt(100_000_000)

// ValidAmount reports whether d is a usable transaction amount:
// non-negative and at most 100,000,000.
func ValidAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(MaxAmount)
}

// ParseAmount parses a user-supplied amount string. An empty string parses
// to zero, which upsert treats as a delete. Non-numeric, negative or
// out-of-range values return ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !ValidAmount(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// DefaultRates returns the rates used when no settings document exists:
// 5% on savings, 7% on loans.
func DefaultRates() Rates {
	return Rates{
		Savings: decimal.New(5, -2),
		Loan:    decimal.New(7, -2),
	}
}

// Rates converts the stored percent values into decimal fractions,
// falling back to the defaults for any rate that is zero or unset.
func (s Settings) Rates() Rates {
	r := DefaultRates()
	hundred := decimal.NewFromInt(100)
	if s.SavingsInterestRate.IsPositive() {
		r.Savings = s.SavingsInterestRate.Div(hundred)
	}
	if s.LoanInterestRate.IsPositive() {
		r.Loan = s.LoanInterestRate.Div(hundred)
	}
	return r
}
