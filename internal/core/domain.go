package core

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	KindSaving       Kind = "saving"
	KindWithdrawal   Kind = "withdrawal"
	KindTaken        Kind = "taken"
	KindPaid         Kind = "paid"
	KindInterestPaid Kind = "interestPaid"
	KindCashIn       Kind = "in"
	KindCashOut      Kind = "out"
)

const (
	LedgerSavings Ledger = "savings"
	LedgerLoan    Ledger = "loan"
	LedgerGroup   Ledger = "group"
)

type (
	// Kind is the transaction type within a ledger.
	Kind string

	// Ledger identifies which of the three ledgers a transaction belongs to.
	Ledger string

	// FiscalYear is a "startYear/endYear" Bikram Sambat accounting period,
	// e.g. "2081/2082".
	FiscalYear string

	// Transaction is a single dated entry. MemberID is empty for group
	// cash entries.
	Transaction struct {
		ID         string          `json:"id"`
		MemberID   string          `json:"memberId,omitempty"`
		FiscalYear FiscalYear      `json:"fiscalYear"`
		Date       string          `json:"date"` // BS date key, YYYY-MM-DD
		Kind       Kind            `json:"kind"`
		Amount     decimal.Decimal `json:"amount"`
		Note       string          `json:"note,omitempty"`
	}

	Member struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Phone string `json:"phone,omitempty"`
	}

	// Admin grants a user the admin role while present in the role store.
	Admin struct {
		ID     string `json:"id"`
		UserID string `json:"userId"`
		Email  string `json:"email,omitempty"`
	}

	// Settings holds the externally supplied interest rates (as percent
	// values) and the enumerated fiscal-year list.
	Settings struct {
		ID                  string          `json:"id"`
		SavingsInterestRate decimal.Decimal `json:"savingsInterestRate"`
		LoanInterestRate    decimal.Decimal `json:"loanInterestRate"`
		FiscalYears         []FiscalYear    `json:"fiscalYears"`
	}

	// Rates are the interest rates as decimal fractions ready for the
	// accrual engine.
	Rates struct {
		Savings decimal.Decimal
		Loan    decimal.Decimal
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidFiscalYear = errors.New("invalid fiscal year")
	ErrUnknownKind       = errors.New("unknown transaction kind")
	ErrEmptyMember       = errors.New("member is required")
	ErrEmptyName         = errors.New("name is required")
)

var (
	dateKeyPattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	fiscalYearPattern = regexp.MustCompile(`^\d{4}/\d{4}$`)
)

// Allows reports whether kind is a valid transaction kind for the ledger.
func (l Ledger) Allows(k Kind) bool {
	switch l {
	case LedgerSavings:
		return k == KindSaving || k == KindWithdrawal
	case LedgerLoan:
		return k == KindTaken || k == KindPaid || k == KindInterestPaid
	case LedgerGroup:
		return k == KindCashIn || k == KindCashOut
	}
	return false
}

// Valid reports whether the ledger is one of the three known ledgers.
func (l Ledger) Valid() bool {
	return l == LedgerSavings || l == LedgerLoan || l == LedgerGroup
}

// Split parses the start and end years out of the fiscal-year string.
// It deliberately performs no validation beyond splitting on "/" and
// parsing integers: callers are expected to pass only values drawn from
// the enumerated fiscal-year list, and malformed input produces zero
// years and a degenerate calendar downstream.
func (fy FiscalYear) Split() (start, end int) {
	parts := strings.SplitN(string(fy), "/", 2)
	start, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		end, _ = strconv.Atoi(parts[1])
	}
	return start, end
}

// WellFormed reports whether the fiscal-year string matches YYYY/YYYY.
// Used when managing the fiscal-year list, not by the calendar generator.
func (fy FiscalYear) WellFormed() bool {
	return fiscalYearPattern.MatchString(string(fy))
}

// ValidDateKey checks the shape of a BS date string. The day upper bound
// of 32 intentionally exceeds some real month lengths: this is a format
// check, not a calendar lookup.
func ValidDateKey(s string) bool {
	if !dateKeyPattern.MatchString(s) {
		return false
	}
	parts := strings.Split(s, "-")
	year, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	day, _ := strconv.Atoi(parts[2])
	if year < 2000 || year > 2100 {
		return false
	}
	if month < 1 || month > 12 {
		return false
	}
	if day < 1 || day > 32 {
		return false
	}
	return true
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Validate checks a transaction before it reaches storage. The accrual
// engine itself performs no validation and trusts its caller.
func (t Transaction) Validate(ledger Ledger) error {
	if !ledger.Allows(t.Kind) {
		return ErrUnknownKind
	}
	if ledger != LedgerGroup && t.MemberID == "" {
		return ErrEmptyMember
	}
	if !ValidDateKey(t.Date) {
		return ErrInvalidDate
	}
	if !t.FiscalYear.WellFormed() {
		return ErrInvalidFiscalYear
	}
	if !ValidAmount(t.Amount) {
		return ErrInvalidAmount
	}
	return nil
}
