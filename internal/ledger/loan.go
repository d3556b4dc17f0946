package ledger

import (
	"github.com/shopspring/decimal"

	"bachat/internal/calendar"
	"bachat/internal/core"
)

// daysInYear is the fixed divisor for loan interest. Unlike the savings
// ledger, which divides by the generated calendar length, loans always
// use 365. The asymmetry is deliberate and matches the group's existing
// books; do not "fix" it.
var daysInYear = decimal.NewFromInt(365)

type (
	// LoanRow is one calendar day of a member's loan ledger. Interest
	// remaining accrues daily and is reduced by interest payments; it can
	// go negative when overpaid.
	LoanRow struct {
		Date              string          `json:"date"`
		Quarter           int             `json:"quarter"`
		Ordinal           int             `json:"ordinal"`
		Taken             decimal.Decimal `json:"taken"`
		Paid              decimal.Decimal `json:"paid"`
		Interest          decimal.Decimal `json:"interest"`
		InterestPaid      decimal.Decimal `json:"interestPaid"`
		LoanRemaining     decimal.Decimal `json:"loanRemaining"`
		InterestRemaining decimal.Decimal `json:"interestRemaining"`
	}

	LoanTotals struct {
		Taken                  decimal.Decimal `json:"taken"`
		Paid                   decimal.Decimal `json:"paid"`
		Interest               decimal.Decimal `json:"interest"`
		InterestPaid           decimal.Decimal `json:"interestPaid"`
		FinalLoanRemaining     decimal.Decimal `json:"finalLoanRemaining"`
		FinalInterestRemaining decimal.Decimal `json:"finalInterestRemaining"`
	}

	LoanLedger struct {
		Rows   []LoanRow  `json:"rows"`
		Totals LoanTotals `json:"totals"`
	}
)

// ComputeLoan builds the loan ledger for one member and fiscal year.
// Two running balances are tracked: principal remaining (taken minus
// paid) and interest remaining (accrued minus interest paid, unclamped).
// The quarter filter works the same way as in ComputeSavings: a
// post-filter over rows computed for the full year.
func ComputeLoan(days []calendar.Day, txs []core.Transaction, memberID string, fy core.FiscalYear, rate decimal.Decimal, quarter int) LoanLedger {
	byDate := make(map[string]*LoanRow, len(days))
	rows := make([]*LoanRow, len(days))
	for i, d := range days {
		row := &LoanRow{Date: d.Key, Quarter: d.Quarter, Ordinal: d.Ordinal}
		byDate[d.Key] = row
		rows[i] = row
	}

	for _, tx := range txs {
		if tx.MemberID != memberID || tx.FiscalYear != fy {
			continue
		}
		row, ok := byDate[tx.Date]
		if !ok {
			continue
		}
		switch tx.Kind {
		case core.KindTaken:
			row.Taken = row.Taken.Add(tx.Amount)
		case core.KindPaid:
			row.Paid = row.Paid.Add(tx.Amount)
		case core.KindInterestPaid:
			row.InterestPaid = row.InterestPaid.Add(tx.Amount)
		}
	}

	loanRemaining := decimal.Zero
	interestRemaining := decimal.Zero
	for _, row := range rows {
		loanRemaining = loanRemaining.Add(row.Taken).Sub(row.Paid)
		row.LoanRemaining = loanRemaining

		dailyInterest := loanRemaining.Mul(rate).Div(daysInYear)
		row.Interest = dailyInterest

		interestRemaining = interestRemaining.Add(dailyInterest).Sub(row.InterestPaid)
		row.InterestRemaining = interestRemaining
	}

	var out LoanLedger
	for _, row := range rows {
		if quarter != AllQuarters && row.Quarter != quarter {
			continue
		}
		out.Rows = append(out.Rows, *row)
	}

	for _, row := range out.Rows {
		out.Totals.Taken = out.Totals.Taken.Add(row.Taken)
		out.Totals.Paid = out.Totals.Paid.Add(row.Paid)
		out.Totals.Interest = out.Totals.Interest.Add(row.Interest)
		out.Totals.InterestPaid = out.Totals.InterestPaid.Add(row.InterestPaid)
	}
	if n := len(out.Rows); n > 0 {
		out.Totals.FinalLoanRemaining = out.Rows[n-1].LoanRemaining
		out.Totals.FinalInterestRemaining = out.Rows[n-1].InterestRemaining
	}
	return out
}
