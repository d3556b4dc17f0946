// Package ledger implements the accrual engine: pure functions that turn
// a generated fiscal-year calendar and a sparse transaction list into a
// dense per-day ledger with running balances and interest.
//
// Every compute pass rebuilds the full year from scratch. Determinism
// (same inputs, same outputs) is the correctness property here; there is
// no incremental state and no caching of partial sums.
package ledger

import (
	"github.com/shopspring/decimal"

	"bachat/internal/calendar"
	"bachat/internal/core"
)

// AllQuarters disables the quarter post-filter.
const AllQuarters = 0

type (
	// SavingsRow is one calendar day of a member's savings ledger.
	SavingsRow struct {
		Date              string          `json:"date"`
		Quarter           int             `json:"quarter"`
		Ordinal           int             `json:"ordinal"`
		Saving            decimal.Decimal `json:"saving"`
		Withdrawal        decimal.Decimal `json:"withdrawal"`
		Note              string          `json:"note,omitempty"`
		Balance           decimal.Decimal `json:"balance"`
		Interest          decimal.Decimal `json:"interest"`
		QuarterInterest   decimal.Decimal `json:"quarterInterest"`
		TotalWithInterest decimal.Decimal `json:"totalWithInterest"`
	}

	SavingsTotals struct {
		Saving            decimal.Decimal `json:"saving"`
		Withdrawal        decimal.Decimal `json:"withdrawal"`
		FinalBalance      decimal.Decimal `json:"finalBalance"`
		Interest          decimal.Decimal `json:"interest"`
		FinalWithInterest decimal.Decimal `json:"finalWithInterest"`
	}

	SavingsLedger struct {
		Rows   []SavingsRow  `json:"rows"`
		Totals SavingsTotals `json:"totals"`
	}
)

// ComputeSavings builds the savings ledger for one member and fiscal
// year. Daily interest is balance × rate / the generated year length, so
// a 365-day and a 366-day year accrue differently. The quarter filter is
// applied after the full-year walk: balances and interest are always
// computed over the whole year, and quarter only restricts which rows
// (and therefore which totals) are returned.
func ComputeSavings(days []calendar.Day, txs []core.Transaction, memberID string, fy core.FiscalYear, rate decimal.Decimal, quarter int) SavingsLedger {
	byDate := make(map[string]*SavingsRow, len(days))
	rows := make([]*SavingsRow, len(days))
	for i, d := range days {
		row := &SavingsRow{Date: d.Key, Quarter: d.Quarter, Ordinal: d.Ordinal}
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
		case core.KindSaving:
			row.Saving = row.Saving.Add(tx.Amount)
			row.Note = appendNote(row.Note, "Saving", tx.Note)
		case core.KindWithdrawal:
			row.Withdrawal = row.Withdrawal.Add(tx.Amount)
			row.Note = appendNote(row.Note, "Withdrawal", tx.Note)
		}
	}

	yearLength := decimal.NewFromInt(int64(len(days)))
	balance := decimal.Zero
	totalInterest := decimal.Zero
	quarterInterest := decimal.Zero
	currentQuarter := 1

	for _, row := range rows {
		balance = balance.Add(row.Saving).Sub(row.Withdrawal)
		row.Balance = balance

		dailyInterest := balance.Mul(rate).Div(yearLength)
		row.Interest = dailyInterest

		if row.Quarter != currentQuarter {
			currentQuarter = row.Quarter
			quarterInterest = decimal.Zero
		}
		quarterInterest = quarterInterest.Add(dailyInterest)
		totalInterest = totalInterest.Add(dailyInterest)
		row.QuarterInterest = quarterInterest
		row.TotalWithInterest = balance.Add(totalInterest)
	}

	var out SavingsLedger
	for _, row := range rows {
		if quarter != AllQuarters && row.Quarter != quarter {
			continue
		}
		out.Rows = append(out.Rows, *row)
	}

	for _, row := range out.Rows {
		out.Totals.Saving = out.Totals.Saving.Add(row.Saving)
		out.Totals.Withdrawal = out.Totals.Withdrawal.Add(row.Withdrawal)
		out.Totals.Interest = out.Totals.Interest.Add(row.Interest)
	}
	if n := len(out.Rows); n > 0 {
		out.Totals.FinalBalance = out.Rows[n-1].Balance
	}
	out.Totals.FinalWithInterest = out.Totals.FinalBalance.Add(out.Totals.Interest)
	return out
}

// appendNote joins per-kind notes on a day with "; ", e.g.
// "Saving: festival; Withdrawal: school fees". Empty notes are skipped.
func appendNote(existing, label, note string) string {
	if note == "" {
		return existing
	}
	entry := label + ": " + note
	if existing == "" {
		return entry
	}
	return existing + "; " + entry
}
