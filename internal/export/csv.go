// Package export renders ledgers as CSV and round-trips full JSON
// backups of the document store.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"bachat/internal/ledger"
)

// WriteSavingsCSV writes a savings ledger in the export column layout:
// Date, Quarter, Saving, Withdrawal, Balance, Interest,
// TotalWithInterest, Notes.
func WriteSavingsCSV(w io.Writer, l ledger.SavingsLedger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Quarter", "Saving", "Withdrawal", "Balance", "Interest", "TotalWithInterest", "Notes"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range l.Rows {
		record := []string{
			row.Date,
			fmt.Sprintf("Q%d", row.Quarter),
			row.Saving.String(),
			row.Withdrawal.String(),
			row.Balance.String(),
			row.Interest.String(),
			row.TotalWithInterest.String(),
			row.Note,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLoanCSV writes a loan ledger: Date, Quarter, LoanTaken, LoanPaid,
// Interest, InterestPaid, LoanRemaining, InterestRemaining.
func WriteLoanCSV(w io.Writer, l ledger.LoanLedger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Quarter", "LoanTaken", "LoanPaid", "Interest", "InterestPaid", "LoanRemaining", "InterestRemaining"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range l.Rows {
		record := []string{
			row.Date,
			fmt.Sprintf("Q%d", row.Quarter),
			row.Taken.String(),
			row.Paid.String(),
			row.Interest.String(),
			row.InterestPaid.String(),
			row.LoanRemaining.String(),
			row.InterestRemaining.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGroupCSV writes the group cash ledger: Date, CashIn, CashOut,
// Note, Balance. Rows keep the storage listing order.
func WriteGroupCSV(w io.Writer, l ledger.GroupLedger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "CashIn", "CashOut", "Note", "Balance"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range l.Rows {
		in, out := "", ""
		if row.Kind == "in" {
			in = row.Amount.String()
		} else {
			out = row.Amount.String()
		}
		record := []string{row.Date, in, out, row.Note, row.Balance.String()}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
