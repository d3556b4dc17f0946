package export

import (
	"context"
	"fmt"
	"time"

	"bachat/internal/core"
	"bachat/internal/store"
)

// Backup is the JSON dump of every collection plus the fiscal-year
// list, matching the original backup file layout.
type Backup struct {
	Members           []core.Member      `json:"members"`
	Transactions      []core.Transaction `json:"transactions"`
	Loans             []core.Transaction `json:"loans"`
	GroupTransactions []core.Transaction `json:"groupTransactions"`
	Settings          *core.Settings     `json:"settings,omitempty"`
	FiscalYears       []core.FiscalYear  `json:"fiscalYears,omitempty"`
	ExportedAt        time.Time          `json:"exportedAt"`
}

// Dump reads every collection into a Backup.
func Dump(ctx context.Context, st store.Store) (Backup, error) {
	b := Backup{ExportedAt: time.Now()}

	var err error
	if b.Members, err = st.ListMembers(ctx); err != nil {
		return Backup{}, fmt.Errorf("dump members: %w", err)
	}
	if b.Transactions, err = st.ListEntries(ctx, store.Transactions); err != nil {
		return Backup{}, fmt.Errorf("dump transactions: %w", err)
	}
	if b.Loans, err = st.ListEntries(ctx, store.Loans); err != nil {
		return Backup{}, fmt.Errorf("dump loans: %w", err)
	}
	if b.GroupTransactions, err = st.ListEntries(ctx, store.GroupTransactions); err != nil {
		return Backup{}, fmt.Errorf("dump group transactions: %w", err)
	}
	settings, ok, err := st.GetSettings(ctx)
	if err != nil {
		return Backup{}, fmt.Errorf("dump settings: %w", err)
	}
	if ok {
		b.Settings = &settings
		b.FiscalYears = settings.FiscalYears
	}
	return b, nil
}

// Restore replaces the contents of every collection with the backup's.
// IDs are reassigned by the store; restore is not an exact clone, it is
// a replay of the records. The admins collection is deliberately left
// untouched so a restore cannot lock out the operator performing it.
func Restore(ctx context.Context, st store.Store, b Backup) error {
	if err := clearEntries(ctx, st, store.Transactions); err != nil {
		return err
	}
	if err := clearEntries(ctx, st, store.Loans); err != nil {
		return err
	}
	if err := clearEntries(ctx, st, store.GroupTransactions); err != nil {
		return err
	}
	existing, err := st.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	for _, m := range existing {
		if err := st.DeleteMember(ctx, m.ID); err != nil {
			return fmt.Errorf("clear member %s: %w", m.ID, err)
		}
	}

	for _, m := range b.Members {
		if _, err := st.AddMember(ctx, m); err != nil {
			return fmt.Errorf("restore member %q: %w", m.Name, err)
		}
	}
	if err := addEntries(ctx, st, store.Transactions, b.Transactions); err != nil {
		return err
	}
	if err := addEntries(ctx, st, store.Loans, b.Loans); err != nil {
		return err
	}
	if err := addEntries(ctx, st, store.GroupTransactions, b.GroupTransactions); err != nil {
		return err
	}

	if b.Settings != nil {
		settings := *b.Settings
		if len(settings.FiscalYears) == 0 {
			settings.FiscalYears = b.FiscalYears
		}
		if err := st.PutSettings(ctx, settings); err != nil {
			return fmt.Errorf("restore settings: %w", err)
		}
	}
	return nil
}

func clearEntries(ctx context.Context, st store.Store, col store.Collection) error {
	txs, err := st.ListEntries(ctx, col)
	if err != nil {
		return fmt.Errorf("list %s: %w", col, err)
	}
	for _, tx := range txs {
		if err := st.DeleteEntry(ctx, col, tx.ID); err != nil {
			return fmt.Errorf("clear %s entry %s: %w", col, tx.ID, err)
		}
	}
	return nil
}

func addEntries(ctx context.Context, st store.Store, col store.Collection, txs []core.Transaction) error {
	for _, tx := range txs {
		if _, err := st.AddEntry(ctx, col, tx); err != nil {
			return fmt.Errorf("restore %s entry on %s: %w", col, tx.Date, err)
		}
	}
	return nil
}
