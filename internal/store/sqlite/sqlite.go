// Package sqlite is the persistent store backend, a single SQLite file
// per group. Change notification is in-process: the deployment is
// single-writer, so subscribers are fired from the mutating goroutine.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bachat/internal/core"
	"bachat/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	store.Hub
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", store.ErrStorage, op, err)
}

func validEntryCollection(col store.Collection) error {
	switch col {
	case store.Transactions, store.Loans, store.GroupTransactions:
		return nil
	}
	return fmt.Errorf("%w: %s", store.ErrUnknownCollection, col)
}

// ListEntries returns entries in insertion order; the group cash ledger
// depends on that order being stable.
func (s *Store) ListEntries(ctx context.Context, col store.Collection) ([]core.Transaction, error) {
	if err := validEntryCollection(col); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, fiscal_year, date, kind, amount, note
		   FROM entries WHERE collection = ? ORDER BY seq`, string(col))
	if err != nil {
		return nil, storageErr("list entries", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var amount string
		if err := rows.Scan(&tx.ID, &tx.MemberID, &tx.FiscalYear, &tx.Date, &tx.Kind, &amount, &tx.Note); err != nil {
			return nil, storageErr("scan entry", err)
		}
		tx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, storageErr("parse amount", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list entries", err)
	}
	return out, nil
}

func (s *Store) AddEntry(ctx context.Context, col store.Collection, tx core.Transaction) (string, error) {
	if err := validEntryCollection(col); err != nil {
		return "", err
	}
	tx.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (id, collection, member_id, fiscal_year, date, kind, amount, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, string(col), tx.MemberID, string(tx.FiscalYear), tx.Date, string(tx.Kind), tx.Amount.String(), tx.Note)
	if err != nil {
		return "", storageErr("add entry", err)
	}

	slog.DebugContext(ctx, "Entry saved", "collection", col, "id", tx.ID, "date", tx.Date, "kind", tx.Kind)
	s.Notify(col)
	return tx.ID, nil
}

func (s *Store) UpdateEntry(ctx context.Context, col store.Collection, id string, upd store.EntryUpdate) error {
	if err := validEntryCollection(col); err != nil {
		return err
	}

	var res sql.Result
	var err error
	switch {
	case upd.Amount != nil && upd.Note != nil:
		res, err = s.db.ExecContext(ctx,
			`UPDATE entries SET amount = ?, note = ? WHERE collection = ? AND id = ?`,
			upd.Amount.String(), *upd.Note, string(col), id)
	case upd.Amount != nil:
		res, err = s.db.ExecContext(ctx,
			`UPDATE entries SET amount = ? WHERE collection = ? AND id = ?`,
			upd.Amount.String(), string(col), id)
	case upd.Note != nil:
		res, err = s.db.ExecContext(ctx,
			`UPDATE entries SET note = ? WHERE collection = ? AND id = ?`,
			*upd.Note, string(col), id)
	default:
		return nil
	}
	if err != nil {
		return storageErr("update entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.Notify(col)
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, col store.Collection, id string) error {
	if err := validEntryCollection(col); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE collection = ? AND id = ?`, string(col), id)
	if err != nil {
		return storageErr("delete entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.Notify(col)
	return nil
}

func (s *Store) ListMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, phone FROM members ORDER BY seq`)
	if err != nil {
		return nil, storageErr("list members", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Phone); err != nil {
			return nil, storageErr("scan member", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list members", err)
	}
	return out, nil
}

func (s *Store) AddMember(ctx context.Context, m core.Member) (string, error) {
	m.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, name, phone) VALUES (?, ?, ?)`, m.ID, m.Name, m.Phone)
	if err != nil {
		return "", storageErr("add member", err)
	}

	s.Notify(store.Members)
	return m.ID, nil
}

func (s *Store) DeleteMember(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete member", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.Notify(store.Members)
	return nil
}

func (s *Store) GetSettings(ctx context.Context) (core.Settings, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, savings_interest_rate, loan_interest_rate, fiscal_years FROM settings LIMIT 1`)

	var settings core.Settings
	var savingsRate, loanRate, fiscalYears string
	err := row.Scan(&settings.ID, &savingsRate, &loanRate, &fiscalYears)
	if err == sql.ErrNoRows {
		return core.Settings{}, false, nil
	}
	if err != nil {
		return core.Settings{}, false, storageErr("get settings", err)
	}

	if savingsRate != "" {
		if settings.SavingsInterestRate, err = decimal.NewFromString(savingsRate); err != nil {
			return core.Settings{}, false, storageErr("parse savings rate", err)
		}
	}
	if loanRate != "" {
		if settings.LoanInterestRate, err = decimal.NewFromString(loanRate); err != nil {
			return core.Settings{}, false, storageErr("parse loan rate", err)
		}
	}
	if err := json.Unmarshal([]byte(fiscalYears), &settings.FiscalYears); err != nil {
		return core.Settings{}, false, storageErr("parse fiscal years", err)
	}
	return settings, true, nil
}

func (s *Store) PutSettings(ctx context.Context, settings core.Settings) error {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	fiscalYears, err := json.Marshal(settings.FiscalYears)
	if err != nil {
		return storageErr("encode fiscal years", err)
	}

	// Single settings document per group.
	_, err = s.db.ExecContext(ctx, `DELETE FROM settings`)
	if err != nil {
		return storageErr("clear settings", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (id, savings_interest_rate, loan_interest_rate, fiscal_years)
		 VALUES (?, ?, ?, ?)`,
		settings.ID, settings.SavingsInterestRate.String(), settings.LoanInterestRate.String(), string(fiscalYears))
	if err != nil {
		return storageErr("put settings", err)
	}

	s.Notify(store.Settings)
	return nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]core.Admin, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, email FROM admins ORDER BY seq`)
	if err != nil {
		return nil, storageErr("list admins", err)
	}
	defer rows.Close()

	var out []core.Admin
	for rows.Next() {
		var a core.Admin
		if err := rows.Scan(&a.ID, &a.UserID, &a.Email); err != nil {
			return nil, storageErr("scan admin", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list admins", err)
	}
	return out, nil
}

func (s *Store) AddAdmin(ctx context.Context, a core.Admin) (string, error) {
	a.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (id, user_id, email) VALUES (?, ?, ?)`, a.ID, a.UserID, a.Email)
	if err != nil {
		return "", storageErr("add admin", err)
	}

	s.Notify(store.Admins)
	return a.ID, nil
}

func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete admin", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.Notify(store.Admins)
	return nil
}
