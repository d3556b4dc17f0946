// Package service orchestrates the ledger operations: it gates mutations
// behind the role oracle, enforces the upsert contract, and recomputes
// ledgers from the calendar and the raw transaction lists on every read.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"bachat/internal/auth"
	"bachat/internal/calendar"
	"bachat/internal/core"
	"bachat/internal/ledger"
	"bachat/internal/store"
)

// Notifier publishes ledger-change events for the report worker. A nil
// Notifier disables publishing.
type Notifier interface {
	LedgerChanged(ctx context.Context, l core.Ledger, memberID string, fy core.FiscalYear) error
}

// EntryParams identifies one upsert target plus its new value. A zero
// Amount deletes the matching entry.
type EntryParams struct {
	MemberID   string
	FiscalYear core.FiscalYear
	Date       string
	Kind       core.Kind
	Amount     decimal.Decimal
	Note       string
}

type DashboardTotals struct {
	Savings     decimal.Decimal `json:"savings"`
	Withdrawals decimal.Decimal `json:"withdrawals"`
	CashIn      decimal.Decimal `json:"cashIn"`
	CashOut     decimal.Decimal `json:"cashOut"`
	Members     int             `json:"members"`
}

type LedgerService struct {
	store    store.Store
	roles    *auth.Service
	table    calendar.Table
	notifier Notifier
}

func NewLedgerService(st store.Store, roles *auth.Service, table calendar.Table, notifier Notifier) *LedgerService {
	return &LedgerService{store: st, roles: roles, table: table, notifier: notifier}
}

// Rates loads the interest rates from the settings document, falling
// back to the 5%/7% defaults when none exists.
func (s *LedgerService) Rates(ctx context.Context) (core.Rates, error) {
	settings, ok, err := s.store.GetSettings(ctx)
	if err != nil {
		return core.Rates{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return core.DefaultRates(), nil
	}
	return settings.Rates(), nil
}

// SavingsLedger recomputes the full savings ledger for one member and
// fiscal year. Quarter 0 returns the whole year.
func (s *LedgerService) SavingsLedger(ctx context.Context, memberID string, fy core.FiscalYear, quarter int) (ledger.SavingsLedger, error) {
	rates, err := s.Rates(ctx)
	if err != nil {
		return ledger.SavingsLedger{}, err
	}
	txs, err := s.store.ListEntries(ctx, store.Transactions)
	if err != nil {
		return ledger.SavingsLedger{}, fmt.Errorf("list savings entries: %w", err)
	}
	days := calendar.Generate(s.table, fy)
	return ledger.ComputeSavings(days, txs, memberID, fy, rates.Savings, quarter), nil
}

// LoanLedger recomputes the full loan ledger for one member and fiscal
// year.
func (s *LedgerService) LoanLedger(ctx context.Context, memberID string, fy core.FiscalYear, quarter int) (ledger.LoanLedger, error) {
	rates, err := s.Rates(ctx)
	if err != nil {
		return ledger.LoanLedger{}, err
	}
	txs, err := s.store.ListEntries(ctx, store.Loans)
	if err != nil {
		return ledger.LoanLedger{}, fmt.Errorf("list loan entries: %w", err)
	}
	days := calendar.Generate(s.table, fy)
	return ledger.ComputeLoan(days, txs, memberID, fy, rates.Loan, quarter), nil
}

// GroupLedger recomputes the group cash ledger for a fiscal year in
// storage list order.
func (s *LedgerService) GroupLedger(ctx context.Context, fy core.FiscalYear) (ledger.GroupLedger, error) {
	txs, err := s.store.ListEntries(ctx, store.GroupTransactions)
	if err != nil {
		return ledger.GroupLedger{}, fmt.Errorf("list group entries: %w", err)
	}
	return ledger.ComputeGroupCash(txs, fy), nil
}

// Dashboard sums the raw transaction lists across all members and years.
func (s *LedgerService) Dashboard(ctx context.Context) (DashboardTotals, error) {
	var totals DashboardTotals

	savings, err := s.store.ListEntries(ctx, store.Transactions)
	if err != nil {
		return totals, fmt.Errorf("list savings entries: %w", err)
	}
	for _, tx := range savings {
		switch tx.Kind {
		case core.KindSaving:
			totals.Savings = totals.Savings.Add(tx.Amount)
		case core.KindWithdrawal:
			totals.Withdrawals = totals.Withdrawals.Add(tx.Amount)
		}
	}

	group, err := s.store.ListEntries(ctx, store.GroupTransactions)
	if err != nil {
		return totals, fmt.Errorf("list group entries: %w", err)
	}
	for _, tx := range group {
		switch tx.Kind {
		case core.KindCashIn:
			totals.CashIn = totals.CashIn.Add(tx.Amount)
		case core.KindCashOut:
			totals.CashOut = totals.CashOut.Add(tx.Amount)
		}
	}

	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return totals, fmt.Errorf("list members: %w", err)
	}
	totals.Members = len(members)
	return totals, nil
}

// UpsertEntry applies the point-edit contract for the savings and loan
// ledgers: at most one entry per (member, date, kind, fiscalYear) tuple.
// A zero amount deletes the matching entry, an existing match is updated
// in place, otherwise a new entry is created. Admin only.
func (s *LedgerService) UpsertEntry(ctx context.Context, actorID string, l core.Ledger, p EntryParams) error {
	if err := s.roles.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	if l != core.LedgerSavings && l != core.LedgerLoan {
		return core.ErrUnknownKind
	}
	if !l.Allows(p.Kind) {
		return core.ErrUnknownKind
	}
	if p.MemberID == "" {
		return core.ErrEmptyMember
	}
	if !core.ValidDateKey(p.Date) {
		return core.ErrInvalidDate
	}
	if !core.ValidAmount(p.Amount) {
		return core.ErrInvalidAmount
	}

	col, _ := store.EntryCollection(l)
	existing, err := s.findEntry(ctx, col, p)
	if err != nil {
		return err
	}

	switch {
	case p.Amount.IsZero():
		if existing == nil {
			return nil
		}
		if err := s.store.DeleteEntry(ctx, col, existing.ID); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
	case existing != nil:
		upd := store.EntryUpdate{Amount: &p.Amount}
		if l == core.LedgerSavings {
			upd.Note = &p.Note
		}
		if err := s.store.UpdateEntry(ctx, col, existing.ID, upd); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
	default:
		tx := core.Transaction{
			MemberID:   p.MemberID,
			FiscalYear: p.FiscalYear,
			Date:       p.Date,
			Kind:       p.Kind,
			Amount:     p.Amount,
		}
		if l == core.LedgerSavings {
			tx.Note = p.Note
		}
		if _, err := s.store.AddEntry(ctx, col, tx); err != nil {
			return fmt.Errorf("add entry: %w", err)
		}
	}

	s.notifyChanged(ctx, l, p.MemberID, p.FiscalYear)
	return nil
}

// findEntry returns the first entry matching the upsert tuple, nil when
// none exists. Matching the first only mirrors the original edit surface;
// upsert keeps the steady state at one per tuple anyway.
func (s *LedgerService) findEntry(ctx context.Context, col store.Collection, p EntryParams) (*core.Transaction, error) {
	txs, err := s.store.ListEntries(ctx, col)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	for i := range txs {
		tx := &txs[i]
		if tx.MemberID == p.MemberID && tx.Date == p.Date && tx.Kind == p.Kind && tx.FiscalYear == p.FiscalYear {
			return tx, nil
		}
	}
	return nil, nil
}

// AddGroupEntry records a group cash movement. Admin only.
func (s *LedgerService) AddGroupEntry(ctx context.Context, actorID string, tx core.Transaction) (string, error) {
	if err := s.roles.RequireAdmin(ctx, actorID); err != nil {
		return "", err
	}
	if err := tx.Validate(core.LedgerGroup); err != nil {
		return "", err
	}
	id, err := s.store.AddEntry(ctx, store.GroupTransactions, tx)
	if err != nil {
		return "", fmt.Errorf("add group entry: %w", err)
	}
	s.notifyChanged(ctx, core.LedgerGroup, "", tx.FiscalYear)
	return id, nil
}

// DeleteGroupEntry removes a group cash movement. Admin only.
func (s *LedgerService) DeleteGroupEntry(ctx context.Context, actorID, id string) error {
	if err := s.roles.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	txs, err := s.store.ListEntries(ctx, store.GroupTransactions)
	if err != nil {
		return fmt.Errorf("list group entries: %w", err)
	}
	var fy core.FiscalYear
	for _, tx := range txs {
		if tx.ID == id {
			fy = tx.FiscalYear
			break
		}
	}
	if err := s.store.DeleteEntry(ctx, store.GroupTransactions, id); err != nil {
		return fmt.Errorf("delete group entry: %w", err)
	}
	s.notifyChanged(ctx, core.LedgerGroup, "", fy)
	return nil
}

func (s *LedgerService) ListMembers(ctx context.Context) ([]core.Member, error) {
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (s *LedgerService) AddMember(ctx context.Context, actorID string, m core.Member) (string, error) {
	if err := s.roles.RequireAdmin(ctx, actorID); err != nil {
		return "", err
	}
	if err := m.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.AddMember(ctx, m)
	if err != nil {
		return "", fmt.Errorf("add member: %w", err)
	}
	return id, nil
}

func (s *LedgerService) DeleteMember(ctx context.Context, actorID, id string) error {
	if err := s.roles.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	if err := s.store.DeleteMember(ctx, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

func (s *LedgerService) notifyChanged(ctx context.Context, l core.Ledger, memberID string, fy core.FiscalYear) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.LedgerChanged(ctx, l, memberID, fy); err != nil {
		// Reports go stale until the next change; the ledger itself is
		// already durable.
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"ledger", l, "member_id", memberID, "fiscal_year", fy, "error", err)
	}
}
