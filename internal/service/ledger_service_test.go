package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bachat/internal/auth"
	"bachat/internal/calendar"
	"bachat/internal/core"
	"bachat/internal/store"
	"bachat/internal/store/memory"
)

const (
	adminID = "admin-1"
	fy      = core.FiscalYear("2081/2082")
)

type fakeNotifier struct {
	calls []core.Ledger
	err   error
}

func (f *fakeNotifier) LedgerChanged(_ context.Context, l core.Ledger, _ string, _ core.FiscalYear) error {
	f.calls = append(f.calls, l)
	return f.err
}

func newService(t *testing.T) (*LedgerService, *memory.Store, *fakeNotifier) {
	t.Helper()
	st := memory.New()
	roles := auth.New(st)
	_, err := roles.Grant(context.Background(), adminID, "")
	require.NoError(t, err)
	notifier := &fakeNotifier{}
	svc := NewLedgerService(st, roles, calendar.DefaultTable(), notifier)
	return svc, st, notifier
}

func params(member, date string, kind core.Kind, amount int64) EntryParams {
	return EntryParams{
		MemberID:   member,
		FiscalYear: fy,
		Date:       date,
		Kind:       kind,
		Amount:     decimal.NewFromInt(amount),
	}
}

func TestUpsertRequiresAdmin(t *testing.T) {
	svc, _, notifier := newService(t)

	err := svc.UpsertEntry(context.Background(), "somebody", core.LedgerSavings,
		params("m1", "2081-10-05", core.KindSaving, 100))
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.Empty(t, notifier.calls, "rejected upsert must not publish")

	err = svc.UpsertEntry(context.Background(), "", core.LedgerSavings,
		params("m1", "2081-10-05", core.KindSaving, 100))
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestUpsertCreateThenUpdate(t *testing.T) {
	svc, st, notifier := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerSavings,
		params("m1", "2081-10-05", core.KindSaving, 100)))

	items, err := st.ListEntries(ctx, store.Transactions)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Amount.Equal(decimal.NewFromInt(100)))

	// Same tuple again: updated in place, still one entry.
	p := params("m1", "2081-10-05", core.KindSaving, 250)
	p.Note = "updated"
	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerSavings, p))

	items, err = st.ListEntries(ctx, store.Transactions)
	require.NoError(t, err)
	require.Len(t, items, 1, "upsert must keep at most one entry per tuple")
	assert.True(t, items[0].Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "updated", items[0].Note)

	// A different kind on the same day is a separate tuple.
	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerSavings,
		params("m1", "2081-10-05", core.KindWithdrawal, 40)))
	items, err = st.ListEntries(ctx, store.Transactions)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	assert.Len(t, notifier.calls, 3)
}

func TestUpsertZeroAmountDeletes(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerSavings,
		params("m1", "2081-10-05", core.KindSaving, 100)))
	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerSavings,
		params("m1", "2081-10-05", core.KindSaving, 0)))

	items, err := st.ListEntries(ctx, store.Transactions)
	require.NoError(t, err)
	assert.Empty(t, items, "zero amount deletes the matching entry")
}

func TestUpsertZeroAmountNoMatchIsNoop(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerSavings,
		params("m1", "2081-10-05", core.KindSaving, 0)))

	items, err := st.ListEntries(ctx, store.Transactions)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpsertValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		ledger  core.Ledger
		params  EntryParams
		wantErr error
	}{
		{"group ledger rejected", core.LedgerGroup, params("m1", "2081-10-05", core.KindCashIn, 1), core.ErrUnknownKind},
		{"kind not in ledger", core.LedgerSavings, params("m1", "2081-10-05", core.KindTaken, 1), core.ErrUnknownKind},
		{"missing member", core.LedgerSavings, params("", "2081-10-05", core.KindSaving, 1), core.ErrEmptyMember},
		{"bad date", core.LedgerSavings, params("m1", "2081-13-05", core.KindSaving, 1), core.ErrInvalidDate},
		{"negative amount", core.LedgerSavings, params("m1", "2081-10-05", core.KindSaving, -1), core.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.UpsertEntry(ctx, adminID, tt.ledger, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpsertLoanDropsNote(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	p := params("m1", "2081-10-05", core.KindTaken, 50000)
	p.Note = "should not persist"
	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerLoan, p))

	items, err := st.ListEntries(ctx, store.Loans)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Note, "loan entries carry no note")
}

func TestSavingsLedgerEndToEnd(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerSavings,
		params("m1", "2081-10-01", core.KindSaving, 1000)))

	l, err := svc.SavingsLedger(ctx, "m1", fy, 0)
	require.NoError(t, err)

	wantDays := calendar.YearLength(calendar.DefaultTable(), fy)
	assert.Len(t, l.Rows, wantDays)
	assert.True(t, l.Totals.FinalBalance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, l.Totals.Interest.IsPositive())
}

func TestLoanLedgerUsesStoredRate(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, st.PutSettings(ctx, core.Settings{
		SavingsInterestRate: decimal.NewFromInt(5),
		LoanInterestRate:    decimal.NewFromInt(10),
	}))
	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerLoan,
		params("m1", "2081-10-01", core.KindTaken, 36500)))

	l, err := svc.LoanLedger(ctx, "m1", fy, 0)
	require.NoError(t, err)

	// 36500 at 10%: 36500 * 0.10 / 365 = 10 per day.
	assert.True(t, l.Rows[0].Interest.Equal(decimal.NewFromInt(10)),
		"daily interest = %s, want 10", l.Rows[0].Interest)
}

func TestGroupEntries(t *testing.T) {
	svc, _, notifier := newService(t)
	ctx := context.Background()

	_, err := svc.AddGroupEntry(ctx, "intruder", core.Transaction{
		FiscalYear: fy, Date: "2081-10-05", Kind: core.KindCashIn, Amount: decimal.NewFromInt(500),
	})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	id, err := svc.AddGroupEntry(ctx, adminID, core.Transaction{
		FiscalYear: fy, Date: "2081-10-05", Kind: core.KindCashIn, Amount: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	_, err = svc.AddGroupEntry(ctx, adminID, core.Transaction{
		FiscalYear: fy, Date: "2081-10-06", Kind: core.KindSaving, Amount: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, core.ErrUnknownKind, "saving kind does not belong in the group ledger")

	l, err := svc.GroupLedger(ctx, fy)
	require.NoError(t, err)
	require.Len(t, l.Rows, 1)
	assert.True(t, l.Totals.FinalBalance.Equal(decimal.NewFromInt(500)))

	require.NoError(t, svc.DeleteGroupEntry(ctx, adminID, id))
	l, err = svc.GroupLedger(ctx, fy)
	require.NoError(t, err)
	assert.Empty(t, l.Rows)

	assert.Equal(t, []core.Ledger{core.LedgerGroup, core.LedgerGroup}, notifier.calls)
}

func TestDashboard(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddMember(ctx, adminID, core.Member{Name: "Sita"})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, adminID, core.Member{Name: "Ram"})
	require.NoError(t, err)

	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerSavings,
		params("m1", "2081-10-01", core.KindSaving, 1000)))
	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerSavings,
		params("m1", "2081-11-01", core.KindWithdrawal, 200)))
	_, err = svc.AddGroupEntry(ctx, adminID, core.Transaction{
		FiscalYear: fy, Date: "2081-10-05", Kind: core.KindCashIn, Amount: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	totals, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, totals.Savings.Equal(decimal.NewFromInt(1000)))
	assert.True(t, totals.Withdrawals.Equal(decimal.NewFromInt(200)))
	assert.True(t, totals.CashIn.Equal(decimal.NewFromInt(500)))
	assert.True(t, totals.CashOut.IsZero())
	assert.Equal(t, 2, totals.Members)
}

func TestMemberManagement(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddMember(ctx, "intruder", core.Member{Name: "Sita"})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = svc.AddMember(ctx, adminID, core.Member{Name: "   "})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	id, err := svc.AddMember(ctx, adminID, core.Member{Name: "Sita"})
	require.NoError(t, err)

	members, err := svc.ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	require.NoError(t, svc.DeleteMember(ctx, adminID, id))
	assert.ErrorIs(t, svc.DeleteMember(ctx, adminID, id), store.ErrNotFound)
}

func TestNotifierFailureDoesNotFailUpsert(t *testing.T) {
	svc, st, notifier := newService(t)
	notifier.err = assert.AnError
	ctx := context.Background()

	require.NoError(t, svc.UpsertEntry(ctx, adminID, core.LedgerSavings,
		params("m1", "2081-10-05", core.KindSaving, 100)))

	items, err := st.ListEntries(ctx, store.Transactions)
	require.NoError(t, err)
	assert.Len(t, items, 1, "entry persists even when publishing fails")
}
