package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bachat/internal/auth"
	"bachat/internal/core"
	"bachat/internal/store/memory"
)

var defaultYears = []core.FiscalYear{"2081/2082", "2082/2083"}

func newSettingsService(t *testing.T) (*SettingsService, *memory.Store) {
	t.Helper()
	st := memory.New()
	roles := auth.New(st)
	_, err := roles.Grant(context.Background(), adminID, "")
	require.NoError(t, err)
	return NewSettingsService(st, roles, defaultYears), st
}

func TestGetSynthesizesDefaults(t *testing.T) {
	svc, _ := newSettingsService(t)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.SavingsInterestRate.Equal(decimal.NewFromInt(5)))
	assert.True(t, settings.LoanInterestRate.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, defaultYears, settings.FiscalYears)
}

func TestUpdateRates(t *testing.T) {
	svc, st := newSettingsService(t)
	ctx := context.Background()

	err := svc.UpdateRates(ctx, "intruder", decimal.NewFromInt(6), decimal.NewFromInt(9))
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	err = svc.UpdateRates(ctx, adminID, decimal.NewFromInt(-1), decimal.NewFromInt(9))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	require.NoError(t, svc.UpdateRates(ctx, adminID, decimal.NewFromInt(6), decimal.NewFromInt(9)))

	stored, ok, err := st.GetSettings(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.SavingsInterestRate.Equal(decimal.NewFromInt(6)))
	assert.True(t, stored.LoanInterestRate.Equal(decimal.NewFromInt(9)))
	assert.Equal(t, defaultYears, stored.FiscalYears, "default years are persisted on first write")
}

func TestAddFiscalYear(t *testing.T) {
	svc, _ := newSettingsService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddFiscalYear(ctx, "intruder", "2083/2084"), auth.ErrUnauthorized)
	assert.ErrorIs(t, svc.AddFiscalYear(ctx, adminID, "2083"), core.ErrInvalidFiscalYear)
	assert.ErrorIs(t, svc.AddFiscalYear(ctx, adminID, "2081/2082"), ErrFiscalYearExists)

	require.NoError(t, svc.AddFiscalYear(ctx, adminID, "2083/2084"))

	years, err := svc.FiscalYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.FiscalYear{"2081/2082", "2082/2083", "2083/2084"}, years)

	ok, err := svc.Contains(ctx, "2083/2084")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveFiscalYear(t *testing.T) {
	svc, _ := newSettingsService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.RemoveFiscalYear(ctx, adminID, "2090/2091"), ErrFiscalYearUnknown)

	require.NoError(t, svc.RemoveFiscalYear(ctx, adminID, "2081/2082"))

	years, err := svc.FiscalYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.FiscalYear{"2082/2083"}, years)

	ok, err := svc.Contains(ctx, "2081/2082")
	require.NoError(t, err)
	assert.False(t, ok)
}
