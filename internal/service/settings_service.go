package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"bachat/internal/auth"
	"bachat/internal/core"
	"bachat/internal/store"
)

var (
	ErrFiscalYearExists  = errors.New("fiscal year already exists")
	ErrFiscalYearUnknown = errors.New("fiscal year not in list")
)

// SettingsService manages the interest rates and the enumerated
// fiscal-year list. The default list seeds the settings document on
// first read so callers always see a usable enumeration.
type SettingsService struct {
	store              store.Store
	roles              *auth.Service
	defaultFiscalYears []core.FiscalYear
}

func NewSettingsService(st store.Store, roles *auth.Service, defaultFiscalYears []core.FiscalYear) *SettingsService {
	return &SettingsService{store: st, roles: roles, defaultFiscalYears: defaultFiscalYears}
}

// Get returns the settings document, synthesizing one with default rates
// and the default fiscal-year list when none is stored.
func (s *SettingsService) Get(ctx context.Context) (core.Settings, error) {
	settings, ok, err := s.store.GetSettings(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return core.Settings{
			SavingsInterestRate: decimal.NewFromInt(5),
			LoanInterestRate:    decimal.NewFromInt(7),
			FiscalYears:         append([]core.FiscalYear(nil), s.defaultFiscalYears...),
		}, nil
	}
	if len(settings.FiscalYears) == 0 {
		settings.FiscalYears = append([]core.FiscalYear(nil), s.defaultFiscalYears...)
	}
	return settings, nil
}

// FiscalYears returns the enumerated fiscal-year list.
func (s *SettingsService) FiscalYears(ctx context.Context) ([]core.FiscalYear, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return settings.FiscalYears, nil
}

// Contains reports whether fy is in the enumerated list.
func (s *SettingsService) Contains(ctx context.Context, fy core.FiscalYear) (bool, error) {
	years, err := s.FiscalYears(ctx)
	if err != nil {
		return false, err
	}
	for _, y := range years {
		if y == fy {
			return true, nil
		}
	}
	return false, nil
}

// UpdateRates replaces the interest rates (percent values). Admin only.
func (s *SettingsService) UpdateRates(ctx context.Context, actorID string, savingsRate, loanRate decimal.Decimal) error {
	if err := s.roles.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	if savingsRate.IsNegative() || loanRate.IsNegative() {
		return core.ErrInvalidAmount
	}
	settings, err := s.Get(ctx)
	if err != nil {
		return err
	}
	settings.SavingsInterestRate = savingsRate
	settings.LoanInterestRate = loanRate
	if err := s.store.PutSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// AddFiscalYear appends a well-formed, previously unknown fiscal year to
// the list. Admin only.
func (s *SettingsService) AddFiscalYear(ctx context.Context, actorID string, fy core.FiscalYear) error {
	if err := s.roles.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	if !fy.WellFormed() {
		return core.ErrInvalidFiscalYear
	}
	settings, err := s.Get(ctx)
	if err != nil {
		return err
	}
	for _, y := range settings.FiscalYears {
		if y == fy {
			return ErrFiscalYearExists
		}
	}
	settings.FiscalYears = append(settings.FiscalYears, fy)
	if err := s.store.PutSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// RemoveFiscalYear drops a fiscal year from the list. Admin only.
func (s *SettingsService) RemoveFiscalYear(ctx context.Context, actorID string, fy core.FiscalYear) error {
	if err := s.roles.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	settings, err := s.Get(ctx)
	if err != nil {
		return err
	}
	kept := settings.FiscalYears[:0]
	found := false
	for _, y := range settings.FiscalYears {
		if y == fy {
			found = true
			continue
		}
		kept = append(kept, y)
	}
	if !found {
		return ErrFiscalYearUnknown
	}
	settings.FiscalYears = kept
	if err := s.store.PutSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
