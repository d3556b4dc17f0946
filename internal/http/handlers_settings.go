package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"bachat/internal/core"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type ratesRequest struct {
	SavingsInterestRate decimal.Decimal `json:"savingsInterestRate"`
	LoanInterestRate    decimal.Decimal `json:"loanInterestRate"`
}

func (s *Server) handleUpdateRates(w http.ResponseWriter, r *http.Request) {
	var req ratesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.settings.UpdateRates(r.Context(), userID(r), req.SavingsInterestRate, req.LoanInterestRate); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListFiscalYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.settings.FiscalYears(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, years)
}

type fiscalYearRequest struct {
	FiscalYear core.FiscalYear `json:"fiscalYear"`
}

func (s *Server) handleAddFiscalYear(w http.ResponseWriter, r *http.Request) {
	var req fiscalYearRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.settings.AddFiscalYear(r.Context(), userID(r), req.FiscalYear); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

// handleRemoveFiscalYear reads the year from the fiscalYear query
// parameter since the value itself contains a slash.
func (s *Server) handleRemoveFiscalYear(w http.ResponseWriter, r *http.Request) {
	fy := core.FiscalYear(strings.TrimSpace(r.URL.Query().Get("fiscalYear")))
	if fy == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "fiscalYear is required"})
		return
	}
	if err := s.settings.RemoveFiscalYear(r.Context(), userID(r), fy); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
