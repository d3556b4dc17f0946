package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"bachat/internal/core"
	"bachat/internal/ledger"
	"bachat/internal/service"
)

// ledgerQuery is the shared query surface of the per-member ledger reads:
// memberId and fiscalYear select the scope, quarter optionally narrows
// the rows (0 means the whole year).
type ledgerQuery struct {
	memberID   string
	fiscalYear core.FiscalYear
	quarter    int
}

func parseLedgerQuery(r *http.Request) (ledgerQuery, string) {
	q := ledgerQuery{
		memberID:   strings.TrimSpace(r.URL.Query().Get("memberId")),
		fiscalYear: core.FiscalYear(strings.TrimSpace(r.URL.Query().Get("fiscalYear"))),
		quarter:    ledger.AllQuarters,
	}
	if q.memberID == "" {
		return q, "memberId is required"
	}
	if !q.fiscalYear.WellFormed() {
		return q, "fiscalYear must match YYYY/YYYY"
	}
	if v := strings.TrimSpace(r.URL.Query().Get("quarter")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 4 {
			return q, "quarter must be between 0 and 4"
		}
		q.quarter = n
	}
	return q, ""
}

func (s *Server) handleSavingsLedger(w http.ResponseWriter, r *http.Request) {
	q, msg := parseLedgerQuery(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}
	l, err := s.ledgers.SavingsLedger(r.Context(), q.memberID, q.fiscalYear, q.quarter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleLoanLedger(w http.ResponseWriter, r *http.Request) {
	q, msg := parseLedgerQuery(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}
	l, err := s.ledgers.LoanLedger(r.Context(), q.memberID, q.fiscalYear, q.quarter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type upsertRequest struct {
	MemberID   string          `json:"memberId"`
	FiscalYear core.FiscalYear `json:"fiscalYear"`
	Date       string          `json:"date"`
	Kind       core.Kind       `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
}

func (s *Server) upsertEntry(w http.ResponseWriter, r *http.Request, l core.Ledger) {
	var req upsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.ledgers.UpsertEntry(r.Context(), userID(r), l, service.EntryParams{
		MemberID:   req.MemberID,
		FiscalYear: req.FiscalYear,
		Date:       req.Date,
		Kind:       req.Kind,
		Amount:     req.Amount,
		Note:       req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleUpsertSavings(w http.ResponseWriter, r *http.Request) {
	s.upsertEntry(w, r, core.LedgerSavings)
}

func (s *Server) handleUpsertLoan(w http.ResponseWriter, r *http.Request) {
	s.upsertEntry(w, r, core.LedgerLoan)
}

func (s *Server) handleGroupLedger(w http.ResponseWriter, r *http.Request) {
	fy := core.FiscalYear(strings.TrimSpace(r.URL.Query().Get("fiscalYear")))
	if !fy.WellFormed() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "fiscalYear must match YYYY/YYYY"})
		return
	}
	l, err := s.ledgers.GroupLedger(r.Context(), fy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type groupEntryRequest struct {
	FiscalYear core.FiscalYear `json:"fiscalYear"`
	Date       string          `json:"date"`
	Kind       core.Kind       `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
}

func (s *Server) handleAddGroupEntry(w http.ResponseWriter, r *http.Request) {
	var req groupEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := s.ledgers.AddGroupEntry(r.Context(), userID(r), core.Transaction{
		FiscalYear: req.FiscalYear,
		Date:       req.Date,
		Kind:       req.Kind,
		Amount:     req.Amount,
		Note:       req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteGroupEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.ledgers.DeleteGroupEntry(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	totals, err := s.ledgers.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
