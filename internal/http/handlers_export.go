package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"bachat/internal/core"
	"bachat/internal/export"
)

func (s *Server) handleExportSavings(w http.ResponseWriter, r *http.Request) {
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
	setCSVHeaders(w, fmt.Sprintf("savings-%s", q.memberID))
	if err := export.WriteSavingsCSV(w, l); err != nil {
		writeError(w, r, err)
	}
}

func (s *Server) handleExportLoans(w http.ResponseWriter, r *http.Request) {
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
	setCSVHeaders(w, fmt.Sprintf("loans-%s", q.memberID))
	if err := export.WriteLoanCSV(w, l); err != nil {
		writeError(w, r, err)
	}
}

func (s *Server) handleExportGroup(w http.ResponseWriter, r *http.Request) {
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
	setCSVHeaders(w, "group")
	if err := export.WriteGroupCSV(w, l); err != nil {
		writeError(w, r, err)
	}
}

func setCSVHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
}

// handleBackup dumps every collection as a single JSON document. Admin
// only, since the dump includes every member's records.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	if err := s.roles.RequireAdmin(r.Context(), userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := export.Dump(r.Context(), s.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="bachat-backup.json"`)
	writeJSON(w, http.StatusOK, b)
}

// handleRestore replays a backup into the store, replacing the current
// contents. Admin only.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if err := s.roles.RequireAdmin(r.Context(), userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	var b export.Backup
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid backup file: " + err.Error()})
		return
	}
	if err := export.Restore(r.Context(), s.store, b); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
