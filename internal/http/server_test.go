package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bachat/internal/auth"
	"bachat/internal/calendar"
	"bachat/internal/core"
	"bachat/internal/ledger"
	"bachat/internal/service"
	"bachat/internal/store/memory"
)

const (
	adminID = "admin-1"
	fy      = "2081/2082"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	roles := auth.New(st)
	_, err := roles.Grant(context.Background(), adminID, "")
	require.NoError(t, err)

	ledgers := service.NewLedgerService(st, roles, calendar.DefaultTable(), nil)
	settings := service.NewSettingsService(st, roles, []core.FiscalYear{fy})
	srv := NewServer(":0", ledgers, settings, roles, st)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, st
}

func doJSON(t *testing.T, srv *Server, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(userIDHeader, user)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMembersEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/members", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	// Anonymous and non-admin callers cannot mutate.
	rec = doJSON(t, srv, http.MethodPost, "/api/members", "", map[string]string{"name": "Sita"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/api/members", "somebody", map[string]string{"name": "Sita"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/members", adminID, map[string]string{"name": "Sita", "phone": "98"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created["id"])

	rec = doJSON(t, srv, http.MethodPost, "/api/members", adminID, map[string]string{"name": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/members", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []core.Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	assert.Len(t, members, 1)

	rec = doJSON(t, srv, http.MethodDelete, "/api/members/"+created["id"], adminID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, srv, http.MethodDelete, "/api/members/"+created["id"], adminID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSavingsUpsertAndRead(t *testing.T) {
	srv, _ := newTestServer(t)

	body := map[string]any{
		"memberId":   "m1",
		"fiscalYear": fy,
		"date":       "2081-10-01",
		"kind":       "saving",
		"amount":     "1000",
	}

	rec := doJSON(t, srv, http.MethodPut, "/api/ledger/savings", "", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, "/api/ledger/savings", adminID, body)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/ledger/savings?memberId=m1&fiscalYear=2081/2082", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var l ledger.SavingsLedger
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	assert.Len(t, l.Rows, calendar.YearLength(calendar.DefaultTable(), fy))
	assert.Equal(t, "1000", l.Totals.FinalBalance.String())

	// Quarter filter narrows the rows.
	rec = doJSON(t, srv, http.MethodGet, "/api/ledger/savings?memberId=m1&fiscalYear=2081/2082&quarter=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var q1 ledger.SavingsLedger
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q1))
	require.NotEmpty(t, q1.Rows)
	assert.Less(t, len(q1.Rows), len(l.Rows))
	for _, row := range q1.Rows {
		assert.Equal(t, 1, row.Quarter)
	}
}

func TestLedgerQueryValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"missing member", "/api/ledger/savings?fiscalYear=2081/2082"},
		{"missing fiscal year", "/api/ledger/savings?memberId=m1"},
		{"malformed fiscal year", "/api/ledger/savings?memberId=m1&fiscalYear=2081"},
		{"quarter out of range", "/api/ledger/savings?memberId=m1&fiscalYear=2081/2082&quarter=5"},
		{"quarter not a number", "/api/ledger/loans?memberId=m1&fiscalYear=2081/2082&quarter=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpsertValidationStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	body := map[string]any{
		"memberId":   "m1",
		"fiscalYear": fy,
		"date":       "2081-10-01",
		"kind":       "taken", // loan kind on the savings ledger
		"amount":     "10",
	}
	rec := doJSON(t, srv, http.MethodPut, "/api/ledger/savings", adminID, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, "/api/ledger/savings", adminID, map[string]any{"bogus": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/ledger/group", adminID, map[string]any{
		"fiscalYear": fy,
		"date":       "2081-10-05",
		"kind":       "in",
		"amount":     "500",
		"note":       "donation",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, srv, http.MethodGet, "/api/ledger/group?fiscalYear=2081/2082", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var l ledger.GroupLedger
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	require.Len(t, l.Rows, 1)
	assert.Equal(t, "500", l.Totals.FinalBalance.String())

	rec = doJSON(t, srv, http.MethodDelete, "/api/ledger/group/"+created["id"], adminID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/settings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings core.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, "5", settings.SavingsInterestRate.String())

	rec = doJSON(t, srv, http.MethodPut, "/api/settings/rates", adminID, map[string]any{
		"savingsInterestRate": "6",
		"loanInterestRate":    "9",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/settings/fiscal-years", adminID, map[string]string{"fiscalYear": "2082/2083"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/api/settings/fiscal-years", adminID, map[string]string{"fiscalYear": "2082/2083"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/settings/fiscal-years", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var years []core.FiscalYear
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &years))
	assert.Equal(t, []core.FiscalYear{fy, "2082/2083"}, years)

	rec = doJSON(t, srv, http.MethodDelete, "/api/settings/fiscal-years?fiscalYear=2082/2083", adminID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExportCSV(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/api/ledger/savings", adminID, map[string]any{
		"memberId":   "m1",
		"fiscalYear": fy,
		"date":       "2081-10-01",
		"kind":       "saving",
		"amount":     "1000",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/export/savings.csv?memberId=m1&fiscalYear=2081/2082", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "Date,Quarter,Saving")
}

func TestBackupEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/backup", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, "/api/ledger/savings", adminID, map[string]any{
		"memberId":   "m1",
		"fiscalYear": fy,
		"date":       "2081-10-01",
		"kind":       "saving",
		"amount":     "1000",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/backup", adminID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dump map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dump))
	txs, ok := dump["transactions"].([]any)
	require.True(t, ok)
	assert.Len(t, txs, 1)

	// Replay the dump through the restore endpoint.
	req := httptest.NewRequest(http.MethodPost, "/api/backup", bytes.NewReader(rec.Body.Bytes()))
	req.Header.Set(userIDHeader, adminID)
	restoreRec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(restoreRec, req)
	assert.Equal(t, http.StatusNoContent, restoreRec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/admins", "somebody", map[string]string{"userId": "u2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/admins", adminID, map[string]string{"userId": "u2"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The new admin can now mutate.
	rec = doJSON(t, srv, http.MethodPost, "/api/members", "u2", map[string]string{"name": "Ram"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/admins/u2", adminID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/members", "u2", map[string]string{"name": "Hari"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
