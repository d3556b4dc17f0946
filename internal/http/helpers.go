package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bachat/internal/auth"
	"bachat/internal/core"
	"bachat/internal/service"
	"bachat/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses: validation failures
// are 422, authorization failures 403, missing documents 404, everything
// else 500 with the detail kept out of the response body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusForbidden
		msg = err.Error()
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidFiscalYear),
		errors.Is(err, core.ErrUnknownKind),
		errors.Is(err, core.ErrEmptyMember),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, service.ErrFiscalYearExists),
		errors.Is(err, service.ErrFiscalYearUnknown):
		status = http.StatusUnprocessableEntity
		msg = err.Error()
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}
