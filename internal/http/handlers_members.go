package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"bachat/internal/core"
)

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.ledgers.ListMembers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if members == nil {
		members = []core.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

type memberRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := s.ledgers.AddMember(r.Context(), userID(r), core.Member{Name: req.Name, Phone: req.Phone})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.ledgers.DeleteMember(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type adminRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// handleGrantAdmin adds a user to the role store. Only an existing admin
// may grant; bootstrapping the first admin happens out of band.
func (s *Server) handleGrantAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.roles.RequireAdmin(r.Context(), userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.roles.Grant(r.Context(), req.UserID, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleRevokeAdmin(w http.ResponseWriter, r *http.Request) {
	if err := s.roles.RequireAdmin(r.Context(), userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.roles.Revoke(r.Context(), mux.Vars(r)["userId"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
