package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

type createUserRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	u, err := s.Users.CreateUser(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"user": userFromDomain(u)})
}

func (s *Server) handleGetUserByID(w http.ResponseWriter, r *http.Request) {
	u, err := s.Users.GetUserByID(r.Context(), domain.UserID(chi.URLParam(r, "userID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user": userFromDomain(u)})
}

func (s *Server) handleGetUserByUsername(w http.ResponseWriter, r *http.Request) {
	u, err := s.Users.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user": userFromDomain(u)})
}

// handleGetUserGroups returns the caller's groups with a per-group session
// count resolved at read time.
func (s *Server) handleGetUserGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gs, err := s.Groups.GetUserGroups(ctx, domain.UserID(chi.URLParam(r, "userID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]groupListingJSON, 0, len(gs))
	for _, g := range gs {
		sessions, err := s.Sessions.GetGroupSessions(ctx, g.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out = append(out, groupListingJSON{
			groupJSON:    groupFromDomain(g),
			SessionCount: len(sessions),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"groups": out})
}
