package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

type createGroupRequest struct {
	Name   string `json:"name"`
	HostID string `json:"hostId"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	g, err := s.Groups.CreateGroup(r.Context(), req.Name, domain.UserID(req.HostID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"group": groupFromDomain(g)})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := domain.GroupID(chi.URLParam(r, "groupID"))
	g, err := s.Groups.GetGroupByID(ctx, groupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ms, err := s.Groups.GetGroupMembers(ctx, groupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := groupDetailJSON{
		groupJSON: groupFromDomain(g),
		Members:   make([]groupMemberJSON, 0, len(ms)),
	}
	for _, m := range ms {
		out.Members = append(out.Members, groupMemberFromDomain(m))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"group": out})
}

type joinGroupRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	var req joinGroupRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	g, err := s.Groups.JoinGroup(r.Context(), domain.GroupID(chi.URLParam(r, "groupID")), domain.UserID(req.UserID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"group": groupFromDomain(g)})
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.Groups.LeaveGroup(r.Context(),
		domain.GroupID(chi.URLParam(r, "groupID")),
		domain.UserID(chi.URLParam(r, "userID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"group": groupFromDomain(g)})
}

func (s *Server) handleGetGroupSessions(w http.ResponseWriter, r *http.Request) {
	ss, err := s.Sessions.GetGroupSessions(r.Context(), domain.GroupID(chi.URLParam(r, "groupID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": sessionsFromDomain(ss)})
}
