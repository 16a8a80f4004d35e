package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

const watchWriteTimeout = 10 * time.Second

// handleWatchUserGroups streams the user's group list over a websocket. Each
// message is a full replacement snapshot, starting with the current state.
func (s *Server) handleWatchUserGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	userID := domain.UserID(chi.URLParam(r, "userID"))
	snapshots, errs, err := s.Groups.StreamUserGroups(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure.
		return
	}
	defer conn.Close()
	go discardReads(conn, cancel)

	for {
		select {
		case gs, ok := <-snapshots:
			if !ok {
				s.drainStreamError(r, errs, "user groups watch")
				return
			}
			out := make([]groupJSON, 0, len(gs))
			for _, g := range gs {
				out = append(out, groupFromDomain(g))
			}
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteJSON(map[string]any{"groups": out}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleWatchGroupSessions streams a group's session list over a websocket.
func (s *Server) handleWatchGroupSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	groupID := domain.GroupID(chi.URLParam(r, "groupID"))
	snapshots, errs, err := s.Sessions.StreamGroupSessions(ctx, groupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	go discardReads(conn, cancel)

	for {
		select {
		case ss, ok := <-snapshots:
			if !ok {
				s.drainStreamError(r, errs, "group sessions watch")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteJSON(map[string]any{"sessions": sessionsFromDomain(ss)}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) drainStreamError(r *http.Request, errs <-chan error, what string) {
	if err, ok := <-errs; ok && err != nil {
		s.Log.Error("watch stream failed", "stream", what, "path", r.URL.Path, "error", err)
	}
}

// discardReads pumps the client side of the connection so pings and close
// frames are processed, and cancels the stream when the client goes away.
func discardReads(conn interface{ ReadMessage() (int, []byte, error) }, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
