package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the API HTTP router.
//
// This is intentionally a thin adapter: handlers decode/encode JSON and
// delegate to the app services, which own all business rules.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/users", s.handleCreateUser)
	r.Get("/users/by-username/{username}", s.handleGetUserByUsername)
	r.Get("/users/{userID}", s.handleGetUserByID)
	r.Get("/users/{userID}/groups", s.handleGetUserGroups)
	r.Get("/users/{userID}/groups/watch", s.handleWatchUserGroups)

	r.Post("/groups", s.handleCreateGroup)
	r.Get("/groups/{groupID}", s.handleGetGroup)
	r.Post("/groups/{groupID}/members", s.handleJoinGroup)
	r.Delete("/groups/{groupID}/members/{userID}", s.handleLeaveGroup)
	r.Get("/groups/{groupID}/sessions", s.handleGetGroupSessions)
	r.Get("/groups/{groupID}/sessions/watch", s.handleWatchGroupSessions)

	r.Post("/sessions", s.handleCreateSession)
	r.Get("/sessions/{sessionID}", s.handleGetSession)
	r.Patch("/sessions/{sessionID}", s.handleUpdateSession)
	r.Delete("/sessions/{sessionID}", s.handleDeleteSession)

	r.Post("/sessions/{sessionID}/availability", s.handleConfirmAvailability)
	r.Delete("/sessions/{sessionID}/availability/{userID}", s.handleRemoveAvailability)
	r.Put("/sessions/{sessionID}/snacks", s.handleAddSnack)
	r.Delete("/sessions/{sessionID}/snacks/{userID}", s.handleRemoveSnack)
	r.Put("/sessions/{sessionID}/carpools", s.handleAddCarpool)
	r.Post("/sessions/{sessionID}/carpools/{driverID}/passengers", s.handleJoinCarpool)
	r.Delete("/sessions/{sessionID}/carpool-passengers/{userID}", s.handleLeaveCarpool)

	return r
}
