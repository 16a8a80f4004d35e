package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/groups"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/sessions"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/users"
)

// Server is the HTTP adapter. It decodes requests, delegates to the app
// services, and maps app errors onto the wire envelope.
type Server struct {
	Users    *users.Service
	Groups   *groups.Service
	Sessions *sessions.Service

	Log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(usersSvc *users.Service, groupsSvc *groups.Service, sessionsSvc *sessions.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		Users:    usersSvc,
		Groups:   groupsSvc,
		Sessions: sessionsSvc,
		Log:      log,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// The API is served to first-party clients on other origins in dev.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}
