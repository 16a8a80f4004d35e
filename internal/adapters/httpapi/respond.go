package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/groups"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/sessions"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/users"
)

// errorEnvelope is the wire shape of every failed response.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	s.writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// writeError maps an app-layer error onto the envelope. Anything that is not
// a recognized app error is reported as unknown-error without leaking the
// underlying message to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if ue := (*users.Error)(nil); errors.As(err, &ue) {
		s.writeErrorCode(w, r, ue.Status, ue.Code, ue.Message, ue.Details)
		return
	}
	if ge := (*groups.Error)(nil); errors.As(err, &ge) {
		s.writeErrorCode(w, r, ge.Status, ge.Code, ge.Message, ge.Details)
		return
	}
	if se := (*sessions.Error)(nil); errors.As(err, &se) {
		s.writeErrorCode(w, r, se.Status, se.Code, se.Message, se.Details)
		return
	}

	s.Log.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	s.writeErrorCode(w, r, http.StatusInternalServerError, "unknown-error", "internal error", nil)
}

// decodeBody decodes a JSON request body, reporting a validation-error on
// malformed or missing input.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		s.writeErrorCode(w, r, http.StatusUnprocessableEntity, "validation-error", "malformed request body", nil)
		return false
	}
	return true
}
