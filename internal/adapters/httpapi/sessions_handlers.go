package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/sessions"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

type createSessionRequest struct {
	GroupID     string    `json:"groupId"`
	SessionDate time.Time `json:"sessionDate"`

	HostNotes            *string `json:"hostNotes"`
	SecretNotes          *string `json:"secretNotes"`
	ExternalAvailability *string `json:"externalAvailability"`
	IsConfirmed          *bool   `json:"isConfirmed"`

	AvailableUsers []string      `json:"availableUsers"`
	Snacks         []snackJSON   `json:"snacks"`
	Carpool        []carpoolJSON `json:"carpool"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.SessionDate.IsZero() {
		s.writeErrorCode(w, r, http.StatusUnprocessableEntity, "validation-error", "sessionDate is required", nil)
		return
	}
	in := sessions.CreateSessionInput{
		GroupID:              domain.GroupID(req.GroupID),
		SessionDate:          req.SessionDate,
		HostNotes:            req.HostNotes,
		SecretNotes:          req.SecretNotes,
		ExternalAvailability: req.ExternalAvailability,
		IsConfirmed:          req.IsConfirmed,
		AvailableUsers:       userIDsToDomain(req.AvailableUsers),
		Snacks:               snacksToDomain(req.Snacks),
		Carpool:              carpoolsToDomain(req.Carpool),
	}
	sess, err := s.Sessions.CreateSession(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"session": sessionFromDomain(sess)})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.GetSessionByID(r.Context(), domain.SessionID(chi.URLParam(r, "sessionID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session": sessionFromDomain(sess)})
}

// updateSessionRequest distinguishes omitted fields from fields explicitly
// sent as null, so a PATCH only touches what the client specified.
type updateSessionRequest struct {
	IsConfirmed nullable.Nullable[bool]      `json:"isConfirmed"`
	SessionDate nullable.Nullable[time.Time] `json:"sessionDate"`

	HostNotes            nullable.Nullable[string] `json:"hostNotes"`
	SecretNotes          nullable.Nullable[string] `json:"secretNotes"`
	ExternalAvailability nullable.Nullable[string] `json:"externalAvailability"`

	AvailableUsers nullable.Nullable[[]string]      `json:"availableUsers"`
	Snacks         nullable.Nullable[[]snackJSON]   `json:"snacks"`
	Carpool        nullable.Nullable[[]carpoolJSON] `json:"carpool"`
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	in := sessions.UpdateSessionInput{
		IsConfirmed:          toOptional(req.IsConfirmed),
		SessionDate:          toOptional(req.SessionDate),
		HostNotes:            toOptional(req.HostNotes),
		SecretNotes:          toOptional(req.SecretNotes),
		ExternalAvailability: toOptional(req.ExternalAvailability),
		AvailableUsers:       mapOptional(req.AvailableUsers, userIDsToDomain),
		Snacks:               mapOptional(req.Snacks, snacksToDomain),
		Carpool:              mapOptional(req.Carpool, carpoolsToDomain),
	}
	sess, err := s.Sessions.UpdateSession(r.Context(), domain.SessionID(chi.URLParam(r, "sessionID")), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session": sessionFromDomain(sess)})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.DeleteSession(r.Context(), domain.SessionID(chi.URLParam(r, "sessionID"))); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type availabilityRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleConfirmAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	sess, err := s.Sessions.ConfirmAvailability(r.Context(),
		domain.SessionID(chi.URLParam(r, "sessionID")), domain.UserID(req.UserID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session": sessionFromDomain(sess)})
}

func (s *Server) handleRemoveAvailability(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.RemoveAvailability(r.Context(),
		domain.SessionID(chi.URLParam(r, "sessionID")),
		domain.UserID(chi.URLParam(r, "userID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session": sessionFromDomain(sess)})
}

func (s *Server) handleAddSnack(w http.ResponseWriter, r *http.Request) {
	var req snackJSON
	if !s.decodeBody(w, r, &req) {
		return
	}
	sess, err := s.Sessions.AddSnack(r.Context(),
		domain.SessionID(chi.URLParam(r, "sessionID")),
		domain.UserID(req.UserID), req.UserName, req.SnackDescription)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session": sessionFromDomain(sess)})
}

func (s *Server) handleRemoveSnack(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.RemoveSnack(r.Context(),
		domain.SessionID(chi.URLParam(r, "sessionID")),
		domain.UserID(chi.URLParam(r, "userID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session": sessionFromDomain(sess)})
}

type addCarpoolRequest struct {
	DriverID   string `json:"driverId"`
	DriverName string `json:"driverName"`
	Capacity   int    `json:"capacity"`
}

func (s *Server) handleAddCarpool(w http.ResponseWriter, r *http.Request) {
	var req addCarpoolRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	sess, err := s.Sessions.AddCarpool(r.Context(),
		domain.SessionID(chi.URLParam(r, "sessionID")),
		domain.UserID(req.DriverID), req.DriverName, req.Capacity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session": sessionFromDomain(sess)})
}

func (s *Server) handleJoinCarpool(w http.ResponseWriter, r *http.Request) {
	var req passengerJSON
	if !s.decodeBody(w, r, &req) {
		return
	}
	sess, err := s.Sessions.JoinCarpool(r.Context(),
		domain.SessionID(chi.URLParam(r, "sessionID")),
		domain.UserID(chi.URLParam(r, "driverID")),
		domain.UserID(req.UserID), req.UserName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session": sessionFromDomain(sess)})
}

func (s *Server) handleLeaveCarpool(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.LeaveCarpool(r.Context(),
		domain.SessionID(chi.URLParam(r, "sessionID")),
		domain.UserID(chi.URLParam(r, "userID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session": sessionFromDomain(sess)})
}

func toOptional[T any](n nullable.Nullable[T]) sessions.Optional[T] {
	if !n.IsSpecified() {
		return sessions.Unspecified[T]()
	}
	if n.IsNull() {
		return sessions.Null[T]()
	}
	return sessions.Some(n.MustGet())
}

func mapOptional[W, D any](n nullable.Nullable[W], conv func(W) D) sessions.Optional[D] {
	if !n.IsSpecified() {
		return sessions.Unspecified[D]()
	}
	if n.IsNull() {
		return sessions.Null[D]()
	}
	return sessions.Some(conv(n.MustGet()))
}

func userIDsToDomain(ids []string) []domain.UserID {
	out := make([]domain.UserID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.UserID(id))
	}
	return out
}

func snacksToDomain(in []snackJSON) []domain.SessionSnack {
	out := make([]domain.SessionSnack, 0, len(in))
	for _, sn := range in {
		out = append(out, domain.SessionSnack{
			UserID:           domain.UserID(sn.UserID),
			UserName:         sn.UserName,
			SnackDescription: sn.SnackDescription,
		})
	}
	return out
}

func carpoolsToDomain(in []carpoolJSON) []domain.SessionCarpool {
	out := make([]domain.SessionCarpool, 0, len(in))
	for _, c := range in {
		dc := domain.SessionCarpool{
			DriverID:   domain.UserID(c.DriverID),
			DriverName: c.DriverName,
			Capacity:   c.Capacity,
			Passengers: make([]domain.SessionPassenger, 0, len(c.Passengers)),
		}
		for _, p := range c.Passengers {
			dc.Passengers = append(dc.Passengers, domain.SessionPassenger{
				UserID:   domain.UserID(p.UserID),
				UserName: p.UserName,
			})
		}
		out = append(out, dc)
	}
	return out
}
