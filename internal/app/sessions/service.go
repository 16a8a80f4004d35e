package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	clockport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/clock"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/grouprepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/sessionrepo"
)

// Service implements the session operations. Every mutation is a
// read-modify-write against a single session document: fetch the current
// session, derive the new value of one nested collection, save the document
// with a refreshed UpdatedAt. Two concurrent mutations of the same session can
// interleave; the second write wins and silently discards the first caller's
// change.
type Service struct {
	sessions sessionrepo.Repository
	groups   grouprepo.Repository
	clk      clockport.Clock

	newSessionID func() domain.SessionID
}

func NewService(sessionsRepo sessionrepo.Repository, groupsRepo grouprepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		sessions: sessionsRepo,
		groups:   groupsRepo,
		clk:      clk,
		newSessionID: func() domain.SessionID {
			return domain.SessionID(uuid.NewString())
		},
	}
}

// SetNewSessionIDForTest overrides session ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewSessionIDForTest(fn func() domain.SessionID) {
	if fn != nil {
		s.newSessionID = fn
	}
}

// CreateSession schedules a session for a group. GroupName, HostID and
// HostName are snapshotted from the group at this instant and never re-synced
// with later group edits.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (domain.Session, error) {
	g, err := s.groups.GetByID(ctx, in.GroupID)
	if err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return domain.Session{}, groupNotFound()
		}
		return domain.Session{}, err
	}

	snacks, err := normalizeSnacks(in.Snacks)
	if err != nil {
		return domain.Session{}, err
	}
	carpool, err := normalizeCarpool(in.Carpool)
	if err != nil {
		return domain.Session{}, err
	}

	now := s.clk.Now()
	sess := domain.Session{
		ID:             s.newSessionID(),
		GroupID:        g.ID,
		GroupName:      g.Name,
		HostID:         g.HostID,
		HostName:       g.HostName,
		SessionDate:    in.SessionDate.UTC(),
		AvailableUsers: dedupeUserIDs(in.AvailableUsers),
		Snacks:         snacks,
		Carpool:        carpool,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.HostNotes != nil {
		sess.HostNotes = *in.HostNotes
	}
	if in.SecretNotes != nil {
		sess.SecretNotes = *in.SecretNotes
	}
	if in.ExternalAvailability != nil {
		sess.ExternalAvailability = *in.ExternalAvailability
	}
	if in.IsConfirmed != nil {
		sess.IsConfirmed = *in.IsConfirmed
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

func (s *Service) GetSessionByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	return s.getSession(ctx, id)
}

// GetGroupSessions returns the group's sessions ordered by SessionDate
// descending (most recent first).
func (s *Service) GetGroupSessions(ctx context.Context, groupID domain.GroupID) ([]domain.Session, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return nil, groupNotFound()
		}
		return nil, err
	}
	ss, err := s.sessions.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sortSessionsByDateDesc(ss)
	return ss, nil
}

func (s *Service) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			return sessionNotFound()
		}
		return err
	}
	return nil
}

// UpdateSession merges only the explicitly-specified fields and bumps
// UpdatedAt. Unspecified fields are left untouched; specified fields are
// applied even when set to the empty string.
func (s *Service) UpdateSession(ctx context.Context, id domain.SessionID, in UpdateSessionInput) (domain.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}

	if in.IsConfirmed.IsSpecified() {
		if in.IsConfirmed.IsNull() {
			return domain.Session{}, nullField("isConfirmed")
		}
		sess.IsConfirmed = in.IsConfirmed.Value()
	}
	if in.SessionDate.IsSpecified() {
		if in.SessionDate.IsNull() {
			return domain.Session{}, nullField("sessionDate")
		}
		sess.SessionDate = in.SessionDate.Value().UTC()
	}
	applyString := func(dst *string, o Optional[string], field string) error {
		if !o.IsSpecified() {
			return nil
		}
		if o.IsNull() {
			return nullField(field)
		}
		*dst = o.Value()
		return nil
	}
	if err := applyString(&sess.HostNotes, in.HostNotes, "hostNotes"); err != nil {
		return domain.Session{}, err
	}
	if err := applyString(&sess.SecretNotes, in.SecretNotes, "secretNotes"); err != nil {
		return domain.Session{}, err
	}
	if err := applyString(&sess.ExternalAvailability, in.ExternalAvailability, "externalAvailability"); err != nil {
		return domain.Session{}, err
	}
	if in.AvailableUsers.IsSpecified() {
		if in.AvailableUsers.IsNull() {
			return domain.Session{}, nullField("availableUsers")
		}
		sess.AvailableUsers = dedupeUserIDs(in.AvailableUsers.Value())
	}
	if in.Snacks.IsSpecified() {
		if in.Snacks.IsNull() {
			return domain.Session{}, nullField("snacks")
		}
		snacks, err := normalizeSnacks(in.Snacks.Value())
		if err != nil {
			return domain.Session{}, err
		}
		sess.Snacks = snacks
	}
	if in.Carpool.IsSpecified() {
		if in.Carpool.IsNull() {
			return domain.Session{}, nullField("carpool")
		}
		carpool, err := normalizeCarpool(in.Carpool.Value())
		if err != nil {
			return domain.Session{}, err
		}
		sess.Carpool = carpool
	}

	return s.save(ctx, sess)
}

// ConfirmAvailability adds userID to the session's availability set.
// Confirming twice is a no-op.
func (s *Service) ConfirmAvailability(ctx context.Context, id domain.SessionID, userID domain.UserID) (domain.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	for _, u := range sess.AvailableUsers {
		if u == userID {
			return sess, nil
		}
	}
	sess.AvailableUsers = append(sess.AvailableUsers, userID)
	return s.save(ctx, sess)
}

// RemoveAvailability removes userID from the availability set. Removing an
// absent user is a no-op.
func (s *Service) RemoveAvailability(ctx context.Context, id domain.SessionID, userID domain.UserID) (domain.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	out := make([]domain.UserID, 0, len(sess.AvailableUsers))
	for _, u := range sess.AvailableUsers {
		if u != userID {
			out = append(out, u)
		}
	}
	if len(out) == len(sess.AvailableUsers) {
		return sess, nil
	}
	sess.AvailableUsers = out
	return s.save(ctx, sess)
}

// AddSnack is an upsert keyed by userID: any prior snack from this user is
// dropped and the new one appended, so a user contributes at most one snack.
func (s *Service) AddSnack(ctx context.Context, id domain.SessionID, userID domain.UserID, userName, description string) (domain.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	out := make([]domain.SessionSnack, 0, len(sess.Snacks)+1)
	for _, sn := range sess.Snacks {
		if sn.UserID != userID {
			out = append(out, sn)
		}
	}
	out = append(out, domain.SessionSnack{
		UserID:           userID,
		UserName:         userName,
		SnackDescription: description,
	})
	sess.Snacks = out
	return s.save(ctx, sess)
}

func (s *Service) RemoveSnack(ctx context.Context, id domain.SessionID, userID domain.UserID) (domain.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	out := make([]domain.SessionSnack, 0, len(sess.Snacks))
	for _, sn := range sess.Snacks {
		if sn.UserID != userID {
			out = append(out, sn)
		}
	}
	sess.Snacks = out
	return s.save(ctx, sess)
}

// AddCarpool is an upsert keyed by driverID. Replacing an existing offer
// resets its passenger list; riders must re-join under the new capacity.
func (s *Service) AddCarpool(ctx context.Context, id domain.SessionID, driverID domain.UserID, driverName string, capacity int) (domain.Session, error) {
	offer, err := domain.NewSessionCarpool(driverID, driverName, capacity)
	if err != nil {
		return domain.Session{}, &Error{
			Status:  422,
			Code:    "invalid-capacity",
			Message: err.Error(),
			Details: map[string]any{"capacity": capacity},
		}
	}

	sess, err := s.getSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	out := make([]domain.SessionCarpool, 0, len(sess.Carpool)+1)
	for _, c := range sess.Carpool {
		if c.DriverID != driverID {
			out = append(out, c)
		}
	}
	out = append(out, offer)
	sess.Carpool = out
	return s.save(ctx, sess)
}

// JoinCarpool seats the passenger in the driver's carpool. A user rides in at
// most one carpool per session, so any previous seat is released in the same
// write. A driver whose carpool has passengers cannot take a seat in another
// carpool, and a carpool whose driver rides elsewhere cannot take passengers.
// A full carpool rejects the join and leaves the session unchanged.
func (s *Service) JoinCarpool(ctx context.Context, id domain.SessionID, driverID, passengerID domain.UserID, passengerName string) (domain.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}

	target := -1
	for i, c := range sess.Carpool {
		if c.DriverID == driverID {
			target = i
			break
		}
	}
	if target < 0 {
		return domain.Session{}, &Error{
			Status:  404,
			Code:    "carpool-not-found",
			Message: "no carpool exists for this driver",
			Details: map[string]any{"driverId": string(driverID)},
		}
	}
	if passengerID == driverID {
		return domain.Session{}, &Error{
			Status:  422,
			Code:    "validation-error",
			Message: "driver cannot ride in their own carpool",
			Details: map[string]any{"driverId": string(driverID)},
		}
	}
	for _, c := range sess.Carpool {
		if c.DriverID == passengerID && len(c.Passengers) > 0 {
			return domain.Session{}, &Error{
				Status:  409,
				Code:    "carpool-conflict",
				Message: "driver with passengers cannot ride in another carpool",
				Details: map[string]any{"userId": string(passengerID)},
			}
		}
		if c.DriverID != driverID && c.HasPassenger(driverID) {
			return domain.Session{}, &Error{
				Status:  409,
				Code:    "carpool-conflict",
				Message: "driver currently rides in another carpool",
				Details: map[string]any{"driverId": string(driverID)},
			}
		}
	}

	// Occupancy excluding the joining user: re-joining your own seat is not a
	// capacity violation.
	occupied := 0
	for _, p := range sess.Carpool[target].Passengers {
		if p.UserID != passengerID {
			occupied++
		}
	}
	if occupied >= sess.Carpool[target].Capacity {
		return domain.Session{}, &Error{
			Status:  409,
			Code:    "carpool-full",
			Message: fmt.Sprintf("carpool is at full capacity (%d)", sess.Carpool[target].Capacity),
			Details: map[string]any{"driverId": string(driverID), "capacity": sess.Carpool[target].Capacity},
		}
	}

	for i := range sess.Carpool {
		sess.Carpool[i].Passengers = removePassenger(sess.Carpool[i].Passengers, passengerID)
	}
	sess.Carpool[target].Passengers = append(sess.Carpool[target].Passengers, domain.SessionPassenger{
		UserID:   passengerID,
		UserName: passengerName,
	})
	return s.save(ctx, sess)
}

// LeaveCarpool removes the user from the session's carpool arrangements
// entirely: any carpool they drive is withdrawn (dropping its passengers), and
// any seat they hold elsewhere is released. Leaving twice is a no-op.
func (s *Service) LeaveCarpool(ctx context.Context, id domain.SessionID, userID domain.UserID) (domain.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}

	changed := false
	out := make([]domain.SessionCarpool, 0, len(sess.Carpool))
	for _, c := range sess.Carpool {
		if c.DriverID == userID {
			changed = true
			continue
		}
		trimmed := removePassenger(c.Passengers, userID)
		if len(trimmed) != len(c.Passengers) {
			changed = true
		}
		c.Passengers = trimmed
		out = append(out, c)
	}
	if !changed {
		return sess, nil
	}
	sess.Carpool = out
	return s.save(ctx, sess)
}

// StreamGroupSessions emits the full current snapshot of the group's sessions
// on every underlying change, re-sorted by SessionDate descending on each
// emission. Each emission replaces the previous value wholesale.
func (s *Service) StreamGroupSessions(ctx context.Context, groupID domain.GroupID) (<-chan []domain.Session, <-chan error, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return nil, nil, groupNotFound()
		}
		return nil, nil, err
	}

	src, srcErr, err := s.sessions.WatchByGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan []domain.Session)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		for {
			select {
			case ss, ok := <-src:
				if !ok {
					return
				}
				sortSessionsByDateDesc(ss)
				select {
				case out <- ss:
				case <-ctx.Done():
					return
				}
			case err, ok := <-srcErr:
				if ok && err != nil {
					errCh <- err
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errCh, nil
}

func (s *Service) getSession(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			return domain.Session{}, sessionNotFound()
		}
		return domain.Session{}, err
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, sess domain.Session) (domain.Session, error) {
	sess.UpdatedAt = s.clk.Now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			return domain.Session{}, sessionNotFound()
		}
		return domain.Session{}, err
	}
	return sess, nil
}

func groupNotFound() *Error {
	return &Error{Status: 404, Code: "group-not-found", Message: "group not found"}
}

func sessionNotFound() *Error {
	return &Error{Status: 404, Code: "session-not-found", Message: "session not found"}
}

func nullField(field string) *Error {
	return &Error{
		Status:  422,
		Code:    "validation-error",
		Message: "invalid " + field,
		Details: map[string]any{field: "cannot be null"},
	}
}

func dedupeUserIDs(ids []domain.UserID) []domain.UserID {
	out := make([]domain.UserID, 0, len(ids))
	seen := make(map[domain.UserID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func normalizeSnacks(in []domain.SessionSnack) ([]domain.SessionSnack, error) {
	out := make([]domain.SessionSnack, 0, len(in))
	seen := make(map[domain.UserID]int, len(in))
	for _, sn := range in {
		// Last write wins for duplicate contributors, matching AddSnack's
		// upsert semantics.
		if i, ok := seen[sn.UserID]; ok {
			out[i] = sn
			continue
		}
		seen[sn.UserID] = len(out)
		out = append(out, sn)
	}
	return out, nil
}

func normalizeCarpool(in []domain.SessionCarpool) ([]domain.SessionCarpool, error) {
	out := make([]domain.SessionCarpool, 0, len(in))
	seenDriver := make(map[domain.UserID]struct{}, len(in))
	seated := make(map[domain.UserID]struct{})
	for _, c := range in {
		if err := domain.ValidateCarpoolCapacity(c.Capacity); err != nil {
			return nil, &Error{
				Status:  422,
				Code:    "invalid-capacity",
				Message: err.Error(),
				Details: map[string]any{"driverId": string(c.DriverID)},
			}
		}
		if _, ok := seenDriver[c.DriverID]; ok {
			return nil, &Error{
				Status:  422,
				Code:    "validation-error",
				Message: "duplicate carpool driver",
				Details: map[string]any{"driverId": string(c.DriverID)},
			}
		}
		seenDriver[c.DriverID] = struct{}{}
		if len(c.Passengers) > c.Capacity {
			return nil, &Error{
				Status:  422,
				Code:    "carpool-full",
				Message: "passenger list exceeds capacity",
				Details: map[string]any{"driverId": string(c.DriverID), "capacity": c.Capacity},
			}
		}
		for _, p := range c.Passengers {
			if p.UserID == c.DriverID {
				return nil, &Error{
					Status:  422,
					Code:    "validation-error",
					Message: "driver cannot ride in their own carpool",
					Details: map[string]any{"driverId": string(c.DriverID)},
				}
			}
			if _, ok := seated[p.UserID]; ok {
				return nil, &Error{
					Status:  422,
					Code:    "validation-error",
					Message: "user seated in more than one carpool",
					Details: map[string]any{"userId": string(p.UserID)},
				}
			}
			seated[p.UserID] = struct{}{}
		}
		out = append(out, c)
	}
	// A driver whose carpool has passengers cannot also hold a seat elsewhere.
	for _, c := range out {
		if len(c.Passengers) == 0 {
			continue
		}
		if _, ok := seated[c.DriverID]; ok {
			return nil, &Error{
				Status:  422,
				Code:    "validation-error",
				Message: "driver with passengers cannot ride in another carpool",
				Details: map[string]any{"userId": string(c.DriverID)},
			}
		}
	}
	return out, nil
}

func sortSessionsByDateDesc(ss []domain.Session) {
	sort.Slice(ss, func(i, j int) bool {
		a, b := ss[i], ss[j]
		if !a.SessionDate.Equal(b.SessionDate) {
			return a.SessionDate.After(b.SessionDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func removePassenger(ps []domain.SessionPassenger, userID domain.UserID) []domain.SessionPassenger {
	out := make([]domain.SessionPassenger, 0, len(ps))
	for _, p := range ps {
		if p.UserID != userID {
			out = append(out, p)
		}
	}
	return out
}
