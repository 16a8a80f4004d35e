package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	grouprepoport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/grouprepo"
	sessionrepoport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/sessionrepo"
	userrepoport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

// Stores bundles one backend's repositories so membership behavior can be
// exercised across the user and group documents together.
type Stores struct {
	Users    userrepoport.Repository
	Groups   grouprepoport.Repository
	Sessions sessionrepoport.Repository
}

type StoresFactory func(t *testing.T) (Stores, CleanupFunc)

func RunUserRepo(t *testing.T, newStores StoresFactory) {
	t.Helper()
	ctx := context.Background()

	st, cleanup := newStores(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	aID := domain.UserID(uuid.NewString())
	if err := st.Users.Create(ctx, userrepoport.User{
		ID:        aID,
		Username:  "alice_wizard",
		GroupIDs:  []domain.GroupID{},
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if _, err := st.Users.GetByID(ctx, aID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	got, err := st.Users.GetByUsername(ctx, "alice_wizard")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.ID != aID {
		t.Fatalf("unexpected user: %#v", got)
	}

	// Username uniqueness is exact and case-sensitive.
	if err := st.Users.Create(ctx, userrepoport.User{
		ID:        domain.UserID(uuid.NewString()),
		Username:  "alice_wizard",
		CreatedAt: now,
	}); !errors.Is(err, userrepoport.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if err := st.Users.Create(ctx, userrepoport.User{
		ID:        domain.UserID(uuid.NewString()),
		Username:  "Alice_Wizard",
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("expected different-case username to be accepted, got %v", err)
	}

	if _, err := st.Users.GetByUsername(ctx, "nobody"); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.Users.GetByID(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// RunGroupMembership exercises the dual-document membership writes and the
// bidirectional membership invariant.
func RunGroupMembership(t *testing.T, newStores StoresFactory) {
	t.Helper()
	ctx := context.Background()

	st, cleanup := newStores(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(2000, 0).UTC()
	hostID := seedUser(t, st, "host_user", now)
	memberID := seedUser(t, st, "member_user", now)

	gID := domain.GroupID(uuid.NewString())
	if err := st.Groups.Create(ctx, grouprepoport.Group{
		ID:        gID,
		Name:      "Test Group",
		HostID:    hostID,
		HostName:  "host_user",
		MemberIDs: []domain.UserID{hostID},
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create group: %v", err)
	}

	// Creation enrolls the host on both sides.
	assertSymmetry(t, st, gID, hostID, true)

	later := now.Add(time.Minute)
	if err := st.Groups.AddMember(ctx, gID, memberID, later); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	assertSymmetry(t, st, gID, memberID, true)

	g, err := st.Groups.GetByID(ctx, gID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !g.UpdatedAt.Equal(later) {
		t.Fatalf("expected UpdatedAt bump to %v, got %v", later, g.UpdatedAt)
	}

	gs, err := st.Groups.ListByMember(ctx, memberID)
	if err != nil {
		t.Fatalf("ListByMember: %v", err)
	}
	if len(gs) != 1 || gs[0].ID != gID {
		t.Fatalf("unexpected groups: %#v", gs)
	}

	if err := st.Groups.RemoveMember(ctx, gID, memberID, later.Add(time.Minute)); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	assertSymmetry(t, st, gID, memberID, false)
	assertSymmetry(t, st, gID, hostID, true)

	// Missing documents surface the repo sentinels.
	if err := st.Groups.AddMember(ctx, domain.GroupID(uuid.NewString()), memberID, later); !errors.Is(err, grouprepoport.ErrNotFound) {
		t.Fatalf("expected group ErrNotFound, got %v", err)
	}
	if err := st.Groups.AddMember(ctx, gID, domain.UserID(uuid.NewString()), later); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("expected user ErrNotFound, got %v", err)
	}
}

func RunSessionRepo(t *testing.T, newStores StoresFactory) {
	t.Helper()
	ctx := context.Background()

	st, cleanup := newStores(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(3000, 0).UTC()
	hostID := seedUser(t, st, "session_host", now)
	gID := domain.GroupID(uuid.NewString())
	if err := st.Groups.Create(ctx, grouprepoport.Group{
		ID:        gID,
		Name:      "Session Group",
		HostID:    hostID,
		HostName:  "session_host",
		MemberIDs: []domain.UserID{hostID},
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create group: %v", err)
	}

	early := domain.Session{
		ID:             domain.SessionID(uuid.NewString()),
		GroupID:        gID,
		GroupName:      "Session Group",
		HostID:         hostID,
		HostName:       "session_host",
		SessionDate:    now.Add(24 * time.Hour),
		AvailableUsers: []domain.UserID{},
		Snacks:         []domain.SessionSnack{},
		Carpool:        []domain.SessionCarpool{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	late := early
	late.ID = domain.SessionID(uuid.NewString())
	late.SessionDate = now.Add(48 * time.Hour)

	if err := st.Sessions.Create(ctx, early); err != nil {
		t.Fatalf("Create early: %v", err)
	}
	if err := st.Sessions.Create(ctx, late); err != nil {
		t.Fatalf("Create late: %v", err)
	}

	// Most recent session first.
	ss, err := st.Sessions.ListByGroup(ctx, gID)
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(ss) != 2 || ss[0].ID != late.ID || ss[1].ID != early.ID {
		t.Fatalf("unexpected order: %#v", ss)
	}

	// Save round-trips nested collections.
	early.AvailableUsers = []domain.UserID{hostID}
	early.Snacks = []domain.SessionSnack{{UserID: hostID, UserName: "session_host", SnackDescription: "chips"}}
	early.Carpool = []domain.SessionCarpool{{
		DriverID:   hostID,
		DriverName: "session_host",
		Capacity:   3,
		Passengers: []domain.SessionPassenger{},
	}}
	early.UpdatedAt = now.Add(time.Hour)
	if err := st.Sessions.Save(ctx, early); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Sessions.GetByID(ctx, early.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.AvailableUsers) != 1 || got.AvailableUsers[0] != hostID {
		t.Fatalf("availableUsers not persisted: %#v", got.AvailableUsers)
	}
	if len(got.Snacks) != 1 || got.Snacks[0].SnackDescription != "chips" {
		t.Fatalf("snacks not persisted: %#v", got.Snacks)
	}
	if len(got.Carpool) != 1 || got.Carpool[0].Capacity != 3 {
		t.Fatalf("carpool not persisted: %#v", got.Carpool)
	}

	if err := st.Sessions.Delete(ctx, early.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Sessions.GetByID(ctx, early.ID); !errors.Is(err, sessionrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.Sessions.Save(ctx, early); !errors.Is(err, sessionrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on save of deleted session, got %v", err)
	}
}

// RunWatchStreams verifies that watch channels deliver an initial snapshot and
// then a fresh snapshot after a change.
func RunWatchStreams(t *testing.T, newStores StoresFactory) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, cleanup := newStores(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(4000, 0).UTC()
	hostID := seedUser(t, st, "watch_host", now)
	gID := domain.GroupID(uuid.NewString())
	if err := st.Groups.Create(ctx, grouprepoport.Group{
		ID:        gID,
		Name:      "Watch Group",
		HostID:    hostID,
		HostName:  "watch_host",
		MemberIDs: []domain.UserID{hostID},
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create group: %v", err)
	}

	snaps, _, err := st.Sessions.WatchByGroup(ctx, gID)
	if err != nil {
		t.Fatalf("WatchByGroup: %v", err)
	}
	if got := recvSessionSnapshot(t, snaps); len(got) != 0 {
		t.Fatalf("expected empty initial snapshot, got %#v", got)
	}

	sess := domain.Session{
		ID:          domain.SessionID(uuid.NewString()),
		GroupID:     gID,
		GroupName:   "Watch Group",
		HostID:      hostID,
		HostName:    "watch_host",
		SessionDate: now.Add(24 * time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := st.Sessions.Create(ctx, sess); err != nil {
		t.Fatalf("Create session: %v", err)
	}
	got := recvSessionSnapshot(t, snaps)
	if len(got) != 1 || got[0].ID != sess.ID {
		t.Fatalf("expected snapshot with the new session, got %#v", got)
	}

	gSnaps, _, err := st.Groups.WatchByMember(ctx, hostID)
	if err != nil {
		t.Fatalf("WatchByMember: %v", err)
	}
	if got := recvGroupSnapshot(t, gSnaps); len(got) != 1 || got[0].ID != gID {
		t.Fatalf("expected initial group snapshot, got %#v", got)
	}
}

func recvSessionSnapshot(t *testing.T, ch <-chan []domain.Session) []domain.Session {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatalf("watch channel closed unexpectedly")
		}
		return s
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return nil
	}
}

func recvGroupSnapshot(t *testing.T, ch <-chan []grouprepoport.Group) []grouprepoport.Group {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatalf("watch channel closed unexpectedly")
		}
		return s
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for group snapshot")
		return nil
	}
}

func seedUser(t *testing.T, st Stores, username string, now time.Time) domain.UserID {
	t.Helper()
	id := domain.UserID(uuid.NewString())
	if err := st.Users.Create(context.Background(), userrepoport.User{
		ID:        id,
		Username:  username,
		GroupIDs:  []domain.GroupID{},
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return id
}

func assertSymmetry(t *testing.T, st Stores, gID domain.GroupID, uID domain.UserID, want bool) {
	t.Helper()
	ctx := context.Background()
	g, err := st.Groups.GetByID(ctx, gID)
	if err != nil {
		t.Fatalf("GetByID group: %v", err)
	}
	u, err := st.Users.GetByID(ctx, uID)
	if err != nil {
		t.Fatalf("GetByID user: %v", err)
	}
	inGroup := false
	for _, m := range g.MemberIDs {
		if m == uID {
			inGroup = true
		}
	}
	inUser := false
	for _, gid := range u.GroupIDs {
		if gid == gID {
			inUser = true
		}
	}
	if inGroup != want || inUser != want {
		t.Fatalf("membership asymmetry: group side=%v user side=%v want=%v", inGroup, inUser, want)
	}
}
