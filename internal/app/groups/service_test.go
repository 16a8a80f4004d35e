package groups

import (
	"context"
	"errors"
	"testing"
	"time"

	memgrouprepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/grouprepo"
	memuserrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/userrepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	userrepoport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
)

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time { return c.now }

type fixture struct {
	svc   *Service
	users *memuserrepo.Repo
	clk   *stubClock
}

func newFixture() *fixture {
	users := memuserrepo.NewRepo()
	clk := &stubClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return &fixture{
		svc:   NewService(memgrouprepo.NewRepo(users), users, clk),
		users: users,
		clk:   clk,
	}
}

func (f *fixture) seedUser(t *testing.T, id domain.UserID, username string) {
	t.Helper()
	err := f.users.Create(context.Background(), userrepoport.User{
		ID:        id,
		Username:  username,
		GroupIDs:  []domain.GroupID{},
		CreatedAt: f.clk.now,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

func assertAppError(t *testing.T, err error, code string, status int) {
	t.Helper()
	ae := (*Error)(nil)
	if !errors.As(err, &ae) {
		t.Fatalf("expected app error, got %v", err)
	}
	if ae.Code != code || ae.Status != status {
		t.Fatalf("expected %s/%d, got %s/%d", code, status, ae.Code, ae.Status)
	}
}

func TestService_CreateGroup_EnrollsHostBothSides(t *testing.T) {
	f := newFixture()
	f.seedUser(t, "host-1", "dungeon_master")
	ctx := context.Background()

	g, err := f.svc.CreateGroup(ctx, "  Thursday Night Heroes ", "host-1")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if g.Name != "Thursday Night Heroes" {
		t.Fatalf("expected trimmed name, got %q", g.Name)
	}
	if g.HostID != "host-1" || g.HostName != "dungeon_master" {
		t.Fatalf("host snapshot wrong: %#v", g)
	}
	if len(g.MemberIDs) != 1 || g.MemberIDs[0] != "host-1" {
		t.Fatalf("expected host as sole member, got %#v", g.MemberIDs)
	}

	host, err := f.users.GetByID(ctx, "host-1")
	if err != nil {
		t.Fatalf("GetByID host: %v", err)
	}
	if len(host.GroupIDs) != 1 || host.GroupIDs[0] != g.ID {
		t.Fatalf("group not recorded on the host: %#v", host.GroupIDs)
	}
}

func TestService_CreateGroup_Validation(t *testing.T) {
	f := newFixture()
	f.seedUser(t, "host-1", "dungeon_master")
	ctx := context.Background()

	_, err := f.svc.CreateGroup(ctx, "Heroes", "nobody")
	assertAppError(t, err, "user-not-found", 404)

	_, err = f.svc.CreateGroup(ctx, "   ", "host-1")
	assertAppError(t, err, "validation-error", 422)
}

func TestService_JoinGroup_SymmetricAndRejectsRepeat(t *testing.T) {
	f := newFixture()
	f.seedUser(t, "host-1", "dungeon_master")
	f.seedUser(t, "player-1", "bard_main")
	ctx := context.Background()

	g, err := f.svc.CreateGroup(ctx, "Heroes", "host-1")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	f.clk.now = f.clk.now.Add(time.Minute)
	joined, err := f.svc.JoinGroup(ctx, g.ID, "player-1")
	if err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}
	if len(joined.MemberIDs) != 2 {
		t.Fatalf("expected 2 members, got %#v", joined.MemberIDs)
	}
	if !joined.UpdatedAt.Equal(f.clk.now) {
		t.Fatalf("expected UpdatedAt bump, got %v", joined.UpdatedAt)
	}
	player, err := f.users.GetByID(ctx, "player-1")
	if err != nil {
		t.Fatalf("GetByID player: %v", err)
	}
	if len(player.GroupIDs) != 1 || player.GroupIDs[0] != g.ID {
		t.Fatalf("group not recorded on the member: %#v", player.GroupIDs)
	}

	_, err = f.svc.JoinGroup(ctx, g.ID, "player-1")
	assertAppError(t, err, "already-member", 409)

	_, err = f.svc.JoinGroup(ctx, "no-such-group", "player-1")
	assertAppError(t, err, "group-not-found", 404)

	_, err = f.svc.JoinGroup(ctx, g.ID, "no-such-user")
	assertAppError(t, err, "user-not-found", 404)
}

func TestService_LeaveGroup_HostStaysPut(t *testing.T) {
	f := newFixture()
	f.seedUser(t, "host-1", "dungeon_master")
	f.seedUser(t, "player-1", "bard_main")
	ctx := context.Background()

	g, err := f.svc.CreateGroup(ctx, "Heroes", "host-1")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := f.svc.JoinGroup(ctx, g.ID, "player-1"); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}

	_, err = f.svc.LeaveGroup(ctx, g.ID, "host-1")
	assertAppError(t, err, "host-cannot-leave", 409)

	left, err := f.svc.LeaveGroup(ctx, g.ID, "player-1")
	if err != nil {
		t.Fatalf("LeaveGroup: %v", err)
	}
	if len(left.MemberIDs) != 1 || left.MemberIDs[0] != "host-1" {
		t.Fatalf("expected only the host to remain, got %#v", left.MemberIDs)
	}
	player, err := f.users.GetByID(ctx, "player-1")
	if err != nil {
		t.Fatalf("GetByID player: %v", err)
	}
	if len(player.GroupIDs) != 0 {
		t.Fatalf("expected membership removed from the user, got %#v", player.GroupIDs)
	}
}

func TestService_GetGroupMembers_FlagsHost(t *testing.T) {
	f := newFixture()
	f.seedUser(t, "host-1", "dungeon_master")
	f.seedUser(t, "player-1", "bard_main")
	ctx := context.Background()

	g, err := f.svc.CreateGroup(ctx, "Heroes", "host-1")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := f.svc.JoinGroup(ctx, g.ID, "player-1"); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}

	ms, err := f.svc.GetGroupMembers(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGroupMembers: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("expected 2 members, got %#v", ms)
	}
	byID := map[domain.UserID]domain.GroupMember{}
	for _, m := range ms {
		byID[m.ID] = m
	}
	if !byID["host-1"].IsHost || byID["player-1"].IsHost {
		t.Fatalf("host flag wrong: %#v", ms)
	}
}

func TestService_StreamUserGroups_EmitsReplacementSnapshots(t *testing.T) {
	f := newFixture()
	f.seedUser(t, "host-1", "dungeon_master")
	f.seedUser(t, "player-1", "bard_main")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g1, err := f.svc.CreateGroup(ctx, "Heroes", "host-1")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := f.svc.JoinGroup(ctx, g1.ID, "player-1"); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}

	snaps, _, err := f.svc.StreamUserGroups(ctx, "player-1")
	if err != nil {
		t.Fatalf("StreamUserGroups: %v", err)
	}
	first := recvGroups(t, snaps)
	if len(first) != 1 || first[0].ID != g1.ID {
		t.Fatalf("unexpected initial snapshot: %#v", first)
	}

	g2, err := f.svc.CreateGroup(ctx, "Side Quests", "host-1")
	if err != nil {
		t.Fatalf("CreateGroup 2: %v", err)
	}
	if _, err := f.svc.JoinGroup(ctx, g2.ID, "player-1"); err != nil {
		t.Fatalf("JoinGroup 2: %v", err)
	}

	// Emissions coalesce, so wait for the snapshot that includes both groups.
	deadline := time.After(5 * time.Second)
	for {
		snap := recvGroups(t, snaps)
		if len(snap) == 2 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("never saw a 2-group snapshot, last: %#v", snap)
		default:
		}
	}
}

func recvGroups(t *testing.T, ch <-chan []domain.Group) []domain.Group {
	t.Helper()
	select {
	case gs, ok := <-ch:
		if !ok {
			t.Fatalf("stream closed unexpectedly")
		}
		return gs
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return nil
	}
}

func TestService_StreamUserGroups_UnknownUser(t *testing.T) {
	f := newFixture()
	_, _, err := f.svc.StreamUserGroups(context.Background(), "nobody")
	assertAppError(t, err, "user-not-found", 404)
}
