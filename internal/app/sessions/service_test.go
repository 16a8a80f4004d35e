package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	memgrouprepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/grouprepo"
	memsessionrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/sessionrepo"
	memuserrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/userrepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	grouprepoport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/grouprepo"
	userrepoport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
)

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time { return c.now }

type fixture struct {
	svc *Service
	clk *stubClock

	groupID domain.GroupID
}

// newFixture seeds one host and one group and returns a session service over
// memory adapters.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clk := &stubClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	users := memuserrepo.NewRepo()
	groupsRepo := memgrouprepo.NewRepo(users)
	if err := users.Create(ctx, userrepoport.User{
		ID:        "host-1",
		Username:  "dungeon_master",
		GroupIDs:  []domain.GroupID{},
		CreatedAt: clk.now,
	}); err != nil {
		t.Fatalf("seed host: %v", err)
	}
	if err := groupsRepo.Create(ctx, grouprepoport.Group{
		ID:        "group-1",
		Name:      "Thursday Night Heroes",
		HostID:    "host-1",
		HostName:  "dungeon_master",
		MemberIDs: []domain.UserID{"host-1"},
		CreatedAt: clk.now,
		UpdatedAt: clk.now,
	}); err != nil {
		t.Fatalf("seed group: %v", err)
	}

	return &fixture{
		svc:     NewService(memsessionrepo.NewRepo(), groupsRepo, clk),
		clk:     clk,
		groupID: "group-1",
	}
}

func (f *fixture) createSession(t *testing.T, date time.Time) domain.Session {
	t.Helper()
	sess, err := f.svc.CreateSession(context.Background(), CreateSessionInput{
		GroupID:     f.groupID,
		SessionDate: date,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
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

func TestService_CreateSession_SnapshotsGroupAndDefaults(t *testing.T) {
	f := newFixture(t)
	date := f.clk.now.Add(7 * 24 * time.Hour)

	sess := f.createSession(t, date)
	if sess.GroupID != f.groupID || sess.GroupName != "Thursday Night Heroes" {
		t.Fatalf("group snapshot wrong: %#v", sess)
	}
	if sess.HostID != "host-1" || sess.HostName != "dungeon_master" {
		t.Fatalf("host snapshot wrong: %#v", sess)
	}
	if sess.IsConfirmed {
		t.Fatalf("expected unconfirmed by default")
	}
	if len(sess.AvailableUsers) != 0 || len(sess.Snacks) != 0 || len(sess.Carpool) != 0 {
		t.Fatalf("expected empty collections: %#v", sess)
	}
	if !sess.SessionDate.Equal(date) {
		t.Fatalf("unexpected date: %v", sess.SessionDate)
	}

	_, err := f.svc.CreateSession(context.Background(), CreateSessionInput{
		GroupID:     "no-such-group",
		SessionDate: date,
	})
	assertAppError(t, err, "group-not-found", 404)
}

func TestService_CreateSession_RejectsInvalidCarpoolSeed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSession(context.Background(), CreateSessionInput{
		GroupID:     f.groupID,
		SessionDate: f.clk.now,
		Carpool: []domain.SessionCarpool{
			{DriverID: "host-1", DriverName: "dungeon_master", Capacity: 11},
		},
	})
	assertAppError(t, err, "invalid-capacity", 422)
}

func TestService_UpdateSession_MergesOnlySpecifiedFields(t *testing.T) {
	f := newFixture(t)
	notes := "bring dice"
	sess, err := f.svc.CreateSession(context.Background(), CreateSessionInput{
		GroupID:     f.groupID,
		SessionDate: f.clk.now.Add(24 * time.Hour),
		HostNotes:   &notes,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	f.clk.now = f.clk.now.Add(time.Hour)
	updated, err := f.svc.UpdateSession(context.Background(), sess.ID, UpdateSessionInput{
		IsConfirmed: Some(true),
		SecretNotes: Some("the dragon is a mimic"),
	})
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if !updated.IsConfirmed {
		t.Fatalf("expected confirmed")
	}
	if updated.SecretNotes != "the dragon is a mimic" {
		t.Fatalf("secret notes not applied: %q", updated.SecretNotes)
	}
	if updated.HostNotes != "bring dice" {
		t.Fatalf("unspecified field was touched: %q", updated.HostNotes)
	}
	if !updated.UpdatedAt.Equal(f.clk.now) {
		t.Fatalf("expected UpdatedAt bump, got %v", updated.UpdatedAt)
	}

	// Clearing a text field means setting it to "", never null.
	_, err = f.svc.UpdateSession(context.Background(), sess.ID, UpdateSessionInput{
		HostNotes: Null[string](),
	})
	assertAppError(t, err, "validation-error", 422)

	cleared, err := f.svc.UpdateSession(context.Background(), sess.ID, UpdateSessionInput{
		HostNotes: Some(""),
	})
	if err != nil {
		t.Fatalf("UpdateSession clear: %v", err)
	}
	if cleared.HostNotes != "" {
		t.Fatalf("expected cleared notes, got %q", cleared.HostNotes)
	}

	_, err = f.svc.UpdateSession(context.Background(), "no-such-session", UpdateSessionInput{})
	assertAppError(t, err, "session-not-found", 404)
}

func TestService_Availability_Idempotent(t *testing.T) {
	f := newFixture(t)
	sess := f.createSession(t, f.clk.now.Add(24*time.Hour))
	ctx := context.Background()

	f.clk.now = f.clk.now.Add(time.Minute)
	after, err := f.svc.ConfirmAvailability(ctx, sess.ID, "player-1")
	if err != nil {
		t.Fatalf("ConfirmAvailability: %v", err)
	}
	if len(after.AvailableUsers) != 1 || after.AvailableUsers[0] != "player-1" {
		t.Fatalf("unexpected availability: %#v", after.AvailableUsers)
	}
	firstUpdate := after.UpdatedAt

	// A repeat confirmation changes nothing, including UpdatedAt.
	f.clk.now = f.clk.now.Add(time.Minute)
	again, err := f.svc.ConfirmAvailability(ctx, sess.ID, "player-1")
	if err != nil {
		t.Fatalf("ConfirmAvailability repeat: %v", err)
	}
	if len(again.AvailableUsers) != 1 {
		t.Fatalf("duplicate availability entry: %#v", again.AvailableUsers)
	}
	if !again.UpdatedAt.Equal(firstUpdate) {
		t.Fatalf("no-op confirm bumped UpdatedAt: %v", again.UpdatedAt)
	}

	removed, err := f.svc.RemoveAvailability(ctx, sess.ID, "player-1")
	if err != nil {
		t.Fatalf("RemoveAvailability: %v", err)
	}
	if len(removed.AvailableUsers) != 0 {
		t.Fatalf("availability not removed: %#v", removed.AvailableUsers)
	}
	if _, err := f.svc.RemoveAvailability(ctx, sess.ID, "player-1"); err != nil {
		t.Fatalf("RemoveAvailability repeat: %v", err)
	}
}

func TestService_AddSnack_UpsertsPerUser(t *testing.T) {
	f := newFixture(t)
	sess := f.createSession(t, f.clk.now.Add(24*time.Hour))
	ctx := context.Background()

	if _, err := f.svc.AddSnack(ctx, sess.ID, "player-1", "bard_main", "pretzels"); err != nil {
		t.Fatalf("AddSnack: %v", err)
	}
	after, err := f.svc.AddSnack(ctx, sess.ID, "player-1", "bard_main", "cookies")
	if err != nil {
		t.Fatalf("AddSnack upsert: %v", err)
	}
	if len(after.Snacks) != 1 || after.Snacks[0].SnackDescription != "cookies" {
		t.Fatalf("expected a single replaced snack, got %#v", after.Snacks)
	}

	removed, err := f.svc.RemoveSnack(ctx, sess.ID, "player-1")
	if err != nil {
		t.Fatalf("RemoveSnack: %v", err)
	}
	if len(removed.Snacks) != 0 {
		t.Fatalf("snack not removed: %#v", removed.Snacks)
	}
}

func TestService_AddCarpool_ValidatesAndResetsPassengers(t *testing.T) {
	f := newFixture(t)
	sess := f.createSession(t, f.clk.now.Add(24*time.Hour))
	ctx := context.Background()

	_, err := f.svc.AddCarpool(ctx, sess.ID, "driver-1", "van_driver", 0)
	assertAppError(t, err, "invalid-capacity", 422)
	_, err = f.svc.AddCarpool(ctx, sess.ID, "driver-1", "van_driver", 11)
	assertAppError(t, err, "invalid-capacity", 422)

	if _, err := f.svc.AddCarpool(ctx, sess.ID, "driver-1", "van_driver", 2); err != nil {
		t.Fatalf("AddCarpool: %v", err)
	}
	if _, err := f.svc.JoinCarpool(ctx, sess.ID, "driver-1", "player-1", "bard_main"); err != nil {
		t.Fatalf("JoinCarpool: %v", err)
	}

	// Re-offering replaces the entry and clears its passengers.
	after, err := f.svc.AddCarpool(ctx, sess.ID, "driver-1", "van_driver", 4)
	if err != nil {
		t.Fatalf("AddCarpool re-offer: %v", err)
	}
	if len(after.Carpool) != 1 || after.Carpool[0].Capacity != 4 {
		t.Fatalf("unexpected carpool state: %#v", after.Carpool)
	}
	if len(after.Carpool[0].Passengers) != 0 {
		t.Fatalf("expected passengers reset, got %#v", after.Carpool[0].Passengers)
	}
}

func TestService_JoinCarpool_CapacityAndSingleSeat(t *testing.T) {
	f := newFixture(t)
	sess := f.createSession(t, f.clk.now.Add(24*time.Hour))
	ctx := context.Background()

	if _, err := f.svc.AddCarpool(ctx, sess.ID, "driver-1", "van_driver", 1); err != nil {
		t.Fatalf("AddCarpool 1: %v", err)
	}
	if _, err := f.svc.AddCarpool(ctx, sess.ID, "driver-2", "truck_driver", 2); err != nil {
		t.Fatalf("AddCarpool 2: %v", err)
	}

	_, err := f.svc.JoinCarpool(ctx, sess.ID, "no-such-driver", "player-1", "bard_main")
	assertAppError(t, err, "carpool-not-found", 404)

	if _, err := f.svc.JoinCarpool(ctx, sess.ID, "driver-1", "player-1", "bard_main"); err != nil {
		t.Fatalf("JoinCarpool: %v", err)
	}
	// The car seats one and it is taken.
	_, err = f.svc.JoinCarpool(ctx, sess.ID, "driver-1", "player-2", "rogue_main")
	assertAppError(t, err, "carpool-full", 409)

	// The seated passenger can re-join their own seat.
	if _, err := f.svc.JoinCarpool(ctx, sess.ID, "driver-1", "player-1", "bard_main"); err != nil {
		t.Fatalf("JoinCarpool re-join: %v", err)
	}

	// Switching cars releases the old seat in the same write.
	after, err := f.svc.JoinCarpool(ctx, sess.ID, "driver-2", "player-1", "bard_main")
	if err != nil {
		t.Fatalf("JoinCarpool switch: %v", err)
	}
	for _, c := range after.Carpool {
		switch c.DriverID {
		case "driver-1":
			if len(c.Passengers) != 0 {
				t.Fatalf("old seat not released: %#v", c.Passengers)
			}
		case "driver-2":
			if len(c.Passengers) != 1 || c.Passengers[0].UserID != "player-1" {
				t.Fatalf("new seat wrong: %#v", c.Passengers)
			}
		}
	}
}

func TestService_JoinCarpool_RejectsDriverRoleConflicts(t *testing.T) {
	f := newFixture(t)
	sess := f.createSession(t, f.clk.now.Add(24*time.Hour))
	ctx := context.Background()

	if _, err := f.svc.AddCarpool(ctx, sess.ID, "driver-1", "van_driver", 3); err != nil {
		t.Fatalf("AddCarpool 1: %v", err)
	}
	if _, err := f.svc.AddCarpool(ctx, sess.ID, "driver-2", "truck_driver", 2); err != nil {
		t.Fatalf("AddCarpool 2: %v", err)
	}
	if _, err := f.svc.JoinCarpool(ctx, sess.ID, "driver-1", "player-1", "bard_main"); err != nil {
		t.Fatalf("JoinCarpool seed: %v", err)
	}

	// A driver never rides in their own car.
	_, err := f.svc.JoinCarpool(ctx, sess.ID, "driver-2", "driver-2", "truck_driver")
	assertAppError(t, err, "validation-error", 422)

	// driver-1 has a passenger, so they cannot take a seat in driver-2's car.
	_, err = f.svc.JoinCarpool(ctx, sess.ID, "driver-2", "driver-1", "van_driver")
	assertAppError(t, err, "carpool-conflict", 409)

	// Once their car is empty the driver may ride elsewhere.
	if _, err := f.svc.LeaveCarpool(ctx, sess.ID, "player-1"); err != nil {
		t.Fatalf("LeaveCarpool passenger: %v", err)
	}
	after, err := f.svc.JoinCarpool(ctx, sess.ID, "driver-2", "driver-1", "van_driver")
	if err != nil {
		t.Fatalf("JoinCarpool empty-car driver: %v", err)
	}
	for _, c := range after.Carpool {
		if c.DriverID == "driver-2" && !c.HasPassenger("driver-1") {
			t.Fatalf("expected driver-1 seated with driver-2: %#v", after.Carpool)
		}
	}

	// And while they ride elsewhere, their own car takes no passengers.
	_, err = f.svc.JoinCarpool(ctx, sess.ID, "driver-1", "player-2", "rogue_main")
	assertAppError(t, err, "carpool-conflict", 409)
}

func TestService_CreateSession_RejectsCarpoolRoleConflictSeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := f.clk.now.Add(24 * time.Hour)

	_, err := f.svc.CreateSession(ctx, CreateSessionInput{
		GroupID:     f.groupID,
		SessionDate: date,
		Carpool: []domain.SessionCarpool{
			{DriverID: "driver-1", DriverName: "van_driver", Capacity: 3,
				Passengers: []domain.SessionPassenger{{UserID: "player-1", UserName: "bard_main"}}},
			{DriverID: "driver-2", DriverName: "truck_driver", Capacity: 2,
				Passengers: []domain.SessionPassenger{{UserID: "driver-1", UserName: "van_driver"}}},
		},
	})
	assertAppError(t, err, "validation-error", 422)

	_, err = f.svc.CreateSession(ctx, CreateSessionInput{
		GroupID:     f.groupID,
		SessionDate: date,
		Carpool: []domain.SessionCarpool{
			{DriverID: "driver-1", DriverName: "van_driver", Capacity: 3,
				Passengers: []domain.SessionPassenger{{UserID: "driver-1", UserName: "van_driver"}}},
		},
	})
	assertAppError(t, err, "validation-error", 422)
}

func TestService_Availability_InsertionOrder(t *testing.T) {
	f := newFixture(t)
	sess := f.createSession(t, f.clk.now.Add(24*time.Hour))
	ctx := context.Background()

	if _, err := f.svc.ConfirmAvailability(ctx, sess.ID, "player-1"); err != nil {
		t.Fatalf("ConfirmAvailability 1: %v", err)
	}
	after, err := f.svc.ConfirmAvailability(ctx, sess.ID, "player-2")
	if err != nil {
		t.Fatalf("ConfirmAvailability 2: %v", err)
	}
	if len(after.AvailableUsers) != 2 ||
		after.AvailableUsers[0] != "player-1" || after.AvailableUsers[1] != "player-2" {
		t.Fatalf("expected insertion order, got %#v", after.AvailableUsers)
	}

	removed, err := f.svc.RemoveAvailability(ctx, sess.ID, "player-1")
	if err != nil {
		t.Fatalf("RemoveAvailability: %v", err)
	}
	if len(removed.AvailableUsers) != 1 || removed.AvailableUsers[0] != "player-2" {
		t.Fatalf("expected only the second user, got %#v", removed.AvailableUsers)
	}
}

func TestService_LeaveCarpool_WithdrawsOfferAndSeats(t *testing.T) {
	f := newFixture(t)
	sess := f.createSession(t, f.clk.now.Add(24*time.Hour))
	ctx := context.Background()

	if _, err := f.svc.AddCarpool(ctx, sess.ID, "driver-1", "van_driver", 3); err != nil {
		t.Fatalf("AddCarpool: %v", err)
	}
	if _, err := f.svc.JoinCarpool(ctx, sess.ID, "driver-1", "player-1", "bard_main"); err != nil {
		t.Fatalf("JoinCarpool: %v", err)
	}

	// Driver withdraws; the whole arrangement goes with them.
	after, err := f.svc.LeaveCarpool(ctx, sess.ID, "driver-1")
	if err != nil {
		t.Fatalf("LeaveCarpool driver: %v", err)
	}
	if len(after.Carpool) != 0 {
		t.Fatalf("expected no carpools, got %#v", after.Carpool)
	}

	// Leaving again is a no-op.
	if _, err := f.svc.LeaveCarpool(ctx, sess.ID, "driver-1"); err != nil {
		t.Fatalf("LeaveCarpool repeat: %v", err)
	}
}

func TestService_GetGroupSessions_MostRecentFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	near := f.createSession(t, f.clk.now.Add(24*time.Hour))
	far := f.createSession(t, f.clk.now.Add(72*time.Hour))
	mid := f.createSession(t, f.clk.now.Add(48*time.Hour))

	ss, err := f.svc.GetGroupSessions(ctx, f.groupID)
	if err != nil {
		t.Fatalf("GetGroupSessions: %v", err)
	}
	if len(ss) != 3 || ss[0].ID != far.ID || ss[1].ID != mid.ID || ss[2].ID != near.ID {
		t.Fatalf("unexpected order: %#v", ss)
	}

	_, err = f.svc.GetGroupSessions(ctx, "no-such-group")
	assertAppError(t, err, "group-not-found", 404)
}

func TestService_DeleteSession(t *testing.T) {
	f := newFixture(t)
	sess := f.createSession(t, f.clk.now.Add(24*time.Hour))
	ctx := context.Background()

	if err := f.svc.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	err := f.svc.DeleteSession(ctx, sess.ID)
	assertAppError(t, err, "session-not-found", 404)

	_, err = f.svc.GetSessionByID(ctx, sess.ID)
	assertAppError(t, err, "session-not-found", 404)
}
