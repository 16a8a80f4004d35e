package main

import (
	"context"
	"testing"
	"time"

	memgrouprepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/grouprepo"
	memsessionrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/sessionrepo"
	memuserrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/userrepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/groups"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/sessions"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/users"
	platformclock "github.com/Roll-Call-Gaming/roll-call-api/internal/platform/clock"
)

// Re-running the seed against a populated store must not duplicate the sample
// group or its session.
func TestSeedSampleData_Rerunnable(t *testing.T) {
	ctx := context.Background()
	userRepo := memuserrepo.NewRepo()
	groupRepo := memgrouprepo.NewRepo(userRepo)
	clk := platformclock.NewSystemClock()

	userSvc := users.NewService(userRepo, clk)
	groupSvc := groups.NewService(groupRepo, userRepo, clk)
	sessionSvc := sessions.NewService(memsessionrepo.NewRepo(), groupRepo, clk)

	for i := 0; i < 2; i++ {
		if err := seedSampleData(ctx, userSvc, groupSvc, sessionSvc); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	alice, err := userSvc.GetUserByUsername(ctx, "alice_the_dm")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	gs, err := groupSvc.GetUserGroups(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUserGroups: %v", err)
	}
	if len(gs) != 1 || gs[0].Name != seedGroupName {
		t.Fatalf("expected exactly one sample group, got %#v", gs)
	}
	ss, err := sessionSvc.GetGroupSessions(ctx, gs[0].ID)
	if err != nil {
		t.Fatalf("GetGroupSessions: %v", err)
	}
	if len(ss) != 1 {
		t.Fatalf("expected exactly one sample session, got %d", len(ss))
	}
}

func TestNextThursday(t *testing.T) {
	from := time.Date(2025, 3, 6, 10, 0, 0, 0, time.UTC) // a Thursday
	got := nextThursday(from)
	if got.Weekday() != time.Thursday {
		t.Fatalf("expected a Thursday, got %v", got.Weekday())
	}
	if !got.After(from) {
		t.Fatalf("expected a future date, got %v", got)
	}
}
