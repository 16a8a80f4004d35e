package grouprepo

import (
	"context"
	"errors"
	"testing"
	"time"

	memuserrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/userrepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/grouprepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
)

// A failed AddMember must not leave a half-applied membership on either the
// group or the user document.
func TestRepo_AddMemberUnknownUserLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	users := memuserrepo.NewRepo()
	repo := NewRepo(users)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := users.Create(ctx, userrepo.User{ID: "host-1", Username: "alice_the_dm", CreatedAt: now}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	err := repo.Create(ctx, grouprepo.Group{
		ID:        "group-1",
		Name:      "Thursday Night Heroes",
		HostID:    "host-1",
		HostName:  "alice_the_dm",
		MemberIDs: []domain.UserID{"host-1"},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = repo.AddMember(ctx, "group-1", "ghost", now.Add(time.Minute))
	if !errors.Is(err, userrepo.ErrNotFound) {
		t.Fatalf("AddMember unknown user: got %v, want userrepo.ErrNotFound", err)
	}

	g, err := repo.GetByID(ctx, "group-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(g.MemberIDs) != 1 || g.MemberIDs[0] != "host-1" {
		t.Fatalf("MemberIDs changed after failed AddMember: %v", g.MemberIDs)
	}
	if !g.UpdatedAt.Equal(now) {
		t.Fatalf("UpdatedAt bumped after failed AddMember: %v", g.UpdatedAt)
	}
}
