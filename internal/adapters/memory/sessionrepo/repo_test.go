package sessionrepo

import (
	"context"
	"testing"
	"time"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

// Mutating a session returned by the repo must not leak into stored state.
func TestRepo_ReturnsIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo()

	now := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	err := repo.Create(ctx, domain.Session{
		ID:          "sess-1",
		GroupID:     "group-1",
		GroupName:   "Thursday Night Heroes",
		HostID:      "host-1",
		HostName:    "alice_the_dm",
		SessionDate: now,
		AvailableUsers: []domain.UserID{"host-1"},
		Snacks: []domain.SessionSnack{
			{UserID: "host-1", UserName: "alice_the_dm", SnackDescription: "pretzels"},
		},
		Carpool: []domain.SessionCarpool{
			{DriverID: "host-1", DriverName: "alice_the_dm", Capacity: 3, Passengers: []domain.SessionPassenger{}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	got.AvailableUsers[0] = "someone-else"
	got.Snacks[0].SnackDescription = "nothing"
	got.Carpool[0].Passengers = append(got.Carpool[0].Passengers, domain.SessionPassenger{UserID: "stowaway"})

	again, err := repo.GetByID(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if again.AvailableUsers[0] != "host-1" {
		t.Fatalf("stored AvailableUsers mutated: %v", again.AvailableUsers)
	}
	if again.Snacks[0].SnackDescription != "pretzels" {
		t.Fatalf("stored Snacks mutated: %v", again.Snacks)
	}
	if len(again.Carpool[0].Passengers) != 0 {
		t.Fatalf("stored Carpool passengers mutated: %v", again.Carpool[0].Passengers)
	}
}
