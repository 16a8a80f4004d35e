package users

import (
	"context"
	"errors"
	"testing"
	"time"

	memuserrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/userrepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time { return c.now }

func newTestService() (*Service, *stubClock) {
	clk := &stubClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(memuserrepo.NewRepo(), clk)
	return svc, clk
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

func TestService_CreateUser_TrimsAndPersists(t *testing.T) {
	svc, clk := newTestService()
	svc.SetNewUserIDForTest(func() domain.UserID { return "user-1" })

	u, err := svc.CreateUser(context.Background(), "  alice_wizard  ")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID != "user-1" {
		t.Fatalf("unexpected id: %s", u.ID)
	}
	if u.Username != "alice_wizard" {
		t.Fatalf("expected trimmed username, got %q", u.Username)
	}
	if !u.CreatedAt.Equal(clk.now) {
		t.Fatalf("unexpected CreatedAt: %v", u.CreatedAt)
	}
	if len(u.GroupIDs) != 0 {
		t.Fatalf("expected empty group list, got %#v", u.GroupIDs)
	}

	got, err := svc.GetUserByUsername(context.Background(), "alice_wizard")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("unexpected user: %#v", got)
	}
}

func TestService_CreateUser_RejectsShortUsername(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateUser(context.Background(), "ab")
	assertAppError(t, err, "validation-error", 422)

	_, err = svc.CreateUser(context.Background(), "   ")
	assertAppError(t, err, "validation-error", 422)
}

func TestService_CreateUser_DuplicateIsCaseSensitive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "alice_wizard"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := svc.CreateUser(ctx, "alice_wizard")
	assertAppError(t, err, "username-exists", 409)

	// Different case is a different account.
	if _, err := svc.CreateUser(ctx, "Alice_Wizard"); err != nil {
		t.Fatalf("expected mixed-case create to succeed, got %v", err)
	}
}

func TestService_Get_NotFound(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.GetUserByID(ctx, "missing")
	assertAppError(t, err, "user-not-found", 404)

	_, err = svc.GetUserByUsername(ctx, "nobody_here")
	assertAppError(t, err, "user-not-found", 404)
}
