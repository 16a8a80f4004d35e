package main

import (
	"context"
	"errors"
	"time"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/groups"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/sessions"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/app/users"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

const seedGroupName = "Thursday Night Heroes"

// seedSampleData populates a recognizable local-dev dataset: three users, one
// group, and an upcoming session with a snack signup and a carpool. Re-running
// against a store that already holds the dataset is a no-op: users are reused,
// and an existing sample group skips the rest of the seeding.
func seedSampleData(ctx context.Context, userSvc *users.Service, groupSvc *groups.Service, sessionSvc *sessions.Service) error {
	alice, err := ensureUser(ctx, userSvc, "alice_the_dm")
	if err != nil {
		return err
	}
	bob, err := ensureUser(ctx, userSvc, "bob_rolls_ones")
	if err != nil {
		return err
	}
	carol, err := ensureUser(ctx, userSvc, "carol_cleric")
	if err != nil {
		return err
	}

	existing, err := groupSvc.GetUserGroups(ctx, alice.ID)
	if err != nil {
		return err
	}
	for _, g := range existing {
		if g.Name == seedGroupName {
			return nil
		}
	}

	group, err := groupSvc.CreateGroup(ctx, seedGroupName, alice.ID)
	if err != nil {
		return err
	}
	if _, err := groupSvc.JoinGroup(ctx, group.ID, bob.ID); err != nil {
		return err
	}
	if _, err := groupSvc.JoinGroup(ctx, group.ID, carol.ID); err != nil {
		return err
	}

	notes := "Continuing the sunken temple. Bring your level 6 sheets."
	sess, err := sessionSvc.CreateSession(ctx, sessions.CreateSessionInput{
		GroupID:        group.ID,
		SessionDate:    nextThursday(time.Now()),
		HostNotes:      &notes,
		AvailableUsers: []domain.UserID{alice.ID, bob.ID},
	})
	if err != nil {
		return err
	}
	if _, err := sessionSvc.AddSnack(ctx, sess.ID, bob.ID, bob.Username, "nacho platter"); err != nil {
		return err
	}
	if _, err := sessionSvc.AddCarpool(ctx, sess.ID, carol.ID, carol.Username, 3); err != nil {
		return err
	}
	if _, err := sessionSvc.JoinCarpool(ctx, sess.ID, carol.ID, bob.ID, bob.Username); err != nil {
		return err
	}
	return nil
}

func ensureUser(ctx context.Context, svc *users.Service, username string) (domain.User, error) {
	u, err := svc.CreateUser(ctx, username)
	if err == nil {
		return u, nil
	}
	if ue := (*users.Error)(nil); errors.As(err, &ue) && ue.Code == "username-exists" {
		return svc.GetUserByUsername(ctx, username)
	}
	return domain.User{}, err
}

func nextThursday(from time.Time) time.Time {
	d := (int(time.Thursday) - int(from.Weekday()) + 7) % 7
	if d == 0 {
		d = 7
	}
	day := from.AddDate(0, 0, d)
	return time.Date(day.Year(), day.Month(), day.Day(), 19, 0, 0, 0, time.UTC)
}
