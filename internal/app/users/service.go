package users

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	clockport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/clock"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
)

type Service struct {
	repo userrepo.Repository
	clk  clockport.Clock

	newUserID func() domain.UserID
}

func NewService(repo userrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.NewString())
		},
	}
}

// SetNewUserIDForTest overrides user ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewUserIDForTest(fn func() domain.UserID) {
	if fn != nil {
		s.newUserID = fn
	}
}

// CreateUser registers a new account with an empty group list.
//
// The existence check is a plain check-then-act; two concurrent registrations
// of the same username can race past it. The repository's own uniqueness
// guarantee (where the backend has one) is the backstop, and a violation there
// surfaces as the same username-exists failure.
func (s *Service) CreateUser(ctx context.Context, username string) (domain.User, error) {
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		return domain.User{}, &Error{
			Status:  422,
			Code:    "validation-error",
			Message: "invalid username",
			Details: map[string]any{"username": err.Error()},
		}
	}

	if _, err := s.repo.GetByUsername(ctx, name); err == nil {
		return domain.User{}, usernameExists(name)
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return domain.User{}, err
	}

	now := s.clk.Now()
	u := userrepo.User{
		ID:        s.newUserID(),
		Username:  name,
		GroupIDs:  []domain.GroupID{},
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrUsernameTaken) {
			return domain.User{}, usernameExists(name)
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

func (s *Service) GetUserByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, userNotFound()
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

// GetUserByUsername matches exactly and case-sensitively; "Alice" and "alice"
// are different accounts.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, userNotFound()
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

func usernameExists(name string) *Error {
	return &Error{
		Status:  409,
		Code:    "username-exists",
		Message: "a user with this username already exists",
		Details: map[string]any{"username": name},
	}
}

func userNotFound() *Error {
	return &Error{Status: 404, Code: "user-not-found", Message: "user not found"}
}

func toDomain(u userrepo.User) domain.User {
	return domain.User{
		ID:        u.ID,
		Username:  u.Username,
		GroupIDs:  append([]domain.GroupID(nil), u.GroupIDs...),
		CreatedAt: u.CreatedAt,
	}
}
