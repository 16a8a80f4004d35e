package userrepo

import (
	"context"
	"time"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

// User is the persistence shape used by the user repository.
// It is an internal record, not an HTTP DTO.
type User struct {
	ID       domain.UserID
	Username string

	// GroupIDs is maintained by the group repository's membership writes;
	// the user repository itself never mutates it after Create.
	GroupIDs []domain.GroupID

	CreatedAt time.Time
}

// Repository provides access to persisted users.
type Repository interface {
	// Create persists a new user. ErrUsernameTaken is returned when another
	// user already holds the exact (case-sensitive) username.
	Create(ctx context.Context, u User) error

	GetByID(ctx context.Context, id domain.UserID) (User, error)

	// GetByUsername matches the username exactly, case-sensitively.
	GetByUsername(ctx context.Context, username string) (User, error)
}
