package sessionrepo

import (
	"context"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

// Repository provides access to persisted sessions. The session record is the
// full domain.Session document; nested collections are stored and replaced
// wholesale by Save.
//
// Result ordering expectations:
// - ListByGroup returns sessions ordered by SessionDate descending.
type Repository interface {
	Create(ctx context.Context, s domain.Session) error

	// Save replaces an existing session document. ErrNotFound is returned
	// when the session does not exist.
	Save(ctx context.Context, s domain.Session) error

	GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error)

	ListByGroup(ctx context.Context, groupID domain.GroupID) ([]domain.Session, error)

	Delete(ctx context.Context, id domain.SessionID) error

	// WatchByGroup emits the full current snapshot of the group's sessions
	// immediately and again after every underlying change, until ctx is done.
	// Each emission replaces the previous value wholesale; it is not a delta.
	WatchByGroup(ctx context.Context, groupID domain.GroupID) (<-chan []domain.Session, <-chan error, error)
}
