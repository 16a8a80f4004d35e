package grouprepo

import (
	"context"
	"time"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

// Group is the persistence shape used by the group repository.
// It is an internal record, not an HTTP DTO.
type Group struct {
	ID   domain.GroupID
	Name string

	HostID   domain.UserID
	HostName string

	MemberIDs []domain.UserID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted groups and owns the dual-document
// membership writes. AddMember and RemoveMember must update both the group's
// MemberIDs and the user's GroupIDs as one all-or-nothing write so the
// bidirectional membership invariant cannot be half-applied.
//
// Result ordering expectations:
// - ListByMember returns groups ordered by CreatedAt ascending, then ID.
type Repository interface {
	// Create persists a new group and enrolls the host as its first member,
	// appending the group to the host's GroupIDs in the same atomic write.
	Create(ctx context.Context, g Group) error

	GetByID(ctx context.Context, id domain.GroupID) (Group, error)

	// ListByMember returns every group whose MemberIDs contains the user.
	ListByMember(ctx context.Context, userID domain.UserID) ([]Group, error)

	// AddMember appends userID to the group's MemberIDs, appends the group to
	// the user's GroupIDs, and sets the group's UpdatedAt to now.
	// ErrNotFound / userrepo.ErrNotFound are returned for missing documents.
	AddMember(ctx context.Context, groupID domain.GroupID, userID domain.UserID, now time.Time) error

	// RemoveMember is the symmetric dual-document removal. Removing a user who
	// is not a member is a no-op on the group but still repairs the user side.
	RemoveMember(ctx context.Context, groupID domain.GroupID, userID domain.UserID, now time.Time) error

	// WatchByMember emits the full current snapshot of the user's groups
	// immediately and again after every underlying change, until ctx is done.
	// Each emission replaces the previous value wholesale.
	WatchByMember(ctx context.Context, userID domain.UserID) (<-chan []Group, <-chan error, error)
}
