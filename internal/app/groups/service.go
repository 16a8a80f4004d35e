package groups

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	clockport "github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/clock"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/grouprepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
)

type Service struct {
	groups grouprepo.Repository
	users  userrepo.Repository
	clk    clockport.Clock

	newGroupID func() domain.GroupID
}

func NewService(groupsRepo grouprepo.Repository, usersRepo userrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		groups: groupsRepo,
		users:  usersRepo,
		clk:    clk,
		newGroupID: func() domain.GroupID {
			return domain.GroupID(uuid.NewString())
		},
	}
}

// SetNewGroupIDForTest overrides group ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewGroupIDForTest(fn func() domain.GroupID) {
	if fn != nil {
		s.newGroupID = fn
	}
}

// CreateGroup creates a group hosted by hostID. The host becomes the first
// member and the group is appended to the host's group list in the same
// atomic repository write. HostName is a display snapshot of the host's
// username at this instant.
func (s *Service) CreateGroup(ctx context.Context, name string, hostID domain.UserID) (domain.Group, error) {
	host, err := s.users.GetByID(ctx, hostID)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.Group{}, userNotFound()
		}
		return domain.Group{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Group{}, &Error{
			Status:  422,
			Code:    "validation-error",
			Message: "invalid group name",
			Details: map[string]any{"name": "must be non-empty"},
		}
	}

	now := s.clk.Now()
	g := grouprepo.Group{
		ID:        s.newGroupID(),
		Name:      name,
		HostID:    host.ID,
		HostName:  host.Username,
		MemberIDs: []domain.UserID{host.ID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.Group{}, userNotFound()
		}
		return domain.Group{}, err
	}
	return toDomain(g), nil
}

func (s *Service) GetGroupByID(ctx context.Context, id domain.GroupID) (domain.Group, error) {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return domain.Group{}, groupNotFound()
		}
		return domain.Group{}, err
	}
	return toDomain(g), nil
}

// GetGroupMembers resolves the group's member list into display summaries at
// read time. Members whose user documents are missing are skipped rather than
// failing the whole read.
func (s *Service) GetGroupMembers(ctx context.Context, id domain.GroupID) ([]domain.GroupMember, error) {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return nil, groupNotFound()
		}
		return nil, err
	}

	out := make([]domain.GroupMember, 0, len(g.MemberIDs))
	for _, mid := range g.MemberIDs {
		u, err := s.users.GetByID(ctx, mid)
		if err != nil {
			if errors.Is(err, userrepo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, domain.GroupMember{
			ID:       u.ID,
			Username: u.Username,
			IsHost:   u.ID == g.HostID,
		})
	}
	return out, nil
}

func (s *Service) GetUserGroups(ctx context.Context, userID domain.UserID) ([]domain.Group, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, userNotFound()
		}
		return nil, err
	}
	gs, err := s.groups.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Group, 0, len(gs))
	for _, g := range gs {
		out = append(out, toDomain(g))
	}
	return out, nil
}

// JoinGroup appends the user to the group and the group to the user as one
// atomic dual-document write, keeping the membership relation symmetric.
func (s *Service) JoinGroup(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (domain.Group, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return domain.Group{}, groupNotFound()
		}
		return domain.Group{}, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.Group{}, userNotFound()
		}
		return domain.Group{}, err
	}
	for _, m := range g.MemberIDs {
		if m == userID {
			return domain.Group{}, &Error{
				Status:  409,
				Code:    "already-member",
				Message: "user is already a member of this group",
			}
		}
	}

	if err := s.groups.AddMember(ctx, groupID, userID, s.clk.Now()); err != nil {
		switch {
		case errors.Is(err, grouprepo.ErrNotFound):
			return domain.Group{}, groupNotFound()
		case errors.Is(err, userrepo.ErrNotFound):
			return domain.Group{}, userNotFound()
		}
		return domain.Group{}, err
	}

	updated, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return domain.Group{}, err
	}
	return toDomain(updated), nil
}

// LeaveGroup is the symmetric dual-document removal. The host can never leave
// their own group; the group must be deleted instead (out of current scope).
func (s *Service) LeaveGroup(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (domain.Group, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return domain.Group{}, groupNotFound()
		}
		return domain.Group{}, err
	}
	if g.HostID == userID {
		return domain.Group{}, &Error{
			Status:  409,
			Code:    "host-cannot-leave",
			Message: "the host cannot leave their own group",
		}
	}

	if err := s.groups.RemoveMember(ctx, groupID, userID, s.clk.Now()); err != nil {
		switch {
		case errors.Is(err, grouprepo.ErrNotFound):
			return domain.Group{}, groupNotFound()
		case errors.Is(err, userrepo.ErrNotFound):
			return domain.Group{}, userNotFound()
		}
		return domain.Group{}, err
	}

	updated, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return domain.Group{}, err
	}
	return toDomain(updated), nil
}

// StreamUserGroups emits the full current snapshot of the user's groups on
// every underlying change. Each emission replaces the previous value; callers
// must not merge emissions as deltas.
func (s *Service) StreamUserGroups(ctx context.Context, userID domain.UserID) (<-chan []domain.Group, <-chan error, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, nil, userNotFound()
		}
		return nil, nil, err
	}

	src, srcErr, err := s.groups.WatchByMember(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan []domain.Group)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		for {
			select {
			case gs, ok := <-src:
				if !ok {
					return
				}
				snapshot := make([]domain.Group, 0, len(gs))
				for _, g := range gs {
					snapshot = append(snapshot, toDomain(g))
				}
				select {
				case out <- snapshot:
				case <-ctx.Done():
					return
				}
			case err, ok := <-srcErr:
				if ok && err != nil {
					errCh <- err
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errCh, nil
}

func userNotFound() *Error {
	return &Error{Status: 404, Code: "user-not-found", Message: "user not found"}
}

func groupNotFound() *Error {
	return &Error{Status: 404, Code: "group-not-found", Message: "group not found"}
}

func toDomain(g grouprepo.Group) domain.Group {
	return domain.Group{
		ID:        g.ID,
		Name:      g.Name,
		HostID:    g.HostID,
		HostName:  g.HostName,
		MemberIDs: append([]domain.UserID(nil), g.MemberIDs...),
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}
