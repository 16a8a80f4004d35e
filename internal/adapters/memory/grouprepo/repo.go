package grouprepo

import (
	"context"
	"sort"
	"sync"
	"time"

	memuserrepo "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/memory/userrepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/grouprepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of grouprepo.Repository.
// It is safe for concurrent use.
//
// The dual-document membership writes mutate the user repository too. All
// failure checks happen before the first mutation, so a write is either fully
// applied or not applied at all.
type Repo struct {
	mu    sync.RWMutex
	byID  map[domain.GroupID]grouprepo.Group
	users *memuserrepo.Repo

	subMu  sync.Mutex
	subs   map[int]*subscription
	nextID int
}

type subscription struct {
	userID domain.UserID
	notify chan struct{}
}

func NewRepo(users *memuserrepo.Repo) *Repo {
	return &Repo{
		byID:  make(map[domain.GroupID]grouprepo.Group),
		users: users,
		subs:  make(map[int]*subscription),
	}
}

func (r *Repo) Create(ctx context.Context, g grouprepo.Group) error {
	_ = ctx
	if g.ID == "" {
		return grouprepo.ErrAlreadyExists // treat empty ID as invalid
	}
	if !r.users.HasUser(g.HostID) {
		return userrepo.ErrNotFound
	}

	r.mu.Lock()
	if _, ok := r.byID[g.ID]; ok {
		r.mu.Unlock()
		return grouprepo.ErrAlreadyExists
	}
	if err := r.users.AddGroupRef(g.HostID, g.ID); err != nil {
		r.mu.Unlock()
		return err
	}
	r.byID[g.ID] = cloneGroup(g)
	r.mu.Unlock()

	r.notifyAll()
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.GroupID) (grouprepo.Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byID[id]
	if !ok {
		return grouprepo.Group{}, grouprepo.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (r *Repo) ListByMember(ctx context.Context, userID domain.UserID) ([]grouprepo.Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listByMemberLocked(userID), nil
}

func (r *Repo) listByMemberLocked(userID domain.UserID) []grouprepo.Group {
	out := make([]grouprepo.Group, 0)
	for _, g := range r.byID {
		for _, m := range g.MemberIDs {
			if m == userID {
				out = append(out, cloneGroup(g))
				break
			}
		}
	}
	sortGroups(out)
	return out
}

func (r *Repo) AddMember(ctx context.Context, groupID domain.GroupID, userID domain.UserID, now time.Time) error {
	_ = ctx
	r.mu.Lock()
	g, ok := r.byID[groupID]
	if !ok {
		r.mu.Unlock()
		return grouprepo.ErrNotFound
	}
	if !r.users.HasUser(userID) {
		r.mu.Unlock()
		return userrepo.ErrNotFound
	}
	if err := r.users.AddGroupRef(userID, groupID); err != nil {
		r.mu.Unlock()
		return err
	}
	g = cloneGroup(g)
	if !containsUserID(g.MemberIDs, userID) {
		g.MemberIDs = append(g.MemberIDs, userID)
	}
	g.UpdatedAt = now
	r.byID[groupID] = g
	r.mu.Unlock()

	r.notifyAll()
	return nil
}

func (r *Repo) RemoveMember(ctx context.Context, groupID domain.GroupID, userID domain.UserID, now time.Time) error {
	_ = ctx
	r.mu.Lock()
	g, ok := r.byID[groupID]
	if !ok {
		r.mu.Unlock()
		return grouprepo.ErrNotFound
	}
	if err := r.users.RemoveGroupRef(userID, groupID); err != nil {
		r.mu.Unlock()
		return err
	}
	g = cloneGroup(g)
	out := make([]domain.UserID, 0, len(g.MemberIDs))
	for _, m := range g.MemberIDs {
		if m != userID {
			out = append(out, m)
		}
	}
	g.MemberIDs = out
	g.UpdatedAt = now
	r.byID[groupID] = g
	r.mu.Unlock()

	r.notifyAll()
	return nil
}

func (r *Repo) WatchByMember(ctx context.Context, userID domain.UserID) (<-chan []grouprepo.Group, <-chan error, error) {
	sub := &subscription{userID: userID, notify: make(chan struct{}, 1)}

	r.subMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = sub
	r.subMu.Unlock()

	out := make(chan []grouprepo.Group)
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			r.subMu.Lock()
			delete(r.subs, id)
			r.subMu.Unlock()
			close(out)
			close(errCh)
		}()

		for {
			r.mu.RLock()
			snapshot := r.listByMemberLocked(userID)
			r.mu.RUnlock()

			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}

			select {
			case <-sub.notify:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh, nil
}

// notifyAll wakes every watcher; each re-queries its own snapshot. Sends are
// non-blocking so bursts of writes coalesce into a single emission.
func (r *Repo) notifyAll() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, sub := range r.subs {
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
}

func cloneGroup(g grouprepo.Group) grouprepo.Group {
	out := g
	if g.MemberIDs != nil {
		out.MemberIDs = append([]domain.UserID(nil), g.MemberIDs...)
	}
	return out
}

func containsUserID(ids []domain.UserID, id domain.UserID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func sortGroups(gs []grouprepo.Group) {
	sort.Slice(gs, func(i, j int) bool {
		if !gs[i].CreatedAt.Equal(gs[j].CreatedAt) {
			return gs[i].CreatedAt.Before(gs[j].CreatedAt)
		}
		return gs[i].ID < gs[j].ID
	})
}
