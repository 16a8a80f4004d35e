package sessionrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/sessionrepo"
)

// Repo is an in-memory implementation of sessionrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.SessionID]domain.Session

	subMu  sync.Mutex
	subs   map[int]*subscription
	nextID int
}

type subscription struct {
	groupID domain.GroupID
	notify  chan struct{}
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.SessionID]domain.Session),
		subs: make(map[int]*subscription),
	}
}

func (r *Repo) Create(ctx context.Context, s domain.Session) error {
	_ = ctx
	if s.ID == "" {
		return sessionrepo.ErrAlreadyExists // treat empty ID as invalid
	}
	r.mu.Lock()
	if _, ok := r.byID[s.ID]; ok {
		r.mu.Unlock()
		return sessionrepo.ErrAlreadyExists
	}
	r.byID[s.ID] = cloneSession(s)
	r.mu.Unlock()

	r.notifyGroup(s.GroupID)
	return nil
}

func (r *Repo) Save(ctx context.Context, s domain.Session) error {
	_ = ctx
	r.mu.Lock()
	if _, ok := r.byID[s.ID]; !ok {
		r.mu.Unlock()
		return sessionrepo.ErrNotFound
	}
	r.byID[s.ID] = cloneSession(s)
	r.mu.Unlock()

	r.notifyGroup(s.GroupID)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *Repo) ListByGroup(ctx context.Context, groupID domain.GroupID) ([]domain.Session, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listByGroupLocked(groupID), nil
}

func (r *Repo) listByGroupLocked(groupID domain.GroupID) []domain.Session {
	out := make([]domain.Session, 0)
	for _, s := range r.byID {
		if s.GroupID == groupID {
			out = append(out, cloneSession(s))
		}
	}
	sortSessionsByDateDesc(out)
	return out
}

func (r *Repo) Delete(ctx context.Context, id domain.SessionID) error {
	_ = ctx
	r.mu.Lock()
	s, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return sessionrepo.ErrNotFound
	}
	delete(r.byID, id)
	r.mu.Unlock()

	r.notifyGroup(s.GroupID)
	return nil
}

func (r *Repo) WatchByGroup(ctx context.Context, groupID domain.GroupID) (<-chan []domain.Session, <-chan error, error) {
	sub := &subscription{groupID: groupID, notify: make(chan struct{}, 1)}

	r.subMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = sub
	r.subMu.Unlock()

	out := make(chan []domain.Session)
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
			snapshot := r.listByGroupLocked(groupID)
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

// notifyGroup wakes watchers of the given group. Non-blocking sends let a
// burst of writes coalesce into a single emission.
func (r *Repo) notifyGroup(groupID domain.GroupID) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, sub := range r.subs {
		if sub.groupID != groupID {
			continue
		}
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
}

func cloneSession(s domain.Session) domain.Session {
	out := s
	if s.AvailableUsers != nil {
		out.AvailableUsers = append([]domain.UserID(nil), s.AvailableUsers...)
	}
	if s.Snacks != nil {
		out.Snacks = append([]domain.SessionSnack(nil), s.Snacks...)
	}
	if s.Carpool != nil {
		out.Carpool = make([]domain.SessionCarpool, len(s.Carpool))
		for i, c := range s.Carpool {
			cp := c
			if c.Passengers != nil {
				cp.Passengers = append([]domain.SessionPassenger(nil), c.Passengers...)
			}
			out.Carpool[i] = cp
		}
	}
	return out
}

func sortSessionsByDateDesc(ss []domain.Session) {
	sort.Slice(ss, func(i, j int) bool {
		a, b := ss[i], ss[j]
		if !a.SessionDate.Equal(b.SessionDate) {
			return a.SessionDate.After(b.SessionDate)
		}
		// Tie-breaker: createdAt, then ID, to keep ordering deterministic.
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
