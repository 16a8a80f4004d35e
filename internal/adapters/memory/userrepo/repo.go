package userrepo

import (
	"context"
	"sync"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID     map[domain.UserID]userrepo.User
	idByName map[string]domain.UserID
}

func NewRepo() *Repo {
	return &Repo{
		byID:     make(map[domain.UserID]userrepo.User),
		idByName: make(map[string]domain.UserID),
	}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_ = ctx
	if u.ID == "" {
		return userrepo.ErrAlreadyExists // treat empty ID as invalid; app layer validates earlier
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return userrepo.ErrAlreadyExists
	}
	if _, ok := r.idByName[u.Username]; ok {
		return userrepo.ErrUsernameTaken
	}

	r.byID[u.ID] = cloneUser(u)
	r.idByName[u.Username] = u.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByName[username]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	u, ok := r.byID[id]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

// AddGroupRef appends groupID to the user's GroupIDs if absent. It is the
// user-document half of the group repository's dual-document membership write.
func (r *Repo) AddGroupRef(userID domain.UserID, groupID domain.GroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return userrepo.ErrNotFound
	}
	for _, g := range u.GroupIDs {
		if g == groupID {
			return nil
		}
	}
	u = cloneUser(u)
	u.GroupIDs = append(u.GroupIDs, groupID)
	r.byID[userID] = u
	return nil
}

// RemoveGroupRef removes groupID from the user's GroupIDs if present.
func (r *Repo) RemoveGroupRef(userID domain.UserID, groupID domain.GroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return userrepo.ErrNotFound
	}
	out := make([]domain.GroupID, 0, len(u.GroupIDs))
	for _, g := range u.GroupIDs {
		if g != groupID {
			out = append(out, g)
		}
	}
	u = cloneUser(u)
	u.GroupIDs = out
	r.byID[userID] = u
	return nil
}

// HasUser reports whether the user exists. Used by the group repository to
// validate the user side before it mutates anything.
func (r *Repo) HasUser(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[userID]
	return ok
}

func cloneUser(u userrepo.User) userrepo.User {
	out := u
	if u.GroupIDs != nil {
		out.GroupIDs = append([]domain.GroupID(nil), u.GroupIDs...)
	}
	return out
}
