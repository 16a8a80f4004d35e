package grouprepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/postgres"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/grouprepo"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of grouprepo.Repository.
//
// The dual-document membership writes update the group row and the user row
// inside one transaction, which gives the all-or-nothing guarantee the
// membership invariant depends on.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, g grouprepo.Group) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	gid, err := uuid.Parse(string(g.ID))
	if err != nil {
		return fmt.Errorf("invalid group id: %w", err)
	}
	hostID, err := uuid.Parse(string(g.HostID))
	if err != nil {
		return fmt.Errorf("invalid host id: %w", err)
	}
	memberIDs, err := marshalUserIDs(g.MemberIDs)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO groups (id, name, host_id, host_name, member_ids, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			gid,
			g.Name,
			hostID,
			g.HostName,
			memberIDs,
			g.CreatedAt.UTC(),
			g.UpdatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok {
				switch pe.Code {
				case postgres.UniqueViolationCode:
					return grouprepo.ErrAlreadyExists
				case postgres.ForeignKeyViolationCode:
					return userrepo.ErrNotFound
				}
			}
			return err
		}

		// Enroll the host on the user side of the relation.
		return addGroupRef(ctx, tx, hostID, g.ID)
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.GroupID) (grouprepo.Group, error) {
	if r.pool == nil {
		return grouprepo.Group{}, errors.New("nil postgres pool")
	}
	gid, err := uuid.Parse(string(id))
	if err != nil {
		return grouprepo.Group{}, grouprepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, host_id, host_name, member_ids, created_at, updated_at
		FROM groups
		WHERE id = $1
	`, gid)
	return scanGroup(row)
}

func (r *Repo) ListByMember(ctx context.Context, userID domain.UserID) ([]grouprepo.Group, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, host_id, host_name, member_ids, created_at, updated_at
		FROM groups
		WHERE member_ids @> jsonb_build_array($1::text)
		ORDER BY created_at ASC, id ASC
	`, string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]grouprepo.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repo) AddMember(ctx context.Context, groupID domain.GroupID, userID domain.UserID, now time.Time) error {
	return r.updateMembership(ctx, groupID, userID, now, true)
}

func (r *Repo) RemoveMember(ctx context.Context, groupID domain.GroupID, userID domain.UserID, now time.Time) error {
	return r.updateMembership(ctx, groupID, userID, now, false)
}

func (r *Repo) updateMembership(ctx context.Context, groupID domain.GroupID, userID domain.UserID, now time.Time, add bool) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	gid, err := uuid.Parse(string(groupID))
	if err != nil {
		return grouprepo.ErrNotFound
	}
	uid, err := uuid.Parse(string(userID))
	if err != nil {
		return userrepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock both rows to keep concurrent membership writes serialized per
		// document pair.
		var memberS []byte
		err := tx.QueryRow(ctx, `SELECT member_ids FROM groups WHERE id = $1 FOR UPDATE`, gid).Scan(&memberS)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return grouprepo.ErrNotFound
			}
			return err
		}
		var memberIDs []domain.UserID
		if err := json.Unmarshal(memberS, &memberIDs); err != nil {
			return fmt.Errorf("decode member_ids: %w", err)
		}

		if add {
			if !containsUserID(memberIDs, userID) {
				memberIDs = append(memberIDs, userID)
			}
			if err := addGroupRef(ctx, tx, uid, groupID); err != nil {
				return err
			}
		} else {
			memberIDs = removeUserID(memberIDs, userID)
			if err := removeGroupRef(ctx, tx, uid, groupID); err != nil {
				return err
			}
		}

		memberS, err = marshalUserIDs(memberIDs)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE groups SET member_ids = $2, updated_at = $3 WHERE id = $1
		`, gid, memberS, now.UTC())
		return err
	})
}

// WatchByMember re-queries the member's groups whenever any group changes.
// Membership itself changes which rows match, so emissions are not filtered by
// the notification payload.
func (r *Repo) WatchByMember(ctx context.Context, userID domain.UserID) (<-chan []grouprepo.Group, <-chan error, error) {
	if r.pool == nil {
		return nil, nil, errors.New("nil postgres pool")
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	if _, err := conn.Exec(ctx, `LISTEN groups_changed`); err != nil {
		conn.Release()
		return nil, nil, err
	}

	out := make(chan []grouprepo.Group)
	errCh := make(chan error, 1)
	go func() {
		defer conn.Release()
		defer close(out)
		defer close(errCh)

		for {
			snapshot, err := r.ListByMember(ctx, userID)
			if err != nil {
				if ctx.Err() == nil {
					errCh <- err
				}
				return
			}
			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}

			if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
				if ctx.Err() == nil {
					errCh <- err
				}
				return
			}
		}
	}()
	return out, errCh, nil
}

func addGroupRef(ctx context.Context, tx pgx.Tx, uid uuid.UUID, groupID domain.GroupID) error {
	groupIDs, err := lockGroupRefs(ctx, tx, uid)
	if err != nil {
		return err
	}
	for _, g := range groupIDs {
		if g == groupID {
			return nil
		}
	}
	groupIDs = append(groupIDs, groupID)
	return saveGroupRefs(ctx, tx, uid, groupIDs)
}

func removeGroupRef(ctx context.Context, tx pgx.Tx, uid uuid.UUID, groupID domain.GroupID) error {
	groupIDs, err := lockGroupRefs(ctx, tx, uid)
	if err != nil {
		return err
	}
	out := make([]domain.GroupID, 0, len(groupIDs))
	for _, g := range groupIDs {
		if g != groupID {
			out = append(out, g)
		}
	}
	return saveGroupRefs(ctx, tx, uid, out)
}

func lockGroupRefs(ctx context.Context, tx pgx.Tx, uid uuid.UUID) ([]domain.GroupID, error) {
	var raw []byte
	if err := tx.QueryRow(ctx, `SELECT group_ids FROM users WHERE id = $1 FOR UPDATE`, uid).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, userrepo.ErrNotFound
		}
		return nil, err
	}
	var ids []domain.GroupID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode group_ids: %w", err)
	}
	return ids, nil
}

func saveGroupRefs(ctx context.Context, tx pgx.Tx, uid uuid.UUID, ids []domain.GroupID) error {
	if ids == nil {
		ids = []domain.GroupID{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode group_ids: %w", err)
	}
	_, err = tx.Exec(ctx, `UPDATE users SET group_ids = $2 WHERE id = $1`, uid, raw)
	return err
}

func scanGroup(row pgx.Row) (grouprepo.Group, error) {
	var (
		id      uuid.UUID
		hostID  uuid.UUID
		g       grouprepo.Group
		memberS []byte
	)
	if err := row.Scan(&id, &g.Name, &hostID, &g.HostName, &memberS, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return grouprepo.Group{}, grouprepo.ErrNotFound
		}
		return grouprepo.Group{}, err
	}
	g.ID = domain.GroupID(id.String())
	g.HostID = domain.UserID(hostID.String())
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	if err := json.Unmarshal(memberS, &g.MemberIDs); err != nil {
		return grouprepo.Group{}, fmt.Errorf("decode member_ids: %w", err)
	}
	return g, nil
}

func marshalUserIDs(ids []domain.UserID) ([]byte, error) {
	if ids == nil {
		ids = []domain.UserID{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode member_ids: %w", err)
	}
	return b, nil
}

func containsUserID(ids []domain.UserID, id domain.UserID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeUserID(ids []domain.UserID, id domain.UserID) []domain.UserID {
	out := make([]domain.UserID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
