package userrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Roll-Call-Gaming/roll-call-api/internal/adapters/postgres"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	groupIDs, err := marshalGroupIDs(u.GroupIDs)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (id, username, group_ids, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		id,
		u.Username,
		groupIDs,
		u.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "users_username_unique":
				return userrepo.ErrUsernameTaken
			default:
				return userrepo.ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, group_ids, created_at
		FROM users
		WHERE id = $1
	`, uid)
	return scanUser(row)
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	// The unique index is on the raw username column, so this match is exact
	// and case-sensitive.
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, group_ids, created_at
		FROM users
		WHERE username = $1
	`, username)
	return scanUser(row)
}

func scanUser(row pgx.Row) (userrepo.User, error) {
	var (
		id     uuid.UUID
		u      userrepo.User
		groupS []byte
	)
	if err := row.Scan(&id, &u.Username, &groupS, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userrepo.User{}, userrepo.ErrNotFound
		}
		return userrepo.User{}, err
	}
	u.ID = domain.UserID(id.String())
	u.CreatedAt = u.CreatedAt.UTC()
	if err := json.Unmarshal(groupS, &u.GroupIDs); err != nil {
		return userrepo.User{}, fmt.Errorf("decode group_ids: %w", err)
	}
	return u, nil
}

func marshalGroupIDs(ids []domain.GroupID) ([]byte, error) {
	if ids == nil {
		ids = []domain.GroupID{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode group_ids: %w", err)
	}
	return b, nil
}
