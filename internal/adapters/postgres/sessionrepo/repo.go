package sessionrepo

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
	"github.com/Roll-Call-Gaming/roll-call-api/internal/ports/out/sessionrepo"
)

// Repo is a Postgres implementation of sessionrepo.Repository. Nested
// collections are persisted as jsonb documents using the same field names the
// HTTP layer exposes.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// snackDoc / carpoolDoc / passengerDoc are the jsonb shapes.
type snackDoc struct {
	UserID           string `json:"userId"`
	UserName         string `json:"userName"`
	SnackDescription string `json:"snackDescription"`
}

type passengerDoc struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type carpoolDoc struct {
	DriverID   string         `json:"driverId"`
	DriverName string         `json:"driverName"`
	Capacity   int            `json:"capacity"`
	Passengers []passengerDoc `json:"passengers"`
}

func (r *Repo) Create(ctx context.Context, s domain.Session) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	sid, err := uuid.Parse(string(s.ID))
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	gid, err := uuid.Parse(string(s.GroupID))
	if err != nil {
		return fmt.Errorf("invalid group id: %w", err)
	}
	hid, err := uuid.Parse(string(s.HostID))
	if err != nil {
		return fmt.Errorf("invalid host id: %w", err)
	}
	available, snacks, carpool, err := encodeCollections(s)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO sessions (
			id,
			group_id,
			group_name,
			host_id,
			host_name,
			is_confirmed,
			session_date,
			host_notes,
			secret_notes,
			external_availability,
			available_users,
			snacks,
			carpool,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		sid,
		gid,
		s.GroupName,
		hid,
		s.HostName,
		s.IsConfirmed,
		s.SessionDate.UTC(),
		s.HostNotes,
		s.SecretNotes,
		s.ExternalAvailability,
		available,
		snacks,
		carpool,
		s.CreatedAt.UTC(),
		s.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return sessionrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, s domain.Session) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	sid, err := uuid.Parse(string(s.ID))
	if err != nil {
		return sessionrepo.ErrNotFound
	}
	available, snacks, carpool, err := encodeCollections(s)
	if err != nil {
		return err
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE sessions SET
			is_confirmed = $2,
			session_date = $3,
			host_notes = $4,
			secret_notes = $5,
			external_availability = $6,
			available_users = $7,
			snacks = $8,
			carpool = $9,
			updated_at = $10
		WHERE id = $1
	`,
		sid,
		s.IsConfirmed,
		s.SessionDate.UTC(),
		s.HostNotes,
		s.SecretNotes,
		s.ExternalAvailability,
		available,
		snacks,
		carpool,
		s.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return sessionrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	if r.pool == nil {
		return domain.Session{}, errors.New("nil postgres pool")
	}
	sid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, sid)
	return scanSession(row)
}

func (r *Repo) ListByGroup(ctx context.Context, groupID domain.GroupID) ([]domain.Session, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	gid, err := uuid.Parse(string(groupID))
	if err != nil {
		return []domain.Session{}, nil
	}
	rows, err := r.pool.Query(ctx, selectColumns+`
		WHERE group_id = $1
		ORDER BY session_date DESC, created_at DESC, id ASC
	`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id domain.SessionID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	sid, err := uuid.Parse(string(id))
	if err != nil {
		return sessionrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return sessionrepo.ErrNotFound
	}
	return nil
}

// WatchByGroup listens for session change notifications and re-queries the
// full snapshot for the group on each relevant one. The notification payload
// is the group id, so unrelated groups' changes are skipped without a query.
func (r *Repo) WatchByGroup(ctx context.Context, groupID domain.GroupID) (<-chan []domain.Session, <-chan error, error) {
	if r.pool == nil {
		return nil, nil, errors.New("nil postgres pool")
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	if _, err := conn.Exec(ctx, `LISTEN sessions_changed`); err != nil {
		conn.Release()
		return nil, nil, err
	}

	out := make(chan []domain.Session)
	errCh := make(chan error, 1)
	go func() {
		defer conn.Release()
		defer close(out)
		defer close(errCh)

		for {
			snapshot, err := r.ListByGroup(ctx, groupID)
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

			for {
				n, err := conn.Conn().WaitForNotification(ctx)
				if err != nil {
					if ctx.Err() == nil {
						errCh <- err
					}
					return
				}
				if n.Payload == string(groupID) {
					break
				}
			}
		}
	}()
	return out, errCh, nil
}

const selectColumns = `
	SELECT
		id,
		group_id,
		group_name,
		host_id,
		host_name,
		is_confirmed,
		session_date,
		host_notes,
		secret_notes,
		external_availability,
		available_users,
		snacks,
		carpool,
		created_at,
		updated_at
	FROM sessions
`

func scanSession(row pgx.Row) (domain.Session, error) {
	var (
		sid       uuid.UUID
		gid       uuid.UUID
		hid       uuid.UUID
		s         domain.Session
		available []byte
		snacks    []byte
		carpool   []byte
	)
	err := row.Scan(
		&sid,
		&gid,
		&s.GroupName,
		&hid,
		&s.HostName,
		&s.IsConfirmed,
		&s.SessionDate,
		&s.HostNotes,
		&s.SecretNotes,
		&s.ExternalAvailability,
		&available,
		&snacks,
		&carpool,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, sessionrepo.ErrNotFound
		}
		return domain.Session{}, err
	}
	s.ID = domain.SessionID(sid.String())
	s.GroupID = domain.GroupID(gid.String())
	s.HostID = domain.UserID(hid.String())
	s.SessionDate = s.SessionDate.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()

	if err := json.Unmarshal(available, &s.AvailableUsers); err != nil {
		return domain.Session{}, fmt.Errorf("decode available_users: %w", err)
	}
	var snackDocs []snackDoc
	if err := json.Unmarshal(snacks, &snackDocs); err != nil {
		return domain.Session{}, fmt.Errorf("decode snacks: %w", err)
	}
	s.Snacks = make([]domain.SessionSnack, 0, len(snackDocs))
	for _, d := range snackDocs {
		s.Snacks = append(s.Snacks, domain.SessionSnack{
			UserID:           domain.UserID(d.UserID),
			UserName:         d.UserName,
			SnackDescription: d.SnackDescription,
		})
	}
	var carpoolDocs []carpoolDoc
	if err := json.Unmarshal(carpool, &carpoolDocs); err != nil {
		return domain.Session{}, fmt.Errorf("decode carpool: %w", err)
	}
	s.Carpool = make([]domain.SessionCarpool, 0, len(carpoolDocs))
	for _, d := range carpoolDocs {
		c := domain.SessionCarpool{
			DriverID:   domain.UserID(d.DriverID),
			DriverName: d.DriverName,
			Capacity:   d.Capacity,
			Passengers: make([]domain.SessionPassenger, 0, len(d.Passengers)),
		}
		for _, p := range d.Passengers {
			c.Passengers = append(c.Passengers, domain.SessionPassenger{
				UserID:   domain.UserID(p.UserID),
				UserName: p.UserName,
			})
		}
		s.Carpool = append(s.Carpool, c)
	}
	return s, nil
}

func encodeCollections(s domain.Session) (available, snacks, carpool []byte, err error) {
	ids := s.AvailableUsers
	if ids == nil {
		ids = []domain.UserID{}
	}
	if available, err = json.Marshal(ids); err != nil {
		return nil, nil, nil, fmt.Errorf("encode available_users: %w", err)
	}

	snackDocs := make([]snackDoc, 0, len(s.Snacks))
	for _, sn := range s.Snacks {
		snackDocs = append(snackDocs, snackDoc{
			UserID:           string(sn.UserID),
			UserName:         sn.UserName,
			SnackDescription: sn.SnackDescription,
		})
	}
	if snacks, err = json.Marshal(snackDocs); err != nil {
		return nil, nil, nil, fmt.Errorf("encode snacks: %w", err)
	}

	carpoolDocs := make([]carpoolDoc, 0, len(s.Carpool))
	for _, c := range s.Carpool {
		d := carpoolDoc{
			DriverID:   string(c.DriverID),
			DriverName: c.DriverName,
			Capacity:   c.Capacity,
			Passengers: make([]passengerDoc, 0, len(c.Passengers)),
		}
		for _, p := range c.Passengers {
			d.Passengers = append(d.Passengers, passengerDoc{
				UserID:   string(p.UserID),
				UserName: p.UserName,
			})
		}
		carpoolDocs = append(carpoolDocs, d)
	}
	if carpool, err = json.Marshal(carpoolDocs); err != nil {
		return nil, nil, nil, fmt.Errorf("encode carpool: %w", err)
	}
	return available, snacks, carpool, nil
}
