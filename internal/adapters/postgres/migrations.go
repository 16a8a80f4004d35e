package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations run in order at startup. Each entry is applied at most once,
// tracked in schema_migrations. Append only; never edit an applied entry.
var migrations = []string{
	// 1: base tables. Nested collections (group refs, member lists, snacks,
	// carpool) are stored as jsonb documents, mirroring their in-memory shape.
	`
	CREATE TABLE IF NOT EXISTS users (
		id uuid PRIMARY KEY,
		username text NOT NULL,
		group_ids jsonb NOT NULL DEFAULT '[]'::jsonb,
		created_at timestamptz NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS users_username_unique ON users (username);

	CREATE TABLE IF NOT EXISTS groups (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		host_id uuid NOT NULL REFERENCES users(id),
		host_name text NOT NULL,
		member_ids jsonb NOT NULL DEFAULT '[]'::jsonb,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id uuid PRIMARY KEY,
		group_id uuid NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		group_name text NOT NULL,
		host_id uuid NOT NULL,
		host_name text NOT NULL,
		is_confirmed boolean NOT NULL DEFAULT false,
		session_date timestamptz NOT NULL,
		host_notes text NOT NULL DEFAULT '',
		secret_notes text NOT NULL DEFAULT '',
		external_availability text NOT NULL DEFAULT '',
		available_users jsonb NOT NULL DEFAULT '[]'::jsonb,
		snacks jsonb NOT NULL DEFAULT '[]'::jsonb,
		carpool jsonb NOT NULL DEFAULT '[]'::jsonb,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_group_date_idx ON sessions (group_id, session_date DESC);
	`,

	// 2: change notifications feeding the watch streams. Payload is the group
	// id so session watchers can filter without re-querying.
	`
	CREATE OR REPLACE FUNCTION notify_sessions_changed() RETURNS trigger AS $fn$
	BEGIN
		IF TG_OP = 'DELETE' THEN
			PERFORM pg_notify('sessions_changed', OLD.group_id::text);
		ELSE
			PERFORM pg_notify('sessions_changed', NEW.group_id::text);
		END IF;
		RETURN NULL;
	END;
	$fn$ LANGUAGE plpgsql;

	DROP TRIGGER IF EXISTS sessions_notify ON sessions;
	CREATE TRIGGER sessions_notify
		AFTER INSERT OR UPDATE OR DELETE ON sessions
		FOR EACH ROW EXECUTE FUNCTION notify_sessions_changed();

	CREATE OR REPLACE FUNCTION notify_groups_changed() RETURNS trigger AS $fn$
	BEGIN
		IF TG_OP = 'DELETE' THEN
			PERFORM pg_notify('groups_changed', OLD.id::text);
		ELSE
			PERFORM pg_notify('groups_changed', NEW.id::text);
		END IF;
		RETURN NULL;
	END;
	$fn$ LANGUAGE plpgsql;

	DROP TRIGGER IF EXISTS groups_notify ON groups;
	CREATE TRIGGER groups_notify
		AFTER INSERT OR UPDATE OR DELETE ON groups
		FOR EACH ROW EXECUTE FUNCTION notify_groups_changed();
	`,
}

// Migrate applies any pending migrations. Safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version int PRIMARY KEY,
			applied_at timestamptz NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, stmt := range migrations {
		version := i + 1
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return nil
			}
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
	}
	return nil
}
