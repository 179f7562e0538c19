package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// migration is one schema step. Versions are applied in order inside a
// transaction and recorded in schema_migrations; applied versions are
// skipped, so Migrate is safe to run on every boot.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			unique_id TEXT NOT NULL UNIQUE,
			candidate_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL UNIQUE,
			provider TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_users_candidate_id ON users(candidate_id);`,
	},
	{
		Version: 2,
		Name:    "sessions",
		SQL: `CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			candidate_id TEXT NOT NULL,
			candidate_name TEXT NOT NULL DEFAULT '',
			candidate_email TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'in_progress',
			status_label TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			evaluated_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_candidate_id ON sessions(candidate_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);`,
	},
	{
		Version: 3,
		Name:    "session_questions",
		SQL: `CREATE TABLE IF NOT EXISTS session_questions (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			question_id TEXT NOT NULL,
			candidate_name TEXT NOT NULL DEFAULT '',
			candidate_email TEXT NOT NULL DEFAULT '',
			question_text TEXT NOT NULL DEFAULT '',
			topic TEXT NOT NULL DEFAULT '',
			question_type TEXT NOT NULL DEFAULT '',
			order_index INT NOT NULL DEFAULT 0,
			UNIQUE(session_id, question_id)
		);`,
	},
	{
		Version: 4,
		Name:    "responses",
		SQL: `CREATE TABLE IF NOT EXISTS responses (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			question_id TEXT NOT NULL,
			candidate_name TEXT NOT NULL DEFAULT '',
			candidate_email TEXT NOT NULL DEFAULT '',
			media_filename TEXT NOT NULL DEFAULT '',
			media_mime TEXT NOT NULL DEFAULT '',
			media_blob BYTEA,
			media_path TEXT NOT NULL DEFAULT '',
			duration_seconds DOUBLE PRECISION,
			transcript TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE(session_id, question_id)
		);`,
	},
	{
		Version: 5,
		Name:    "scores",
		SQL: `CREATE TABLE IF NOT EXISTS scores (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE REFERENCES sessions(id) ON DELETE CASCADE,
			candidate_id TEXT NOT NULL DEFAULT '',
			candidate_name TEXT NOT NULL DEFAULT '',
			candidate_email TEXT NOT NULL DEFAULT '',
			ai_communication DOUBLE PRECISION,
			ai_content DOUBLE PRECISION,
			ai_confidence DOUBLE PRECISION,
			ai_total DOUBLE PRECISION,
			evaluator_communication DOUBLE PRECISION,
			evaluator_content DOUBLE PRECISION,
			evaluator_confidence DOUBLE PRECISION,
			evaluator_total DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	},
}

// Migrate applies all pending schema migrations.
func Migrate(ctx context.Context, pool PgxPool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("op=migrate.init: %w", err)
	}

	applied := map[int]bool{}
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("op=migrate.list: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("op=migrate.scan: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("op=migrate.rows: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(ctx, pool, m); err != nil {
			return err
		}
		slog.Info("migration applied", slog.Int("version", m.Version), slog.String("name", m.Name))
	}
	return nil
}

func applyMigration(ctx context.Context, pool PgxPool, m migration) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=migrate.begin version=%d: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("op=migrate.exec version=%d: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1,$2)`, m.Version, m.Name); err != nil {
		return fmt.Errorf("op=migrate.record version=%d: %w", m.Version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=migrate.commit version=%d: %w", m.Version, err)
	}
	return nil
}
