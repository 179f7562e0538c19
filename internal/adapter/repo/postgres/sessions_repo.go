package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// SessionRepo persists and loads interview sessions.
type SessionRepo struct{ Pool PgxPool }

// NewSessionRepo constructs a SessionRepo with the given pool.
func NewSessionRepo(p PgxPool) *SessionRepo { return &SessionRepo{Pool: p} }

const sessionColumns = `id, candidate_id, candidate_name, candidate_email, status, status_label, created_at, evaluated_at`

// Create inserts a new session.
func (r *SessionRepo) Create(ctx domain.Context, s domain.Session) error {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "sessions"),
	)
	q := `INSERT INTO sessions (id, candidate_id, candidate_name, candidate_email, status, status_label, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.Pool.Exec(ctx, q, s.ID, s.CandidateID, s.CandidateName, s.CandidateEmail, s.Status, s.StatusLabel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=session.create: %w", err)
	}
	return nil
}

// Get loads a session by id.
func (r *SessionRepo) Get(ctx domain.Context, id string) (domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Get")
	defer span.End()
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, fmt.Errorf("op=session.get: %w", domain.ErrNotFound)
		}
		return domain.Session{}, fmt.Errorf("op=session.get: %w", err)
	}
	return s, nil
}

// UpdateStatus moves a session to the given lifecycle status.
func (r *SessionRepo) UpdateStatus(ctx domain.Context, id string, status domain.SessionStatus) error {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.UpdateStatus")
	defer span.End()
	q := `UPDATE sessions SET status=$2 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, status)
	if err != nil {
		return fmt.Errorf("op=session.update_status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=session.update_status: %w", domain.ErrNotFound)
	}
	return nil
}

// MarkCompleted stamps the completed status, the score band label, and the
// evaluation time in one statement.
func (r *SessionRepo) MarkCompleted(ctx domain.Context, id, statusLabel string) error {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.MarkCompleted")
	defer span.End()
	q := `UPDATE sessions SET status=$2, status_label=$3, evaluated_at=$4 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, domain.SessionCompleted, statusLabel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=session.mark_completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=session.mark_completed: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes a session; child rows go with it via cascading foreign keys.
func (r *SessionRepo) Delete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=session.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=session.delete: %w", domain.ErrNotFound)
	}
	return nil
}

// ListPendingEvaluation returns ids of submitted sessions that have no score
// row yet, newest first.
func (r *SessionRepo) ListPendingEvaluation(ctx domain.Context, limit int) ([]string, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.ListPendingEvaluation")
	defer span.End()
	q := `SELECT s.id FROM sessions s
		LEFT JOIN scores sc ON sc.session_id = s.id
		WHERE s.status=$1 AND sc.id IS NULL
		ORDER BY s.created_at DESC
		LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, domain.SessionSubmitted, limit)
	if err != nil {
		return nil, fmt.Errorf("op=session.list_pending: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("op=session.list_pending: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=session.list_pending: %w", err)
	}
	return ids, nil
}

// ListRecent returns the newest sessions up to limit.
func (r *SessionRepo) ListRecent(ctx domain.Context, limit int) ([]domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.ListRecent")
	defer span.End()
	q := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC LIMIT $1`
	rows, err := r.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("op=session.list_recent: %w", err)
	}
	defer rows.Close()
	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("op=session.list_recent: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=session.list_recent: %w", err)
	}
	return out, nil
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.CandidateID, &s.CandidateName, &s.CandidateEmail, &s.Status, &s.StatusLabel, &s.CreatedAt, &s.EvaluatedAt)
	return s, err
}
