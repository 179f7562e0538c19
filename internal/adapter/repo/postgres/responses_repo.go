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

// ResponseRepo persists uploaded answers.
type ResponseRepo struct{ Pool PgxPool }

// NewResponseRepo constructs a ResponseRepo with the given pool.
func NewResponseRepo(p PgxPool) *ResponseRepo { return &ResponseRepo{Pool: p} }

const responseColumns = `id, session_id, question_id, candidate_name, candidate_email, media_filename, media_mime, media_blob, media_path, duration_seconds, transcript, created_at`

// Create inserts a new response row and returns its id. The unique
// (session_id, question_id) constraint rejects duplicate uploads.
func (r *ResponseRepo) Create(ctx domain.Context, resp domain.Response) (int64, error) {
	tracer := otel.Tracer("repo.responses")
	ctx, span := tracer.Start(ctx, "responses.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "responses"),
	)
	q := `INSERT INTO responses (session_id, question_id, candidate_name, candidate_email, media_filename, media_mime, media_blob, media_path, duration_seconds, transcript, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`
	row := r.Pool.QueryRow(ctx, q,
		resp.SessionID, resp.QuestionID, resp.CandidateName, resp.CandidateEmail,
		resp.MediaFilename, resp.MediaMIME, resp.MediaBlob, resp.MediaPath,
		resp.DurationSeconds, resp.Transcript, time.Now().UTC())
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("op=response.create: %w", err)
	}
	return id, nil
}

// FindBySessionQuestion loads the response for one assigned question.
func (r *ResponseRepo) FindBySessionQuestion(ctx domain.Context, sessionID, questionID string) (domain.Response, error) {
	tracer := otel.Tracer("repo.responses")
	ctx, span := tracer.Start(ctx, "responses.FindBySessionQuestion")
	defer span.End()
	q := `SELECT ` + responseColumns + ` FROM responses WHERE session_id=$1 AND question_id=$2`
	row := r.Pool.QueryRow(ctx, q, sessionID, questionID)
	resp, err := scanResponse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Response{}, fmt.Errorf("op=response.find: %w", domain.ErrNotFound)
		}
		return domain.Response{}, fmt.Errorf("op=response.find: %w", err)
	}
	return resp, nil
}

// Get loads a response by id.
func (r *ResponseRepo) Get(ctx domain.Context, id int64) (domain.Response, error) {
	tracer := otel.Tracer("repo.responses")
	ctx, span := tracer.Start(ctx, "responses.Get")
	defer span.End()
	q := `SELECT ` + responseColumns + ` FROM responses WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	resp, err := scanResponse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Response{}, fmt.Errorf("op=response.get: %w", domain.ErrNotFound)
		}
		return domain.Response{}, fmt.Errorf("op=response.get: %w", err)
	}
	return resp, nil
}

// ListBySession returns all responses of a session, oldest first.
func (r *ResponseRepo) ListBySession(ctx domain.Context, sessionID string) ([]domain.Response, error) {
	tracer := otel.Tracer("repo.responses")
	ctx, span := tracer.Start(ctx, "responses.ListBySession")
	defer span.End()
	q := `SELECT ` + responseColumns + ` FROM responses WHERE session_id=$1 ORDER BY created_at ASC`
	rows, err := r.Pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=response.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("op=response.list: %w", err)
		}
		out = append(out, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=response.list: %w", err)
	}
	return out, nil
}

// CountDistinctQuestions returns how many assigned questions have an answer.
func (r *ResponseRepo) CountDistinctQuestions(ctx domain.Context, sessionID string) (int, error) {
	tracer := otel.Tracer("repo.responses")
	ctx, span := tracer.Start(ctx, "responses.CountDistinctQuestions")
	defer span.End()
	row := r.Pool.QueryRow(ctx, `SELECT COUNT(DISTINCT question_id) FROM responses WHERE session_id=$1`, sessionID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("op=response.count_distinct: %w", err)
	}
	return count, nil
}

// UpdateTranscript stores the final transcript for a response.
func (r *ResponseRepo) UpdateTranscript(ctx domain.Context, id int64, transcript string) error {
	tracer := otel.Tracer("repo.responses")
	ctx, span := tracer.Start(ctx, "responses.UpdateTranscript")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `UPDATE responses SET transcript=$2 WHERE id=$1`, id, transcript)
	if err != nil {
		return fmt.Errorf("op=response.update_transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=response.update_transcript: %w", domain.ErrNotFound)
	}
	return nil
}

func scanResponse(row pgx.Row) (domain.Response, error) {
	var resp domain.Response
	err := row.Scan(&resp.ID, &resp.SessionID, &resp.QuestionID, &resp.CandidateName, &resp.CandidateEmail,
		&resp.MediaFilename, &resp.MediaMIME, &resp.MediaBlob, &resp.MediaPath,
		&resp.DurationSeconds, &resp.Transcript, &resp.CreatedAt)
	return resp, err
}
