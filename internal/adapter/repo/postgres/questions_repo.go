package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// SessionQuestionRepo persists the questions assigned to a session.
type SessionQuestionRepo struct{ Pool PgxPool }

// NewSessionQuestionRepo constructs a SessionQuestionRepo with the given pool.
func NewSessionQuestionRepo(p PgxPool) *SessionQuestionRepo { return &SessionQuestionRepo{Pool: p} }

// CreateBatch inserts all assigned questions for a session in one
// transaction so a partially assigned session never exists.
func (r *SessionQuestionRepo) CreateBatch(ctx domain.Context, qs []domain.SessionQuestion) error {
	tracer := otel.Tracer("repo.session_questions")
	ctx, span := tracer.Start(ctx, "session_questions.CreateBatch")
	defer span.End()

	if len(qs) == 0 {
		return nil
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=session_question.create_batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO session_questions (session_id, question_id, candidate_name, candidate_email, question_text, topic, question_type, order_index)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for _, sq := range qs {
		if _, err := tx.Exec(ctx, q, sq.SessionID, sq.QuestionID, sq.CandidateName, sq.CandidateEmail, sq.QuestionText, sq.Topic, sq.QuestionType, sq.OrderIndex); err != nil {
			return fmt.Errorf("op=session_question.create_batch: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=session_question.create_batch: %w", err)
	}
	return nil
}

// ListBySession returns the assigned questions in presentation order.
func (r *SessionQuestionRepo) ListBySession(ctx domain.Context, sessionID string) ([]domain.SessionQuestion, error) {
	tracer := otel.Tracer("repo.session_questions")
	ctx, span := tracer.Start(ctx, "session_questions.ListBySession")
	defer span.End()
	q := `SELECT id, session_id, question_id, candidate_name, candidate_email, question_text, topic, question_type, order_index
		FROM session_questions WHERE session_id=$1 ORDER BY order_index ASC`
	rows, err := r.Pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=session_question.list: %w", err)
	}
	defer rows.Close()
	var out []domain.SessionQuestion
	for rows.Next() {
		var sq domain.SessionQuestion
		if err := rows.Scan(&sq.ID, &sq.SessionID, &sq.QuestionID, &sq.CandidateName, &sq.CandidateEmail, &sq.QuestionText, &sq.Topic, &sq.QuestionType, &sq.OrderIndex); err != nil {
			return nil, fmt.Errorf("op=session_question.list: %w", err)
		}
		out = append(out, sq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=session_question.list: %w", err)
	}
	return out, nil
}

// CountBySession returns how many questions were assigned to a session.
func (r *SessionQuestionRepo) CountBySession(ctx domain.Context, sessionID string) (int, error) {
	tracer := otel.Tracer("repo.session_questions")
	ctx, span := tracer.Start(ctx, "session_questions.CountBySession")
	defer span.End()
	row := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM session_questions WHERE session_id=$1`, sessionID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("op=session_question.count: %w", err)
	}
	return count, nil
}
