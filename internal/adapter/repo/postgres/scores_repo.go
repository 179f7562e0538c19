package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// ScoreRepo persists the single score row per session.
type ScoreRepo struct{ Pool PgxPool }

// NewScoreRepo constructs a ScoreRepo with the given pool.
func NewScoreRepo(p PgxPool) *ScoreRepo { return &ScoreRepo{Pool: p} }

const scoreColumns = `id, session_id, candidate_id, candidate_name, candidate_email,
	ai_communication, ai_content, ai_confidence, ai_total,
	evaluator_communication, evaluator_content, evaluator_confidence, evaluator_total,
	created_at, updated_at`

// GetBySession loads the score row for a session.
func (r *ScoreRepo) GetBySession(ctx domain.Context, sessionID string) (domain.Score, error) {
	tracer := otel.Tracer("repo.scores")
	ctx, span := tracer.Start(ctx, "scores.GetBySession")
	defer span.End()
	q := `SELECT ` + scoreColumns + ` FROM scores WHERE session_id=$1`
	row := r.Pool.QueryRow(ctx, q, sessionID)
	var s domain.Score
	err := row.Scan(&s.ID, &s.SessionID, &s.CandidateID, &s.CandidateName, &s.CandidateEmail,
		&s.AICommunication, &s.AIContent, &s.AIConfidence, &s.AITotal,
		&s.EvaluatorCommunication, &s.EvaluatorContent, &s.EvaluatorConfidence, &s.EvaluatorTotal,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Score{}, fmt.Errorf("op=score.get: %w", domain.ErrNotFound)
		}
		return domain.Score{}, fmt.Errorf("op=score.get: %w", err)
	}
	return s, nil
}

// UpsertAI writes the AI-computed columns, creating the row when absent.
// Evaluator columns are never touched here.
func (r *ScoreRepo) UpsertAI(ctx domain.Context, s domain.Score) error {
	tracer := otel.Tracer("repo.scores")
	ctx, span := tracer.Start(ctx, "scores.UpsertAI")
	defer span.End()
	now := time.Now().UTC()
	q := `INSERT INTO scores (session_id, candidate_id, candidate_name, candidate_email,
			ai_communication, ai_content, ai_confidence, ai_total, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
		ON CONFLICT (session_id) DO UPDATE
		SET candidate_id=EXCLUDED.candidate_id, candidate_name=EXCLUDED.candidate_name,
			candidate_email=EXCLUDED.candidate_email,
			ai_communication=EXCLUDED.ai_communication, ai_content=EXCLUDED.ai_content,
			ai_confidence=EXCLUDED.ai_confidence, ai_total=EXCLUDED.ai_total,
			updated_at=EXCLUDED.updated_at`
	_, err := r.Pool.Exec(ctx, q, s.SessionID, s.CandidateID, s.CandidateName, s.CandidateEmail,
		s.AICommunication, s.AIContent, s.AIConfidence, s.AITotal, now)
	if err != nil {
		return fmt.Errorf("op=score.upsert_ai: %w", err)
	}
	return nil
}

// UpdateEvaluator writes the human-entered columns only. Nil values clear
// the corresponding column.
func (r *ScoreRepo) UpdateEvaluator(ctx domain.Context, sessionID string, communication, content, confidence, total *float64) error {
	tracer := otel.Tracer("repo.scores")
	ctx, span := tracer.Start(ctx, "scores.UpdateEvaluator")
	defer span.End()
	q := `UPDATE scores SET evaluator_communication=$2, evaluator_content=$3,
		evaluator_confidence=$4, evaluator_total=$5, updated_at=$6 WHERE session_id=$1`
	tag, err := r.Pool.Exec(ctx, q, sessionID, communication, content, confidence, total, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=score.update_evaluator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=score.update_evaluator: %w", domain.ErrNotFound)
	}
	return nil
}
