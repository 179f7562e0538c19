// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"math"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// Dimension weights for the final score: communication, blended content,
// confidence.
const (
	weightCommunication = 0.45
	weightContent       = 0.45
	weightConfidence    = 0.10

	contentBlendContent   = 0.6
	contentBlendRelevance = 0.4
)

// ScoreAnswer turns a sanitized model score into the persisted per-answer
// score. Content is blended with relevance, and low relevance caps both the
// blended content and the final score: relevance <= 3 caps content at 3.5
// and final at 4.5; relevance <= 5 caps content at 5.5 and final at 6.5.
// The model's own final is kept when it supplied one; the weighted recompute
// is the fallback. The caps bind either way.
func ScoreAnswer(llm *domain.LLMScore) (domain.AnswerScore, error) {
	if llm == nil {
		return domain.AnswerScore{}, fmt.Errorf("%w: no model score", domain.ErrEvaluationUnavailable)
	}

	content := contentBlendContent*llm.Content + contentBlendRelevance*llm.Relevance
	switch {
	case llm.Relevance <= 3:
		content = math.Min(content, 3.5)
	case llm.Relevance <= 5:
		content = math.Min(content, 5.5)
	}

	final := llm.Final
	if final == 0 {
		final = weightCommunication*llm.Communication + weightContent*content + weightConfidence*llm.Confidence
	}
	switch {
	case llm.Relevance <= 3:
		final = math.Min(final, 4.5)
	case llm.Relevance <= 5:
		final = math.Min(final, 6.5)
	}

	return domain.AnswerScore{
		Communication: round2(llm.Communication),
		Content:       round2(content),
		Confidence:    round2(llm.Confidence),
		Final:         round2(final),
		Feedback:      llm.Feedback,
		Strengths:     llm.Strengths,
		Weaknesses:    llm.Weaknesses,
	}, nil
}

// ClassifyScore maps a final score to its display band.
func ClassifyScore(score float64) string {
	switch {
	case score <= 2.5:
		return "Below Average"
	case score <= 5.0:
		return "Average"
	case score < 7.5:
		return "Good"
	default:
		return "Excellent"
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
