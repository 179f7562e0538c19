package openai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/meetngreet/interview-backend/internal/domain"
)

const scoringSystemPrompt = `You are an expert interview evaluator. Score the candidate's answer to the given question on a 0-10 scale across four axes and respond with a single JSON object:
{"communication": n, "content": n, "relevance": n, "confidence": n, "final": n, "feedback": "...", "strengths": ["..."], "weaknesses": ["..."]}
Scoring policy:
- communication: clarity and structure of the spoken answer.
- content: substance and correctness of what was said.
- relevance: how directly the answer addresses this specific question. An off-topic answer must score low on relevance and content no matter how long or fluent it is.
- confidence: delivery confidence, informed by the supplied video metrics.
- Answers in Hindi or romanized Hindi are not penalized for language or script.
- An empty or near-empty transcript scores very low on every axis.
Return only the JSON object.`

// ScoreAnswer asks the model to grade one transcript. A nil result with nil
// error means the model produced no usable output after retries; callers
// treat that as an evaluation failure, not a crash.
func (c *Client) ScoreAnswer(ctx domain.Context, questionText, transcript string, metrics domain.VideoMetrics) (*domain.LLMScore, error) {
	payload := map[string]any{
		"question":      questionText,
		"transcript":    transcript,
		"video_metrics": metrics,
		"weights":       map[string]float64{"communication": 0.45, "content": 0.45, "confidence": 0.10},
	}
	b, _ := json.Marshal(payload)

	content, err := c.chatJSON(ctx, scoringSystemPrompt, string(b))
	if err != nil {
		slog.Warn("llm scoring failed", slog.Any("error", err))
		return nil, nil
	}

	score := sanitizeScore(content)
	if score == nil {
		slog.Warn("llm scoring output unusable", slog.String("content", snippet([]byte(content))))
	}
	return score, nil
}

// sanitizeScore parses and normalizes the raw model output. It returns nil
// when any of the four required axes is missing or unparsable.
func sanitizeScore(content string) *domain.LLMScore {
	var raw map[string]any
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &raw); err != nil {
		return nil
	}

	comm, ok1 := normalizedScore(raw["communication"])
	cont, ok2 := normalizedScore(raw["content"])
	rel, ok3 := normalizedScore(raw["relevance"])
	conf, ok4 := normalizedScore(raw["confidence"])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}

	final, ok := normalizedScore(raw["final"])
	if !ok {
		blended := 0.6*cont + 0.4*rel
		final = 0.45*comm + 0.45*blended + 0.10*conf
	}

	out := &domain.LLMScore{
		Communication: comm,
		Content:       cont,
		Relevance:     rel,
		Confidence:    conf,
		Final:         final,
		Feedback:      asString(raw["feedback"], "No feedback provided."),
		Strengths:     dedupPoints(asStrings(raw["strengths"])),
		Weaknesses:    dedupPoints(asStrings(raw["weaknesses"])),
	}
	return out
}

// normalizedScore coerces a JSON value to a float score. Values in [0,1] are
// assumed fractional and rescaled by 10; results are clamped to [0,10].
func normalizedScore(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f >= 0 && f <= 1 {
		f *= 10
	}
	if f < 0 {
		f = 0
	}
	if f > 10 {
		f = 10
	}
	return f, true
}

func asString(v any, fallback string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

func asStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		} else if it != nil {
			out = append(out, fmt.Sprintf("%v", it))
		}
	}
	return out
}

// dedupPoints removes case-insensitive duplicates and caps the list at 4.
func dedupPoints(points []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(points))
	for _, p := range points {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(p))
		if len(out) == 4 {
			break
		}
	}
	return out
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
