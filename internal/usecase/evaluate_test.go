package usecase_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetngreet/interview-backend/internal/domain"
	"github.com/meetngreet/interview-backend/internal/usecase"
)

func newCoordinator(t *testing.T, m *mem, scorer domain.AnswerScorer) *usecase.Coordinator {
	t.Helper()
	c := usecase.NewCoordinator(
		fakeSessions{m}, fakeQuestions{m}, fakeResponses{m}, fakeScores{m}, fakeUsers{m},
		usecase.TranscriptionService{}, usecase.VideoAnalyzer{}, scorer, nil, t.TempDir(),
	)
	c.RetryDelays = []time.Duration{0}
	return c
}

// seedSubmitted creates a submitted session with two assigned questions and
// two transcript-only responses.
func seedSubmitted(t *testing.T, m *mem, sessionID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, fakeSessions{m}.Create(ctx, domain.Session{
		ID:             sessionID,
		CandidateID:    "jane@example.com",
		CandidateName:  "Jane",
		CandidateEmail: "jane@example.com",
		Status:         domain.SessionSubmitted,
	}))
	require.NoError(t, fakeQuestions{m}.CreateBatch(ctx, []domain.SessionQuestion{
		{SessionID: sessionID, QuestionID: "q1", QuestionText: "Tell me about yourself.", OrderIndex: 0},
		{SessionID: sessionID, QuestionID: "q2", QuestionText: "Describe a recent project.", OrderIndex: 1},
	}))
	for _, qid := range []string{"q1", "q2"} {
		_, err := fakeResponses{m}.Create(ctx, domain.Response{
			SessionID:  sessionID,
			QuestionID: qid,
			Transcript: "I worked on the upload pipeline and owned its rollout",
		})
		require.NoError(t, err)
	}
}

func TestCoordinatorEvaluatesSession(t *testing.T) {
	m := newMem()
	seedSubmitted(t, m, "s1")
	c := newCoordinator(t, m, fixedScorer{&domain.LLMScore{Communication: 8, Content: 7, Relevance: 7, Confidence: 6}})

	assert.True(t, c.Schedule("s1"))
	c.Wait()

	session, err := fakeSessions{m}.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, session.Status)
	assert.Equal(t, "Good", session.StatusLabel)
	require.NotNil(t, session.EvaluatedAt)

	score, err := fakeScores{m}.GetBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, score.AITotal)
	assert.InDelta(t, 7.35, *score.AITotal, 1e-9)
	assert.InDelta(t, 8.0, *score.AICommunication, 1e-9)
	assert.InDelta(t, 7.0, *score.AIContent, 1e-9)
	assert.InDelta(t, 6.0, *score.AIConfidence, 1e-9)

	b, err := os.ReadFile(filepath.Join(c.EvaluationDir, "s1.json"))
	require.NoError(t, err)
	var artifact struct {
		SessionID string  `json:"session_id"`
		Final     float64 `json:"final"`
		Label     string  `json:"label"`
		Answers   []struct {
			QuestionID string `json:"question_id"`
			Transcript string `json:"transcript"`
		} `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(b, &artifact))
	assert.Equal(t, "s1", artifact.SessionID)
	assert.InDelta(t, 7.35, artifact.Final, 1e-9)
	assert.Equal(t, "Good", artifact.Label)
	require.Len(t, artifact.Answers, 2)
	assert.Equal(t, "q1", artifact.Answers[0].QuestionID)
	assert.NotEmpty(t, artifact.Answers[0].Transcript)
}

func TestCoordinatorRevertsOnExhaustedRetries(t *testing.T) {
	m := newMem()
	seedSubmitted(t, m, "s1")
	c := newCoordinator(t, m, fixedScorer{nil})

	assert.True(t, c.Schedule("s1"))
	c.Wait()

	session, err := fakeSessions{m}.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionSubmitted, session.Status)

	_, err = fakeScores{m}.GetBySession(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// blockingScorer parks until released so tests can observe in-flight state.
type blockingScorer struct {
	release chan struct{}
}

func (s blockingScorer) ScoreAnswer(_ domain.Context, _, _ string, _ domain.VideoMetrics) (*domain.LLMScore, error) {
	<-s.release
	return &domain.LLMScore{Communication: 8, Content: 7, Relevance: 7, Confidence: 6}, nil
}

func TestCoordinatorScheduleDeduplicates(t *testing.T) {
	m := newMem()
	seedSubmitted(t, m, "s1")
	scorer := blockingScorer{release: make(chan struct{})}
	c := newCoordinator(t, m, scorer)

	assert.True(t, c.Schedule("s1"))
	assert.False(t, c.Schedule("s1"))
	close(scorer.release)
	c.Wait()

	session, err := fakeSessions{m}.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, session.Status)
}

func TestCoordinatorSkipsCompletedWithScore(t *testing.T) {
	m := newMem()
	seedSubmitted(t, m, "s1")
	ctx := context.Background()
	require.NoError(t, fakeSessions{m}.MarkCompleted(ctx, "s1", "Excellent"))
	existing := 9.1
	require.NoError(t, fakeScores{m}.UpsertAI(ctx, domain.Score{SessionID: "s1", AITotal: &existing}))

	// A scorer that would produce a different total must never be reached.
	c := newCoordinator(t, m, fixedScorer{&domain.LLMScore{Communication: 1, Content: 1, Relevance: 1, Confidence: 1}})
	assert.True(t, c.Schedule("s1"))
	c.Wait()

	score, err := fakeScores{m}.GetBySession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, score.AITotal)
	assert.InDelta(t, 9.1, *score.AITotal, 1e-9)
	session, err := fakeSessions{m}.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Excellent", session.StatusLabel)
}

func TestCoordinatorEnqueuePending(t *testing.T) {
	m := newMem()
	seedSubmitted(t, m, "s1")
	seedSubmitted(t, m, "s2")
	c := newCoordinator(t, m, fixedScorer{&domain.LLMScore{Communication: 8, Content: 7, Relevance: 7, Confidence: 6}})

	assert.Equal(t, 2, c.EnqueuePending(context.Background()))
	c.Wait()

	for _, id := range []string{"s1", "s2"} {
		session, err := fakeSessions{m}.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionCompleted, session.Status, "session %s", id)
	}
	assert.Equal(t, 0, c.EnqueuePending(context.Background()))
}

func TestCoordinatorRequiresAnsweredQuestions(t *testing.T) {
	m := newMem()
	ctx := context.Background()
	require.NoError(t, fakeSessions{m}.Create(ctx, domain.Session{ID: "s1", Status: domain.SessionSubmitted}))
	require.NoError(t, fakeQuestions{m}.CreateBatch(ctx, []domain.SessionQuestion{
		{SessionID: "s1", QuestionID: "q1", QuestionText: "Tell me about yourself.", OrderIndex: 0},
	}))

	c := newCoordinator(t, m, fixedScorer{&domain.LLMScore{Communication: 8, Content: 7, Relevance: 7, Confidence: 6}})
	assert.True(t, c.Schedule("s1"))
	c.Wait()

	session, err := fakeSessions{m}.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionSubmitted, session.Status)
}
