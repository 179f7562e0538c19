package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meetngreet/interview-backend/internal/adapter/observability"
	"github.com/meetngreet/interview-backend/internal/domain"
)

// evaluationRetryDelays: three attempts at 0s, 2s, 5s.
var evaluationRetryDelays = []time.Duration{0, 2 * time.Second, 5 * time.Second}

// pendingRetryLimit caps how many stuck sessions the pull-based retry path
// re-enqueues per admin listing.
const pendingRetryLimit = 20

// Coordinator runs session evaluations in background goroutines. An
// in-flight set guarded by a mutex ensures at most one evaluation per
// session id within this process; there is no cross-process guarantee.
type Coordinator struct {
	Sessions  domain.SessionRepository
	Questions domain.SessionQuestionRepository
	Responses domain.ResponseRepository
	Scores    domain.ScoreRepository
	Users     domain.UserRepository

	Transcriber TranscriptionService
	Video       VideoAnalyzer
	Scorer      domain.AnswerScorer
	Mirror      domain.MirrorStore

	// EvaluationDir receives one JSON artifact per completed evaluation.
	EvaluationDir string

	// RetryDelays overrides the default 0s/2s/5s attempt schedule.
	RetryDelays []time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(
	sessions domain.SessionRepository,
	questions domain.SessionQuestionRepository,
	responses domain.ResponseRepository,
	scores domain.ScoreRepository,
	users domain.UserRepository,
	transcriber TranscriptionService,
	video VideoAnalyzer,
	scorer domain.AnswerScorer,
	mirror domain.MirrorStore,
	evaluationDir string,
) *Coordinator {
	return &Coordinator{
		Sessions:      sessions,
		Questions:     questions,
		Responses:     responses,
		Scores:        scores,
		Users:         users,
		Transcriber:   transcriber,
		Video:         video,
		Scorer:        scorer,
		Mirror:        mirror,
		EvaluationDir: evaluationDir,
		inFlight:      map[string]struct{}{},
	}
}

// Schedule starts a background evaluation for the session unless one is
// already running. It returns immediately.
func (c *Coordinator) Schedule(sessionID string) bool {
	c.mu.Lock()
	if _, running := c.inFlight[sessionID]; running {
		c.mu.Unlock()
		return false
	}
	c.inFlight[sessionID] = struct{}{}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inFlight, sessionID)
			c.mu.Unlock()
		}()
		c.run(context.Background(), sessionID)
	}()
	return true
}

// Wait blocks until all in-flight evaluations finish. Used on shutdown.
func (c *Coordinator) Wait() { c.wg.Wait() }

// EnqueuePending re-schedules submitted sessions that still lack a score.
// Called opportunistically from the admin results listing.
func (c *Coordinator) EnqueuePending(ctx domain.Context) int {
	ids, err := c.Sessions.ListPendingEvaluation(ctx, pendingRetryLimit)
	if err != nil {
		slog.Warn("pending evaluation listing failed", slog.Any("error", err))
		return 0
	}
	scheduled := 0
	for _, id := range ids {
		if c.Schedule(id) {
			scheduled++
		}
	}
	return scheduled
}

// run drives the retry loop. Exhausted retries leave the session in
// submitted so the pull-based retry path can pick it up later.
func (c *Coordinator) run(ctx domain.Context, sessionID string) {
	start := time.Now()
	observability.StartEvaluation()

	delays := c.RetryDelays
	if len(delays) == 0 {
		delays = evaluationRetryDelays
	}
	var lastErr error
	for attempt, delay := range delays {
		if delay > 0 {
			time.Sleep(delay)
		}
		final, err := c.evaluateOnce(ctx, sessionID)
		if err == nil {
			observability.CompleteEvaluation(time.Since(start), final)
			slog.Info("evaluation completed",
				slog.String("session_id", sessionID),
				slog.Float64("final", final),
				slog.Int("attempts", attempt+1))
			return
		}
		lastErr = err
		slog.Warn("evaluation attempt failed",
			slog.String("session_id", sessionID),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}

	observability.FailEvaluation(time.Since(start))
	slog.Error("evaluation failed after retries", slog.String("session_id", sessionID), slog.Any("error", lastErr))
	if err := c.Sessions.UpdateStatus(ctx, sessionID, domain.SessionSubmitted); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Error("status reversion failed", slog.String("session_id", sessionID), slog.Any("error", err))
	}
}

// answerEvaluation is the persisted per-answer artifact entry.
type answerEvaluation struct {
	QuestionID   string              `json:"question_id"`
	QuestionText string              `json:"question_text"`
	Transcript   string              `json:"transcript"`
	VideoMetrics domain.VideoMetrics `json:"video_metrics"`
	Score        domain.AnswerScore  `json:"score"`
}

type evaluationArtifact struct {
	SessionID        string             `json:"session_id"`
	CandidateID      string             `json:"candidate_id"`
	EvaluatedAt      time.Time          `json:"evaluated_at"`
	Answers          []answerEvaluation `json:"answers"`
	AvgCommunication float64            `json:"avg_communication"`
	AvgContent       float64            `json:"avg_content"`
	AvgConfidence    float64            `json:"avg_confidence"`
	Final            float64            `json:"final"`
	Label            string             `json:"label"`
}

func (c *Coordinator) evaluateOnce(ctx domain.Context, sessionID string) (float64, error) {
	session, err := c.Sessions.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if session.Status == domain.SessionCompleted {
		if _, err := c.Scores.GetBySession(ctx, sessionID); err == nil {
			return 0, nil
		}
	}

	questions, err := c.Questions.ListBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	responses, err := c.Responses.ListBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	byQuestion := make(map[string]domain.Response, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}

	var commTotal, contentTotal, confTotal float64
	var answers []answerEvaluation
	for _, q := range questions {
		resp, ok := byQuestion[q.QuestionID]
		if !ok {
			continue
		}
		ans, err := c.evaluateResponse(ctx, q, resp)
		if err != nil {
			return 0, fmt.Errorf("question %s: %w", q.QuestionID, err)
		}
		commTotal += ans.Score.Communication
		contentTotal += ans.Score.Content
		confTotal += ans.Score.Confidence
		answers = append(answers, ans)
	}
	if len(answers) == 0 {
		return 0, fmt.Errorf("%w: no answered questions", domain.ErrEvaluationUnavailable)
	}

	n := float64(len(answers))
	avgComm := round2(commTotal / n)
	avgContent := round2(contentTotal / n)
	avgConf := round2(confTotal / n)
	final := round2(weightCommunication*commTotal/n + weightContent*contentTotal/n + weightConfidence*confTotal/n)
	label := ClassifyScore(final)

	score := domain.Score{
		SessionID:       session.ID,
		CandidateID:     session.CandidateID,
		CandidateName:   session.CandidateName,
		CandidateEmail:  session.CandidateEmail,
		AICommunication: &avgComm,
		AIContent:       &avgContent,
		AIConfidence:    &avgConf,
		AITotal:         &final,
	}
	if err := c.Scores.UpsertAI(ctx, score); err != nil {
		return 0, err
	}
	if err := c.Sessions.MarkCompleted(ctx, session.ID, label); err != nil {
		return 0, err
	}

	c.writeArtifact(evaluationArtifact{
		SessionID:        session.ID,
		CandidateID:      session.CandidateID,
		EvaluatedAt:      time.Now().UTC(),
		Answers:          answers,
		AvgCommunication: avgComm,
		AvgContent:       avgContent,
		AvgConfidence:    avgConf,
		Final:            final,
		Label:            label,
	})
	c.syncMirror(ctx, session.ID)
	return final, nil
}

// evaluateResponse recomputes the transcript unconditionally, derives video
// metrics, and scores the answer. A missing model score aborts the whole
// session evaluation; partial credit is not given.
func (c *Coordinator) evaluateResponse(ctx domain.Context, q domain.SessionQuestion, resp domain.Response) (answerEvaluation, error) {
	mediaPath, cleanup, err := c.materializeMedia(resp)
	if err != nil {
		slog.Warn("media unavailable for evaluation",
			slog.String("session_id", resp.SessionID),
			slog.String("question_id", resp.QuestionID),
			slog.Any("error", err))
		mediaPath = ""
	}
	if cleanup != nil {
		defer cleanup()
	}

	transcript := c.Transcriber.Transcribe(ctx, mediaPath, resp.MediaFilename, resp.Transcript)
	if transcript != resp.Transcript {
		if err := c.Responses.UpdateTranscript(ctx, resp.ID, transcript); err != nil {
			slog.Warn("transcript persist failed", slog.Int64("response_id", resp.ID), slog.Any("error", err))
		}
	}

	metrics := defaultVideoMetrics()
	if mediaPath != "" {
		metrics = c.Video.Analyze(ctx, mediaPath)
	}

	llm, err := c.Scorer.ScoreAnswer(ctx, q.QuestionText, transcript, metrics)
	if err != nil {
		return answerEvaluation{}, err
	}
	ans, err := ScoreAnswer(llm)
	if err != nil {
		return answerEvaluation{}, err
	}

	return answerEvaluation{
		QuestionID:   q.QuestionID,
		QuestionText: q.QuestionText,
		Transcript:   transcript,
		VideoMetrics: metrics,
		Score:        ans,
	}, nil
}

// materializeMedia returns a readable path for the response media, writing
// the inline blob to a temp file when the disk copy is gone.
func (c *Coordinator) materializeMedia(resp domain.Response) (string, func(), error) {
	if resp.MediaPath != "" {
		if _, err := os.Stat(resp.MediaPath); err == nil {
			return resp.MediaPath, nil, nil
		}
	}
	if len(resp.MediaBlob) == 0 {
		return "", nil, fmt.Errorf("%w: no media on disk or inline", domain.ErrNotFound)
	}
	ext := filepath.Ext(resp.MediaFilename)
	if ext == "" {
		ext = ".webm"
	}
	tmp, err := os.CreateTemp("", "eval-media-*"+ext)
	if err != nil {
		return "", nil, err
	}
	if _, err := tmp.Write(resp.MediaBlob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, err
	}
	path := tmp.Name()
	return path, func() { _ = os.Remove(path) }, nil
}

func (c *Coordinator) writeArtifact(artifact evaluationArtifact) {
	if c.EvaluationDir == "" {
		return
	}
	if err := os.MkdirAll(c.EvaluationDir, 0o750); err != nil {
		slog.Warn("evaluation dir unavailable", slog.Any("error", err))
		return
	}
	b, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		slog.Warn("artifact marshal failed", slog.Any("error", err))
		return
	}
	path := filepath.Join(c.EvaluationDir, artifact.SessionID+".json")
	if err := os.WriteFile(path, b, 0o640); err != nil {
		slog.Warn("artifact write failed", slog.String("path", path), slog.Any("error", err))
	}
}

// syncMirror replicates the freshly evaluated session, best effort.
func (c *Coordinator) syncMirror(ctx domain.Context, sessionID string) {
	if c.Mirror == nil || !c.Mirror.Enabled() {
		return
	}
	snap, err := c.snapshot(ctx, sessionID)
	if err != nil {
		slog.Warn("mirror snapshot failed", slog.String("session_id", sessionID), slog.Any("error", err))
		return
	}
	c.Mirror.SyncSession(ctx, snap)
}

func (c *Coordinator) snapshot(ctx domain.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, err := c.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	questions, err := c.Questions.ListBySession(ctx, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	responses, err := c.Responses.ListBySession(ctx, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	snap := domain.SessionSnapshot{Session: session, Questions: questions, Responses: responses}
	if score, err := c.Scores.GetBySession(ctx, sessionID); err == nil {
		snap.Score = &score
	}
	if user, err := c.Users.FindByEmail(ctx, session.CandidateEmail); err == nil {
		snap.User = &user
	}
	return snap, nil
}
