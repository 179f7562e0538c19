package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// recentSessionsLimit bounds the admin results listing.
const recentSessionsLimit = 100

// AdminService backs the evaluator-facing surface: results listing, session
// detail, manual evaluation, score override, and deletion.
type AdminService struct {
	Sessions  domain.SessionRepository
	Questions domain.SessionQuestionRepository
	Responses domain.ResponseRepository
	Scores    domain.ScoreRepository
	Media     domain.MediaStore
	Mirror    domain.MirrorStore

	Coordinator   *Coordinator
	EvaluationDir string
}

// SessionResult is one row of the admin results listing.
type SessionResult struct {
	Session domain.Session `json:"session"`
	Score   *domain.Score  `json:"score,omitempty"`
}

// ListResults returns the latest sessions with their scores and
// opportunistically re-enqueues submitted sessions that still lack one.
// A non-positive limit falls back to the default cap.
func (a *AdminService) ListResults(ctx domain.Context, limit int) ([]SessionResult, error) {
	if a.Coordinator != nil {
		if n := a.Coordinator.EnqueuePending(ctx); n > 0 {
			slog.Info("re-enqueued pending evaluations", slog.Int("count", n))
		}
	}

	if limit <= 0 || limit > recentSessionsLimit {
		limit = recentSessionsLimit
	}
	sessions, err := a.Sessions.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SessionResult, 0, len(sessions))
	for _, s := range sessions {
		row := SessionResult{Session: s}
		if score, err := a.Scores.GetBySession(ctx, s.ID); err == nil {
			row.Score = &score
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// SessionDetail bundles everything the admin detail page shows. Response
// blobs are omitted; media is served by its own endpoint.
type SessionDetail struct {
	Session   domain.Session           `json:"session"`
	Questions []domain.SessionQuestion `json:"questions"`
	Responses []domain.Response        `json:"responses"`
	Score     *domain.Score            `json:"score,omitempty"`
}

// GetDetail loads the full session view.
func (a *AdminService) GetDetail(ctx domain.Context, sessionID string) (SessionDetail, error) {
	session, err := a.Sessions.Get(ctx, sessionID)
	if err != nil {
		return SessionDetail{}, err
	}
	questions, err := a.Questions.ListBySession(ctx, sessionID)
	if err != nil {
		return SessionDetail{}, err
	}
	responses, err := a.Responses.ListBySession(ctx, sessionID)
	if err != nil {
		return SessionDetail{}, err
	}
	for i := range responses {
		responses[i].MediaBlob = nil
	}
	detail := SessionDetail{Session: session, Questions: questions, Responses: responses}
	if score, err := a.Scores.GetBySession(ctx, sessionID); err == nil {
		detail.Score = &score
	} else if !errors.Is(err, domain.ErrNotFound) {
		return SessionDetail{}, err
	}
	return detail, nil
}

// TriggerEvaluation schedules an evaluation for the session regardless of
// its current answer state.
func (a *AdminService) TriggerEvaluation(ctx domain.Context, sessionID string) (bool, error) {
	session, err := a.Sessions.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if session.Status == domain.SessionInProgress {
		if err := a.Sessions.UpdateStatus(ctx, sessionID, domain.SessionSubmitted); err != nil {
			return false, err
		}
	}
	if a.Coordinator == nil {
		return false, fmt.Errorf("%w: no evaluation coordinator", domain.ErrEvaluationUnavailable)
	}
	return a.Coordinator.Schedule(sessionID), nil
}

// OverrideScore writes the evaluator-entered dimensions. The total is
// recomputed with the standard weights only when all three dimensions are
// present; otherwise it is cleared.
func (a *AdminService) OverrideScore(ctx domain.Context, sessionID string, communication, content, confidence *float64) (domain.Score, error) {
	for _, v := range []*float64{communication, content, confidence} {
		if v != nil && (*v < 0 || *v > 10) {
			return domain.Score{}, fmt.Errorf("%w: scores must be in [0,10]", domain.ErrInvalidArgument)
		}
	}

	var total *float64
	if communication != nil && content != nil && confidence != nil {
		t := round2(weightCommunication**communication + weightContent**content + weightConfidence**confidence)
		total = &t
	}
	if err := a.Scores.UpdateEvaluator(ctx, sessionID, communication, content, confidence, total); err != nil {
		return domain.Score{}, err
	}

	score, err := a.Scores.GetBySession(ctx, sessionID)
	if err != nil {
		return domain.Score{}, err
	}
	a.syncMirror(ctx, sessionID)
	return score, nil
}

// DeleteSession removes the session, its children, on-disk media, the
// evaluation artifact, and the mirrored copy.
func (a *AdminService) DeleteSession(ctx domain.Context, sessionID string) error {
	responses, err := a.Responses.ListBySession(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	for _, r := range responses {
		if r.MediaPath == "" {
			continue
		}
		if err := a.Media.Remove(r.MediaPath); err != nil {
			slog.Warn("media removal failed", slog.String("path", r.MediaPath), slog.Any("error", err))
		}
	}

	if err := a.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	if a.EvaluationDir != "" {
		artifact := filepath.Join(a.EvaluationDir, sessionID+".json")
		if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
			slog.Warn("artifact removal failed", slog.String("path", artifact), slog.Any("error", err))
		}
	}
	if a.Mirror != nil && a.Mirror.Enabled() {
		a.Mirror.DeleteSession(ctx, sessionID)
	}
	return nil
}

// Artifact returns the stored evaluation JSON for a session.
func (a *AdminService) Artifact(sessionID string) ([]byte, error) {
	if a.EvaluationDir == "" {
		return nil, fmt.Errorf("op=admin.artifact: %w", domain.ErrNotFound)
	}
	b, err := os.ReadFile(filepath.Join(a.EvaluationDir, sessionID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("op=admin.artifact: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("op=admin.artifact: %w", err)
	}
	return b, nil
}

// ResponseMedia returns a reader for a response's media, preferring the disk
// file and falling back to the inline blob.
func (a *AdminService) ResponseMedia(ctx domain.Context, responseID int64) (domain.Response, []byte, error) {
	resp, err := a.Responses.Get(ctx, responseID)
	if err != nil {
		return domain.Response{}, nil, err
	}
	if resp.MediaPath != "" {
		if b, err := os.ReadFile(resp.MediaPath); err == nil {
			return resp, b, nil
		}
	}
	if len(resp.MediaBlob) > 0 {
		return resp, resp.MediaBlob, nil
	}
	return domain.Response{}, nil, fmt.Errorf("op=admin.media: %w", domain.ErrNotFound)
}

func (a *AdminService) syncMirror(ctx domain.Context, sessionID string) {
	if a.Coordinator == nil {
		return
	}
	a.Coordinator.syncMirror(ctx, sessionID)
}
