package usecase

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/meetngreet/interview-backend/internal/adapter/observability"
	"github.com/meetngreet/interview-backend/internal/domain"
)

// UploadService stores answer uploads and flips sessions to submitted once
// every assigned question has exactly one response.
type UploadService struct {
	Sessions    domain.SessionRepository
	Questions   domain.SessionQuestionRepository
	Responses   domain.ResponseRepository
	Media       domain.MediaStore
	Coordinator *Coordinator
}

// SaveResponse persists one uploaded answer. Uploads are idempotent per
// (session, question): a repeat upload returns the existing response and the
// new payload is discarded, even after the session finished evaluating.
func (s *UploadService) SaveResponse(ctx domain.Context, sessionID, candidateID, questionID, filename, mimeType string, media io.Reader, duration *float64, transcriptHint string) (domain.Response, bool, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Response{}, false, err
	}
	if candidateID != "" && session.CandidateID != candidateID {
		return domain.Response{}, false, fmt.Errorf("%w: session belongs to another candidate", domain.ErrForbidden)
	}

	assigned, err := s.Questions.ListBySession(ctx, sessionID)
	if err != nil {
		return domain.Response{}, false, err
	}
	if !questionAssigned(assigned, questionID) {
		return domain.Response{}, false, fmt.Errorf("%w: question %s not assigned to session", domain.ErrInvalidArgument, questionID)
	}

	if existing, err := s.Responses.FindBySessionQuestion(ctx, sessionID, questionID); err == nil {
		observability.UploadsTotal.WithLabelValues("duplicate").Inc()
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Response{}, false, err
	}

	if session.Status == domain.SessionCompleted {
		return domain.Response{}, false, fmt.Errorf("%w: session already evaluated", domain.ErrConflict)
	}

	// Keep an inline copy alongside the disk file so media survives disk
	// cleanup for admin playback and re-evaluation.
	var blob bytes.Buffer
	stored, err := s.Media.Save(ctx, sessionID, questionID, filename, mimeType, io.TeeReader(media, &blob))
	if err != nil {
		observability.UploadsTotal.WithLabelValues("error").Inc()
		return domain.Response{}, false, err
	}

	resp := domain.Response{
		SessionID:       sessionID,
		QuestionID:      questionID,
		CandidateName:   session.CandidateName,
		CandidateEmail:  session.CandidateEmail,
		MediaFilename:   stored.Filename,
		MediaMIME:       stored.MIME,
		MediaBlob:       blob.Bytes(),
		MediaPath:       stored.Path,
		DurationSeconds: duration,
		Transcript:      transcriptHint,
	}
	id, err := s.Responses.Create(ctx, resp)
	if err != nil {
		_ = s.Media.Remove(stored.Path)
		// A racing upload may have won the unique constraint; surface the
		// winner instead of an error.
		if existing, findErr := s.Responses.FindBySessionQuestion(ctx, sessionID, questionID); findErr == nil {
			observability.UploadsTotal.WithLabelValues("duplicate").Inc()
			return existing, false, nil
		}
		observability.UploadsTotal.WithLabelValues("error").Inc()
		return domain.Response{}, false, err
	}
	resp.ID = id
	observability.UploadsTotal.WithLabelValues("ok").Inc()

	s.maybeSubmit(ctx, session, len(assigned))
	return resp, true, nil
}

// QuestionStatus reports whether one assigned question has an answer yet.
type QuestionStatus struct {
	QuestionID string `json:"question_id"`
	OrderIndex int    `json:"order_index"`
	Answered   bool   `json:"answered"`
	ResponseID int64  `json:"response_id,omitempty"`
}

// UploadStatus returns the per-question answer state for a session.
func (s *UploadService) UploadStatus(ctx domain.Context, sessionID, candidateID string) ([]QuestionStatus, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if candidateID != "" && session.CandidateID != candidateID {
		return nil, fmt.Errorf("%w: session belongs to another candidate", domain.ErrForbidden)
	}

	assigned, err := s.Questions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	responses, err := s.Responses.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[string]domain.Response, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}

	out := make([]QuestionStatus, 0, len(assigned))
	for _, q := range assigned {
		st := QuestionStatus{QuestionID: q.QuestionID, OrderIndex: q.OrderIndex}
		if r, ok := byQuestion[q.QuestionID]; ok {
			st.Answered = true
			st.ResponseID = r.ID
		}
		out = append(out, st)
	}
	return out, nil
}

// maybeSubmit flips the session to submitted and schedules evaluation when
// every assigned question now has a response.
func (s *UploadService) maybeSubmit(ctx domain.Context, session domain.Session, totalQuestions int) {
	answered, err := s.Responses.CountDistinctQuestions(ctx, session.ID)
	if err != nil {
		slog.Warn("answer count failed", slog.String("session_id", session.ID), slog.Any("error", err))
		return
	}
	if totalQuestions == 0 || answered < totalQuestions {
		return
	}

	if session.Status != domain.SessionSubmitted {
		if err := s.Sessions.UpdateStatus(ctx, session.ID, domain.SessionSubmitted); err != nil {
			slog.Warn("submit transition failed", slog.String("session_id", session.ID), slog.Any("error", err))
			return
		}
	}
	if s.Coordinator != nil {
		s.Coordinator.Schedule(session.ID)
	}
}

func questionAssigned(assigned []domain.SessionQuestion, questionID string) bool {
	for _, q := range assigned {
		if q.QuestionID == questionID {
			return true
		}
	}
	return false
}
