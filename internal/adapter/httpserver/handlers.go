package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/meetngreet/interview-backend/internal/config"
	"github.com/meetngreet/interview-backend/internal/domain"
	"github.com/meetngreet/interview-backend/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg      config.Config
	Sessions *usecase.SessionService
	Uploads  *usecase.UploadService
	Admin    *usecase.AdminService
	Users    domain.UserRepository

	DBCheck     func(ctx context.Context) error
	MirrorCheck func(ctx context.Context) error
	LLMCheck    func(ctx context.Context) error

	jwks jwksCache
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, sessions *usecase.SessionService, uploads *usecase.UploadService, admin *usecase.AdminService, users domain.UserRepository, dbCheck, mirrorCheck, llmCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:      cfg,
		Sessions: sessions,
		Uploads:  uploads,
		Admin:    admin,
		Users:    users,

		DBCheck:     dbCheck,
		MirrorCheck: mirrorCheck,
		LLMCheck:    llmCheck,
	}
}

type sessionQuestionView struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	Topic      string `json:"topic,omitempty"`
	OrderIndex int    `json:"order_index"`
}

// StartHandler creates a session with its selected questions for the
// authenticated candidate.
func (s *Server) StartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r)
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthorized), nil)
			return
		}
		session, questions, err := s.Sessions.Start(r.Context(), domain.User{
			UniqueID: id.UniqueID,
			Name:     id.Name,
			Email:    id.Email,
			Provider: id.Provider,
		})
		if err != nil {
			writeError(w, r, fmt.Errorf("session start: %w", err), nil)
			return
		}
		views := make([]sessionQuestionView, 0, len(questions))
		for _, q := range questions {
			views = append(views, sessionQuestionView{
				QuestionID: q.QuestionID,
				Text:       q.QuestionText,
				Topic:      q.Topic,
				OrderIndex: q.OrderIndex,
			})
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"session_id": session.ID,
			"status":     session.Status,
			"questions":  views,
		})
	}
}

// allowedMediaMIME accepts sniffed audio and video payloads. WebM audio-only
// recordings sniff as video/webm, so the video prefix covers them.
func allowedMediaMIME(m string) bool {
	m = strings.ToLower(m)
	return strings.HasPrefix(m, "video/") || strings.HasPrefix(m, "audio/")
}

// UploadHandler accepts one multipart answer upload: session_id, question_id,
// an optional duration and transcript hint, and the media file.
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r)
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthorized), nil)
			return
		}
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code: "INVALID_ARGUMENT", Message: "payload too large",
					Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		sessionID := r.FormValue("session_id")
		questionID := r.FormValue("question_id")
		if sessionID == "" || questionID == "" {
			writeError(w, r, fmt.Errorf("%w: session_id and question_id required", domain.ErrInvalidArgument), nil)
			return
		}
		var duration *float64
		if v := r.FormValue("duration_seconds"); v != "" {
			d, err := strconv.ParseFloat(v, 64)
			if err != nil || d < 0 {
				writeError(w, r, fmt.Errorf("%w: invalid duration_seconds", domain.ErrInvalidArgument), nil)
				return
			}
			duration = &d
		}

		file, header, err := r.FormFile("media")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: media file required", domain.ErrInvalidArgument), map[string]string{"field": "media"})
			return
		}
		defer func() { _ = file.Close() }()

		// Sniff content from the first chunk, then stitch the reader back
		// together so storage still streams.
		head := make([]byte, 3072)
		n, err := io.ReadFull(file, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			writeError(w, r, fmt.Errorf("%w: media read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		head = head[:n]
		mt := mimetype.Detect(head)
		if !allowedMediaMIME(mt.String()) {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "unsupported media type",
				Details: map[string]any{"mime": mt.String(), "filename": header.Filename},
			}})
			return
		}
		media := io.MultiReader(bytes.NewReader(head), file)

		resp, created, err := s.Uploads.SaveResponse(r.Context(),
			sessionID, id.CandidateID, questionID,
			header.Filename, mt.String(), media, duration, r.FormValue("transcript"))
		if err != nil {
			writeError(w, r, fmt.Errorf("upload: %w", err), nil)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]any{
			"response_id": resp.ID,
			"session_id":  resp.SessionID,
			"question_id": resp.QuestionID,
			"created":     created,
		})
	}
}

// ProgressHandler reports upload progress for the candidate's own session.
func (s *Server) ProgressHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r)
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthorized), nil)
			return
		}
		progress, err := s.Sessions.GetProgress(r.Context(), chi.URLParam(r, "id"), id.CandidateID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, progress)
	}
}

// UploadStatusHandler reports whether one assigned question has an answer.
func (s *Server) UploadStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r)
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthorized), nil)
			return
		}
		statuses, err := s.Uploads.UploadStatus(r.Context(), chi.URLParam(r, "id"), id.CandidateID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		questionID := chi.URLParam(r, "qid")
		for _, st := range statuses {
			if st.QuestionID == questionID {
				writeJSON(w, http.StatusOK, st)
				return
			}
		}
		writeError(w, r, fmt.Errorf("%w: question %s not assigned", domain.ErrNotFound, questionID), nil)
	}
}

// ReadyzHandler probes the database, the mirror, and the LLM configuration.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 3)
		for _, probe := range []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"mirror", s.MirrorCheck},
			{"llm", s.LLMCheck},
		} {
			if probe.fn == nil {
				continue
			}
			if err := probe.fn(ctx); err != nil {
				checks = append(checks, check{Name: probe.name, OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: probe.name, OK: true})
			}
		}
		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
