package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meetngreet/interview-backend/internal/domain"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// AdminResultsHandler lists recent sessions with their scores.
func (s *Server) AdminResultsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows, err := s.Admin.ListResults(r.Context(), limit)
		if err != nil {
			writeError(w, r, fmt.Errorf("results: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": rows})
	}
}

// AdminSessionHandler returns the full session detail.
func (s *Server) AdminSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := s.Admin.GetDetail(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// AdminEvaluateHandler schedules a background evaluation for the session.
func (s *Server) AdminEvaluateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduled, err := s.Admin.TriggerEvaluation(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"scheduled": scheduled})
	}
}

// AdminScoreHandler writes the evaluator-entered score dimensions.
func (s *Server) AdminScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			Communication *float64 `json:"communication" validate:"omitempty,gte=0,lte=10"`
			Content       *float64 `json:"content" validate:"omitempty,gte=0,lte=10"`
			Confidence    *float64 `json:"confidence" validate:"omitempty,gte=0,lte=10"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			verrs := map[string]string{}
			if ve, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range ve {
					verrs[fe.Field()] = fe.Tag()
				}
			}
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
			return
		}
		score, err := s.Admin.OverrideScore(r.Context(), chi.URLParam(r, "id"), req.Communication, req.Content, req.Confidence)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, score)
	}
}

// AdminArtifactHandler serves the stored evaluation JSON.
func (s *Server) AdminArtifactHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := s.Admin.Artifact(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

// AdminMediaHandler serves a response's media, disk first then inline blob.
func (s *Server) AdminMediaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid, err := strconv.ParseInt(chi.URLParam(r, "rid"), 10, 64)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid response id", domain.ErrInvalidArgument), nil)
			return
		}
		resp, b, err := s.Admin.ResponseMedia(r.Context(), rid)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		mime := resp.MediaMIME
		if mime == "" {
			mime = "application/octet-stream"
		}
		w.Header().Set("Content-Type", mime)
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", resp.MediaFilename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

// AdminDeleteHandler deletes a session with its children, media, artifact,
// and mirrored copy.
func (s *Server) AdminDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Admin.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}
