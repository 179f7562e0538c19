package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetngreet/interview-backend/internal/domain"
	"github.com/meetngreet/interview-backend/internal/usecase"
)

type adminRig struct {
	srv     *Server
	router  *chi.Mux
	store   *memStore
	evalDir string
}

func newAdminRig(t *testing.T) adminRig {
	t.Helper()
	m := newMemStore()
	evalDir := t.TempDir()
	admin := &usecase.AdminService{
		Sessions:      stubSessions{m},
		Questions:     stubQuestions{m},
		Responses:     stubResponses{m},
		Scores:        stubScores{m},
		EvaluationDir: evalDir,
	}
	srv := NewServer(testConfig(), nil, nil, admin, stubUsers{m}, nil, nil, nil)

	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		r.Get("/results", srv.AdminResultsHandler())
		r.Get("/sessions/{id}", srv.AdminSessionHandler())
		r.Post("/sessions/{id}/evaluate", srv.AdminEvaluateHandler())
		r.Put("/sessions/{id}/score", srv.AdminScoreHandler())
		r.Get("/sessions/{id}/json", srv.AdminArtifactHandler())
		r.Get("/sessions/{id}/responses/{rid}/media", srv.AdminMediaHandler())
		r.Delete("/sessions/{id}", srv.AdminDeleteHandler())
	})
	return adminRig{srv: srv, router: r, store: m, evalDir: evalDir}
}

func seedScoredSession(t *testing.T, rig adminRig, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, stubSessions{rig.store}.Create(ctx, domain.Session{
		ID:             id,
		CandidateID:    "jane@example.com",
		CandidateName:  "Jane Doe",
		CandidateEmail: "jane@example.com",
		Status:         domain.SessionSubmitted,
	}))
	require.NoError(t, stubQuestions{rig.store}.CreateBatch(ctx, []domain.SessionQuestion{{
		SessionID:    id,
		QuestionID:   "q1",
		QuestionText: "Walk me through a recent project you owned.",
		OrderIndex:   0,
	}}))
	_, err := stubResponses{rig.store}.Create(ctx, domain.Response{
		SessionID:  id,
		QuestionID: "q1",
		Transcript: "I led the rollout end to end.",
		MediaMIME:  "audio/wav",
		MediaBlob:  []byte("blob-bytes"),
	})
	require.NoError(t, err)

	total := 7.35
	comm, content, conf := 8.0, 7.0, 6.0
	require.NoError(t, stubScores{rig.store}.UpsertAI(ctx, domain.Score{
		SessionID:       id,
		CandidateID:     "jane@example.com",
		AICommunication: &comm,
		AIContent:       &content,
		AIConfidence:    &conf,
		AITotal:         &total,
	}))
	require.NoError(t, stubSessions{rig.store}.MarkCompleted(ctx, id, "Good"))
}

func TestAdminResultsHandler(t *testing.T) {
	rig := newAdminRig(t)
	seedScoredSession(t, rig, "s1")

	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Results []struct {
			Session struct {
				ID          string
				Status      domain.SessionStatus
				StatusLabel string
			} `json:"session"`
			Score *struct {
				AITotal *float64
			} `json:"score"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Results, 1)
	assert.Equal(t, "s1", got.Results[0].Session.ID)
	assert.Equal(t, domain.SessionCompleted, got.Results[0].Session.Status)
	require.NotNil(t, got.Results[0].Score)
	require.NotNil(t, got.Results[0].Score.AITotal)
	assert.InDelta(t, 7.35, *got.Results[0].Score.AITotal, 1e-9)
}

func TestAdminSessionHandler(t *testing.T) {
	rig := newAdminRig(t)
	seedScoredSession(t, rig, "s1")

	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/sessions/s1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/sessions/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEvaluateHandlerWithoutCoordinator(t *testing.T) {
	rig := newAdminRig(t)
	seedScoredSession(t, rig, "s1")

	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/sessions/s1/evaluate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "EVALUATION_UNAVAILABLE", envelope.Error.Code)

	rec = httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/sessions/missing/evaluate", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminScoreHandler(t *testing.T) {
	rig := newAdminRig(t)
	seedScoredSession(t, rig, "s1")

	body := bytes.NewBufferString(`{"communication":9,"content":8,"confidence":7}`)
	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/sessions/s1/score", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var score struct {
		EvaluatorTotal *float64
		AITotal        *float64
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &score))
	require.NotNil(t, score.EvaluatorTotal)
	assert.InDelta(t, 8.35, *score.EvaluatorTotal, 1e-9)
	require.NotNil(t, score.AITotal)
	assert.InDelta(t, 7.35, *score.AITotal, 1e-9)
}

func TestAdminScoreHandlerValidation(t *testing.T) {
	rig := newAdminRig(t)
	seedScoredSession(t, rig, "s1")

	body := bytes.NewBufferString(`{"communication":10.5}`)
	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/sessions/s1/score", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_ARGUMENT", envelope.Error.Code)
	assert.Equal(t, "lte", envelope.Error.Details["Communication"])

	rec = httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/sessions/s1/score",
		bytes.NewBufferString("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminArtifactHandler(t *testing.T) {
	rig := newAdminRig(t)
	artifact := []byte(`{"session_id":"s1","final_score":7.35}`)
	require.NoError(t, os.WriteFile(filepath.Join(rig.evalDir, "s1.json"), artifact, 0o600))

	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/sessions/s1/json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, artifact, rec.Body.Bytes())

	rec = httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/sessions/missing/json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminMediaHandler(t *testing.T) {
	rig := newAdminRig(t)
	seedScoredSession(t, rig, "s1")

	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/sessions/s1/responses/1/media", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte("blob-bytes"), rec.Body.Bytes())

	rec = httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/sessions/s1/responses/abc/media", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/sessions/s1/responses/999/media", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDeleteHandler(t *testing.T) {
	rig := newAdminRig(t)
	seedScoredSession(t, rig, "s1")
	require.NoError(t, os.WriteFile(filepath.Join(rig.evalDir, "s1.json"), []byte("{}"), 0o600))

	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/sessions/s1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := stubSessions{rig.store}.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, statErr := os.Stat(filepath.Join(rig.evalDir, "s1.json"))
	assert.True(t, os.IsNotExist(statErr))
}
