// Package app wires application components and startup helpers.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/meetngreet/interview-backend/internal/adapter/httpserver"
	"github.com/meetngreet/interview-backend/internal/adapter/observability"
	"github.com/meetngreet/interview-backend/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming
// spaces. An empty input means any origin.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	reqTimeout := cfg.HTTPWriteTimeout
	if reqTimeout <= 0 {
		reqTimeout = 30 * time.Second
	}
	r.Use(httpserver.TimeoutMiddleware(reqTimeout))
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Auth flow. No session required; the callback creates one.
	r.Route("/api/auth", func(ar chi.Router) {
		ar.Get("/google", srv.LoginHandler("google"))
		ar.Get("/microsoft", srv.LoginHandler("microsoft"))
		ar.Get("/callback", srv.CallbackHandler())
		ar.Post("/logout", srv.LogoutHandler())
		ar.With(srv.RequireSession).Get("/session", srv.SessionHandler())
	})

	// Candidate API.
	r.Group(func(cr chi.Router) {
		cr.Use(srv.RequireSession)
		cr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		cr.Post("/api/candidates/start", srv.StartHandler())
		cr.Post("/api/responses/upload", srv.UploadHandler())
		cr.Get("/api/sessions/{id}", srv.ProgressHandler())
		cr.Get("/api/sessions/{id}/questions/{qid}/upload-status", srv.UploadStatusHandler())
	})

	// Admin API.
	if cfg.AdminEnabled() {
		r.Route("/api/admin", func(ar chi.Router) {
			ar.Use(srv.AdminGuard)
			ar.Get("/results", srv.AdminResultsHandler())
			ar.Get("/sessions/{id}", srv.AdminSessionHandler())
			ar.Post("/sessions/{id}/evaluate", srv.AdminEvaluateHandler())
			ar.Put("/sessions/{id}/score", srv.AdminScoreHandler())
			ar.Get("/sessions/{id}/json", srv.AdminArtifactHandler())
			ar.Get("/sessions/{id}/responses/{rid}/media", srv.AdminMediaHandler())
			ar.Delete("/sessions/{id}", srv.AdminDeleteHandler())
		})
	}

	// Health and metrics.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })

	return httpserver.SecurityHeaders(r)
}
