package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Total number of video uploads by outcome",
		},
		[]string{"outcome"},
	)

	TranscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcriptions_total",
			Help: "Total number of transcription attempts by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of LLM scoring calls by outcome",
		},
		[]string{"outcome"},
	)

	EvaluationsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evaluations_started_total",
			Help: "Total number of session evaluations started",
		},
	)
	EvaluationsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evaluations_completed_total",
			Help: "Total number of session evaluations completed",
		},
	)
	EvaluationsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evaluations_failed_total",
			Help: "Total number of session evaluations failed",
		},
	)
	EvaluationsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "evaluations_in_flight",
			Help: "Number of session evaluations currently running",
		},
	)
	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_duration_seconds",
			Help:    "Wall time of a full session evaluation",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	MirrorSyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_syncs_total",
			Help: "Total number of MySQL mirror sync attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Score distribution of completed evaluations ([0,10]).
	FinalScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_final_score",
			Help:    "Distribution of final session scores",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(UploadsTotal)
	prometheus.MustRegister(TranscriptionsTotal)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(EvaluationsStartedTotal)
	prometheus.MustRegister(EvaluationsCompletedTotal)
	prometheus.MustRegister(EvaluationsFailedTotal)
	prometheus.MustRegister(EvaluationsInFlight)
	prometheus.MustRegister(EvaluationDuration)
	prometheus.MustRegister(MirrorSyncsTotal)
	prometheus.MustRegister(FinalScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

func StartEvaluation() {
	EvaluationsStartedTotal.Inc()
	EvaluationsInFlight.Inc()
}

func CompleteEvaluation(elapsed time.Duration, finalScore float64) {
	EvaluationsInFlight.Dec()
	EvaluationsCompletedTotal.Inc()
	EvaluationDuration.Observe(elapsed.Seconds())
	if finalScore >= 0 && finalScore <= 10 {
		FinalScoreHistogram.Observe(finalScore)
	}
}

func FailEvaluation(elapsed time.Duration) {
	EvaluationsInFlight.Dec()
	EvaluationsFailedTotal.Inc()
	EvaluationDuration.Observe(elapsed.Seconds())
}
