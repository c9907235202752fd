package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thisdougb/gamehealth/internal/config"
)

// NewRouter registers the health routes. promHandler serves GET /metrics
// and may be nil.
func NewRouter(svc HealthService, promHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(correlationMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", HealthHandler(svc))
		r.Get("/status", StatusHandler(svc))
	})

	r.Route("/logs", func(r chi.Router) {
		r.Get("/", LogsHandler(svc))
		r.Delete("/", ClearLogsHandler(svc))
		r.Get("/history", EventHistoryHandler(svc))
	})

	r.Get("/summary", SummaryHandler(svc))
	r.Get("/export", ExportHandler(svc))

	r.Get("/metrics/stats/{name}", MetricStatsHandler(svc))
	r.Get("/metrics/history/{name}", MetricHistoryHandler(svc))
	if promHandler != nil {
		r.Method(http.MethodGet, "/metrics", promHandler)
	}

	return r
}

func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := config.SetContextCorrelationId(r.Context(), "http")
		if reqID := r.Header.Get("X-Request-Id"); reqID != "" {
			ctx = config.AppendToContextCorrelationId(ctx, reqID)
		}
		w.Header().Set("X-Request-Id", config.GetContextCorrelationId(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				config.LogError(r.Context(), fmt.Sprintf("panic recovered in %s %s: %v", r.Method, r.URL.Path, rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		config.LogDebug(r.Context(), fmt.Sprintf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond)))
	})
}
