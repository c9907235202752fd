package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thisdougb/gamehealth/internal/config"
	"github.com/thisdougb/gamehealth/internal/core"
	"github.com/thisdougb/gamehealth/internal/events"
	"github.com/thisdougb/gamehealth/internal/metrics"
	"github.com/thisdougb/gamehealth/internal/probe"
	"github.com/thisdougb/gamehealth/internal/storage"
)

// HealthService is what the handlers need from the service.
type HealthService interface {
	SessionID() string
	RunFullHealthCheck(ctx context.Context, subjectID string) (probe.SystemHealthReport, error)
	LastReport() (probe.SystemHealthReport, bool)
	GetLogs(filter events.Filter) []events.LogEvent
	ClearLogs(maxAge time.Duration) (eventsRemoved, metricsRemoved int)
	GetSystemSummary() core.Summary
	ExportLogs() ([]byte, error)
	MetricStats(name string) (metrics.Stats, bool)
	History(query storage.EventQuery) ([]storage.EventRecord, error)
	MetricHistory(name string, start, end time.Time) ([]storage.MetricWindow, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// ClearResponse reports what DELETE /logs removed.
type ClearResponse struct {
	EventsRemoved  int `json:"events_removed"`
	MetricsRemoved int `json:"metrics_removed"`
}

// HealthHandler runs a full health check, scoped to ?subject= when given.
// It answers 503 when the overall status is error.
func HealthHandler(svc HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.RunFullHealthCheck(r.Context(), r.URL.Query().Get("subject"))
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, reportStatusCode(report), report)
	}
}

// StatusHandler returns UP or DOWN for the last report, running a check
// when none exists yet. Returns 503 when the overall status is error.
func StatusHandler(svc HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := svc.LastReport()
		if !ok {
			var err error
			if report, err = svc.RunFullHealthCheck(r.Context(), ""); err != nil {
				writeText(w, http.StatusServiceUnavailable, "DOWN")
				return
			}
		}

		if report.Overall == probe.StatusError {
			writeText(w, http.StatusServiceUnavailable, "DOWN")
			return
		}
		writeText(w, http.StatusOK, "UP")
	}
}

// LogsHandler lists buffered events filtered by ?category=, ?subject= and
// ?module=.
func LogsHandler(svc HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		logs := svc.GetLogs(events.Filter{
			Category:  events.Category(q.Get("category")),
			SubjectID: q.Get("subject"),
			ModuleID:  q.Get("module"),
		})
		writeJSON(w, http.StatusOK, logs)
	}
}

// ClearLogsHandler purges buffered events and metrics older than
// ?max_age= (Go duration). Without max_age everything is cleared.
func ClearLogsHandler(svc HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var maxAge time.Duration
		if raw := r.URL.Query().Get("max_age"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d < 0 {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid max_age: %q", raw))
				return
			}
			maxAge = d
		}

		eventsRemoved, metricsRemoved := svc.ClearLogs(maxAge)
		config.LogInfo(r.Context(), fmt.Sprintf("cleared %d events and %d metrics", eventsRemoved, metricsRemoved))
		writeJSON(w, http.StatusOK, ClearResponse{EventsRemoved: eventsRemoved, MetricsRemoved: metricsRemoved})
	}
}

func SummaryHandler(svc HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.GetSystemSummary())
	}
}

// ExportHandler serves the snapshot of both buffers as a JSON download.
func ExportHandler(svc HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.ExportLogs()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", "gamehealth-"+svc.SessionID()+".json"))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

// MetricStatsHandler serves statistics of one metric name, 404 when none
// are buffered.
func MetricStatsHandler(svc HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		stats, ok := svc.MetricStats(name)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no metrics named %q", name))
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// EventHistoryHandler reads archived events. Supports ?category=,
// ?subject=, ?module=, ?lookback= (duration) and ?limit=.
func EventHistoryHandler(svc HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := storage.EventQuery{
			Category:  q.Get("category"),
			SubjectID: q.Get("subject"),
			ModuleID:  q.Get("module"),
		}

		if raw := q.Get("lookback"); raw != "" {
			lookback, err := time.ParseDuration(raw)
			if err != nil || lookback < 0 {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid lookback: %q", raw))
				return
			}
			query.Start = time.Now().Add(-lookback)
		}
		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %q", raw))
				return
			}
			query.Limit = limit
		}

		records, err := svc.History(query)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		if records == nil {
			records = []storage.EventRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func reportStatusCode(report probe.SystemHealthReport) int {
	if report.Overall == probe.StatusError {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrArchiveDisabled) {
		writeError(w, http.StatusServiceUnavailable, "history queries require persistence to be enabled")
		return
	}
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read archive: %v", err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	fmt.Fprintf(w, "%s\n", msg)
}
