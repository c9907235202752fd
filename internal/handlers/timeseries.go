package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thisdougb/gamehealth/internal/storage"
)

// TimeSeriesParams holds parsed history query parameters
type TimeSeriesParams struct {
	Window    time.Duration
	Lookback  *time.Duration
	Lookahead *time.Duration
	Date      *time.Time
	Time      *time.Time
}

// RequestParams echoes the query parameters of a history request
type RequestParams struct {
	Window    string `json:"window,omitempty"`
	Lookback  string `json:"lookback,omitempty"`
	Lookahead string `json:"lookahead,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
}

// WindowSummary is one re-aggregated window of a metric.
type WindowSummary struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
	MinMs float64   `json:"min_ms"`
	MaxMs float64   `json:"max_ms"`
	AvgMs float64   `json:"avg_ms"`
}

// TimeSeriesResponse is the sar-style history of one metric
type TimeSeriesResponse struct {
	Metric        string          `json:"metric"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	ReferenceTime time.Time       `json:"reference_time"`
	RequestParams RequestParams   `json:"request_params"`
	Windows       []WindowSummary `json:"windows"`
}

// MetricHistoryHandler serves archived windows of the metric in the {name}
// URL parameter, re-aggregated to ?window=.
//
//	/metrics/history/{name}?window=5m&lookback=1h
//	/metrics/history/{name}?window=1h&lookahead=6h&date=2026-10-01&time=08:00
func MetricHistoryHandler(svc HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		params, err := parseTimeSeriesParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid parameters: %v", err))
			return
		}
		if params.Lookback != nil && params.Lookahead != nil {
			writeError(w, http.StatusBadRequest, "lookback and lookahead are mutually exclusive")
			return
		}
		if params.Lookback == nil && params.Lookahead == nil {
			writeError(w, http.StatusBadRequest, "either lookback or lookahead must be specified")
			return
		}

		reference := calculateReferenceTime(params, time.Now())
		start, end := reference, reference
		if params.Lookback != nil {
			start = reference.Add(-*params.Lookback)
		} else {
			end = reference.Add(*params.Lookahead)
		}

		windows, err := svc.MetricHistory(name, start, end)
		if err != nil {
			writeStorageError(w, err)
			return
		}

		q := r.URL.Query()
		writeJSON(w, http.StatusOK, TimeSeriesResponse{
			Metric:        name,
			StartTime:     start,
			EndTime:       end,
			ReferenceTime: reference,
			RequestParams: RequestParams{
				Window:    q.Get("window"),
				Lookback:  q.Get("lookback"),
				Lookahead: q.Get("lookahead"),
				Date:      q.Get("date"),
				Time:      q.Get("time"),
			},
			Windows: rebucket(windows, params.Window),
		})
	}
}

func parseTimeSeriesParams(r *http.Request) (*TimeSeriesParams, error) {
	q := r.URL.Query()
	params := &TimeSeriesParams{}

	windowStr := q.Get("window")
	if windowStr == "" {
		return nil, fmt.Errorf("window parameter is required")
	}
	window, err := time.ParseDuration(windowStr)
	if err != nil || window <= 0 {
		return nil, fmt.Errorf("invalid window duration: %q", windowStr)
	}
	params.Window = window

	if params.Lookback, err = optionalDuration(q.Get("lookback")); err != nil {
		return nil, fmt.Errorf("invalid lookback duration: %v", err)
	}
	if params.Lookahead, err = optionalDuration(q.Get("lookahead")); err != nil {
		return nil, fmt.Errorf("invalid lookahead duration: %v", err)
	}

	if dateStr := q.Get("date"); dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid date format, use YYYY-MM-DD: %v", err)
		}
		params.Date = &date
	}

	if timeStr := q.Get("time"); timeStr != "" {
		t, err := parseClock(timeStr)
		if err != nil {
			return nil, err
		}
		params.Time = &t
	}

	return params, nil
}

func optionalDuration(raw string) (*time.Duration, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, err
	}
	if d < 0 {
		return nil, fmt.Errorf("negative duration %q", raw)
	}
	return &d, nil
}

// parseClock accepts HH:MM or HH:MM:SS.
func parseClock(s string) (time.Time, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, fmt.Errorf("invalid time format, use HH:MM:SS or HH:MM")
	}

	limits := []int{23, 59, 59}
	names := []string{"hour", "minute", "second"}
	values := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return time.Time{}, fmt.Errorf("invalid %s: %s", names[i], p)
		}
		values[i] = v
	}
	return time.Date(2000, 1, 1, values[0], values[1], values[2], 0, time.UTC), nil
}

// calculateReferenceTime combines the date and time parameters, defaulting
// each to now. The result is UTC.
func calculateReferenceTime(params *TimeSeriesParams, now time.Time) time.Time {
	now = now.UTC()
	date, clock := now, now
	if params.Date != nil {
		date = *params.Date
	}
	if params.Time != nil {
		clock = *params.Time
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
}

// rebucket merges archived windows into windows of the requested size.
// Averages are weighted by count.
func rebucket(windows []storage.MetricWindow, size time.Duration) []WindowSummary {
	buckets := make(map[int64]*WindowSummary)
	for _, w := range windows {
		t, err := storage.WindowTime(w.WindowKey)
		if err != nil || w.Count == 0 {
			continue
		}
		start := t.Truncate(size)

		b, ok := buckets[start.Unix()]
		if !ok {
			buckets[start.Unix()] = &WindowSummary{
				Start: start,
				Count: w.Count,
				MinMs: w.MinMs,
				MaxMs: w.MaxMs,
				AvgMs: w.AvgMs,
			}
			continue
		}

		total := b.Count + w.Count
		b.AvgMs = (b.AvgMs*float64(b.Count) + w.AvgMs*float64(w.Count)) / float64(total)
		b.Count = total
		b.MinMs = min(b.MinMs, w.MinMs)
		b.MaxMs = max(b.MaxMs, w.MaxMs)
	}

	result := make([]WindowSummary, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result
}
