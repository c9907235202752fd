package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/thisdougb/gamehealth"
)

// Client talks to the gamehealthd HTTP API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// Check runs a full health check. A 503 still carries a report.
func (c *Client) Check(ctx context.Context, subject string) (health.SystemHealthReport, error) {
	var report health.SystemHealthReport
	q := url.Values{}
	if subject != "" {
		q.Set("subject", subject)
	}
	err := c.getJSON(ctx, "/health", q, &report, http.StatusOK, http.StatusServiceUnavailable)
	if err == nil && report.Overall == "" {
		err = fmt.Errorf("health check did not complete")
	}
	return report, err
}

// Status returns UP or DOWN.
func (c *Client) Status(ctx context.Context) (string, error) {
	body, _, err := c.get(ctx, "/health/status", nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) Summary(ctx context.Context) (health.Summary, error) {
	var summary health.Summary
	err := c.getJSON(ctx, "/summary", nil, &summary, http.StatusOK)
	return summary, err
}

func (c *Client) Logs(ctx context.Context, q url.Values) ([]health.LogEvent, error) {
	var logs []health.LogEvent
	err := c.getJSON(ctx, "/logs", q, &logs, http.StatusOK)
	return logs, err
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, int, error) {
	target := c.BaseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", path, err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any, accept ...int) error {
	body, status, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}

	accepted := false
	for _, code := range accept {
		accepted = accepted || code == status
	}
	if !accepted {
		return fmt.Errorf("%s returned %d: %s", path, status, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
