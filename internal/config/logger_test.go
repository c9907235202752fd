package config

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestLogWritesCorrelationId(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	ctx := SetContextCorrelationId(context.Background(), "probe")
	LogError(ctx, "persistence unreachable")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["level"] != "error" {
		t.Errorf("expected error level, got %v", line["level"])
	}
	if line["message"] != "persistence unreachable" {
		t.Errorf("unexpected message %v", line["message"])
	}
	if !strings.HasSuffix(line["cid"].(string), "-probe") {
		t.Errorf("cid should end with -probe, got %v", line["cid"])
	}
}

func TestLogDebugRequiresContextFlag(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	LogDebug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Errorf("debug output without debug context: %q", buf.String())
	}
}

func TestLogIncludesSubjectAndModule(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	ctx := SetContextCorrelationId(context.Background(), "probe")
	ctx = SetContextModule(SetContextSubject(ctx, "user-1"), "trivia")
	LogWarn(ctx, "slow module")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line["subject"] != "user-1" || line["module"] != "trivia" {
		t.Errorf("missing subject or module fields: %v", line)
	}
}
