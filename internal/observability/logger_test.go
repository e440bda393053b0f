package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/demanddesk/demanddesk/internal/config"
)

func TestNewLoggerAddsTraceIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Config{
		Profile:       config.ProfileTest,
		Service:       config.ServiceConfig{Name: "demanddesk-api"},
		Observability: config.ObservabilityConfig{LogLevel: slog.LevelInfo, LogJSON: true},
	}, &buf)

	logger.With(slog.String("component", "ranking")).InfoContext(ContextWithTraceID(context.Background(), "trace-42"), "ranked")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if record["trace_id"] != "trace-42" {
		t.Fatalf("trace_id = %v", record["trace_id"])
	}
	if record["service"] != "demanddesk-api" || record["component"] != "ranking" {
		t.Fatalf("record = %v", record)
	}
}

func TestNewLoggerOmitsTraceIDWithoutContextValue(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.Config{Observability: config.ObservabilityConfig{LogLevel: slog.LevelDebug, LogJSON: true}}, &buf)
	logger.Info("startup")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := record["trace_id"]; ok {
		t.Fatalf("unexpected trace_id in %v", record)
	}
}
