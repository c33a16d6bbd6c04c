package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestLogger_WritesKeyValueFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).With("component", "crawler")

	logger.WarnContext(context.Background(), "stage failed", "match_id", "2701234", "error", errors.New("timeout"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "crawler" || fields["match_id"] != "2701234" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if fields["error"] != "timeout" {
		t.Fatalf("unexpected error field: %v", fields["error"])
	}
}

func TestLogger_NilReceiverFallsBackToDefault(t *testing.T) {
	t.Parallel()

	var logger *Logger
	logger.Info("no panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("expected non-nil logger")
	}
}

func TestNew_JSONAddsServiceFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Options{
		Format:  FormatJSON,
		Level:   LevelInfo,
		Service: "matchodds-api",
		Env:     "stage",
		Output:  zapcore.AddSync(&buf),
	}).Named("titan")

	logger.Debug("hidden")
	logger.Info("page rendered", "url", "https://jc.titan007.com/")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line above debug level, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	for key, want := range map[string]string{
		"msg":     "page rendered",
		"service": "matchodds-api",
		"env":     "stage",
		"logger":  "titan",
		"url":     "https://jc.titan007.com/",
		"level":   "INFO",
	} {
		if entry[key] != want {
			t.Fatalf("%s = %v, want %q", key, entry[key], want)
		}
	}
	if _, ok := entry["version"]; ok {
		t.Fatalf("empty version must not be logged")
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(Options{Format: "CONSOLE", Level: LevelDebug, Output: zapcore.AddSync(&buf)}).Debug("crawl started", "workers", 2)
	if !strings.Contains(buf.String(), "crawl started") || strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected console line, got %q", buf.String())
	}
}

func TestLogger_OddArgsAndFieldValues(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))
	logger.Info("odd", "match_id", "1", 42, "x", "dangling", zap.Int("ignored_key", 3))

	fields := logs.All()[0].ContextMap()
	if fields["match_id"] != "1" || fields["arg"] != "x" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if fields["ignored_key"] != int64(3) {
		t.Fatalf("expected zap field to pass through, got %+v", fields)
	}
}
