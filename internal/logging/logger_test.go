package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fecclean/internal/config"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()

	logger, err := NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("column cleaned", String(FieldColumn, "contributor_city"), Int("merges", 4))

	content, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("log file line is not JSON: %v (%q)", err, content)
	}
	if entry["msg"] != "column cleaned" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry[FieldColumn] != "contributor_city" {
		t.Fatalf("column field missing: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %v", entry)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := New(Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without source")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := New(Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with source")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected source information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("invalid"); got != slog.LevelInfo {
		t.Fatalf("parseLevel(invalid) = %v, want info", got)
	}
	if got := parseLevel(" DEBUG "); got != slog.LevelDebug {
		t.Fatalf("parseLevel(DEBUG) = %v, want debug", got)
	}
}

func TestPrettyHandlerLiftsSubject(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	ctx := WithPass(WithRunID(context.Background(), "3f2a9c1e-0000-4000-8000-000000000000"), "deep")
	WithContext(ctx, NewComponentLogger(logger, "cleaner")).Info("column cleaned",
		String(FieldColumn, "contributor_city"),
		Int("merges", 12),
		String("note", "two words"),
	)

	line := buf.String()
	for _, want := range []string{
		"INFO  cleaner: [3f2a9c1e deep/contributor_city] column cleaned",
		"merges=12",
		`note="two words"`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "run_id=") {
		t.Fatalf("run id should be lifted into the prefix: %q", line)
	}
}

func TestFanoutHandlerRespectsChildLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newFanoutHandler(info, nil, debug)).With(String("k", "v"))
	logger.Debug("debug only")
	logger.Info("both")

	if strings.Contains(infoBuf.String(), "debug only") {
		t.Fatalf("info handler received debug record: %q", infoBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "both") || !strings.Contains(debugBuf.String(), "debug only") {
		t.Fatalf("records missing: info=%q debug=%q", infoBuf.String(), debugBuf.String())
	}
	if !strings.Contains(debugBuf.String(), `"k":"v"`) {
		t.Fatalf("WithAttrs not propagated: %q", debugBuf.String())
	}
}

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every child is nil")
	}
	single := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if got, ok := newFanoutHandler(nil, single).(*slog.JSONHandler); !ok || got != single {
		t.Fatal("expected the single live handler to be returned unwrapped")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
}
