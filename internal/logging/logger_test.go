package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shotbridge/internal/config"
	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "error"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug goes to file only", logging.String("shot", "vfx_010"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("log file line is not JSON: %v (%q)", err, content)
	}
	if record["msg"] != "debug goes to file only" || record["shot"] != "vfx_010" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["level"] != "debug" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
}

func TestConsoleFormatHeaderAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "reconcile").Info("shot created",
		logging.Subject("SEQ_010/vfx_010"),
		logging.String("outcome", "created"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "INFO  reconcile  SEQ_010/vfx_010: shot created  outcome=created") {
		t.Fatalf("unexpected console line: %q", text)
	}
	if strings.Count(text, "\n") != 1 {
		t.Fatalf("expected a single line for info records, got %q", text)
	}
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
}

func TestConsoleWarningPrintsHintLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "task type unknown", "task_type_unknown",
		logging.Subject("SEQ_010/vfx_010/Hair Grooming"),
		logging.String(logging.FieldErrorHint, "check task_types in the config"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and hint lines, got %q", content)
	}
	if !strings.Contains(lines[0], "WARN  SEQ_010/vfx_010/Hair Grooming: task type unknown  event_type=task_type_unknown") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if strings.TrimSpace(lines[1]) != "hint: check task_types in the config" {
		t.Fatalf("unexpected hint line: %q", lines[1])
	}
	if strings.Contains(string(content), "\x1b[") {
		t.Fatalf("expected no colour codes in file output, got %q", content)
	}
}

func TestDebugConsoleShowsShortSession(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := tracking.WithSessionID(context.Background(), "0123456789abcdef")
	logging.WithContext(ctx, logger).Debug("query", logging.Int("rows", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "session=01234567 rows=3") {
		t.Fatalf("expected shortened session, got %q", content)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller at debug level, got %q", content)
	}
}

func TestLoggerRedactsSecrets(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.With(logging.String("api_key", "super-secret")).Info("connecting",
		logging.String("username", "artist"),
		logging.Any("credentials", map[string]string{"note": "x"}),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "super-secret") {
		t.Fatalf("secret leaked into log: %q", content)
	}
	if !strings.Contains(string(content), logging.Redacted) {
		t.Fatalf("expected redaction marker, got %q", content)
	}
	if !strings.Contains(string(content), `"username":"artist"`) {
		t.Fatalf("expected non-secret field to survive, got %q", content)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	cases := map[string]bool{
		"api_key":        true,
		"ftrack-api-key": true,
		"FTRACK_API_KEY": true,
		"creds.api_key":  true,
		"user_token":     true,
		"username":       false,
		"server_url":     false,
	}
	for key, want := range cases {
		if got := logging.IsSensitiveKey(key); got != want {
			t.Fatalf("IsSensitiveKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsTrackingFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := tracking.WithSessionID(context.Background(), "sess-1")
	ctx = tracking.WithRequestID(ctx, "req-9")

	logging.WithContext(ctx, logger).Info("query")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"session_id":"sess-1"`) || !strings.Contains(string(content), `"request_id":"req-9"`) {
		t.Fatalf("expected context fields, got %q", content)
	}
}

func TestErrorAttrsClassifies(t *testing.T) {
	attrs := logging.ErrorAttrs(tracking.Wrap(tracking.ErrDuplicate, "Shot", "create", "exists", nil))
	if len(attrs) != 2 || attrs[1].Value.String() != "duplicate" {
		t.Fatalf("unexpected attrs: %v", attrs)
	}
	if logging.ErrorAttrs(nil) != nil {
		t.Fatal("expected nil attrs for nil error")
	}
}
