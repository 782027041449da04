package logs

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"shotbridge/internal/logging"
)

// Record is one decoded line of the JSON log file.
type Record struct {
	Time      time.Time
	Level     slog.Level
	Message   string
	Component string
	SessionID string
	Attrs     map[string]any
}

// Parse decodes a JSON log line. Lines that are not JSON objects report false.
func Parse(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Record{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{}, false
	}

	rec := Record{Attrs: raw}
	if ts, ok := take(raw, "ts"); ok {
		rec.Time, _ = time.Parse(time.RFC3339, ts)
	}
	if lvl, ok := take(raw, slog.LevelKey); ok {
		_ = rec.Level.UnmarshalText([]byte(lvl))
	}
	rec.Message, _ = take(raw, slog.MessageKey)
	rec.Component, _ = take(raw, logging.FieldComponent)
	rec.SessionID, _ = take(raw, logging.FieldSessionID)
	return rec, true
}

func take(raw map[string]any, key string) (string, bool) {
	value, ok := raw[key].(string)
	if ok {
		delete(raw, key)
	}
	return value, ok
}

// Filter selects records. Empty strings match everything; the zero MinLevel
// is info.
type Filter struct {
	MinLevel  slog.Level
	Component string
	SessionID string
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec Record) bool {
	if rec.Level < f.MinLevel {
		return false
	}
	if f.Component != "" && !strings.EqualFold(rec.Component, f.Component) {
		return false
	}
	if f.SessionID != "" && !strings.HasPrefix(rec.SessionID, f.SessionID) {
		return false
	}
	return true
}

// ParseLevel maps debug, info, warn and error onto slog levels.
func ParseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(value) == "" {
		return slog.LevelDebug, nil
	}
	err := level.UnmarshalText([]byte(strings.TrimSpace(value)))
	return level, err
}
