package logs_test

import (
	"log/slog"
	"testing"

	"shotbridge/internal/logs"
)

func TestParseAndFilter(t *testing.T) {
	line := `{"ts":"2026-03-01T10:00:00Z","level":"warn","msg":"task status not found","component":"reconcile","session_id":"5f0c2a","status":"wip"}`

	rec, ok := logs.Parse(line)
	if !ok {
		t.Fatal("expected a JSON record")
	}
	if rec.Level != slog.LevelWarn || rec.Message != "task status not found" || rec.Component != "reconcile" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Time.IsZero() || rec.Attrs["status"] != "wip" {
		t.Fatalf("unexpected time/attrs %+v", rec)
	}
	if _, ok := rec.Attrs["msg"]; ok {
		t.Fatal("known keys should be removed from Attrs")
	}

	tests := []struct {
		name   string
		filter logs.Filter
		want   bool
	}{
		{name: "zero filter", filter: logs.Filter{}, want: true},
		{name: "level below", filter: logs.Filter{MinLevel: slog.LevelError}, want: false},
		{name: "component ignores case", filter: logs.Filter{Component: "Reconcile"}, want: true},
		{name: "other component", filter: logs.Filter{Component: "attach"}, want: false},
		{name: "session prefix", filter: logs.Filter{SessionID: "5f0c"}, want: true},
		{name: "other session", filter: logs.Filter{SessionID: "aaaa"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(rec); got != tt.want {
				t.Fatalf("Match = %v, want %v", got, tt.want)
			}
		})
	}

	if _, ok := logs.Parse("plain text line"); ok {
		t.Fatal("plain text must not parse")
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := logs.ParseLevel(""); err != nil || lvl != slog.LevelDebug {
		t.Fatalf("empty level = %v, %v", lvl, err)
	}
	if lvl, err := logs.ParseLevel("WARN"); err != nil || lvl != slog.LevelWarn {
		t.Fatalf("WARN = %v, %v", lvl, err)
	}
	if _, err := logs.ParseLevel("loud"); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}
