package tracking_test

import (
	"encoding/json"
	"testing"

	"shotbridge/internal/tracking"
)

func TestQueryExpression(t *testing.T) {
	q := tracking.Query{Type: tracking.TypeShot}.Where(
		tracking.Eq("name", "vfx_010"),
		tracking.Eq("parent_id", "seq-1"),
	)
	want := `select id, name from Shot where name is "vfx_010" and parent_id is "seq-1"`
	if got := q.Expression(); got != want {
		t.Fatalf("unexpected expression:\n got %s\nwant %s", got, want)
	}
}

func TestQueryExpressionPaging(t *testing.T) {
	q := tracking.Query{
		Type:    tracking.TypeProject,
		Fields:  []string{"id", "name", "status.name"},
		Filters: []tracking.Filter{{Field: "name", Op: tracking.OpLike, Value: "%demo%"}},
		OrderBy: "name",
		Offset:  20,
		Limit:   10,
	}
	want := `select id, name, status.name from Project where name like "%demo%" order by name offset 20 limit 10`
	if got := q.Expression(); got != want {
		t.Fatalf("unexpected expression:\n got %s\nwant %s", got, want)
	}
}

func TestQueryExpressionAtLeast(t *testing.T) {
	q := tracking.Query{Type: tracking.TypeTimelog, Fields: []string{"id", "start"}}.Where(
		tracking.Eq("user_id", "u-1"),
		tracking.AtLeast("start", "2026-10-17T00:00:00Z"),
	)
	want := `select id, start from Timelog where user_id is "u-1" and start >= "2026-10-17T00:00:00Z"`
	if got := q.Expression(); got != want {
		t.Fatalf("unexpected expression:\n got %s\nwant %s", got, want)
	}
}

func TestQuoteEscapes(t *testing.T) {
	if got := tracking.Quote(`say "hi" \o/`); got != `"say \"hi\" \\o/"` {
		t.Fatalf("unexpected quoting: %s", got)
	}
}

func TestWhereDoesNotAliasFilters(t *testing.T) {
	base := tracking.Query{Type: tracking.TypeTask, Filters: make([]tracking.Filter, 0, 4)}
	a := base.Where(tracking.Eq("name", "a"))
	b := base.Where(tracking.Eq("name", "b"))
	if a.Filters[0].Value != "a" || b.Filters[0].Value != "b" {
		t.Fatalf("filters aliased: %+v %+v", a.Filters, b.Filters)
	}
}

func TestEntityJSONShape(t *testing.T) {
	e := tracking.NewEntity(tracking.TypeShot, "shot-1", map[string]any{"name": "vfx_010", "parent_id": "seq-1"})
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["__entity_type__"] != "Shot" || raw["id"] != "shot-1" || raw["name"] != "vfx_010" {
		t.Fatalf("unexpected wire shape: %v", raw)
	}

	var decoded tracking.Entity
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode entity: %v", err)
	}
	if decoded.Type != "Shot" || decoded.ID != "shot-1" || decoded.ParentID() != "seq-1" {
		t.Fatalf("unexpected decoded entity: %+v", decoded)
	}
	if _, ok := decoded.Attributes["id"]; ok {
		t.Fatal("id should not be duplicated in attributes")
	}
}
