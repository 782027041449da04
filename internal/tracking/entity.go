package tracking

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

const entityTypeKey = "__entity_type__"

// Entity is a remote record addressed by type and identifier. Attributes
// hold every other field exactly as the backend returned it.
type Entity struct {
	Type       string
	ID         string
	Attributes map[string]any
}

// NewEntity builds an entity with a copy of attrs.
func NewEntity(entityType, id string, attrs map[string]any) Entity {
	e := Entity{Type: entityType, ID: id, Attributes: make(map[string]any, len(attrs))}
	maps.Copy(e.Attributes, attrs)
	delete(e.Attributes, "id")
	delete(e.Attributes, entityTypeKey)
	return e
}

// Attr returns the attribute as a string, formatting scalars when needed.
func (e Entity) Attr(key string) string {
	switch key {
	case "id":
		return e.ID
	case entityTypeKey:
		return e.Type
	}
	v, ok := e.Attributes[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// Float returns a numeric attribute, or zero when absent.
func (e Entity) Float(key string) float64 {
	switch val := e.Attributes[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}

func (e Entity) Name() string      { return e.Attr("name") }
func (e Entity) ParentID() string  { return e.Attr("parent_id") }
func (e Entity) ProjectID() string { return e.Attr("project_id") }

// Ref returns the lightweight reference used when linking entities.
func (e Entity) Ref() Ref { return Ref{Type: e.Type, ID: e.ID} }

// MarshalJSON encodes the entity in the flat wire shape used by ftrack.
func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Attributes)+2)
	maps.Copy(out, e.Attributes)
	out[entityTypeKey] = e.Type
	out["id"] = e.ID
	return json.Marshal(out)
}

// UnmarshalJSON decodes the flat wire shape.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	entityType, _ := raw[entityTypeKey].(string)
	id, _ := raw["id"].(string)
	*e = NewEntity(entityType, id, raw)
	return nil
}

// Ref points at a remote entity without owning it.
type Ref struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (r Ref) String() string {
	if r.Type == "" {
		return r.ID
	}
	return r.Type + "/" + r.ID
}
