package reconcile

import (
	"context"
	"fmt"
	"strings"

	"shotbridge/internal/tracking"
)

// catalog caches task types and statuses for the lifetime of one pass.
type catalog struct {
	svc      tracking.Service
	types    map[string]tracking.Entity
	statuses map[string]tracking.Entity
}

func newCatalog(svc tracking.Service) *catalog {
	return &catalog{svc: svc}
}

// taskType resolves an alias or type name to the server's Type entity.
func (c *catalog) taskType(ctx context.Context, name string) (tracking.Entity, error) {
	if c.types == nil {
		items, err := c.svc.Query(ctx, tracking.Query{Type: tracking.TypeTaskType, OrderBy: "name"})
		if err != nil {
			return tracking.Entity{}, fmt.Errorf("load task types: %w", err)
		}
		c.types = make(map[string]tracking.Entity, len(items))
		for _, item := range items {
			c.types[strings.ToLower(item.Name())] = item
		}
	}
	want := strings.TrimSpace(name)
	if canonical, ok := TaskTypeAlias(want); ok {
		want = canonical
	}
	if entity, ok := c.types[strings.ToLower(want)]; ok {
		return entity, nil
	}
	return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, tracking.TypeTaskType, "resolve", fmt.Sprintf("unknown task type %q", name), nil)
}

// status resolves a status in any spelling. ok is false when the server
// has no matching status.
func (c *catalog) status(ctx context.Context, name string) (tracking.Entity, bool, error) {
	if strings.TrimSpace(name) == "" {
		return tracking.Entity{}, false, nil
	}
	if c.statuses == nil {
		items, err := c.svc.Query(ctx, tracking.Query{Type: tracking.TypeStatus, OrderBy: "name"})
		if err != nil {
			return tracking.Entity{}, false, fmt.Errorf("load statuses: %w", err)
		}
		c.statuses = make(map[string]tracking.Entity, len(items))
		for _, item := range items {
			key := NormalizeStatus(item.Name())
			if _, dup := c.statuses[key]; !dup {
				c.statuses[key] = item
			}
		}
	}
	entity, ok := c.statuses[NormalizeStatus(name)]
	return entity, ok, nil
}
