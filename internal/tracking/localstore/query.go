package localstore

import (
	"fmt"
	"regexp"
	"strings"

	"shotbridge/internal/tracking"
)

var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var columnFields = map[string]string{
	"id":         "id",
	"name":       "name",
	"parent_id":  "parent_id",
	"project_id": "project_id",
}

// fieldExpr maps an attribute to a SQL expression. Attributes without a
// dedicated column are read from the JSON document.
func fieldExpr(field string) (string, error) {
	field = strings.TrimSpace(field)
	if column, ok := columnFields[field]; ok {
		return column, nil
	}
	if !fieldPattern.MatchString(field) {
		return "", fmt.Errorf("unsupported field %q", field)
	}
	return fmt.Sprintf("json_extract(data_json, '$.%s')", field), nil
}

// buildSelect renders q as SQL plus its arguments. LIKE comparisons follow
// SQLite semantics and are case-insensitive for ASCII.
func buildSelect(q tracking.Query) (string, []any, error) {
	var b strings.Builder
	args := []any{q.Type}
	b.WriteString("SELECT id, entity_type, data_json FROM entities WHERE entity_type = ?")

	for _, filter := range q.Filters {
		expr, err := fieldExpr(filter.Field)
		if err != nil {
			return "", nil, err
		}
		switch filter.Op {
		case "", tracking.OpIs:
			b.WriteString(" AND " + expr + " = ?")
		case tracking.OpLike:
			b.WriteString(" AND " + expr + " LIKE ?")
		case tracking.OpGreaterEq:
			b.WriteString(" AND " + expr + " >= ?")
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", filter.Op)
		}
		args = append(args, filter.Value)
	}

	order := strings.TrimSpace(q.OrderBy)
	if order == "" {
		b.WriteString(" ORDER BY created_at, id")
	} else {
		parts := strings.Fields(order)
		expr, err := fieldExpr(parts[0])
		if err != nil {
			return "", nil, err
		}
		direction := "ASC"
		if len(parts) > 1 && strings.EqualFold(parts[1], "desc") {
			direction = "DESC"
		}
		b.WriteString(" ORDER BY " + expr + " " + direction + ", id")
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Limit, max(q.Offset, 0))
	} else if q.Offset > 0 {
		b.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, q.Offset)
	}
	return b.String(), args, nil
}
