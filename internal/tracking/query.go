package tracking

import (
	"strconv"
	"strings"
)

// Operator is a comparison understood by the query language.
type Operator string

const (
	OpIs        Operator = "is"
	OpLike      Operator = "like"
	OpGreaterEq Operator = ">="
)

// Filter constrains a single attribute. Relationship attributes use the
// flattened form (parent_id, project_id) so every backend can index them.
type Filter struct {
	Field string
	Op    Operator
	Value string
}

// Eq is shorthand for an equality filter.
func Eq(field, value string) Filter {
	return Filter{Field: field, Op: OpIs, Value: value}
}

// AtLeast filters on field >= value. Timestamps compare correctly when both
// sides are RFC 3339 in UTC.
func AtLeast(field, value string) Filter {
	return Filter{Field: field, Op: OpGreaterEq, Value: value}
}

// Query selects entities of one type.
type Query struct {
	Type    string
	Fields  []string
	Filters []Filter
	OrderBy string
	Offset  int
	Limit   int
}

// Where appends filters and returns the query for chaining.
func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), filters...)
	return q
}

// Expression renders the query in the ftrack query language, for example
// `select id, name from Shot where name is "vfx_010" and parent_id is "…"`.
func (q Query) Expression() string {
	var b strings.Builder
	fields := q.Fields
	if len(fields) == 0 {
		fields = []string{"id", "name"}
	}
	b.WriteString("select ")
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(" from ")
	b.WriteString(q.Type)
	for i, f := range q.Filters {
		if i == 0 {
			b.WriteString(" where ")
		} else {
			b.WriteString(" and ")
		}
		op := f.Op
		if op == "" {
			op = OpIs
		}
		b.WriteString(f.Field)
		b.WriteByte(' ')
		b.WriteString(string(op))
		b.WriteByte(' ')
		b.WriteString(Quote(f.Value))
	}
	if q.OrderBy != "" {
		b.WriteString(" order by ")
		b.WriteString(q.OrderBy)
	}
	if q.Limit > 0 {
		b.WriteString(" offset ")
		b.WriteString(strconv.Itoa(max(q.Offset, 0)))
		b.WriteString(" limit ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	return b.String()
}

// Quote wraps value in double quotes, escaping backslashes and quotes.
func Quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
