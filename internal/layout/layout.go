package layout

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shotbridge/internal/reconcile"
	"shotbridge/internal/tracking"
)

// Format names a layout encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Row is one shot of the layout.
type Row struct {
	Sequence    string   `json:"sequence"`
	Shot        string   `json:"shot"`
	Tasks       []string `json:"tasks,omitempty"`
	Status      string   `json:"status,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Layout is a parsed shot list. Project is optional and may be overridden
// by the caller.
type Layout struct {
	Project string `json:"project,omitempty"`
	Rows    []Row  `json:"shots"`
}

type rawRow struct {
	Sequence    string `json:"sequence" toml:"sequence"`
	Shot        string `json:"shot" toml:"shot"`
	Tasks       any    `json:"tasks" toml:"tasks"`
	Status      string `json:"status" toml:"status"`
	Description string `json:"description" toml:"description"`
}

type rawLayout struct {
	Project string   `json:"project" toml:"project"`
	Shots   []rawRow `json:"shots" toml:"shots"`
}

var titleCaser = cases.Title(language.English)

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", tracking.Wrap(tracking.ErrValidation, "", "layout", fmt.Sprintf("unsupported layout file %s (want .toml, .json or .csv)", filepath.Base(path)), nil)
	}
}

// Load reads and parses the layout at path.
func Load(path string) (*Layout, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, tracking.Wrap(tracking.ErrNotFound, "", "layout", path, err)
		}
		return nil, fmt.Errorf("open layout: %w", err)
	}
	defer file.Close()
	layout, err := Parse(file, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return layout, nil
}

// Parse decodes a layout and validates every row.
func Parse(r io.Reader, format Format) (*Layout, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	var raw rawLayout
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, tracking.Wrap(tracking.ErrValidation, "", "layout", "parse toml", err)
		}
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &raw.Shots)
		} else {
			err = json.Unmarshal(trimmed, &raw)
		}
		if err != nil {
			return nil, tracking.Wrap(tracking.ErrValidation, "", "layout", "parse json", err)
		}
	case FormatCSV:
		rows, err := parseCSV(data)
		if err != nil {
			return nil, err
		}
		raw.Shots = rows
	default:
		return nil, tracking.Wrap(tracking.ErrValidation, "", "layout", fmt.Sprintf("unknown format %q", format), nil)
	}
	return build(raw)
}

func build(raw rawLayout) (*Layout, error) {
	layout := &Layout{Project: strings.TrimSpace(raw.Project)}
	var problems []string
	for i, r := range raw.Shots {
		tasks, err := taskList(r.Tasks)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		row := Row{
			Sequence:    strings.TrimSpace(r.Sequence),
			Shot:        strings.TrimSpace(r.Shot),
			Tasks:       tasks,
			Status:      strings.TrimSpace(r.Status),
			Description: strings.TrimSpace(r.Description),
		}
		switch {
		case row.Sequence == "":
			problems = append(problems, fmt.Sprintf("row %d: sequence is empty", i+1))
			continue
		case row.Shot == "":
			problems = append(problems, fmt.Sprintf("row %d: shot is empty", i+1))
			continue
		}
		layout.Rows = append(layout.Rows, row)
	}
	if len(problems) > 0 {
		return nil, tracking.Wrap(tracking.ErrValidation, "", "layout", strings.Join(problems, "; "), nil)
	}
	return layout, nil
}

// taskList accepts a list of names or one comma-separated string.
func taskList(value any) ([]string, error) {
	var names []string
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		names = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("task %v is not a string", item)
			}
			names = append(names, s)
		}
	case []string:
		names = v
	default:
		return nil, fmt.Errorf("tasks must be a list or a comma-separated string")
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = CanonicalTaskType(name); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// CanonicalTaskType expands aliases ("comp" becomes "Compositing") and
// title-cases other names ("matte painting" becomes "Matte Painting").
// Names that already contain capitals are kept as written.
func CanonicalTaskType(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	if canonical, ok := reconcile.TaskTypeAlias(name); ok {
		return canonical
	}
	if name != strings.ToLower(name) {
		return name
	}
	return titleCaser.String(name)
}

// Sequences groups rows by sequence in first-seen order. Rows repeating a
// shot merge their tasks into the first occurrence.
func (l *Layout) Sequences() []reconcile.DesiredSequence {
	if l == nil {
		return nil
	}
	var out []reconcile.DesiredSequence
	seqIndex := map[string]int{}
	shotIndex := map[string]int{}
	for _, row := range l.Rows {
		si, ok := seqIndex[row.Sequence]
		if !ok {
			si = len(out)
			seqIndex[row.Sequence] = si
			out = append(out, reconcile.DesiredSequence{Name: row.Sequence})
		}
		key := row.Sequence + "\x00" + row.Shot
		if hi, ok := shotIndex[key]; ok {
			shot := &out[si].Shots[hi]
			shot.Tasks = mergeTasks(shot.Tasks, row.Tasks)
			if shot.Description == "" {
				shot.Description = row.Description
			}
			if shot.Status == "" {
				shot.Status = row.Status
			}
			continue
		}
		shotIndex[key] = len(out[si].Shots)
		out[si].Shots = append(out[si].Shots, reconcile.DesiredShot{
			Name:        row.Shot,
			Description: row.Description,
			Tasks:       append([]string(nil), row.Tasks...),
			Status:      row.Status,
		})
	}
	return out
}

func mergeTasks(existing, extra []string) []string {
	for _, task := range extra {
		dup := false
		for _, have := range existing {
			if strings.EqualFold(have, task) {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, task)
		}
	}
	return existing
}

var csvColumns = map[string]string{
	"sequence":    "sequence",
	"seq":         "sequence",
	"shot":        "shot",
	"shot name":   "shot",
	"shot_name":   "shot",
	"tasks":       "tasks",
	"task types":  "tasks",
	"task_types":  "tasks",
	"status":      "status",
	"description": "description",
}

func parseCSV(data []byte) ([]rawRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, tracking.Wrap(tracking.ErrValidation, "", "layout", "parse csv", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	columns := make([]string, len(records[0]))
	for i, header := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
		columns[i] = csvColumns[key]
	}
	if !slices.Contains(columns, "sequence") || !slices.Contains(columns, "shot") {
		return nil, tracking.Wrap(tracking.ErrValidation, "", "layout", "csv header needs sequence and shot columns", nil)
	}
	var rows []rawRow
	for _, record := range records[1:] {
		if blank(record) {
			continue
		}
		var row rawRow
		for i, cell := range record {
			if i >= len(columns) {
				break
			}
			switch columns[i] {
			case "sequence":
				row.Sequence = cell
			case "shot":
				row.Shot = cell
			case "tasks":
				row.Tasks = cell
			case "status":
				row.Status = cell
			case "description":
				row.Description = cell
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
