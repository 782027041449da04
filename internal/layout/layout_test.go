package layout_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotbridge/internal/layout"
	"shotbridge/internal/reconcile"
	"shotbridge/internal/tracking"
)

var wantSequences = []reconcile.DesiredSequence{
	{
		Name: "SEQ010",
		Shots: []reconcile.DesiredShot{
			{Name: "vfx_010", Description: "Wide shot with CG extension", Tasks: []string{"Compositing"}, Status: "ready_to_start"},
			{Name: "vfx_020", Tasks: []string{"Compositing", "Rotoscoping"}},
		},
	},
	{
		Name: "SEQ020",
		Shots: []reconcile.DesiredShot{
			{Name: "vfx_060", Description: "Background extension", Tasks: []string{"Matte Painting"}},
		},
	},
}

func TestParseFormats(t *testing.T) {
	cases := map[layout.Format]string{
		layout.FormatTOML: `
project = "Demo Project"

[[shots]]
sequence = "SEQ010"
shot = "vfx_010"
tasks = ["comp"]
status = "ready_to_start"
description = "Wide shot with CG extension"

[[shots]]
sequence = "SEQ020"
shot = "vfx_060"
tasks = "matte painting"
description = "Background extension"

[[shots]]
sequence = "SEQ010"
shot = "vfx_020"
tasks = "Compositing, roto"
`,
		layout.FormatJSON: `{
  "project": "Demo Project",
  "shots": [
    {"sequence": "SEQ010", "shot": "vfx_010", "tasks": ["comp"], "status": "ready_to_start", "description": "Wide shot with CG extension"},
    {"sequence": "SEQ020", "shot": "vfx_060", "tasks": "matte painting", "description": "Background extension"},
    {"sequence": "SEQ010", "shot": "vfx_020", "tasks": "Compositing, roto"}
  ]
}`,
		layout.FormatCSV: "\ufeffSequence,Shot Name,Task Types,Status,Description\n" +
			"SEQ010,vfx_010,comp,ready_to_start,Wide shot with CG extension\n" +
			"SEQ020,vfx_060,matte painting,,Background extension\n" +
			",,,,\n" +
			"SEQ010,vfx_020,\"Compositing, roto\",,\n",
	}
	for format, input := range cases {
		t.Run(string(format), func(t *testing.T) {
			parsed, err := layout.Parse(strings.NewReader(input), format)
			require.NoError(t, err)
			assert.Len(t, parsed.Rows, 3)
			assert.Equal(t, wantSequences, parsed.Sequences())
			if format != layout.FormatCSV {
				assert.Equal(t, "Demo Project", parsed.Project)
			}
		})
	}
}

func TestParseJSONArray(t *testing.T) {
	parsed, err := layout.Parse(strings.NewReader(`[{"sequence":"SEQ010","shot":"vfx_010"}]`), layout.FormatJSON)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 1)
	assert.Empty(t, parsed.Rows[0].Tasks)
	assert.Empty(t, parsed.Project)
}

func TestSequencesMergesRepeatedShots(t *testing.T) {
	l := &layout.Layout{Rows: []layout.Row{
		{Sequence: "SEQ010", Shot: "vfx_010", Tasks: []string{"Compositing"}},
		{Sequence: "SEQ010", Shot: "vfx_010", Tasks: []string{"compositing", "Tracking"}, Description: "late note"},
	}}
	seqs := l.Sequences()
	require.Len(t, seqs, 1)
	require.Len(t, seqs[0].Shots, 1)
	assert.Equal(t, []string{"Compositing", "Tracking"}, seqs[0].Shots[0].Tasks)
	assert.Equal(t, "late note", seqs[0].Shots[0].Description)
}

func TestParseRejectsIncompleteRows(t *testing.T) {
	_, err := layout.Parse(strings.NewReader(`[{"sequence":"SEQ010"},{"shot":"vfx_020"}]`), layout.FormatJSON)
	require.ErrorIs(t, err, tracking.ErrValidation)
	assert.Contains(t, err.Error(), "row 1: shot is empty")
	assert.Contains(t, err.Error(), "row 2: sequence is empty")

	_, err = layout.Parse(strings.NewReader("name,tasks\nvfx_010,comp\n"), layout.FormatCSV)
	assert.ErrorIs(t, err, tracking.ErrValidation)

	_, err = layout.Parse(strings.NewReader(`[[shots]]
sequence = "SEQ010"
shot = "vfx_010"
tasks = 3
`), layout.FormatTOML)
	assert.ErrorIs(t, err, tracking.ErrValidation)
}

func TestLoadInfersFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edit.csv")
	require.NoError(t, os.WriteFile(path, []byte("sequence,shot,tasks\nSEQ010,vfx_010,roto\n"), 0o644))

	parsed, err := layout.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rotoscoping"}, parsed.Rows[0].Tasks)

	_, err = layout.Load(filepath.Join(dir, "edit.xml"))
	assert.ErrorIs(t, err, tracking.ErrValidation)

	_, err = layout.Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, tracking.ErrNotFound)
}

func TestCanonicalTaskType(t *testing.T) {
	cases := map[string]string{
		"comp":            "Compositing",
		"  FX ":           "FX",
		"matte  painting": "Matte Painting",
		"LookDev":         "LookDev",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, layout.CanonicalTaskType(in), in)
	}
}
