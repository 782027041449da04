package reconcile

import (
	"slices"
	"strings"

	"shotbridge/internal/tracking"
)

// Kind names the level of a hierarchy node.
type Kind string

const (
	KindProject  Kind = "Project"
	KindSequence Kind = "Sequence"
	KindShot     Kind = "Shot"
	KindTask     Kind = "Task"

	KindThumbnail  Kind = "Thumbnail"
	KindVersion    Kind = "Version"
	KindAssignment Kind = "Assignment"
)

// Outcome is the result recorded for one node.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeExisted Outcome = "already-existed"
	OutcomeFailed  Outcome = "failed"
	OutcomePlanned Outcome = "planned"
)

// Node identifies one entity of the layout. ParentID references the
// remote parent; it is empty while the parent only exists as a plan.
type Node struct {
	Kind       Kind   `json:"kind"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	ID         string `json:"id,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
}

// Entry records what happened to a node.
type Entry struct {
	Node    Node    `json:"node"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
	Err     error   `json:"-"`
}

// Summary counts entries by outcome.
type Summary struct {
	Created int `json:"created"`
	Existed int `json:"already_existed"`
	Failed  int `json:"failed"`
	Planned int `json:"planned"`
}

// Total returns the number of counted entries.
func (s Summary) Total() int {
	return s.Created + s.Existed + s.Failed + s.Planned
}

// Manifest is the immutable result of a pass. Accessors return copies.
type Manifest struct {
	project tracking.Ref
	dryRun  bool
	entries []Entry
}

// Project returns the resolved project, or a zero Ref when resolution failed.
func (m *Manifest) Project() tracking.Ref {
	if m == nil {
		return tracking.Ref{}
	}
	return m.project
}

// DryRun reports whether the pass ran without creating entities.
func (m *Manifest) DryRun() bool {
	return m != nil && m.dryRun
}

// Entries returns every entry in processing order.
func (m *Manifest) Entries() []Entry {
	if m == nil {
		return nil
	}
	return slices.Clone(m.entries)
}

// Filter returns the entries with the given outcome.
func (m *Manifest) Filter(outcome Outcome) []Entry {
	if m == nil {
		return nil
	}
	var out []Entry
	for _, entry := range m.entries {
		if entry.Outcome == outcome {
			out = append(out, entry)
		}
	}
	return out
}

// Lookup returns the entry for a slash-separated path such as
// "SEQ_010/vfx_010/compositing".
func (m *Manifest) Lookup(path string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	for _, entry := range m.entries {
		if entry.Node.Path == path {
			return entry, true
		}
	}
	return Entry{}, false
}

// Summary counts entries by outcome.
func (m *Manifest) Summary() Summary {
	var s Summary
	if m == nil {
		return s
	}
	for _, entry := range m.entries {
		switch entry.Outcome {
		case OutcomeCreated:
			s.Created++
		case OutcomeExisted:
			s.Existed++
		case OutcomeFailed:
			s.Failed++
		case OutcomePlanned:
			s.Planned++
		}
	}
	return s
}

func (m *Manifest) add(entry Entry) Entry {
	if entry.Err != nil && entry.Reason == "" {
		entry.Reason = entry.Err.Error()
	}
	m.entries = append(m.entries, entry)
	return entry
}

func joinPath(parts ...string) string {
	return strings.Join(parts, "/")
}
