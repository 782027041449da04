package reconcile

import (
	"fmt"
	"strings"

	"shotbridge/internal/config"
)

var taskTypeAliases = map[string]string{
	"roto":        "Rotoscoping",
	"rotoscoping": "Rotoscoping",
	"comp":        "Compositing",
	"compositing": "Compositing",
	"track":       "Tracking",
	"tracking":    "Tracking",
	"matchmove":   "Tracking",
	"paint":       "Texture",
	"cleanup":     "Texture",
	"prep":        "Texture",
	"texture":     "Texture",
	"fx":          "FX",
	"lighting":    "Lighting",
	"animation":   "Animation",
	"conform":     "Conform",
}

// TaskTypeAlias maps shorthand such as "comp" or "roto" to the task type
// name used on the server.
func TaskTypeAlias(name string) (string, bool) {
	canonical, ok := taskTypeAliases[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// TaskName derives the task entity name from its type: "Matte Painting"
// becomes "matte_painting".
func TaskName(taskType string) string {
	name := strings.ToLower(strings.TrimSpace(taskType))
	return strings.Join(strings.Fields(name), "_")
}

// NormalizeStatus folds status spellings together so "In Progress",
// "in_progress" and "IN_PROGRESS" compare equal.
func NormalizeStatus(status string) string {
	status = strings.ToLower(status)
	status = strings.ReplaceAll(status, "_", "")
	return strings.Join(strings.Fields(status), "")
}

type matcher func(want, have string) bool

func newMatcher(mode string) (matcher, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "exact":
		return func(want, have string) bool { return want == have }, nil
	case "casefold":
		return strings.EqualFold, nil
	case "trim":
		return func(want, have string) bool {
			return strings.TrimSpace(want) == strings.TrimSpace(have)
		}, nil
	case "trim_casefold":
		return func(want, have string) bool {
			return strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(have))
		}, nil
	default:
		return nil, fmt.Errorf("unknown name match mode %q (want one of %s)", mode, strings.Join(config.NameMatchModes, ", "))
	}
}
