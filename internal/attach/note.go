package attach

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// Note posts content on the entity, authored by the configured user. An
// unknown category is ignored with a warning.
func (a *Attacher) Note(ctx context.Context, ref tracking.Ref, content, category string) (tracking.Entity, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, tracking.TypeNote, "create", "note content is empty", nil)
	}
	entity, err := a.Resolve(ctx, ref)
	if err != nil {
		return tracking.Entity{}, err
	}
	userID, err := a.userID(ctx)
	if err != nil {
		return tracking.Entity{}, err
	}
	note, err := a.createNote(ctx, entity, content, category, userID)
	if err != nil {
		return tracking.Entity{}, fmt.Errorf("note on %s: %w", entity.Name(), err)
	}
	logging.WithContext(ctx, a.logger).Info("note created",
		logging.Subject(entity.Name()),
		logging.String("entity_type", entity.Type),
		logging.String("note_id", note.ID),
	)
	return note, nil
}

func (a *Attacher) createNote(ctx context.Context, parent tracking.Entity, content, category, userID string) (tracking.Entity, error) {
	attrs := map[string]any{
		"content":     content,
		"parent_id":   parent.ID,
		"parent_type": parent.Type,
		"date":        a.timestamp(),
	}
	if userID != "" {
		attrs["user_id"] = userID
	}
	if category = strings.TrimSpace(category); category != "" {
		found, ok, err := tracking.First(ctx, a.svc, tracking.Query{Type: tracking.TypeNoteCategory}.Where(tracking.Eq("name", category)))
		switch {
		case err != nil:
			return tracking.Entity{}, fmt.Errorf("find note category: %w", err)
		case ok:
			attrs["category_id"] = found.ID
		default:
			logging.WarnWithContext(logging.WithContext(ctx, a.logger), "note category not found", "note_category_missing",
				logging.String("category", category),
				logging.String(logging.FieldErrorHint, "the note is created without a category"),
			)
		}
	}
	return a.svc.Create(ctx, tracking.TypeNote, attrs)
}

// Notes lists the notes on an entity, oldest first.
func (a *Attacher) Notes(ctx context.Context, ref tracking.Ref) ([]tracking.Entity, error) {
	entity, err := a.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	notes, err := a.svc.Query(ctx, tracking.Query{Type: tracking.TypeNote, OrderBy: "date"}.Where(tracking.Eq("parent_id", entity.ID)))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Attr("date") < notes[j].Attr("date") })
	return notes, nil
}
