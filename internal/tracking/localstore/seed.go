package localstore

import (
	"context"
	"fmt"

	"shotbridge/internal/tracking"
)

// DemoProjectName is the project every new offline store starts with.
const DemoProjectName = "Demo Project"

var (
	seedTaskTypes = []string{
		"Compositing", "Rotoscoping", "Tracking", "Texture", "FX", "Lighting",
		"Animation", "Modeling", "Rigging", "Lookdev", "Layout", "Previz",
		"Rendering", "Matte Painting", "Conform", "Color", "Editing",
	}
	seedStatuses = []string{
		"Not Started", "Ready To Start", "In Progress", "Pending Review",
		"Approved", "On Hold", "Omitted", "Client Approved", "Could Be Better",
		"Archived", "Backup OK", "CBB Conformed", "Normal", "Paused",
	}
	seedAssetTypes = []struct{ name, short string }{
		{"Upload", "upload"},
		{"Review", "review"},
		{"Plate", "plate"},
		{"Comp", "comp"},
	}
	seedNoteCategories = []string{"Default", "Internal", "Client feedback"}
)

func (s *Store) seed(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := func(entityType string, attrs map[string]any) error {
		_, err := s.insert(ctx, tx, entityType, attrs)
		return err
	}
	for _, name := range seedTaskTypes {
		if err := insert(tracking.TypeTaskType, map[string]any{"name": name}); err != nil {
			return fmt.Errorf("seed task type %s: %w", name, err)
		}
	}
	for _, name := range seedStatuses {
		if err := insert(tracking.TypeStatus, map[string]any{"name": name}); err != nil {
			return fmt.Errorf("seed status %s: %w", name, err)
		}
	}
	for _, assetType := range seedAssetTypes {
		if err := insert(tracking.TypeAssetType, map[string]any{"name": assetType.name, "short": assetType.short}); err != nil {
			return fmt.Errorf("seed asset type %s: %w", assetType.name, err)
		}
	}
	for _, name := range seedNoteCategories {
		if err := insert(tracking.TypeNoteCategory, map[string]any{"name": name}); err != nil {
			return fmt.Errorf("seed note category %s: %w", name, err)
		}
	}
	if err := insert(tracking.TypeLocation, map[string]any{"id": tracking.ServerLocationID, "name": "ftrack.server"}); err != nil {
		return fmt.Errorf("seed server location: %w", err)
	}
	if err := insert(tracking.TypeProject, map[string]any{
		"name":      "demo_project",
		"full_name": DemoProjectName,
		"status":    "active",
	}); err != nil {
		return fmt.Errorf("seed demo project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func (s *Store) ensureUser(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}
	_, found, err := tracking.First(ctx, s, tracking.Query{Type: tracking.TypeUser}.Where(tracking.Eq("username", username)))
	if err != nil {
		return fmt.Errorf("lookup offline user: %w", err)
	}
	if found {
		return nil
	}
	if _, err := s.Create(ctx, tracking.TypeUser, map[string]any{"username": username}); err != nil {
		return fmt.Errorf("seed offline user: %w", err)
	}
	return nil
}
