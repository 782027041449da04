package attach

import (
	"context"
	"fmt"

	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// ThumbnailResult describes an uploaded thumbnail.
type ThumbnailResult struct {
	Entity      tracking.Ref `json:"entity"`
	ComponentID string       `json:"component_id"`
	MIME        string       `json:"mime"`
}

// Thumbnail uploads the image at path and sets it as the entity thumbnail.
func (a *Attacher) Thumbnail(ctx context.Context, ref tracking.Ref, path string) (ThumbnailResult, error) {
	logger := logging.WithContext(ctx, a.logger)
	media, err := inspect(path, "image")
	if err != nil {
		return ThumbnailResult{}, err
	}
	entity, err := a.Resolve(ctx, ref)
	if err != nil {
		return ThumbnailResult{}, err
	}
	component, err := a.uploadComponent(ctx, media, "thumbnail")
	if err != nil {
		return ThumbnailResult{}, fmt.Errorf("thumbnail for %s: %w", entity.Name(), err)
	}
	if _, err := a.svc.Update(ctx, entity.Type, entity.ID, map[string]any{"thumbnail_id": component.ID}); err != nil {
		return ThumbnailResult{}, fmt.Errorf("set thumbnail on %s: %w", entity.Name(), err)
	}
	logger.Info("thumbnail attached",
		logging.Subject(entity.Name()),
		logging.String("entity_type", entity.Type),
		logging.String("component_id", component.ID),
	)
	return ThumbnailResult{Entity: entity.Ref(), ComponentID: component.ID, MIME: media.mime}, nil
}
