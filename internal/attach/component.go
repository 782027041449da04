package attach

import (
	"context"
	"fmt"
	"os"

	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// uploadComponent registers media as a FileComponent, uploads its bytes to
// the server location and records the ComponentLocation.
func (a *Attacher) uploadComponent(ctx context.Context, media mediaFile, name string) (tracking.Entity, error) {
	component, err := a.svc.Create(ctx, tracking.TypeFileComponent, map[string]any{
		"name":      name,
		"file_type": media.ext,
		"size":      media.size,
	})
	if err != nil {
		return tracking.Entity{}, fmt.Errorf("create component: %w", err)
	}

	file, err := os.Open(media.path)
	if err != nil {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "open", media.path, err)
	}
	defer file.Close()

	if err := a.svc.Upload(ctx, tracking.Upload{
		ComponentID: component.ID,
		FileName:    media.name + media.ext,
		Size:        media.size,
		Body:        file,
	}); err != nil {
		return tracking.Entity{}, err
	}

	if _, err := a.svc.Create(ctx, tracking.TypeComponentLocation, map[string]any{
		"component_id":        component.ID,
		"location_id":         tracking.ServerLocationID,
		"resource_identifier": component.ID,
	}); err != nil {
		return tracking.Entity{}, fmt.Errorf("register component location: %w", err)
	}

	logging.WithContext(ctx, a.logger).Debug("component uploaded",
		logging.String("component_id", component.ID),
		logging.String("mime", media.mime),
		logging.Int("size", int(media.size)),
	)
	return component, nil
}
