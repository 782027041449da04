package attach

import (
	"context"
	"fmt"
	"sort"

	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// assetTypePreference lists the asset types tried for review uploads.
var assetTypePreference = []string{"Upload", "Review", "Plate", "Comp"}

// VersionResult describes a published review version.
type VersionResult struct {
	Shot        tracking.Ref `json:"shot"`
	AssetID     string       `json:"asset_id"`
	VersionID   string       `json:"version_id"`
	Version     int          `json:"version"`
	TaskID      string       `json:"task_id,omitempty"`
	ComponentID string       `json:"component_id"`
	NoteID      string       `json:"note_id,omitempty"`
}

// Version uploads the movie at videoPath and publishes it as a new
// AssetVersion of the shot's asset, linked to the shot's first task, then
// requests web-review encoding. A non-empty comment is also posted as a note
// on the version. No version is created when the upload fails.
func (a *Attacher) Version(ctx context.Context, shotRef tracking.Ref, videoPath, comment string) (VersionResult, error) {
	logger := logging.WithContext(ctx, a.logger)
	media, err := inspect(videoPath, "video")
	if err != nil {
		return VersionResult{}, err
	}
	if shotRef.Type == "" {
		shotRef.Type = tracking.TypeShot
	}
	shot, err := a.Resolve(ctx, shotRef)
	if err != nil {
		return VersionResult{}, err
	}

	asset, err := a.shotAsset(ctx, shot)
	if err != nil {
		return VersionResult{}, err
	}
	task, hasTask, err := tracking.First(ctx, a.svc, tracking.Query{Type: tracking.TypeTask, OrderBy: "name"}.Where(tracking.Eq("parent_id", shot.ID)))
	if err != nil {
		return VersionResult{}, fmt.Errorf("find task for %s: %w", shot.Name(), err)
	}
	number, err := a.nextVersion(ctx, asset.ID)
	if err != nil {
		return VersionResult{}, err
	}
	userID, err := a.userID(ctx)
	if err != nil {
		return VersionResult{}, err
	}

	// A failed upload must not leave an empty version.
	component, err := a.uploadComponent(ctx, media, "main")
	if err != nil {
		return VersionResult{}, fmt.Errorf("upload version media for %s: %w", shot.Name(), err)
	}

	attrs := map[string]any{
		"asset_id": asset.ID,
		"version":  number,
		"comment":  comment,
	}
	if hasTask {
		attrs["task_id"] = task.ID
	}
	if userID != "" {
		attrs["user_id"] = userID
	}
	version, err := a.svc.Create(ctx, tracking.TypeAssetVersion, attrs)
	if err != nil {
		return VersionResult{}, fmt.Errorf("create version of %s: %w", shot.Name(), err)
	}
	result := VersionResult{Shot: shot.Ref(), AssetID: asset.ID, VersionID: version.ID, Version: number, ComponentID: component.ID}
	if hasTask {
		result.TaskID = task.ID
	}
	if _, err := a.svc.Update(ctx, tracking.TypeFileComponent, component.ID, map[string]any{"version_id": version.ID}); err != nil {
		return result, fmt.Errorf("link version media for %s: %w", shot.Name(), err)
	}

	if comment != "" {
		note, err := a.createNote(ctx, version, comment, "", userID)
		if err != nil {
			if tracking.IsConnectionLevel(err) {
				return result, err
			}
			logging.WarnWithContext(logger, "version note not created", "version_note_failed",
				logging.Subject(shot.Name()),
				logging.String(logging.FieldErrorHint, "the comment is still stored on the version"),
				logging.Error(err),
			)
		} else {
			result.NoteID = note.ID
		}
	}

	if err := a.svc.EncodeMedia(ctx, component.ID, version.ID); err != nil {
		return result, fmt.Errorf("encode version media for %s: %w", shot.Name(), err)
	}

	logger.Info("version published",
		logging.Subject(shot.Name()),
		logging.Int("version", number),
		logging.String("version_id", version.ID),
		logging.String("task_id", result.TaskID),
	)
	return result, nil
}

// shotAsset returns the asset named after the shot, creating it with the
// first available review asset type.
func (a *Attacher) shotAsset(ctx context.Context, shot tracking.Entity) (tracking.Entity, error) {
	q := tracking.Query{Type: tracking.TypeAsset}.Where(tracking.Eq("parent_id", shot.ID), tracking.Eq("name", shot.Name()))
	asset, found, err := tracking.First(ctx, a.svc, q)
	if err != nil {
		return tracking.Entity{}, fmt.Errorf("find asset for %s: %w", shot.Name(), err)
	}
	if found {
		return asset, nil
	}
	attrs := map[string]any{
		"name":       shot.Name(),
		"parent_id":  shot.ID,
		"context_id": shot.ID,
	}
	for _, name := range assetTypePreference {
		assetType, ok, err := tracking.First(ctx, a.svc, tracking.Query{Type: tracking.TypeAssetType}.Where(tracking.Eq("name", name)))
		if err != nil {
			return tracking.Entity{}, fmt.Errorf("find asset type %s: %w", name, err)
		}
		if ok {
			attrs["type_id"] = assetType.ID
			break
		}
	}
	asset, err = a.svc.Create(ctx, tracking.TypeAsset, attrs)
	if err != nil {
		return tracking.Entity{}, fmt.Errorf("create asset for %s: %w", shot.Name(), err)
	}
	return asset, nil
}

func (a *Attacher) nextVersion(ctx context.Context, assetID string) (int, error) {
	latest, found, err := tracking.First(ctx, a.svc, tracking.Query{Type: tracking.TypeAssetVersion, OrderBy: "version desc"}.Where(tracking.Eq("asset_id", assetID)))
	if err != nil {
		return 0, fmt.Errorf("find latest version: %w", err)
	}
	if !found {
		return 1, nil
	}
	return int(latest.Float("version")) + 1, nil
}

// Versions lists versions linked to entity, either through their task or
// through an asset parented to it, ordered by version number.
func (a *Attacher) Versions(ctx context.Context, ref tracking.Ref) ([]tracking.Entity, error) {
	entity, err := a.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []tracking.Entity
	collect := func(items []tracking.Entity) {
		for _, item := range items {
			if !seen[item.ID] {
				seen[item.ID] = true
				out = append(out, item)
			}
		}
	}

	byTask, err := a.svc.Query(ctx, tracking.Query{Type: tracking.TypeAssetVersion}.Where(tracking.Eq("task_id", entity.ID)))
	if err != nil {
		return nil, err
	}
	collect(byTask)

	assets, err := a.svc.Query(ctx, tracking.Query{Type: tracking.TypeAsset}.Where(tracking.Eq("parent_id", entity.ID)))
	if err != nil {
		return nil, err
	}
	for _, asset := range assets {
		versions, err := a.svc.Query(ctx, tracking.Query{Type: tracking.TypeAssetVersion}.Where(tracking.Eq("asset_id", asset.ID)))
		if err != nil {
			return nil, err
		}
		collect(versions)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Attr("asset_id") != out[j].Attr("asset_id") {
			return out[i].Attr("asset_id") < out[j].Attr("asset_id")
		}
		return out[i].Float("version") < out[j].Float("version")
	})
	return out, nil
}
