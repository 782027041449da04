package ftrack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"shotbridge/internal/tracking"
)

type queryResult struct {
	Data []tracking.Entity `json:"data"`
}

type entityResult struct {
	Data tracking.Entity `json:"data"`
}

type uploadMetadata struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// ServerInfo performs a query_server_information round trip.
func (c *Client) ServerInfo(ctx context.Context) (tracking.ServerInfo, error) {
	var raw map[string]any
	if err := c.callOne(ctx, "server", "query_server_information", map[string]any{
		"action": "query_server_information",
	}, &raw); err != nil {
		return tracking.ServerInfo{}, err
	}
	version, _ := raw["version"].(string)
	return tracking.ServerInfo{Version: version, ServerURL: c.baseURL, Backend: "ftrack"}, nil
}

// Query runs q as an ftrack query expression.
func (c *Client) Query(ctx context.Context, q tracking.Query) ([]tracking.Entity, error) {
	if len(q.Fields) == 0 {
		q.Fields = tracking.DefaultFields(q.Type)
	}
	var result queryResult
	if err := c.callOne(ctx, q.Type, "query", map[string]any{
		"action":     "query",
		"expression": q.Expression(),
	}, &result); err != nil {
		return nil, err
	}
	for i := range result.Data {
		if result.Data[i].Type == "" {
			result.Data[i].Type = q.Type
		}
	}
	return result.Data, nil
}

// Get fetches one entity by id.
func (c *Client) Get(ctx context.Context, entityType, id string) (tracking.Entity, error) {
	items, err := c.Query(ctx, tracking.Query{Type: entityType, Limit: 1}.Where(tracking.Eq("id", id)))
	if err != nil {
		return tracking.Entity{}, err
	}
	if len(items) == 0 {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrNotFound, entityType, "get", id, nil)
	}
	return items[0], nil
}

// Create inserts an entity. An id is generated client side when absent.
func (c *Client) Create(ctx context.Context, entityType string, attrs map[string]any) (tracking.Entity, error) {
	data := make(map[string]any, len(attrs)+2)
	for k, v := range attrs {
		data[k] = v
	}
	if id, _ := data["id"].(string); strings.TrimSpace(id) == "" {
		data["id"] = uuid.NewString()
	}
	data["__entity_type__"] = entityType

	var result entityResult
	if err := c.callOne(ctx, entityType, "create", map[string]any{
		"action":      "create",
		"entity_type": entityType,
		"entity_data": data,
	}, &result); err != nil {
		return tracking.Entity{}, err
	}
	return fillEntity(result.Data, entityType, data), nil
}

// Update changes attributes of an existing entity.
func (c *Client) Update(ctx context.Context, entityType, id string, attrs map[string]any) (tracking.Entity, error) {
	data := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		data[k] = v
	}
	data["__entity_type__"] = entityType

	var result entityResult
	if err := c.callOne(ctx, entityType, "update", map[string]any{
		"action":      "update",
		"entity_type": entityType,
		"entity_key":  []string{id},
		"entity_data": data,
	}, &result); err != nil {
		return tracking.Entity{}, err
	}
	data["id"] = id
	return fillEntity(result.Data, entityType, data), nil
}

// Upload stores component bytes in the server location.
func (c *Client) Upload(ctx context.Context, upload tracking.Upload) error {
	if upload.Body == nil {
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "empty body", nil)
	}
	var meta uploadMetadata
	if err := c.callOne(ctx, tracking.TypeFileComponent, "get_upload_metadata", map[string]any{
		"action":       "get_upload_metadata",
		"component_id": upload.ComponentID,
		"file_name":    upload.FileName,
		"file_size":    upload.Size,
	}, &meta); err != nil {
		if tracking.IsConnectionLevel(err) {
			return err
		}
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "metadata", err)
	}
	if strings.TrimSpace(meta.URL) == "" {
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "server returned no upload url", nil)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return tracking.Wrap(tracking.ErrConnectivity, tracking.TypeFileComponent, "upload", "rate limiter", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, meta.URL, upload.Body)
	if err != nil {
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "build request", err)
	}
	if upload.Size > 0 {
		req.ContentLength = upload.Size
	}
	for key, value := range meta.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil || c.isClosed() {
			return tracking.Wrap(tracking.ErrConnectivity, tracking.TypeFileComponent, "upload", "put", err)
		}
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "put", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload",
			fmt.Sprintf("storage returned %d", resp.StatusCode), nil)
	}
	return nil
}

// EncodeMedia asks the server to transcode a component for web review.
func (c *Client) EncodeMedia(ctx context.Context, componentID, versionID string) error {
	var raw json.RawMessage
	return c.callOne(ctx, tracking.TypeAssetVersion, "encode_media", map[string]any{
		"action":        "encode_media",
		"component_id":  componentID,
		"version_id":    versionID,
		"keep_original": "auto",
	}, &raw)
}

// fillEntity completes a server echo with the attributes that were sent.
func fillEntity(got tracking.Entity, entityType string, sent map[string]any) tracking.Entity {
	merged := make(map[string]any, len(sent)+len(got.Attributes))
	for k, v := range sent {
		merged[k] = v
	}
	for k, v := range got.Attributes {
		merged[k] = v
	}
	id := got.ID
	if id == "" {
		id, _ = sent["id"].(string)
	}
	return tracking.NewEntity(entityType, id, merged)
}
