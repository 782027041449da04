package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

var knownTypes = []string{
	tracking.TypeProject,
	tracking.TypeSequence,
	tracking.TypeFolder,
	tracking.TypeShot,
	tracking.TypeTask,
	tracking.TypeTaskType,
	tracking.TypeStatus,
	tracking.TypeNote,
	tracking.TypeNoteCategory,
	tracking.TypeTimelog,
	tracking.TypeUser,
	tracking.TypeAsset,
	tracking.TypeAssetType,
	tracking.TypeAssetVersion,
	tracking.TypeFileComponent,
	tracking.TypeComponentLocation,
	tracking.TypeLocation,
	tracking.TypeAppointment,
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ServerInfo reports the local backend version.
func (s *Store) ServerInfo(ctx context.Context) (tracking.ServerInfo, error) {
	if err := s.checkOpen("server", "query_server_information"); err != nil {
		return tracking.ServerInfo{}, err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return tracking.ServerInfo{}, dbError("server", "query_server_information", err)
	}
	return tracking.ServerInfo{Version: ServerVersion, ServerURL: "file://" + s.path, Backend: "localstore"}, nil
}

// Query selects entities matching q.
func (s *Store) Query(ctx context.Context, q tracking.Query) ([]tracking.Entity, error) {
	if err := s.checkOpen(q.Type, "query"); err != nil {
		return nil, err
	}
	statement, args, err := buildSelect(q)
	if err != nil {
		return nil, tracking.Wrap(tracking.ErrValidation, q.Type, "query", "", err)
	}
	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, dbError(q.Type, "query", err)
	}
	defer rows.Close()

	var items []tracking.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, dbError(q.Type, "query", err)
		}
		items = append(items, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(q.Type, "query", err)
	}
	return items, nil
}

// Get fetches one entity by id.
func (s *Store) Get(ctx context.Context, entityType, id string) (tracking.Entity, error) {
	if err := s.checkOpen(entityType, "get"); err != nil {
		return tracking.Entity{}, err
	}
	return s.get(ctx, s.db, entityType, id)
}

func (s *Store) get(ctx context.Context, db execer, entityType, id string) (tracking.Entity, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, entity_type, data_json FROM entities WHERE id = ? AND entity_type = ?", id, entityType)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrNotFound, entityType, "get", id, nil)
	}
	if err != nil {
		return tracking.Entity{}, dbError(entityType, "get", err)
	}
	return entity, nil
}

// Create inserts an entity, deriving project_id from the parent when absent.
func (s *Store) Create(ctx context.Context, entityType string, attrs map[string]any) (tracking.Entity, error) {
	if err := s.checkOpen(entityType, "create"); err != nil {
		return tracking.Entity{}, err
	}
	entity, err := s.insert(ctx, s.db, entityType, attrs)
	if err != nil {
		return tracking.Entity{}, err
	}
	s.logger.Debug("entity created",
		logging.String("entity_type", entityType),
		logging.String("entity_id", entity.ID),
		logging.String("name", entity.Name()),
	)
	return entity, nil
}

func (s *Store) insert(ctx context.Context, db execer, entityType string, attrs map[string]any) (tracking.Entity, error) {
	if !slices.Contains(knownTypes, entityType) {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, entityType, "create",
			fmt.Sprintf("%q is not a valid entity type", entityType), nil)
	}
	id, _ := attrs["id"].(string)
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	entity := tracking.NewEntity(entityType, id, attrs)

	if parentID := entity.ParentID(); parentID != "" && entity.ProjectID() == "" && entityType != tracking.TypeProject {
		projectID, err := s.projectOf(ctx, db, parentID)
		if err != nil {
			return tracking.Entity{}, tracking.Wrap(tracking.ErrNotFound, entityType, "create", "parent "+parentID, err)
		}
		entity.Attributes["project_id"] = projectID
	}

	data, err := json.Marshal(entity.Attributes)
	if err != nil {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, entityType, "create", "encode attributes", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = db.ExecContext(ctx,
		`INSERT INTO entities (id, entity_type, name, parent_id, project_id, data_json, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID,
		entityType,
		nullableString(entity.Name()),
		nullableString(entity.ParentID()),
		nullableString(entity.ProjectID()),
		string(data),
		now,
		now,
	)
	if err != nil {
		return tracking.Entity{}, dbError(entityType, "create", err)
	}
	return entity, nil
}

func (s *Store) projectOf(ctx context.Context, db execer, parentID string) (string, error) {
	var entityType string
	var projectID sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT entity_type, project_id FROM entities WHERE id = ?", parentID,
	).Scan(&entityType, &projectID)
	if err != nil {
		return "", err
	}
	if entityType == tracking.TypeProject {
		return parentID, nil
	}
	return projectID.String, nil
}

// Update merges attrs into an existing entity.
func (s *Store) Update(ctx context.Context, entityType, id string, attrs map[string]any) (tracking.Entity, error) {
	if err := s.checkOpen(entityType, "update"); err != nil {
		return tracking.Entity{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tracking.Entity{}, dbError(entityType, "update", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.get(ctx, tx, entityType, id)
	if err != nil {
		return tracking.Entity{}, err
	}
	for key, value := range attrs {
		if key == "id" || key == "__entity_type__" {
			continue
		}
		current.Attributes[key] = value
	}
	data, err := json.Marshal(current.Attributes)
	if err != nil {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, entityType, "update", "encode attributes", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE entities SET name = ?, parent_id = ?, project_id = ?, data_json = ?, updated_at = ? WHERE id = ?`,
		nullableString(current.Name()),
		nullableString(current.ParentID()),
		nullableString(current.ProjectID()),
		string(data),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return tracking.Entity{}, dbError(entityType, "update", err)
	}
	if err := tx.Commit(); err != nil {
		return tracking.Entity{}, dbError(entityType, "update", err)
	}
	return current, nil
}

// Upload stores component bytes. The component must already exist.
func (s *Store) Upload(ctx context.Context, upload tracking.Upload) error {
	if err := s.checkOpen(tracking.TypeFileComponent, "upload"); err != nil {
		return err
	}
	if upload.Body == nil {
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "empty body", nil)
	}
	if _, err := s.get(ctx, s.db, tracking.TypeFileComponent, upload.ComponentID); err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "unknown component", err)
		}
		return err
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "read body", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO uploads (component_id, file_name, size, data, created_at) VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(component_id) DO UPDATE SET file_name = excluded.file_name, size = excluded.size, data = excluded.data`,
		upload.ComponentID,
		upload.FileName,
		len(data),
		data,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if wrapped := dbError(tracking.TypeFileComponent, "upload", err); tracking.IsConnectionLevel(wrapped) {
			return wrapped
		}
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "", err)
	}
	return nil
}

// UploadedSize returns the stored byte count for a component.
func (s *Store) UploadedSize(ctx context.Context, componentID string) (int64, bool, error) {
	var size int64
	err := s.db.QueryRowContext(ctx, "SELECT size FROM uploads WHERE component_id = ?", componentID).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, dbError(tracking.TypeFileComponent, "uploaded size", err)
	}
	return size, true, nil
}

// EncodeMedia records an encode request for an uploaded component.
func (s *Store) EncodeMedia(ctx context.Context, componentID, versionID string) error {
	if err := s.checkOpen(tracking.TypeAssetVersion, "encode_media"); err != nil {
		return err
	}
	if _, err := s.get(ctx, s.db, tracking.TypeFileComponent, componentID); err != nil {
		return err
	}
	if _, err := s.get(ctx, s.db, tracking.TypeAssetVersion, versionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO encode_jobs (id, component_id, version_id, created_at) VALUES (?, ?, ?, ?)",
		uuid.NewString(), componentID, versionID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return dbError(tracking.TypeAssetVersion, "encode_media", err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(row scanner) (tracking.Entity, error) {
	var id, entityType, data string
	if err := row.Scan(&id, &entityType, &data); err != nil {
		return tracking.Entity{}, err
	}
	attrs := map[string]any{}
	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return tracking.Entity{}, fmt.Errorf("decode entity %s: %w", id, err)
	}
	return tracking.NewEntity(entityType, id, attrs), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
