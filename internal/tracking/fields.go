package tracking

var defaultFields = map[string][]string{
	TypeProject:           {"id", "name", "full_name", "status"},
	TypeSequence:          {"id", "name", "parent_id", "project_id", "description", "thumbnail_id"},
	TypeFolder:            {"id", "name", "parent_id", "project_id", "description", "thumbnail_id"},
	TypeShot:              {"id", "name", "parent_id", "project_id", "description", "thumbnail_id"},
	TypeTask:              {"id", "name", "parent_id", "project_id", "type_id", "status_id", "thumbnail_id"},
	TypeTaskType:          {"id", "name"},
	TypeStatus:            {"id", "name"},
	TypeNote:              {"id", "content", "parent_id", "parent_type", "user_id", "category_id", "date"},
	TypeNoteCategory:      {"id", "name"},
	TypeTimelog:           {"id", "context_id", "user_id", "start", "duration", "comment"},
	TypeUser:              {"id", "username", "first_name", "last_name"},
	TypeAsset:             {"id", "name", "parent_id", "context_id", "type_id"},
	TypeAssetType:         {"id", "name", "short"},
	TypeAssetVersion:      {"id", "asset_id", "version", "comment", "task_id", "user_id", "thumbnail_id"},
	TypeFileComponent:     {"id", "name", "file_type", "size", "version_id"},
	TypeComponentLocation: {"id", "component_id", "location_id", "resource_identifier"},
	TypeLocation:          {"id", "name"},
	TypeAppointment:       {"id", "context_id", "resource_id", "type"},
}

// DefaultFields returns the attributes selected when a query names none.
func DefaultFields(entityType string) []string {
	if fields, ok := defaultFields[entityType]; ok {
		return append([]string(nil), fields...)
	}
	return []string{"id", "name"}
}
