package tracking

import (
	"context"
	"io"
)

// Entity type names understood by every backend.
const (
	TypeProject           = "Project"
	TypeSequence          = "Sequence"
	TypeFolder            = "Folder"
	TypeShot              = "Shot"
	TypeTask              = "Task"
	TypeTaskType          = "Type"
	TypeStatus            = "Status"
	TypeNote              = "Note"
	TypeNoteCategory      = "NoteCategory"
	TypeTimelog           = "Timelog"
	TypeUser              = "User"
	TypeAsset             = "Asset"
	TypeAssetType         = "AssetType"
	TypeAssetVersion      = "AssetVersion"
	TypeFileComponent     = "FileComponent"
	TypeComponentLocation = "ComponentLocation"
	TypeLocation          = "Location"
	TypeAppointment       = "Appointment"
)

// ServerLocationID is the fixed identifier of the server-managed storage
// location that uploaded components are registered in.
const ServerLocationID = "3a372bde-05bc-11e4-8908-20c9d081909b"

// ServerInfo describes the remote service as reported by a round trip.
type ServerInfo struct {
	Version   string `json:"version"`
	ServerURL string `json:"server_url,omitempty"`
	Backend   string `json:"backend,omitempty"`
}

// Upload carries component data destined for the server location.
type Upload struct {
	ComponentID string
	FileName    string
	Size        int64
	Body        io.Reader
}

// Service is the remote tracking boundary. Every call blocks until the
// backend responds or ctx is done. Implementations are not required to be
// safe for concurrent use.
type Service interface {
	ServerInfo(ctx context.Context) (ServerInfo, error)
	Query(ctx context.Context, q Query) ([]Entity, error)
	Get(ctx context.Context, entityType, id string) (Entity, error)
	Create(ctx context.Context, entityType string, attrs map[string]any) (Entity, error)
	Update(ctx context.Context, entityType, id string, attrs map[string]any) (Entity, error)
	Upload(ctx context.Context, upload Upload) error
	EncodeMedia(ctx context.Context, componentID, versionID string) error
	Close() error
}

// First runs q with a limit of one and reports whether a match exists.
func First(ctx context.Context, svc Service, q Query) (Entity, bool, error) {
	q.Limit = 1
	items, err := svc.Query(ctx, q)
	if err != nil {
		return Entity{}, false, err
	}
	if len(items) == 0 {
		return Entity{}, false, nil
	}
	return items[0], true, nil
}
