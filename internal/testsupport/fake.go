package testsupport

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"shotbridge/internal/tracking"
)

// FakeProjectID identifies the project seeded into every FakeService.
const FakeProjectID = "project-1"

// FakeTaskTypes and FakeStatuses are the catalogs a FakeService starts with.
var (
	FakeTaskTypes = []string{"Compositing", "Rotoscoping", "Tracking", "Conform", "Matte Painting"}
	FakeStatuses  = []string{"Not Started", "Ready To Start", "In Progress", "Pending Review", "Approved"}
)

// Call records one operation issued against a FakeService.
type Call struct {
	Op   string
	Type string
	Name string
}

type failure struct {
	op         string
	entityType string
	name       string
	err        error
}

// FakeService is an in-memory tracking.Service for tests. It enforces
// unique names among hierarchy siblings like a real server.
type FakeService struct {
	// Version is returned by ServerInfo.
	Version string
	// Unsupported entity types are rejected on create with ErrValidation.
	Unsupported map[string]bool
	// BeforeCall runs before every operation; a non-nil error is returned
	// as is.
	BeforeCall func(ctx context.Context, op string) error

	mu       sync.Mutex
	nextID   int
	entities map[string]tracking.Entity
	order    []string
	uploads  map[string][]byte
	encoded  [][2]string
	calls    []Call
	failures []failure
	closed   bool
}

var _ tracking.Service = (*FakeService)(nil)

// NewFakeService returns a fake seeded with a project, task types, statuses,
// asset types, the server location and a user named "artist".
func NewFakeService() *FakeService {
	f := &FakeService{
		Version:  "4.13.0",
		entities: map[string]tracking.Entity{},
		uploads:  map[string][]byte{},
	}
	f.Seed(tracking.TypeProject, map[string]any{"id": FakeProjectID, "name": "show", "full_name": "Show", "status": "active"})
	for _, name := range FakeTaskTypes {
		f.Seed(tracking.TypeTaskType, map[string]any{"name": name})
	}
	for _, name := range FakeStatuses {
		f.Seed(tracking.TypeStatus, map[string]any{"name": name})
	}
	for _, name := range []string{"Upload", "Review"} {
		f.Seed(tracking.TypeAssetType, map[string]any{"name": name, "short": strings.ToLower(name)})
	}
	f.Seed(tracking.TypeNoteCategory, map[string]any{"name": "Internal"})
	f.Seed(tracking.TypeLocation, map[string]any{"id": tracking.ServerLocationID, "name": "ftrack.server"})
	f.Seed(tracking.TypeUser, map[string]any{"username": "artist"})
	return f
}

// Seed stores an entity directly, bypassing counters and failures.
func (f *FakeService) Seed(entityType string, attrs map[string]any) tracking.Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	entity, _ := f.store(entityType, attrs)
	return entity
}

// FailOn makes the next matching operations fail with err. Empty entityType
// matches every type.
func (f *FakeService) FailOn(op, entityType string, err error) {
	f.FailOnName(op, entityType, "", err)
}

// FailOnName is FailOn restricted to entities with the given name.
func (f *FakeService) FailOnName(op, entityType, name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, failure{op: op, entityType: entityType, name: name, err: err})
}

// Calls returns a copy of the recorded operations.
func (f *FakeService) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CreateCount returns the number of create calls for entityType, or for
// every type when entityType is empty.
func (f *FakeService) CreateCount(entityType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call.Op == "create" && (entityType == "" || call.Type == entityType) {
			count++
		}
	}
	return count
}

// Entities returns stored entities of one type in insertion order.
func (f *FakeService) Entities(entityType string) []tracking.Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tracking.Entity
	for _, id := range f.order {
		if e := f.entities[id]; e.Type == entityType {
			out = append(out, tracking.NewEntity(e.Type, e.ID, e.Attributes))
		}
	}
	return out
}

// Uploaded returns the bytes stored for a component.
func (f *FakeService) Uploaded(componentID string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.uploads[componentID]
	return data, ok
}

// Encoded returns (component, version) pairs passed to EncodeMedia.
func (f *FakeService) Encoded() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]string(nil), f.encoded...)
}

// Closed reports whether Close was called.
func (f *FakeService) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeService) begin(ctx context.Context, op, entityType, name string) error {
	if f.BeforeCall != nil {
		if err := f.BeforeCall(ctx, op); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return tracking.Wrap(tracking.ErrConnectivity, entityType, op, "", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, Type: entityType, Name: name})
	for i, fail := range f.failures {
		if fail.op != op {
			continue
		}
		if fail.entityType != "" && fail.entityType != entityType {
			continue
		}
		if fail.name != "" && fail.name != name {
			continue
		}
		f.failures = slices.Delete(f.failures, i, i+1)
		return fail.err
	}
	return nil
}

func (f *FakeService) store(entityType string, attrs map[string]any) (tracking.Entity, error) {
	id, _ := attrs["id"].(string)
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("%s-%d", strings.ToLower(entityType), f.nextID)
	}
	entity := tracking.NewEntity(entityType, id, attrs)
	if parentID := entity.ParentID(); parentID != "" && entity.ProjectID() == "" {
		if parent, ok := f.entities[parentID]; ok {
			if parent.Type == tracking.TypeProject {
				entity.Attributes["project_id"] = parent.ID
			} else {
				entity.Attributes["project_id"] = parent.ProjectID()
			}
		}
	}
	if _, exists := f.entities[id]; !exists {
		f.order = append(f.order, id)
	}
	f.entities[id] = entity
	return tracking.NewEntity(entity.Type, entity.ID, entity.Attributes), nil
}

// ServerInfo returns the configured version.
func (f *FakeService) ServerInfo(ctx context.Context) (tracking.ServerInfo, error) {
	if err := f.begin(ctx, "query_server_information", "", ""); err != nil {
		return tracking.ServerInfo{}, err
	}
	return tracking.ServerInfo{Version: f.Version, Backend: "fake"}, nil
}

// Query evaluates filters against stored entities. "like" patterns use %
// wildcards and ignore case.
func (f *FakeService) Query(ctx context.Context, q tracking.Query) ([]tracking.Entity, error) {
	if err := f.begin(ctx, "query", q.Type, filterValue(q, "name")); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tracking.Entity
	for _, id := range f.order {
		e := f.entities[id]
		if e.Type != q.Type || !matches(e, q.Filters) {
			continue
		}
		out = append(out, tracking.NewEntity(e.Type, e.ID, e.Attributes))
	}
	if field := strings.Fields(q.OrderBy); len(field) > 0 {
		desc := len(field) > 1 && strings.EqualFold(field[1], "desc")
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].Attr(field[0]) > out[j].Attr(field[0])
			}
			return out[i].Attr(field[0]) < out[j].Attr(field[0])
		})
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Get returns one entity or ErrNotFound.
func (f *FakeService) Get(ctx context.Context, entityType, id string) (tracking.Entity, error) {
	if err := f.begin(ctx, "get", entityType, ""); err != nil {
		return tracking.Entity{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entities[id]
	if !ok || e.Type != entityType {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrNotFound, entityType, "get", id, nil)
	}
	return tracking.NewEntity(e.Type, e.ID, e.Attributes), nil
}

// Create stores a new entity, rejecting duplicate sibling names.
func (f *FakeService) Create(ctx context.Context, entityType string, attrs map[string]any) (tracking.Entity, error) {
	name, _ := attrs["name"].(string)
	if err := f.begin(ctx, "create", entityType, name); err != nil {
		return tracking.Entity{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unsupported[entityType] {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, entityType, "create",
			fmt.Sprintf("%q is not a valid entity type", entityType), nil)
	}
	parentID, _ := attrs["parent_id"].(string)
	if parentID != "" {
		if _, ok := f.entities[parentID]; !ok {
			return tracking.Entity{}, tracking.Wrap(tracking.ErrNotFound, entityType, "create", "parent "+parentID, nil)
		}
	}
	if name != "" && parentID != "" {
		for _, e := range f.entities {
			if e.Type == entityType && e.ParentID() == parentID && e.Name() == name {
				return tracking.Entity{}, tracking.Wrap(tracking.ErrDuplicate, entityType, "create", name, nil)
			}
		}
	}
	return f.store(entityType, attrs)
}

// Update merges attributes into an existing entity.
func (f *FakeService) Update(ctx context.Context, entityType, id string, attrs map[string]any) (tracking.Entity, error) {
	if err := f.begin(ctx, "update", entityType, ""); err != nil {
		return tracking.Entity{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entities[id]
	if !ok || e.Type != entityType {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrNotFound, entityType, "update", id, nil)
	}
	for k, v := range attrs {
		e.Attributes[k] = v
	}
	f.entities[id] = e
	return tracking.NewEntity(e.Type, e.ID, e.Attributes), nil
}

// Upload stores component bytes.
func (f *FakeService) Upload(ctx context.Context, upload tracking.Upload) error {
	if err := f.begin(ctx, "upload", tracking.TypeFileComponent, upload.FileName); err != nil {
		return err
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "read body", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entities[upload.ComponentID]; !ok {
		return tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "unknown component", nil)
	}
	f.uploads[upload.ComponentID] = data
	return nil
}

// EncodeMedia records the request.
func (f *FakeService) EncodeMedia(ctx context.Context, componentID, versionID string) error {
	if err := f.begin(ctx, "encode_media", tracking.TypeAssetVersion, ""); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encoded = append(f.encoded, [2]string{componentID, versionID})
	return nil
}

// Close marks the fake closed. Later calls still succeed so tests can
// observe connection-level behaviour separately.
func (f *FakeService) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func filterValue(q tracking.Query, field string) string {
	for _, filter := range q.Filters {
		if filter.Field == field {
			return filter.Value
		}
	}
	return ""
}

func matches(e tracking.Entity, filters []tracking.Filter) bool {
	for _, filter := range filters {
		value := e.Attr(filter.Field)
		switch filter.Op {
		case tracking.OpLike:
			pattern := "(?i)^" + strings.ReplaceAll(regexp.QuoteMeta(filter.Value), "%", ".*") + "$"
			if ok, _ := regexp.MatchString(pattern, value); !ok {
				return false
			}
		case tracking.OpGreaterEq:
			if value < filter.Value {
				return false
			}
		default:
			if value != filter.Value {
				return false
			}
		}
	}
	return true
}
