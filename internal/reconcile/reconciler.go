package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"shotbridge/internal/attach"
	"shotbridge/internal/config"
	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// DesiredShot describes a shot and the tasks it should carry. Status
// overrides the reconciler's default initial task status.
type DesiredShot struct {
	Name        string   `json:"name" toml:"name"`
	Description string   `json:"description,omitempty" toml:"description"`
	Tasks       []string `json:"tasks,omitempty" toml:"tasks"`
	Status      string   `json:"status,omitempty" toml:"status"`
}

// DesiredSequence groups shots under a sequence name.
type DesiredSequence struct {
	Name  string        `json:"name" toml:"name"`
	Shots []DesiredShot `json:"shots" toml:"shots"`
}

// ProgressFunc receives the 1-based index of the shot just processed.
type ProgressFunc func(current, total int, sequence, shot string)

// Options configures a Reconciler.
type Options struct {
	// DefaultStatus is the initial task status when a shot sets none.
	DefaultStatus string
	// TaskTypes apply to shots that list no tasks.
	TaskTypes []string
	// NameMatch is one of exact, casefold, trim, trim_casefold.
	NameMatch string
	// SequenceFolderFallback looks up and creates Folders when the server
	// has no usable Sequence.
	SequenceFolderFallback bool
	ConformTask            bool
	ConformStatus          string
	// ParentID places sequences under an existing Folder, or shots directly
	// under an existing Sequence, instead of the project root.
	ParentID string
	// ThumbnailDir and VideoDir are searched for each shot's poster frame
	// and review movie once its tasks are done. Empty skips the search.
	ThumbnailDir string
	VideoDir     string
	// AssignUser appoints Username to created tasks and the conform task.
	AssignUser bool
	// Username authors versions and receives assignments.
	Username string
	DryRun   bool
	Progress ProgressFunc
	Logger   *slog.Logger
}

// OptionsFromConfig maps the [reconcile] section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		DefaultStatus:          cfg.Reconcile.DefaultStatus,
		TaskTypes:              append([]string(nil), cfg.Reconcile.TaskTypes...),
		NameMatch:              cfg.Reconcile.NameMatch,
		SequenceFolderFallback: cfg.Reconcile.SequenceFolderFallback,
		ConformTask:            cfg.Reconcile.ConformTask,
		ConformStatus:          cfg.Reconcile.ConformStatus,
		AssignUser:             cfg.Reconcile.AssignUser,
	}
}

// Reconciler performs get-or-create passes. It keeps no state between
// passes and is safe to reuse.
type Reconciler struct {
	opts   Options
	match  matcher
	logger *slog.Logger
}

// New validates opts and builds a Reconciler.
func New(opts Options) (*Reconciler, error) {
	match, err := newMatcher(opts.NameMatch)
	if err != nil {
		return nil, tracking.Wrap(tracking.ErrValidation, "", "reconcile", "", err)
	}
	opts.Username = strings.TrimSpace(opts.Username)
	if opts.AssignUser && opts.Username == "" {
		return nil, tracking.Wrap(tracking.ErrValidation, "", "reconcile", "assigning tasks needs a username", nil)
	}
	if opts.ConformStatus == "" {
		opts.ConformStatus = "pending_review"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{
		opts:   opts,
		match:  match,
		logger: logging.NewComponentLogger(logger, "reconcile"),
	}, nil
}

// pass holds the state of a single Reconcile call.
type pass struct {
	r        *Reconciler
	svc      tracking.Service
	logger   *slog.Logger
	manifest *Manifest
	catalog  *catalog
	project  tracking.Entity
	attacher *attach.Attacher
	sampler  *logging.ProgressSampler
	total    int
	done     int

	// parent is the resolved ParentID, zero when sequences go under the
	// project.
	parent         tracking.Entity
	parentRecorded bool
}

// Reconcile makes sure every sequence, shot and task in sequences exists
// under the project identified by projectRef (an id, name or full name).
// The returned manifest is never nil. A non-nil error means the pass was
// aborted by a connection-level failure or an unresolvable project or
// parent; the manifest then holds the entries recorded so far.
func (r *Reconciler) Reconcile(ctx context.Context, svc tracking.Service, projectRef string, sequences []DesiredSequence) (*Manifest, error) {
	p := &pass{
		r:        r,
		svc:      svc,
		logger:   logging.WithContext(ctx, r.logger),
		manifest: &Manifest{dryRun: r.opts.DryRun},
		catalog:  newCatalog(svc),
		attacher: attach.New(svc, attach.Options{Username: r.opts.Username, Logger: r.opts.Logger}),
		sampler:  logging.NewProgressSampler(25),
	}
	for _, seq := range sequences {
		p.total += len(seq.Shots)
	}

	project, err := p.resolveProject(ctx, projectRef)
	if err != nil {
		return p.manifest, err
	}
	p.project = project
	p.manifest.project = project.Ref()
	if strings.TrimSpace(r.opts.ParentID) != "" {
		parent, err := p.resolveParent(ctx)
		if err != nil {
			return p.manifest, err
		}
		p.parent = parent
	}
	p.logger.Info("reconcile started",
		logging.String("project", project.Name()),
		logging.String("project_id", project.ID),
		logging.String("parent_id", p.parent.ID),
		logging.Int("sequences", len(sequences)),
		logging.Int("shots", p.total),
		logging.Bool("dry_run", r.opts.DryRun),
	)

	for _, seq := range sequences {
		if err := p.sequence(ctx, seq); err != nil {
			p.logger.Error("reconcile aborted", logging.Args(logging.ErrorAttrs(err)...)...)
			return p.manifest, err
		}
	}

	summary := p.manifest.Summary()
	p.logger.Info("reconcile finished",
		logging.Int("created", summary.Created),
		logging.Int("already_existed", summary.Existed),
		logging.Int("failed", summary.Failed),
		logging.Int("planned", summary.Planned),
	)
	return p.manifest, nil
}

func (p *pass) resolveProject(ctx context.Context, ref string) (tracking.Entity, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, tracking.TypeProject, "resolve", "project reference is empty", nil)
	}
	project, err := p.svc.Get(ctx, tracking.TypeProject, ref)
	switch {
	case err == nil:
		p.checkProject(project)
		return project, nil
	case tracking.IsConnectionLevel(err):
		return tracking.Entity{}, err
	}
	for _, field := range []string{"name", "full_name"} {
		project, found, err := tracking.First(ctx, p.svc, tracking.Query{Type: tracking.TypeProject}.Where(tracking.Eq(field, ref)))
		if err != nil {
			return tracking.Entity{}, err
		}
		if found {
			p.checkProject(project)
			return project, nil
		}
	}
	return tracking.Entity{}, tracking.Wrap(tracking.ErrNotFound, tracking.TypeProject, "resolve", fmt.Sprintf("no project matches %q", ref), nil)
}

func (p *pass) checkProject(project tracking.Entity) {
	status := strings.TrimSpace(project.Attr("status"))
	if status != "" && !strings.EqualFold(status, "active") {
		logging.WarnWithContext(p.logger, "project is not active", "project_inactive",
			logging.String("project", project.Name()),
			logging.String("status", status),
			logging.String(logging.FieldErrorHint, "entities will still be created; check the project status on the server"),
		)
	}
}

// resolveParent fetches ParentID as a Sequence or Folder of the project.
func (p *pass) resolveParent(ctx context.Context) (tracking.Entity, error) {
	id := strings.TrimSpace(p.r.opts.ParentID)
	for _, entityType := range []string{tracking.TypeSequence, tracking.TypeFolder} {
		parent, err := p.svc.Get(ctx, entityType, id)
		if errors.Is(err, tracking.ErrNotFound) {
			continue
		}
		if err != nil {
			return tracking.Entity{}, err
		}
		if projectID := parent.ProjectID(); projectID != "" && projectID != p.project.ID {
			return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, entityType, "resolve",
				fmt.Sprintf("parent %s belongs to another project", id), nil)
		}
		return parent, nil
	}
	return tracking.Entity{}, tracking.Wrap(tracking.ErrNotFound, "", "resolve", fmt.Sprintf("no Sequence or Folder with id %s", id), nil)
}

func (p *pass) sequence(ctx context.Context, seq DesiredSequence) error {
	if p.parent.Type == tracking.TypeSequence {
		return p.intoParentSequence(ctx, seq)
	}
	parentID := p.project.ID
	if p.parent.ID != "" {
		parentID = p.parent.ID
	}
	node := Node{Kind: KindSequence, Name: seq.Name, Path: joinPath(seq.Name), ParentID: parentID}
	if strings.TrimSpace(seq.Name) == "" {
		p.fail(node, tracking.Wrap(tracking.ErrValidation, tracking.TypeSequence, "reconcile", "sequence name is empty", nil))
		p.skipShots(seq)
		return nil
	}

	entity, outcome, err := p.getOrCreateSequence(ctx, node)
	if err != nil {
		if tracking.IsConnectionLevel(err) {
			return err
		}
		p.fail(node, err)
		p.skipShots(seq)
		return nil
	}
	node.ID = entity.ID
	node.EntityType = entity.Type
	if outcome == OutcomePlanned {
		node.EntityType = tracking.TypeSequence
	}
	p.record(node, outcome)
	return p.shots(ctx, seq, node, outcome == OutcomePlanned)
}

// intoParentSequence reconciles the shots of seq directly under the parent
// Sequence. Layout sequence names only group the shots.
func (p *pass) intoParentSequence(ctx context.Context, seq DesiredSequence) error {
	name := p.parent.Name()
	node := Node{Kind: KindSequence, Name: name, Path: joinPath(name), ParentID: p.parent.ParentID(), ID: p.parent.ID, EntityType: p.parent.Type}
	if !p.parentRecorded {
		p.parentRecorded = true
		p.record(node, OutcomeExisted)
	}
	return p.shots(ctx, seq, node, false)
}

func (p *pass) shots(ctx context.Context, seq DesiredSequence, parent Node, planned bool) error {
	for _, shot := range seq.Shots {
		if err := ctx.Err(); err != nil {
			return tracking.Wrap(tracking.ErrConnectivity, tracking.TypeShot, "reconcile", "", err)
		}
		if err := p.shot(ctx, parent, planned, shot); err != nil {
			return err
		}
		p.progress(seq.Name, shot.Name)
	}
	return nil
}

func (p *pass) getOrCreateSequence(ctx context.Context, node Node) (tracking.Entity, Outcome, error) {
	types := []string{tracking.TypeSequence}
	if p.r.opts.SequenceFolderFallback {
		types = append(types, tracking.TypeFolder)
	}
	for _, entityType := range types {
		existing, found, err := p.lookup(ctx, entityType, node.ParentID, node.Name)
		if err != nil {
			return tracking.Entity{}, "", err
		}
		if found {
			return existing, OutcomeExisted, nil
		}
	}
	if p.r.opts.DryRun {
		return tracking.Entity{}, OutcomePlanned, nil
	}
	attrs := map[string]any{"name": node.Name, "parent_id": node.ParentID, "project_id": p.project.ID}
	created, outcome, err := p.create(ctx, tracking.TypeSequence, node, attrs)
	if err != nil && p.r.opts.SequenceFolderFallback && sequenceRejected(err) {
		p.logger.Warn("sequence rejected by server; creating folder instead",
			logging.Subject(node.Path),
			logging.String(logging.FieldErrorHint, "the project schema may not allow Sequence objects"),
			logging.Error(err),
		)
		created, outcome, err = p.create(ctx, tracking.TypeFolder, node, attrs)
	}
	return created, outcome, err
}

// sequenceRejected reports whether the server refused the Sequence type
// itself, as opposed to failing the call.
func sequenceRejected(err error) bool {
	return errors.Is(err, tracking.ErrValidation) || errors.Is(err, tracking.ErrPermission)
}

func (p *pass) shot(ctx context.Context, seq Node, parentPlanned bool, shot DesiredShot) error {
	node := Node{Kind: KindShot, Name: shot.Name, Path: joinPath(seq.Name, shot.Name), ParentID: seq.ID, EntityType: tracking.TypeShot}
	if strings.TrimSpace(shot.Name) == "" {
		p.fail(node, tracking.Wrap(tracking.ErrValidation, tracking.TypeShot, "reconcile", "shot name is empty", nil))
		return nil
	}

	outcome := OutcomePlanned
	var entity tracking.Entity
	if !parentPlanned {
		var err error
		entity, outcome, err = p.getOrCreateShot(ctx, node, shot)
		if err != nil {
			if tracking.IsConnectionLevel(err) {
				return err
			}
			p.fail(node, err)
			return nil
		}
		node.ID = entity.ID
	}
	p.record(node, outcome)

	for _, spec := range p.tasksFor(shot) {
		if err := p.task(ctx, node, outcome == OutcomePlanned, spec); err != nil {
			return err
		}
	}
	return p.media(ctx, node, entity, outcome == OutcomePlanned)
}

func (p *pass) getOrCreateShot(ctx context.Context, node Node, shot DesiredShot) (tracking.Entity, Outcome, error) {
	existing, found, err := p.lookup(ctx, tracking.TypeShot, node.ParentID, node.Name)
	if err != nil {
		return tracking.Entity{}, "", err
	}
	if found {
		return existing, OutcomeExisted, nil
	}
	if p.r.opts.DryRun {
		return tracking.Entity{}, OutcomePlanned, nil
	}
	attrs := map[string]any{
		"name":       shot.Name,
		"parent_id":  node.ParentID,
		"project_id": p.project.ID,
	}
	if shot.Description != "" {
		attrs["description"] = shot.Description
	}
	return p.create(ctx, tracking.TypeShot, node, attrs)
}

type taskSpec struct {
	typeName string
	status   string
}

func (p *pass) tasksFor(shot DesiredShot) []taskSpec {
	names := shot.Tasks
	if len(names) == 0 {
		names = p.r.opts.TaskTypes
	}
	status := strings.TrimSpace(shot.Status)
	if status == "" {
		status = p.r.opts.DefaultStatus
	}
	seen := make(map[string]bool, len(names)+1)
	specs := make([]taskSpec, 0, len(names)+1)
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := TaskName(name)
		if canonical, ok := TaskTypeAlias(name); ok {
			key = TaskName(canonical)
		}
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		specs = append(specs, taskSpec{typeName: name, status: status})
	}
	if p.r.opts.ConformTask && !seen[TaskName("Conform")] {
		specs = append(specs, taskSpec{typeName: "Conform", status: p.r.opts.ConformStatus})
	}
	return specs
}

func (p *pass) task(ctx context.Context, shot Node, parentPlanned bool, spec taskSpec) error {
	typeName := spec.typeName
	if canonical, ok := TaskTypeAlias(typeName); ok {
		typeName = canonical
	}
	name := TaskName(typeName)
	node := Node{Kind: KindTask, Name: name, Path: joinPath(shot.Path, name), ParentID: shot.ID, EntityType: tracking.TypeTask}
	conform := name == TaskName("Conform")

	taskType, err := p.catalog.taskType(ctx, spec.typeName)
	if err != nil {
		if tracking.IsConnectionLevel(err) {
			return err
		}
		p.fail(node, err)
		return nil
	}

	if parentPlanned {
		p.record(node, OutcomePlanned)
		p.planAssignment(node)
		return nil
	}
	existing, found, err := p.lookup(ctx, tracking.TypeTask, shot.ID, name)
	if err != nil {
		if tracking.IsConnectionLevel(err) {
			return err
		}
		p.fail(node, err)
		return nil
	}
	if found {
		node.ID = existing.ID
		p.record(node, OutcomeExisted)
		if conform {
			return p.assign(ctx, node)
		}
		return nil
	}
	if p.r.opts.DryRun {
		p.record(node, OutcomePlanned)
		p.planAssignment(node)
		return nil
	}

	attrs := map[string]any{
		"name":       name,
		"parent_id":  shot.ID,
		"project_id": p.project.ID,
		"type_id":    taskType.ID,
	}
	status, ok, err := p.catalog.status(ctx, spec.status)
	switch {
	case err != nil && tracking.IsConnectionLevel(err):
		return err
	case err != nil:
		logging.WarnWithContext(p.logger, "status lookup failed; using server default", "status_lookup_failed",
			logging.Subject(node.Path),
			logging.String("status", spec.status),
			logging.Error(err),
		)
	case ok:
		attrs["status_id"] = status.ID
	case spec.status != "":
		logging.WarnWithContext(p.logger, "unknown status; using server default", "status_unknown",
			logging.Subject(node.Path),
			logging.String("status", spec.status),
			logging.String(logging.FieldErrorHint, "check reconcile.default_status against the server's statuses"),
		)
	}

	created, outcome, err := p.create(ctx, tracking.TypeTask, node, attrs)
	if err != nil {
		if tracking.IsConnectionLevel(err) {
			return err
		}
		p.fail(node, err)
		return nil
	}
	node.ID = created.ID
	p.record(node, outcome)
	if outcome == OutcomeCreated || conform {
		return p.assign(ctx, node)
	}
	return nil
}

func (p *pass) assignmentNode(task Node) Node {
	user := p.r.opts.Username
	return Node{Kind: KindAssignment, Name: user, Path: joinPath(task.Path, "@"+user), ParentID: task.ID, EntityType: tracking.TypeAppointment}
}

func (p *pass) planAssignment(task Node) {
	if p.r.opts.AssignUser {
		p.record(p.assignmentNode(task), OutcomePlanned)
	}
}

// assign appoints the user to task when AssignUser is set.
func (p *pass) assign(ctx context.Context, task Node) error {
	if !p.r.opts.AssignUser {
		return nil
	}
	node := p.assignmentNode(task)
	result, err := p.attacher.Assign(ctx, tracking.Ref{Type: tracking.TypeTask, ID: task.ID})
	if err != nil {
		return p.isolate(node, err)
	}
	node.ID = result.AppointmentID
	if result.Created {
		p.record(node, OutcomeCreated)
	} else {
		p.record(node, OutcomeExisted)
	}
	return nil
}

// media attaches the shot's exported poster frame and review movie.
func (p *pass) media(ctx context.Context, shot Node, entity tracking.Entity, planned bool) error {
	if dir := p.r.opts.ThumbnailDir; dir != "" {
		if path, ok := attach.FindThumbnail(dir, shot.Name); ok {
			if err := p.thumbnail(ctx, shot, entity, planned, path); err != nil {
				return err
			}
		}
	}
	if dir := p.r.opts.VideoDir; dir != "" {
		if path, ok := attach.FindVideo(dir, shot.Name); ok {
			return p.version(ctx, shot, planned, path)
		}
	}
	return nil
}

// thumbnail uploads path unless the shot already carries a thumbnail.
func (p *pass) thumbnail(ctx context.Context, shot Node, entity tracking.Entity, planned bool, path string) error {
	node := Node{Kind: KindThumbnail, Name: filepath.Base(path), Path: joinPath(shot.Path, "@thumbnail"), ParentID: shot.ID, EntityType: tracking.TypeFileComponent}
	if id := entity.Attr("thumbnail_id"); id != "" {
		node.ID = id
		p.record(node, OutcomeExisted)
		return nil
	}
	if planned || p.r.opts.DryRun {
		p.record(node, OutcomePlanned)
		return nil
	}
	result, err := p.attacher.Thumbnail(ctx, tracking.Ref{Type: tracking.TypeShot, ID: shot.ID}, path)
	if err != nil {
		return p.isolate(node, err)
	}
	node.ID = result.ComponentID
	p.record(node, OutcomeCreated)
	return nil
}

// version publishes path unless the shot already has a version.
func (p *pass) version(ctx context.Context, shot Node, planned bool, path string) error {
	node := Node{Kind: KindVersion, Name: filepath.Base(path), Path: joinPath(shot.Path, "@version"), ParentID: shot.ID, EntityType: tracking.TypeAssetVersion}
	if !planned {
		versions, err := p.attacher.Versions(ctx, tracking.Ref{Type: tracking.TypeShot, ID: shot.ID})
		if err != nil {
			return p.isolate(node, err)
		}
		if len(versions) > 0 {
			node.ID = versions[len(versions)-1].ID
			p.record(node, OutcomeExisted)
			return nil
		}
	}
	if planned || p.r.opts.DryRun {
		p.record(node, OutcomePlanned)
		return nil
	}
	result, err := p.attacher.Version(ctx, tracking.Ref{Type: tracking.TypeShot, ID: shot.ID}, path, "")
	node.ID = result.VersionID
	if err != nil {
		return p.isolate(node, err)
	}
	p.record(node, OutcomeCreated)
	return nil
}

// isolate records a failed entry, passing connection-level errors up.
func (p *pass) isolate(node Node, err error) error {
	if tracking.IsConnectionLevel(err) {
		return err
	}
	p.fail(node, err)
	return nil
}

// lookup finds a child of parentID by name. Exact matching filters on the
// server; other modes list the siblings and compare locally.
func (p *pass) lookup(ctx context.Context, entityType, parentID, name string) (tracking.Entity, bool, error) {
	q := tracking.Query{Type: entityType}.Where(tracking.Eq("parent_id", parentID))
	if p.r.opts.NameMatch == "" || strings.EqualFold(p.r.opts.NameMatch, "exact") {
		return tracking.First(ctx, p.svc, q.Where(tracking.Eq("name", name)))
	}
	items, err := p.svc.Query(ctx, q)
	if err != nil {
		return tracking.Entity{}, false, err
	}
	for _, item := range items {
		if p.r.match(name, item.Name()) {
			return item, true, nil
		}
	}
	return tracking.Entity{}, false, nil
}

// create issues a create call. A duplicate error means the entity appeared
// after lookup; the existing one is reported instead.
func (p *pass) create(ctx context.Context, entityType string, node Node, attrs map[string]any) (tracking.Entity, Outcome, error) {
	created, err := p.svc.Create(ctx, entityType, attrs)
	if err == nil {
		p.logger.Debug("entity created",
			logging.Subject(node.Path),
			logging.String("entity_type", entityType),
			logging.String("entity_id", created.ID),
		)
		return created, OutcomeCreated, nil
	}
	if !errors.Is(err, tracking.ErrDuplicate) {
		return tracking.Entity{}, "", err
	}
	existing, found, lookupErr := p.lookup(ctx, entityType, node.ParentID, node.Name)
	if lookupErr != nil {
		return tracking.Entity{}, "", lookupErr
	}
	if !found {
		return tracking.Entity{}, "", err
	}
	return existing, OutcomeExisted, nil
}

func (p *pass) record(node Node, outcome Outcome) {
	p.manifest.add(Entry{Node: node, Outcome: outcome})
}

func (p *pass) fail(node Node, err error) {
	entry := p.manifest.add(Entry{Node: node, Outcome: OutcomeFailed, Err: err})
	logging.WarnWithContext(p.logger, "entity failed", "reconcile_entity_failed",
		logging.Subject(entry.Node.Path),
		logging.String("kind", string(node.Kind)),
		logging.String(logging.FieldErrorKind, tracking.Kind(err)),
		logging.Error(err),
	)
}

// skipShots advances progress past the shots of a sequence that failed.
func (p *pass) skipShots(seq DesiredSequence) {
	for _, shot := range seq.Shots {
		p.progress(seq.Name, shot.Name)
	}
}

func (p *pass) progress(sequence, shot string) {
	p.done++
	if p.r.opts.Progress != nil {
		p.r.opts.Progress(p.done, p.total, sequence, shot)
	}
	if p.sampler.ShouldLog(p.done, p.total, sequence) {
		p.logger.Info("reconcile progress",
			logging.Subject(sequence),
			logging.Int("done", p.done),
			logging.Int("total", p.total),
		)
	}
}
