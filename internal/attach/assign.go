package attach

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// DefaultMyTasksLimit caps MyTasks when the caller passes no limit.
const DefaultMyTasksLimit = 200

// Assignment links the configured user to a task.
type Assignment struct {
	Task          tracking.Ref `json:"task"`
	UserID        string       `json:"user_id"`
	AppointmentID string       `json:"appointment_id"`
	Created       bool         `json:"created"`
}

// Assign appoints the configured user to a task. An existing appointment
// is returned with Created false.
func (a *Attacher) Assign(ctx context.Context, taskRef tracking.Ref) (Assignment, error) {
	if taskRef.Type == "" {
		taskRef.Type = tracking.TypeTask
	}
	task, err := a.Resolve(ctx, taskRef)
	if err != nil {
		return Assignment{}, err
	}
	user, err := a.currentUser(ctx)
	if err != nil {
		return Assignment{}, err
	}
	result := Assignment{Task: task.Ref(), UserID: user.ID}

	existing, found, err := tracking.First(ctx, a.svc, tracking.Query{Type: tracking.TypeAppointment}.
		Where(tracking.Eq("context_id", task.ID), tracking.Eq("resource_id", user.ID)))
	if err != nil {
		return Assignment{}, fmt.Errorf("find assignment on %s: %w", task.Name(), err)
	}
	if found {
		result.AppointmentID = existing.ID
		return result, nil
	}

	attrs := map[string]any{"context_id": task.ID, "resource_id": user.ID, "type": "assignment"}
	appointment, err := a.svc.Create(ctx, tracking.TypeAppointment, attrs)
	if err != nil && errors.Is(err, tracking.ErrValidation) {
		// Older schemas have no appointment type.
		delete(attrs, "type")
		appointment, err = a.svc.Create(ctx, tracking.TypeAppointment, attrs)
	}
	if err != nil {
		return Assignment{}, fmt.Errorf("assign %s to %s: %w", a.username, task.Name(), err)
	}
	result.AppointmentID = appointment.ID
	result.Created = true
	logging.WithContext(ctx, a.logger).Info("user assigned",
		logging.Subject(task.Name()),
		logging.String("username", a.username),
		logging.String("appointment_id", appointment.ID),
	)
	return result, nil
}

// MyTasks lists the in-progress tasks assigned to the configured user,
// skipping tasks of inactive projects, ordered by name. limit <= 0 means
// DefaultMyTasksLimit.
func (a *Attacher) MyTasks(ctx context.Context, limit int) ([]tracking.Entity, error) {
	if limit <= 0 {
		limit = DefaultMyTasksLimit
	}
	user, err := a.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	inProgress, err := a.inProgressStatuses(ctx)
	if err != nil {
		return nil, err
	}
	appointments, err := a.svc.Query(ctx, tracking.Query{Type: tracking.TypeAppointment}.Where(tracking.Eq("resource_id", user.ID)))
	if err != nil {
		return nil, err
	}

	active := map[string]bool{}
	seen := map[string]bool{}
	var tasks []tracking.Entity
	for _, appointment := range appointments {
		if kind := appointment.Attr("type"); kind != "" && kind != "assignment" {
			continue
		}
		id := appointment.Attr("context_id")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		task, err := a.svc.Get(ctx, tracking.TypeTask, id)
		if errors.Is(err, tracking.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !inProgress[task.Attr("status_id")] {
			continue
		}
		ok, err := a.projectActive(ctx, task.ProjectID(), active)
		if err != nil {
			return nil, err
		}
		if ok {
			tasks = append(tasks, task)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Name() < tasks[j].Name() })
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// inProgressStatuses returns the ids of statuses spelled like "In Progress".
func (a *Attacher) inProgressStatuses(ctx context.Context) (map[string]bool, error) {
	statuses, err := a.svc.Query(ctx, tracking.Query{Type: tracking.TypeStatus})
	if err != nil {
		return nil, err
	}
	ids := map[string]bool{}
	for _, status := range statuses {
		if foldStatus(status.Name()) == "inprogress" {
			ids[status.ID] = true
		}
	}
	if len(ids) == 0 {
		return nil, tracking.Wrap(tracking.ErrNotFound, tracking.TypeStatus, "query", "the server has no in-progress status", nil)
	}
	return ids, nil
}

func (a *Attacher) projectActive(ctx context.Context, id string, cache map[string]bool) (bool, error) {
	if id == "" {
		return true, nil
	}
	if ok, cached := cache[id]; cached {
		return ok, nil
	}
	project, err := a.svc.Get(ctx, tracking.TypeProject, id)
	if err != nil && !errors.Is(err, tracking.ErrNotFound) {
		return false, err
	}
	status := strings.TrimSpace(project.Attr("status"))
	ok := err == nil && (status == "" || strings.EqualFold(status, "active"))
	cache[id] = ok
	return ok, nil
}

// currentUser is userID for operations that cannot run without a user.
func (a *Attacher) currentUser(ctx context.Context) (tracking.Entity, error) {
	if a.username == "" {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, tracking.TypeUser, "resolve", "no username configured", nil)
	}
	user, found, err := tracking.First(ctx, a.svc, tracking.Query{Type: tracking.TypeUser}.Where(tracking.Eq("username", a.username)))
	if err != nil {
		return tracking.Entity{}, err
	}
	if !found {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrNotFound, tracking.TypeUser, "resolve", fmt.Sprintf("user %q is not known to the server", a.username), nil)
	}
	return user, nil
}

func foldStatus(name string) string {
	name = strings.ReplaceAll(strings.ToLower(name), "_", "")
	return strings.Join(strings.Fields(name), "")
}
