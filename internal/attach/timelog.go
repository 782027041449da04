package attach

import (
	"context"
	"fmt"
	"time"

	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// Timelog records time spent on a task. duration is stored in seconds; a
// zero start means "now".
func (a *Attacher) Timelog(ctx context.Context, taskRef tracking.Ref, duration time.Duration, start time.Time, comment string) (tracking.Entity, error) {
	if duration <= 0 {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, tracking.TypeTimelog, "create", fmt.Sprintf("duration must be positive, got %s", duration), nil)
	}
	if taskRef.Type == "" {
		taskRef.Type = tracking.TypeTask
	}
	task, err := a.Resolve(ctx, taskRef)
	if err != nil {
		return tracking.Entity{}, err
	}
	userID, err := a.userID(ctx)
	if err != nil {
		return tracking.Entity{}, err
	}
	if start.IsZero() {
		start = a.now()
	}
	attrs := map[string]any{
		"context_id": task.ID,
		"start":      start.UTC().Format(time.RFC3339),
		"duration":   duration.Seconds(),
		"comment":    comment,
	}
	if userID != "" {
		attrs["user_id"] = userID
	}
	timelog, err := a.svc.Create(ctx, tracking.TypeTimelog, attrs)
	if err != nil {
		return tracking.Entity{}, fmt.Errorf("timelog on %s: %w", task.Name(), err)
	}
	logging.WithContext(ctx, a.logger).Info("time logged",
		logging.Subject(task.Name()),
		logging.Duration("duration", duration),
		logging.String("timelog_id", timelog.ID),
	)
	return timelog, nil
}

// Timelogs lists the time logs of a task ordered by start.
func (a *Attacher) Timelogs(ctx context.Context, taskRef tracking.Ref) ([]tracking.Entity, error) {
	if taskRef.Type == "" {
		taskRef.Type = tracking.TypeTask
	}
	task, err := a.Resolve(ctx, taskRef)
	if err != nil {
		return nil, err
	}
	return a.svc.Query(ctx, tracking.Query{Type: tracking.TypeTimelog, OrderBy: "start"}.Where(tracking.Eq("context_id", task.ID)))
}

// TimelogsSince lists the configured user's time logs starting at or after
// since, ordered by start. A zero taskRef.ID covers every task.
func (a *Attacher) TimelogsSince(ctx context.Context, since time.Time, taskRef tracking.Ref) ([]tracking.Entity, error) {
	user, err := a.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	q := tracking.Query{Type: tracking.TypeTimelog, OrderBy: "start"}.Where(
		tracking.Eq("user_id", user.ID),
		tracking.AtLeast("start", since.UTC().Format(time.RFC3339)),
	)
	if taskRef.ID != "" {
		if taskRef.Type == "" {
			taskRef.Type = tracking.TypeTask
		}
		task, err := a.Resolve(ctx, taskRef)
		if err != nil {
			return nil, err
		}
		q = q.Where(tracking.Eq("context_id", task.ID))
	}
	return a.svc.Query(ctx, q)
}

// TimelogsToday is TimelogsSince local midnight.
func (a *Attacher) TimelogsToday(ctx context.Context, taskRef tracking.Ref) ([]tracking.Entity, error) {
	return a.TimelogsSince(ctx, StartOfDay(a.now()), taskRef)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TotalDuration sums the duration of timelogs.
func TotalDuration(timelogs []tracking.Entity) time.Duration {
	var total float64
	for _, t := range timelogs {
		total += t.Float("duration")
	}
	return time.Duration(total * float64(time.Second))
}
