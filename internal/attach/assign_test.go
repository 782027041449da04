package attach_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotbridge/internal/attach"
	"shotbridge/internal/testsupport"
	"shotbridge/internal/tracking"
)

func statusNamed(t *testing.T, fake *testsupport.FakeService, name string) string {
	t.Helper()
	for _, status := range fake.Entities(tracking.TypeStatus) {
		if status.Name() == name {
			return status.ID
		}
	}
	t.Fatalf("status %q not seeded", name)
	return ""
}

func TestAssignCreatesAppointmentOnce(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	a := newAttacher(fake)
	ctx := context.Background()

	first, err := a.Assign(ctx, h.comp.Ref())
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, userID(t, fake), first.UserID)

	appointments := fake.Entities(tracking.TypeAppointment)
	require.Len(t, appointments, 1)
	assert.Equal(t, h.comp.ID, appointments[0].Attr("context_id"))
	assert.Equal(t, first.UserID, appointments[0].Attr("resource_id"))
	assert.Equal(t, "assignment", appointments[0].Attr("type"))

	again, err := a.Assign(ctx, tracking.Ref{ID: h.comp.ID})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.AppointmentID, again.AppointmentID)
	assert.Equal(t, 1, fake.CreateCount(tracking.TypeAppointment))
}

func TestAssignRetriesWithoutAppointmentType(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	fake.FailOn("create", tracking.TypeAppointment,
		tracking.Wrap(tracking.ErrValidation, tracking.TypeAppointment, "create", "unknown attribute type", nil))

	result, err := newAttacher(fake).Assign(context.Background(), h.comp.Ref())
	require.NoError(t, err)
	assert.True(t, result.Created)
	appointments := fake.Entities(tracking.TypeAppointment)
	require.Len(t, appointments, 1)
	assert.Empty(t, appointments[0].Attr("type"))
}

func TestAssignNeedsKnownUser(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	ctx := context.Background()

	_, err := attach.New(fake, attach.Options{Username: "visitor"}).Assign(ctx, h.comp.Ref())
	assert.ErrorIs(t, err, tracking.ErrNotFound)

	_, err = attach.New(fake, attach.Options{}).Assign(ctx, h.comp.Ref())
	assert.ErrorIs(t, err, tracking.ErrValidation)
	assert.Zero(t, fake.CreateCount(tracking.TypeAppointment))
}

func TestMyTasksListsAssignedTasksInProgress(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	inProgress := statusNamed(t, fake, "In Progress")
	_, err := fake.Update(context.Background(), tracking.TypeTask, h.comp.ID, map[string]any{"status_id": inProgress})
	require.NoError(t, err)
	_, err = fake.Update(context.Background(), tracking.TypeTask, h.roto.ID, map[string]any{"status_id": statusNamed(t, fake, "Approved")})
	require.NoError(t, err)

	closed := fake.Seed(tracking.TypeProject, map[string]any{"name": "old", "full_name": "Old", "status": "hidden"})
	oldShot := fake.Seed(tracking.TypeShot, map[string]any{"name": "old_010", "parent_id": closed.ID})
	oldTask := fake.Seed(tracking.TypeTask, map[string]any{"name": "compositing", "parent_id": oldShot.ID, "status_id": inProgress})
	tracker := fake.Seed(tracking.TypeTask, map[string]any{"name": "tracking", "parent_id": h.shot.ID, "status_id": inProgress})
	fake.Seed(tracking.TypeTask, map[string]any{"name": "matte_painting", "parent_id": h.shot.ID, "status_id": inProgress})

	a := newAttacher(fake)
	ctx := context.Background()
	for _, task := range []tracking.Entity{tracker, h.comp, h.roto, oldTask} {
		_, err := a.Assign(ctx, task.Ref())
		require.NoError(t, err)
	}
	fake.Seed(tracking.TypeAppointment, map[string]any{"context_id": h.shot.ID, "resource_id": userID(t, fake), "type": "allocation"})

	tasks, err := a.MyTasks(ctx, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, h.comp.ID, tasks[0].ID)
	assert.Equal(t, tracker.ID, tasks[1].ID)

	limited, err := a.MyTasks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, h.comp.ID, limited[0].ID)
}

func TestMyTasksWithoutInProgressStatus(t *testing.T) {
	fake := testsupport.NewFakeService()
	for _, status := range fake.Entities(tracking.TypeStatus) {
		_, err := fake.Update(context.Background(), tracking.TypeStatus, status.ID, map[string]any{"name": "Status " + status.ID})
		require.NoError(t, err)
	}
	_, err := newAttacher(fake).MyTasks(context.Background(), 0)
	assert.ErrorIs(t, err, tracking.ErrNotFound)
}

func TestTimelogsTodayFiltersByUserDayAndTask(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	a := newAttacher(fake)
	ctx := context.Background()

	yesterday := fixedNow.Add(-24 * time.Hour)
	_, err := a.Timelog(ctx, h.comp.Ref(), time.Hour, yesterday, "old")
	require.NoError(t, err)
	_, err = a.Timelog(ctx, h.comp.Ref(), 2*time.Hour, fixedNow.Add(-2*time.Hour), "comp")
	require.NoError(t, err)
	_, err = a.Timelog(ctx, h.roto.Ref(), 30*time.Minute, time.Time{}, "roto")
	require.NoError(t, err)
	fake.Seed(tracking.TypeTimelog, map[string]any{"context_id": h.comp.ID, "user_id": "someone-else", "start": fixedNow.Format(time.RFC3339), "duration": 600.0})

	today, err := a.TimelogsToday(ctx, tracking.Ref{})
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, 150*time.Minute, attach.TotalDuration(today))

	onComp, err := a.TimelogsToday(ctx, h.comp.Ref())
	require.NoError(t, err)
	require.Len(t, onComp, 1)
	assert.Equal(t, "comp", onComp[0].Attr("comment"))

	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), attach.StartOfDay(fixedNow))
}
