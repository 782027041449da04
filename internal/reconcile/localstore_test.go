package reconcile_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotbridge/internal/reconcile"
	"shotbridge/internal/testsupport"
	"shotbridge/internal/tracking"
	"shotbridge/internal/tracking/localstore"
)

func TestReconcileAgainstOfflineStore(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOffline())
	store := testsupport.MustOpenLocalStore(t, cfg, "artist")
	r, err := reconcile.New(reconcile.OptionsFromConfig(cfg))
	require.NoError(t, err)
	ctx := context.Background()

	layout := []reconcile.DesiredSequence{{
		Name: "SEQ_010",
		Shots: []reconcile.DesiredShot{
			{Name: "vfx_010", Tasks: []string{"comp", "roto"}},
			{Name: "vfx_020"},
		},
	}}

	first, err := r.Reconcile(ctx, store, localstore.DemoProjectName, layout)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Summary{Created: 6}, first.Summary())

	second, err := r.Reconcile(ctx, store, localstore.DemoProjectName, layout)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Summary{Existed: 6}, second.Summary())

	tasks, err := store.Query(ctx, tracking.Query{Type: tracking.TypeTask, OrderBy: "name"})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for _, task := range tasks {
		assert.NotEmpty(t, task.Attr("status_id"), task.Name())
		assert.Equal(t, first.Project().ID, task.ProjectID())
	}
}

func TestReconcileMediaAndAssignmentAgainstOfflineStore(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOffline())
	store := testsupport.MustOpenLocalStore(t, cfg, "artist")
	testsupport.WriteJPEG(t, filepath.Join(cfg.Media.ThumbnailDir, "SEQ_010", "vfx_010.jpg"))
	testsupport.WriteMOV(t, filepath.Join(cfg.Media.VideoDir, "SEQ_010", "vfx_010.mov"))

	opts := reconcile.OptionsFromConfig(cfg)
	opts.ThumbnailDir = cfg.Media.ThumbnailDir
	opts.VideoDir = cfg.Media.VideoDir
	opts.AssignUser = true
	opts.Username = "artist"
	r, err := reconcile.New(opts)
	require.NoError(t, err)
	ctx := context.Background()

	layout := []reconcile.DesiredSequence{{
		Name:  "SEQ_010",
		Shots: []reconcile.DesiredShot{{Name: "vfx_010", Tasks: []string{"comp"}}},
	}}
	first, err := r.Reconcile(ctx, store, localstore.DemoProjectName, layout)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Summary{Created: 6}, first.Summary())

	thumb, ok := first.Lookup("SEQ_010/vfx_010/@thumbnail")
	require.True(t, ok)
	_, stored, err := store.UploadedSize(ctx, thumb.Node.ID)
	require.NoError(t, err)
	assert.True(t, stored)

	appointments, err := store.Query(ctx, tracking.Query{Type: tracking.TypeAppointment})
	require.NoError(t, err)
	require.Len(t, appointments, 1)

	second, err := r.Reconcile(ctx, store, localstore.DemoProjectName, layout)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Summary{Existed: 5}, second.Summary())
}
