package attach_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotbridge/internal/attach"
	"shotbridge/internal/testsupport"
	"shotbridge/internal/tracking"
)

var fixedNow = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

type hierarchy struct {
	shot tracking.Entity
	comp tracking.Entity
	roto tracking.Entity
}

func seedShot(fake *testsupport.FakeService) hierarchy {
	seq := fake.Seed(tracking.TypeSequence, map[string]any{"name": "SEQ_010", "parent_id": testsupport.FakeProjectID})
	shot := fake.Seed(tracking.TypeShot, map[string]any{"name": "vfx_010", "parent_id": seq.ID})
	roto := fake.Seed(tracking.TypeTask, map[string]any{"name": "rotoscoping", "parent_id": shot.ID})
	comp := fake.Seed(tracking.TypeTask, map[string]any{"name": "compositing", "parent_id": shot.ID})
	return hierarchy{shot: shot, comp: comp, roto: roto}
}

func newAttacher(fake *testsupport.FakeService) *attach.Attacher {
	return attach.New(fake, attach.Options{Username: "artist", Now: func() time.Time { return fixedNow }})
}

func userID(t *testing.T, fake *testsupport.FakeService) string {
	t.Helper()
	users := fake.Entities(tracking.TypeUser)
	require.NotEmpty(t, users)
	return users[0].ID
}

func TestThumbnailUploadsAndSetsEntityThumbnail(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	path := filepath.Join(t.TempDir(), "vfx_010.jpg")
	testsupport.WriteJPEG(t, path)

	result, err := newAttacher(fake).Thumbnail(context.Background(), tracking.Ref{ID: h.shot.ID}, path)
	require.NoError(t, err)
	assert.Equal(t, h.shot.Ref(), result.Entity)
	assert.Equal(t, "image/jpeg", result.MIME)

	want, err := os.ReadFile(path)
	require.NoError(t, err)
	got, ok := fake.Uploaded(result.ComponentID)
	require.True(t, ok)
	assert.Equal(t, want, got)

	shots := fake.Entities(tracking.TypeShot)
	require.Len(t, shots, 1)
	assert.Equal(t, result.ComponentID, shots[0].Attr("thumbnail_id"))

	locations := fake.Entities(tracking.TypeComponentLocation)
	require.Len(t, locations, 1)
	assert.Equal(t, tracking.ServerLocationID, locations[0].Attr("location_id"))
	assert.Equal(t, result.ComponentID, locations[0].Attr("component_id"))

	components := fake.Entities(tracking.TypeFileComponent)
	require.Len(t, components, 1)
	assert.Equal(t, ".jpg", components[0].Attr("file_type"))
}

func TestThumbnailFailures(t *testing.T) {
	dir := t.TempDir()
	jpeg := filepath.Join(dir, "ok.jpg")
	testsupport.WriteJPEG(t, jpeg)
	movie := filepath.Join(dir, "clip.mov")
	testsupport.WriteMOV(t, movie)

	cases := []struct {
		name   string
		path   string
		id     string
		inject func(*testsupport.FakeService)
		want   error
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.jpg"), want: tracking.ErrNotFound},
		{name: "not an image", path: movie, want: tracking.ErrValidation},
		{name: "unknown entity", path: jpeg, id: "nope", want: tracking.ErrNotFound},
		{
			name: "upload rejected",
			path: jpeg,
			inject: func(f *testsupport.FakeService) {
				f.FailOn("upload", "", tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "storage returned 500", nil))
			},
			want: tracking.ErrUpload,
		},
		{
			name: "update forbidden",
			path: jpeg,
			inject: func(f *testsupport.FakeService) {
				f.FailOn("update", tracking.TypeShot, tracking.Wrap(tracking.ErrPermission, tracking.TypeShot, "update", "read only", nil))
			},
			want: tracking.ErrPermission,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := testsupport.NewFakeService()
			h := seedShot(fake)
			if tc.inject != nil {
				tc.inject(fake)
			}
			id := tc.id
			if id == "" {
				id = h.shot.ID
			}
			_, err := newAttacher(fake).Thumbnail(context.Background(), tracking.Ref{Type: tracking.TypeShot, ID: id}, tc.path)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestVersionPublishesReviewMedia(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	path := filepath.Join(t.TempDir(), "SEQ_010", "vfx_010.mov")
	testsupport.WriteMOV(t, path)
	a := newAttacher(fake)
	ctx := context.Background()

	first, err := a.Version(ctx, tracking.Ref{ID: h.shot.ID}, path, "first pass")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, h.comp.ID, first.TaskID, "versions link to the first task by name")
	assert.NotEmpty(t, first.NoteID)

	assets := fake.Entities(tracking.TypeAsset)
	require.Len(t, assets, 1)
	assert.Equal(t, "vfx_010", assets[0].Name())
	assert.NotEmpty(t, assets[0].Attr("type_id"))

	versions := fake.Entities(tracking.TypeAssetVersion)
	require.Len(t, versions, 1)
	assert.Equal(t, "first pass", versions[0].Attr("comment"))
	assert.Equal(t, userID(t, fake), versions[0].Attr("user_id"))

	components := fake.Entities(tracking.TypeFileComponent)
	require.Len(t, components, 1)
	assert.Equal(t, "main", components[0].Name())
	assert.Equal(t, first.VersionID, components[0].Attr("version_id"))
	assert.Equal(t, [][2]string{{first.ComponentID, first.VersionID}}, fake.Encoded())

	second, err := a.Version(ctx, tracking.Ref{Type: tracking.TypeShot, ID: h.shot.ID}, path, "")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, first.AssetID, second.AssetID)
	assert.Empty(t, second.NoteID)

	listed, err := a.Versions(ctx, tracking.Ref{ID: h.shot.ID})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.VersionID, listed[0].ID)
	assert.Equal(t, second.VersionID, listed[1].ID)

	byTask, err := a.Versions(ctx, h.comp.Ref())
	require.NoError(t, err)
	assert.Len(t, byTask, 2)
}

func TestVersionRejectsStills(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	path := filepath.Join(t.TempDir(), "vfx_010.jpg")
	testsupport.WriteJPEG(t, path)

	_, err := newAttacher(fake).Version(context.Background(), h.shot.Ref(), path, "")
	assert.ErrorIs(t, err, tracking.ErrValidation)
	assert.Zero(t, fake.CreateCount(""))
}

func TestVersionEncodeFailureKeepsPartialResult(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	fake.FailOn("encode_media", "", tracking.Wrap(tracking.ErrPermission, tracking.TypeAssetVersion, "encode_media", "not allowed", nil))
	path := filepath.Join(t.TempDir(), "vfx_010.mp4")
	testsupport.WriteMP4(t, path)

	result, err := newAttacher(fake).Version(context.Background(), h.shot.Ref(), path, "")
	require.ErrorIs(t, err, tracking.ErrPermission)
	assert.NotEmpty(t, result.VersionID)
	assert.NotEmpty(t, result.ComponentID)
}

func TestVersionUploadFailureLeavesNoVersion(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	fake.FailOn("upload", "", tracking.Wrap(tracking.ErrUpload, tracking.TypeFileComponent, "upload", "storage returned 500", nil))
	path := filepath.Join(t.TempDir(), "vfx_010.mov")
	testsupport.WriteMOV(t, path)
	a := newAttacher(fake)
	ctx := context.Background()

	result, err := a.Version(ctx, h.shot.Ref(), path, "first pass")
	require.ErrorIs(t, err, tracking.ErrUpload)
	assert.Empty(t, result.VersionID)
	assert.Empty(t, fake.Entities(tracking.TypeAssetVersion))
	assert.Empty(t, fake.Entities(tracking.TypeNote))
	assert.Empty(t, fake.Encoded())

	retry, err := a.Version(ctx, h.shot.Ref(), path, "first pass")
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Version, "the failed attempt does not consume a version number")
}

func TestNoteAuthorAndCategory(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	a := newAttacher(fake)
	ctx := context.Background()

	note, err := a.Note(ctx, tracking.Ref{ID: h.comp.ID}, "  tighten the edge  ", "Internal")
	require.NoError(t, err)
	assert.Equal(t, "tighten the edge", note.Attr("content"))
	assert.Equal(t, userID(t, fake), note.Attr("user_id"))
	assert.Equal(t, tracking.TypeTask, note.Attr("parent_type"))
	assert.Equal(t, fixedNow.Format(time.RFC3339), note.Attr("date"))
	assert.NotEmpty(t, note.Attr("category_id"))

	other, err := a.Note(ctx, h.comp.Ref(), "approved", "Nonexistent")
	require.NoError(t, err)
	assert.Empty(t, other.Attr("category_id"))

	notes, err := a.Notes(ctx, h.comp.Ref())
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	_, err = a.Note(ctx, h.comp.Ref(), "   ", "")
	assert.ErrorIs(t, err, tracking.ErrValidation)
}

func TestNoteWithoutKnownUser(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	a := attach.New(fake, attach.Options{Username: "visitor"})

	note, err := a.Note(context.Background(), h.shot.Ref(), "hello", "")
	require.NoError(t, err)
	assert.Empty(t, note.Attr("user_id"))
}

func TestTimelogStoresSeconds(t *testing.T) {
	fake := testsupport.NewFakeService()
	h := seedShot(fake)
	a := newAttacher(fake)
	ctx := context.Background()
	start := time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)

	logged, err := a.Timelog(ctx, tracking.Ref{ID: h.comp.ID}, 90*time.Minute, start, "keying")
	require.NoError(t, err)
	assert.InDelta(t, 5400, logged.Float("duration"), 0.001)
	assert.Equal(t, "2025-01-14T09:00:00Z", logged.Attr("start"))
	assert.Equal(t, h.comp.ID, logged.Attr("context_id"))

	now, err := a.Timelog(ctx, h.comp.Ref(), 30*time.Minute, time.Time{}, "")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Format(time.RFC3339), now.Attr("start"))

	logs, err := a.Timelogs(ctx, h.comp.Ref())
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 2*time.Hour, attach.TotalDuration(logs))

	_, err = a.Timelog(ctx, h.comp.Ref(), 0, start, "")
	assert.ErrorIs(t, err, tracking.ErrValidation)

	_, err = a.Timelog(ctx, tracking.Ref{ID: h.shot.ID}, time.Minute, start, "")
	assert.ErrorIs(t, err, tracking.ErrNotFound, "timelogs attach to tasks only")
}

func TestResolveStopsOnConnectionErrors(t *testing.T) {
	fake := testsupport.NewFakeService()
	fake.FailOn("get", tracking.TypeShot, tracking.Wrap(tracking.ErrConnectivity, tracking.TypeShot, "get", "", nil))

	_, err := newAttacher(fake).Resolve(context.Background(), tracking.Ref{ID: "anything"})
	assert.ErrorIs(t, err, tracking.ErrConnectivity)

	_, err = newAttacher(fake).Resolve(context.Background(), tracking.Ref{})
	assert.ErrorIs(t, err, tracking.ErrValidation)
}
