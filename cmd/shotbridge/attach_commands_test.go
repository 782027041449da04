package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"shotbridge/internal/attach"
	"shotbridge/internal/testsupport"
	"shotbridge/internal/tracking"
	"shotbridge/internal/tracking/localstore"
)

// seedHierarchy reconciles one shot with a compositing task and returns the
// shot and task ids.
func seedHierarchy(t *testing.T, env *cliTestEnv) (string, string) {
	t.Helper()
	layoutPath := writeLayout(t, env.baseDir, "shots.csv", "sequence,shot,tasks\nSEQ_010,vfx_010,comp\n")
	report := reconcileJSON(t, env, layoutPath, "-p", localstore.DemoProjectName)
	return entryID(t, report, "SEQ_010/vfx_010"), entryID(t, report, "SEQ_010/vfx_010/compositing")
}

func TestAttachNoteAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	shotID, _ := seedHierarchy(t, env)

	out, _, err := runCLI(t, []string{"attach", "note", shotID, "Plate", "is", "soft", "--category", "Internal"}, env.configPath)
	if err != nil {
		t.Fatalf("attach note: %v", err)
	}
	requireContains(t, out, "posted on "+shotID)

	out, _, err = runCLI(t, []string{"--json", "attach", "notes", shotID}, env.configPath)
	if err != nil {
		t.Fatalf("attach notes: %v", err)
	}
	var notes []tracking.Entity
	if err := json.Unmarshal([]byte(out), &notes); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(notes) != 1 || notes[0].Attr("content") != "Plate is soft" {
		t.Fatalf("unexpected notes %+v", notes)
	}
	if notes[0].Attr("category_id") == "" {
		t.Fatal("expected the Internal category to be linked")
	}

	if _, _, err := runCLI(t, []string{"attach", "note", shotID, "   "}, env.configPath); err == nil {
		t.Fatal("expected empty note content to fail")
	}
}

func TestAttachTimelogAndTotal(t *testing.T) {
	env := setupCLITestEnv(t)
	_, taskID := seedHierarchy(t, env)

	for _, d := range []string{"1h", "30m"} {
		if _, _, err := runCLI(t, []string{"attach", "timelog", taskID, "-d", d, "-m", "comp pass"}, env.configPath); err != nil {
			t.Fatalf("attach timelog %s: %v", d, err)
		}
	}

	out, _, err := runCLI(t, []string{"attach", "timelogs", taskID}, env.configPath)
	if err != nil {
		t.Fatalf("attach timelogs: %v", err)
	}
	requireContains(t, out, "comp pass")
	requireContains(t, out, "Total: 1h30m0s")

	if _, _, err := runCLI(t, []string{"attach", "timelog", taskID, "-d", "0s"}, env.configPath); err == nil {
		t.Fatal("expected a zero duration to fail")
	}
	if _, _, err := runCLI(t, []string{"attach", "timelog", taskID, "-d", "1h", "--start", "yesterday"}, env.configPath); err == nil {
		t.Fatal("expected an invalid start to fail")
	}
}

func TestAttachThumbnailDiscoversMedia(t *testing.T) {
	env := setupCLITestEnv(t)
	shotID, _ := seedHierarchy(t, env)
	testsupport.WriteJPEG(t, filepath.Join(env.cfg.Media.ThumbnailDir, "vfx_010", "vfx_010.0001.jpg"))

	out, _, err := runCLI(t, []string{"--json", "attach", "thumbnail", shotID}, env.configPath)
	if err != nil {
		t.Fatalf("attach thumbnail: %v", err)
	}
	var result attach.ThumbnailResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if result.MIME != "image/jpeg" || result.ComponentID == "" || result.Entity.ID != shotID {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAttachThumbnailWithoutMedia(t *testing.T) {
	env := setupCLITestEnv(t)
	shotID, _ := seedHierarchy(t, env)

	_, _, err := runCLI(t, []string{"attach", "thumbnail", shotID}, env.configPath)
	if err == nil {
		t.Fatal("expected discovery to fail")
	}
	requireContains(t, err.Error(), "no media for \"vfx_010\"")
}

func TestAttachVersionPublishesMovie(t *testing.T) {
	env := setupCLITestEnv(t)
	shotID, taskID := seedHierarchy(t, env)
	testsupport.WriteMOV(t, filepath.Join(env.cfg.Media.VideoDir, "vfx_010.mov"))
	explicit := filepath.Join(env.baseDir, "renders", "vfx_010_v2.mp4")
	testsupport.WriteMP4(t, explicit)

	out, _, err := runCLI(t, []string{"attach", "version", shotID, "-m", "first cut"}, env.configPath)
	if err != nil {
		t.Fatalf("attach version: %v", err)
	}
	requireContains(t, out, "Published version 1")

	out, _, err = runCLI(t, []string{"--json", "attach", "version", shotID, explicit}, env.configPath)
	if err != nil {
		t.Fatalf("attach version explicit: %v", err)
	}
	var result attach.VersionResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if result.Version != 2 || result.TaskID != taskID {
		t.Fatalf("unexpected result %+v", result)
	}

	out, _, err = runCLI(t, []string{"--json", "attach", "versions", shotID}, env.configPath)
	if err != nil {
		t.Fatalf("attach versions: %v", err)
	}
	var versions []tracking.Entity
	if err := json.Unmarshal([]byte(out), &versions); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(versions) != 2 {
		t.Fatalf("versions = %d, want 2", len(versions))
	}
}

func TestAttachUnknownEntity(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"attach", "notes", "does-not-exist"}, env.configPath)
	if err == nil {
		t.Fatal("expected an unknown entity to fail")
	}
	requireContains(t, err.Error(), "not found")
}

func TestAttachAssignAndMyTasks(t *testing.T) {
	env := setupCLITestEnv(t)
	layoutPath := writeLayout(t, env.baseDir, "shots.csv", sampleLayoutCSV)
	report := reconcileJSON(t, env, layoutPath, "-p", localstore.DemoProjectName)
	compID := entryID(t, report, "SEQ_010/vfx_020/compositing")
	readyID := entryID(t, report, "SEQ_010/vfx_010/compositing")

	for _, id := range []string{compID, readyID} {
		out, _, err := runCLI(t, []string{"attach", "assign", id}, env.configPath)
		if err != nil {
			t.Fatalf("attach assign: %v", err)
		}
		requireContains(t, out, "Assigned to task "+id)
	}
	out, _, err := runCLI(t, []string{"attach", "assign", compID}, env.configPath)
	if err != nil {
		t.Fatalf("attach assign again: %v", err)
	}
	requireContains(t, out, "Already assigned")

	out, _, err = runCLI(t, []string{"--json", "attach", "mytasks"}, env.configPath)
	if err != nil {
		t.Fatalf("attach mytasks: %v", err)
	}
	var tasks []tracking.Entity
	if err := json.Unmarshal([]byte(out), &tasks); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(tasks) != 1 || tasks[0].ID != compID {
		t.Fatalf("mytasks = %+v, want only the in-progress compositing task", tasks)
	}
}

func TestAttachTimelogsToday(t *testing.T) {
	env := setupCLITestEnv(t)
	_, taskID := seedHierarchy(t, env)

	if _, _, err := runCLI(t, []string{"attach", "timelog", taskID, "-d", "45m", "-m", "today"}, env.configPath); err != nil {
		t.Fatalf("attach timelog: %v", err)
	}
	if _, _, err := runCLI(t, []string{"attach", "timelog", taskID, "-d", "2h", "-m", "last year", "--start", "2020-01-01T09:00:00Z"}, env.configPath); err != nil {
		t.Fatalf("attach timelog: %v", err)
	}

	out, _, err := runCLI(t, []string{"attach", "timelogs", "--today"}, env.configPath)
	if err != nil {
		t.Fatalf("attach timelogs --today: %v", err)
	}
	requireContains(t, out, "Total: 45m0s")
	requireNotContains(t, out, "last year")

	if _, _, err := runCLI(t, []string{"attach", "timelogs"}, env.configPath); err == nil {
		t.Fatal("expected a task id to be required without --today")
	}
}
