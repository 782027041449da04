package main

import (
	"encoding/json"
	"os"
	"testing"

	"shotbridge/internal/preflight"
)

func TestDoctorOfflinePasses(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Tracking server")
	requireContains(t, out, "All checks passed")
}

func TestDoctorReportsMissingMediaDirectory(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(env.cfg.Media.VideoDir); err != nil {
		t.Fatalf("remove video dir: %v", err)
	}

	out, _, err := runCLI(t, []string{"--json", "doctor", "--skip-connection"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, err.Error(), "1 of 5 checks failed")

	var results []preflight.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	for _, r := range results {
		if r.Name == "Video directory" {
			if r.Passed {
				t.Fatal("video directory check should fail")
			}
			return
		}
	}
	t.Fatal("missing video directory result")
}

func TestDoctorOnlineWithoutCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Offline.Enabled = false
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail without credentials")
	}
	requireContains(t, out, "Credentials")
	requireContains(t, out, "FAIL")
}
