package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"shotbridge/internal/config"
	"shotbridge/internal/credentials"
	"shotbridge/internal/reconcile"
	"shotbridge/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// setupCLITestEnv writes an offline configuration rooted in temp directories
// and isolates the process from the caller's home and FTRACK_* variables.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{credentials.EnvServer, credentials.EnvAPIKey, credentials.EnvUser} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithOffline()}, opts...)...)
	cfg.Logging.Level = "error"
	for _, dir := range []string{cfg.Media.ThumbnailDir, cfg.Media.VideoDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir media dir: %v", err)
		}
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeLayout(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write layout: %v", err)
	}
	return path
}

// reconcileJSON runs `reconcile --json` and decodes the report.
func reconcileJSON(t *testing.T, env *cliTestEnv, args ...string) reconcileReport {
	t.Helper()
	out, _, err := runCLI(t, append([]string{"--json", "reconcile"}, args...), env.configPath)
	if err != nil {
		t.Fatalf("reconcile: %v\n%s", err, out)
	}
	var report reconcileReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	return report
}

func entryID(t *testing.T, report reconcileReport, path string) string {
	t.Helper()
	for _, entry := range report.Entries {
		if entry.Node.Path == path {
			if entry.Node.ID == "" {
				t.Fatalf("entry %s has no id (outcome %s)", path, entry.Outcome)
			}
			return entry.Node.ID
		}
	}
	t.Fatalf("no manifest entry for %s", path)
	return ""
}

func countOutcome(report reconcileReport, outcome reconcile.Outcome) int {
	n := 0
	for _, entry := range report.Entries {
		if entry.Outcome == outcome {
			n++
		}
	}
	return n
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
