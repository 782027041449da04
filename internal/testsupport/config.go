package testsupport

import (
	"path/filepath"
	"testing"

	"shotbridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Tracking.CredentialsPath = filepath.Join(base, "config", "credentials.json")
	cfgVal.Tracking.RateLimit = 0
	cfgVal.Media.ThumbnailDir = filepath.Join(base, "thumbnails")
	cfgVal.Media.VideoDir = filepath.Join(base, "videos")
	cfgVal.Offline.DBPath = filepath.Join(base, "state", "offline.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOffline switches the config to the SQLite backend.
func WithOffline() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Offline.Enabled = true
	}
}

// WithNameMatch overrides the reconcile name matching mode.
func WithNameMatch(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reconcile.NameMatch = mode
	}
}

// WithServerURL sets the tracking server override.
func WithServerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracking.ServerURL = url
	}
}
