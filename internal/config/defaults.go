package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	defaultTimeoutSeconds   = 60
	defaultRateLimit        = 10.0
	defaultRateBurst        = 5
	defaultMinServerVersion = ">= 3.3.11"
	defaultStatus           = "ready_to_start"
	defaultNameMatch        = "exact"
	defaultConformStatus    = "pending_review"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

var defaultTaskTypes = []string{"Compositing"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	// xdg snapshots the environment at init; refresh so HOME/XDG_* changes
	// made after startup (tests, wrappers) are honoured.
	xdg.Reload()
	return Config{
		Paths: Paths{
			LogDir:   filepath.Join(xdg.StateHome, "shotbridge", "logs"),
			StateDir: filepath.Join(xdg.DataHome, "shotbridge"),
		},
		Tracking: Tracking{
			CredentialsPath:  filepath.Join(xdg.ConfigHome, "shotbridge", "credentials.json"),
			TimeoutSeconds:   defaultTimeoutSeconds,
			RateLimit:        defaultRateLimit,
			RateBurst:        defaultRateBurst,
			MinServerVersion: defaultMinServerVersion,
		},
		Reconcile: Reconcile{
			DefaultStatus:          defaultStatus,
			TaskTypes:              append([]string(nil), defaultTaskTypes...),
			NameMatch:              defaultNameMatch,
			SequenceFolderFallback: true,
			ConformStatus:          defaultConformStatus,
		},
		Media: Media{
			ThumbnailDir: "~/flame_thumbnails",
			VideoDir:     "~/flame_videos",
		},
		Offline: Offline{
			DBPath: filepath.Join(xdg.DataHome, "shotbridge", "offline.db"),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

