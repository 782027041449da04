package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directories used for logs and local state.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Tracking contains connection settings for the production-tracking service.
// Credentials themselves live in a separate file so the config can be shared.
type Tracking struct {
	CredentialsPath  string  `toml:"credentials_path"`
	ServerURL        string  `toml:"server_url"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	RateLimit        float64 `toml:"rate_limit"`
	RateBurst        int     `toml:"rate_burst"`
	MinServerVersion string  `toml:"min_server_version"`
}

// Reconcile contains hierarchy reconciliation defaults.
type Reconcile struct {
	DefaultStatus          string   `toml:"default_status"`
	TaskTypes              []string `toml:"task_types"`
	NameMatch              string   `toml:"name_match"`
	SequenceFolderFallback bool     `toml:"sequence_folder_fallback"`
	ConformTask            bool     `toml:"conform_task"`
	ConformStatus          string   `toml:"conform_status"`
	AssignUser             bool     `toml:"assign_user"`
}

// Media contains the directories searched for exported thumbnails and movies.
type Media struct {
	ThumbnailDir string `toml:"thumbnail_dir"`
	VideoDir     string `toml:"video_dir"`
}

// Offline contains settings for the SQLite-backed local tracking backend.
type Offline struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shotbridge.
//
// Configuration sections by subsystem:
//   - Paths: log and state directories
//   - Tracking: credential file location, server override, HTTP pacing
//   - Reconcile: default task status, task types, name matching
//   - Media: thumbnail and video search roots for attachments
//   - Offline: local SQLite backend used instead of a live server
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Tracking  Tracking  `toml:"tracking"`
	Reconcile Reconcile `toml:"reconcile"`
	Media     Media     `toml:"media"`
	Offline   Offline   `toml:"offline"`
	Logging   Logging   `toml:"logging"`
}

// EnvConfigPath names the environment variable consulted when no --config
// flag is given.
const EnvConfigPath = "SHOTBRIDGE_CONFIG"

// DefaultConfigPath returns $XDG_CONFIG_HOME/shotbridge/config.toml.
func DefaultConfigPath() (string, error) {
	xdg.Reload()
	return expandPath(filepath.Join(xdg.ConfigHome, "shotbridge", "config.toml"))
}

// Load reads the config at path, or searches SHOTBRIDGE_CONFIG, the XDG
// location and ./shotbridge.toml when path is empty. A missing file yields
// defaults; exists reports whether a file was read. Unknown keys are rejected.
func Load(path string) (cfg *Config, resolved string, exists bool, err error) {
	resolved, exists, err = locate(path)
	if err != nil {
		return nil, "", false, err
	}

	loaded := Default()
	if exists {
		if err := decodeFile(resolved, &loaded); err != nil {
			return nil, "", false, err
		}
	}
	if err := loaded.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, "", false, err
	}
	return &loaded, resolved, exists, nil
}

func decodeFile(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config %s has unknown keys:\n%s", path, strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func locate(explicit string) (string, bool, error) {
	if explicit == "" {
		explicit = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if explicit != "" {
		target, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		found, err := isFile(target)
		return target, found, err
	}

	fallback, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("shotbridge.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{fallback, local} {
		if found, _ := isFile(candidate); found {
			return candidate, true, nil
		}
	}
	return fallback, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	return true, nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Tracking.TimeoutSeconds) * time.Second
}

// ExpandPath resolves a leading ~ and makes path absolute. Empty stays empty.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}
	return absolute, nil
}

// CreateSample writes the commented sample configuration to path, creating
// parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
