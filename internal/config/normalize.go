package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTracking(); err != nil {
		return err
	}
	c.normalizeReconcile()
	if err := c.normalizeMedia(); err != nil {
		return err
	}
	if err := c.normalizeOffline(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	defaults := Default()
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaults.Paths.LogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaults.Paths.StateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTracking() error {
	var err error
	if strings.TrimSpace(c.Tracking.CredentialsPath) == "" {
		c.Tracking.CredentialsPath = Default().Tracking.CredentialsPath
	}
	if c.Tracking.CredentialsPath, err = expandPath(c.Tracking.CredentialsPath); err != nil {
		return fmt.Errorf("tracking.credentials_path: %w", err)
	}
	c.Tracking.ServerURL = strings.TrimRight(strings.TrimSpace(c.Tracking.ServerURL), "/")
	if c.Tracking.TimeoutSeconds <= 0 {
		c.Tracking.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Tracking.RateLimit < 0 {
		c.Tracking.RateLimit = 0
	}
	if c.Tracking.RateBurst <= 0 {
		c.Tracking.RateBurst = defaultRateBurst
	}
	c.Tracking.MinServerVersion = strings.TrimSpace(c.Tracking.MinServerVersion)
	return nil
}

func (c *Config) normalizeReconcile() {
	c.Reconcile.DefaultStatus = strings.TrimSpace(c.Reconcile.DefaultStatus)
	if c.Reconcile.DefaultStatus == "" {
		c.Reconcile.DefaultStatus = defaultStatus
	}
	c.Reconcile.ConformStatus = strings.TrimSpace(c.Reconcile.ConformStatus)
	if c.Reconcile.ConformStatus == "" {
		c.Reconcile.ConformStatus = defaultConformStatus
	}
	c.Reconcile.NameMatch = strings.ToLower(strings.TrimSpace(c.Reconcile.NameMatch))
	if c.Reconcile.NameMatch == "" {
		c.Reconcile.NameMatch = defaultNameMatch
	}

	types := make([]string, 0, len(c.Reconcile.TaskTypes))
	seen := make(map[string]struct{}, len(c.Reconcile.TaskTypes))
	for _, taskType := range c.Reconcile.TaskTypes {
		trimmed := strings.TrimSpace(taskType)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		types = append(types, trimmed)
	}
	if len(types) == 0 {
		types = append(types, defaultTaskTypes...)
	}
	c.Reconcile.TaskTypes = types
}

func (c *Config) normalizeMedia() error {
	var err error
	if c.Media.ThumbnailDir, err = expandPath(strings.TrimSpace(c.Media.ThumbnailDir)); err != nil {
		return fmt.Errorf("media.thumbnail_dir: %w", err)
	}
	if c.Media.VideoDir, err = expandPath(strings.TrimSpace(c.Media.VideoDir)); err != nil {
		return fmt.Errorf("media.video_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOffline() error {
	var err error
	if strings.TrimSpace(c.Offline.DBPath) == "" {
		c.Offline.DBPath = Default().Offline.DBPath
	}
	if c.Offline.DBPath, err = expandPath(c.Offline.DBPath); err != nil {
		return fmt.Errorf("offline.db_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
