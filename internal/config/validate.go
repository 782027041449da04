package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// NameMatchModes lists the accepted reconcile.name_match values.
var NameMatchModes = []string{"exact", "casefold", "trim", "trim_casefold"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTracking(); err != nil {
		return err
	}
	if err := c.validateReconcile(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTracking() error {
	if c.Tracking.ServerURL != "" {
		parsed, err := url.Parse(c.Tracking.ServerURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("tracking.server_url must be an absolute URL, got %q", c.Tracking.ServerURL)
		}
		if parsed.Scheme != "https" && parsed.Scheme != "http" {
			return fmt.Errorf("tracking.server_url must use http or https, got %q", parsed.Scheme)
		}
	}
	if c.Tracking.TimeoutSeconds <= 0 {
		return errors.New("tracking.timeout_seconds must be positive")
	}
	if c.Tracking.MinServerVersion != "" {
		if _, err := semver.NewConstraint(c.Tracking.MinServerVersion); err != nil {
			return fmt.Errorf("tracking.min_server_version: %w", err)
		}
	}
	return nil
}

func (c *Config) validateReconcile() error {
	for _, mode := range NameMatchModes {
		if c.Reconcile.NameMatch == mode {
			return nil
		}
	}
	return fmt.Errorf("reconcile.name_match must be one of %s, got %q", strings.Join(NameMatchModes, ", "), c.Reconcile.NameMatch)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
}
