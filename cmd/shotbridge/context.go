package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shotbridge/internal/config"
	"shotbridge/internal/connection"
	"shotbridge/internal/credentials"
	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

type commandContext struct {
	configFlag   *string
	offlineFlag  *bool
	jsonFlag     *bool
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger

	managerOnce sync.Once
	manager     *connection.Manager
	managerErr  error
}

func newCommandContext(configFlag *string, offlineFlag, jsonFlag *bool, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		offlineFlag:  offlineFlag,
		jsonFlag:     jsonFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.offlineFlag != nil && *c.offlineFlag {
			cfg.Offline.Enabled = true
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// loggerValue falls back to a no-op logger when the configured one cannot be
// built, so a broken log directory never blocks a command.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) connectionManager() (*connection.Manager, error) {
	c.managerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.managerErr = err
			return
		}
		logger := c.loggerValue()
		c.manager, c.managerErr = connection.NewManager(connection.Options{
			Dialer:           connection.NewDialer(cfg, logger),
			MinServerVersion: cfg.Tracking.MinServerVersion,
			Logger:           logger,
		})
	})
	return c.manager, c.managerErr
}

// withConnection resolves credentials, connects and runs fn with a session
// that is released when fn returns.
func (c *commandContext) withConnection(cmd *cobra.Command, fn func(context.Context, *connection.Connection) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	creds, _, err := connection.ResolveCredentials(cfg)
	if err != nil {
		return wrapConnectError(err, cfg)
	}
	mgr, err := c.connectionManager()
	if err != nil {
		return err
	}
	err = mgr.With(cmd.Context(), creds, fn)
	if err != nil && !errors.Is(err, context.Canceled) {
		return wrapConnectError(err, cfg)
	}
	return err
}

func wrapConnectError(err error, cfg *config.Config) error {
	switch {
	case errors.Is(err, tracking.ErrAuthentication):
		return fmt.Errorf("%w; save credentials with `shotbridge credentials set` (file: %s)", err, cfg.Tracking.CredentialsPath)
	case errors.Is(err, tracking.ErrConnectivity):
		return fmt.Errorf("%w; run `shotbridge doctor` to diagnose", err)
	default:
		return err
	}
}

func credentialStore(cfg *config.Config) *credentials.FileStore {
	return credentials.NewFileStore(cfg.Tracking.CredentialsPath)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
