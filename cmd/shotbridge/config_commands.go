package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"shotbridge/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, check and print the shotbridge configuration",
	}
	cmd.AddCommand(
		newConfigInitCommand(ctx),
		newConfigValidateCommand(ctx),
		newConfigShowCommand(ctx),
	)
	return cmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var (
		path      string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample config",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := initTarget(firstNonEmpty(path, derefString(ctx.configFlag)))
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return fmt.Errorf("%s already exists (pass --overwrite to replace it)", target)
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Next: shotbridge credentials set --server URL --user NAME --api-key KEY")
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Where to write the file (default: --config or the XDG config path)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func initTarget(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return config.ExpandPath(explicit)
	}
	return config.DefaultConfigPath()
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the config and report the effective settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()
			source := ctx.configPath
			if !ctx.configExists {
				source += " (not found)"
			}
			fmt.Fprintf(out, "Config path: %s\n", source)
			if !ctx.configExists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Credentials: %s\n", cfg.Tracking.CredentialsPath)
			fmt.Fprintf(out, "Offline:     %s (%s)\n", yesNo(cfg.Offline.Enabled), cfg.Offline.DBPath)
			fmt.Fprintf(out, "Name match:  %s\n", cfg.Reconcile.NameMatch)
			fmt.Fprintf(out, "Task types:  %s\n", strings.Join(cfg.Reconcile.TaskTypes, ", "))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after defaults and overrides",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.configValue()
			if ctx.jsonOutput() {
				return writeJSON(cmd, cfg)
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
