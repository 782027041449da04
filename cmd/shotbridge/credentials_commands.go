package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotbridge/internal/connection"
	"shotbridge/internal/credentials"
)

func newCredentialsCommand(ctx *commandContext) *cobra.Command {
	credsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the stored server credentials",
	}

	credsCmd.AddCommand(newCredentialsSetCommand(ctx))
	credsCmd.AddCommand(newCredentialsShowCommand(ctx))
	credsCmd.AddCommand(newCredentialsTestCommand(ctx))
	credsCmd.AddCommand(newCredentialsClearCommand(ctx))

	return credsCmd
}

func newCredentialsSetCommand(ctx *commandContext) *cobra.Command {
	var server, apiKey, username string
	var verify bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the server URL, API key and username",
		Long: "Save credentials to tracking.credentials_path with owner-only permissions.\n" +
			"Omitted flags keep the stored value, then fall back to FTRACK_SERVER,\n" +
			"FTRACK_API_KEY and FTRACK_API_USER.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := credentialStore(cfg)

			creds, err := store.Load()
			if err != nil && !errors.Is(err, credentials.ErrNoCredentials) {
				return err
			}
			env, _ := credentials.FromEnv()
			if moved := strings.TrimRight(strings.TrimSpace(server), "/"); moved != "" && creds.ServerURL != "" &&
				!strings.EqualFold(moved, strings.TrimRight(creds.ServerURL, "/")) {
				// The stored key belongs to the old server.
				creds.APIKey = ""
				env.APIKey = ""
			}
			creds.ServerURL = firstNonEmpty(server, creds.ServerURL, env.ServerURL)
			creds.APIKey = firstNonEmpty(apiKey, creds.APIKey, env.APIKey)
			creds.Username = firstNonEmpty(username, creds.Username, env.Username)
			creds = creds.Normalized()
			if err := creds.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if verify {
				mgr, err := ctx.connectionManager()
				if err != nil {
					return err
				}
				ok, detail := mgr.Test(cmd.Context(), creds)
				if !ok {
					return fmt.Errorf("credentials not saved: %s", detail)
				}
				fmt.Fprintln(out, detail)
			}

			if err := store.Save(creds); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved credentials for %s to %s\n", creds, store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server URL, e.g. https://studio.ftrackapp.com")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key")
	cmd.Flags().StringVar(&username, "user", "", "Username")
	cmd.Flags().BoolVar(&verify, "verify", false, "Test the credentials before saving them")
	return cmd
}

type credentialsView struct {
	ServerURL string   `json:"server_url"`
	Username  string   `json:"username"`
	APIKey    string   `json:"api_key"`
	Source    string   `json:"source"`
	Path      string   `json:"path"`
	Missing   []string `json:"missing,omitempty"`
}

func newCredentialsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved credentials with the API key masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := credentialStore(cfg)
			creds, source, err := store.Resolve()
			if err != nil {
				if errors.Is(err, credentials.ErrNoCredentials) {
					return fmt.Errorf("no credentials in %s or FTRACK_* environment; run `shotbridge credentials set`", store.Path())
				}
				return err
			}
			creds, err = connection.ApplyServerOverride(creds, source, cfg.Tracking.ServerURL)
			if err != nil {
				return err
			}
			view := credentialsView{
				ServerURL: creds.ServerURL,
				Username:  creds.Username,
				APIKey:    creds.MaskedKey(),
				Source:    string(source),
				Path:      store.Path(),
				Missing:   creds.Missing(),
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server:   %s\n", view.ServerURL)
			fmt.Fprintf(out, "Username: %s\n", view.Username)
			fmt.Fprintf(out, "API key:  %s\n", view.APIKey)
			fmt.Fprintf(out, "Source:   %s (%s)\n", view.Source, view.Path)
			if len(view.Missing) > 0 {
				fmt.Fprintf(out, "Missing:  %v\n", view.Missing)
			}
			return nil
		},
	}
}

func newCredentialsTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the resolved credentials can reach the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			creds, source, err := connection.ResolveCredentials(cfg)
			if err != nil {
				return wrapConnectError(err, cfg)
			}
			mgr, err := ctx.connectionManager()
			if err != nil {
				return err
			}
			ok, detail := mgr.Test(cmd.Context(), creds)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, map[string]any{"ok": ok, "detail": detail, "source": source}); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s [%s credentials]\n", detail, source)
			}
			if !ok {
				return errors.New("connection test failed")
			}
			return nil
		},
	}
}

func newCredentialsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored credential file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := credentialStore(cfg)
			if err := store.Delete(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", store.Path())
			return nil
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
