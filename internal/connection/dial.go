package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shotbridge/internal/config"
	"shotbridge/internal/credentials"
	"shotbridge/internal/tracking"
	"shotbridge/internal/tracking/ftrack"
	"shotbridge/internal/tracking/localstore"
)

// OfflineServerURL is the placeholder server used for offline credentials.
const OfflineServerURL = "http://offline.localhost"

// SourceOffline marks stand-in credentials used by the offline backend.
const SourceOffline credentials.Source = "offline"

// NewDialer returns the dialer selected by configuration: the offline SQLite
// store when offline.enabled is set, the ftrack HTTP client otherwise.
func NewDialer(cfg *config.Config, logger *slog.Logger) Dialer {
	if cfg != nil && cfg.Offline.Enabled {
		dbPath := cfg.Offline.DBPath
		return func(ctx context.Context, creds credentials.Credentials) (tracking.Service, error) {
			return localstore.Open(ctx, localstore.Options{Path: dbPath, Username: creds.Username, Logger: logger})
		}
	}
	settings := ftrack.Settings{}
	if cfg != nil {
		settings.Timeout = cfg.RequestTimeout()
		settings.RateLimit = cfg.Tracking.RateLimit
		settings.RateBurst = cfg.Tracking.RateBurst
	}
	return func(_ context.Context, creds credentials.Credentials) (tracking.Service, error) {
		s := settings
		s.ServerURL = creds.ServerURL
		s.APIKey = creds.APIKey
		s.Username = creds.Username
		return ftrack.New(s, ftrack.WithLogger(logger))
	}
}

// OfflineCredentials returns stand-in credentials for the offline backend.
func OfflineCredentials(username string) credentials.Credentials {
	if username == "" {
		username = "demo"
	}
	return credentials.Credentials{ServerURL: OfflineServerURL, APIKey: "offline", Username: username}
}

// ResolveCredentials picks the credentials a command should connect with:
// the credential file, then the FTRACK_* environment. Offline mode never
// fails; it borrows the stored username when there is one.
func ResolveCredentials(cfg *config.Config) (credentials.Credentials, credentials.Source, error) {
	store := credentials.NewFileStore(cfg.Tracking.CredentialsPath)
	creds, source, err := store.Resolve()
	if cfg.Offline.Enabled {
		if err != nil {
			creds = credentials.Credentials{}
		}
		return OfflineCredentials(creds.Username), SourceOffline, nil
	}
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return credentials.Credentials{}, "", tracking.Wrap(tracking.ErrAuthentication, "", "credentials",
				"no credentials in "+store.Path()+" or FTRACK_* environment", err)
		}
		return credentials.Credentials{}, "", err
	}
	creds, err = ApplyServerOverride(creds, source, cfg.Tracking.ServerURL)
	if err != nil {
		return credentials.Credentials{}, "", err
	}
	return creds, source, nil
}

// ApplyServerOverride applies tracking.server_url. Environment credentials
// take the configured server. Saved credentials stay bound to the server they
// were saved for; a different configured server is ErrAuthentication.
func ApplyServerOverride(creds credentials.Credentials, source credentials.Source, override string) (credentials.Credentials, error) {
	override = strings.TrimRight(strings.TrimSpace(override), "/")
	if override == "" {
		return creds, nil
	}
	if source != credentials.SourceFile {
		return creds.WithServer(override), nil
	}
	saved := strings.TrimRight(creds.ServerURL, "/")
	if saved == "" || strings.EqualFold(saved, override) {
		return creds.WithServer(override), nil
	}
	return credentials.Credentials{}, tracking.Wrap(tracking.ErrAuthentication, "", "credentials",
		fmt.Sprintf("tracking.server_url %s differs from the saved server %s; re-run `shotbridge credentials set --server %s`",
			override, saved, override), nil)
}
