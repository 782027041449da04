package preflight

import (
	"context"
	"path/filepath"

	"shotbridge/internal/config"
	"shotbridge/internal/credentials"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Tester performs a lightweight round trip with the given credentials.
// connection.Manager satisfies it.
type Tester interface {
	Test(ctx context.Context, creds credentials.Credentials) (bool, string)
}

// RunAll executes every applicable check for the given config. The
// connectivity check is skipped when tester is nil.
func RunAll(ctx context.Context, cfg *config.Config, tester Tester) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if cfg.Offline.Enabled {
		results = append(results, CheckDirectoryAccess("Offline database directory", filepath.Dir(cfg.Offline.DBPath)))
	} else {
		results = append(results, CheckCredentialFile(cfg.Tracking.CredentialsPath))
	}

	if tester != nil {
		results = append(results, CheckConnectivity(ctx, cfg, tester))
	}

	results = append(results,
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	)

	// Media directories only need to be readable; the exporter owns them.
	if cfg.Media.ThumbnailDir != "" {
		results = append(results, CheckReadableDirectory("Thumbnail directory", cfg.Media.ThumbnailDir))
	}
	if cfg.Media.VideoDir != "" {
		results = append(results, CheckReadableDirectory("Video directory", cfg.Media.VideoDir))
	}

	return results
}

// Failed counts results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
