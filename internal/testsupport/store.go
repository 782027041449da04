package testsupport

import (
	"context"
	"testing"

	"shotbridge/internal/config"
	"shotbridge/internal/tracking/localstore"
)

// MustOpenLocalStore opens the offline store configured in cfg and registers
// cleanup.
func MustOpenLocalStore(t testing.TB, cfg *config.Config, username string) *localstore.Store {
	t.Helper()

	store, err := localstore.Open(context.Background(), localstore.Options{
		Path:     cfg.Offline.DBPath,
		Username: username,
	})
	if err != nil {
		t.Fatalf("localstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
