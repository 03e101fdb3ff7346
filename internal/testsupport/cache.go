package testsupport

import (
	"path/filepath"
	"testing"

	"subforge/internal/batchcache"
	"subforge/internal/config"
)

// MustOpenCache opens the rewrite cache for cfg and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *batchcache.Store {
	t.Helper()

	path := cfg.RewriteCachePath()
	if path == "" {
		path = filepath.Join(t.TempDir(), "rewrite.db")
	}
	store, err := batchcache.Open(path)
	if err != nil {
		t.Fatalf("batchcache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
