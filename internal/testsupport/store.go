package testsupport

import (
	"context"
	"testing"

	"hashtools/internal/config"
	"hashtools/internal/record"
	"hashtools/internal/store"
)

// MustOpenStore opens a store.Store for tests, mirrors the configured
// roots into it, and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	if err := st.SyncRoots(context.Background(), cfg.RootTable().Roots()); err != nil {
		t.Fatalf("store.SyncRoots: %v", err)
	}
	return st
}

// MustImport loads recs into st.
func MustImport(t testing.TB, st *store.Store, recs []record.FileRecord) {
	t.Helper()
	if _, err := st.Import(context.Background(), recs); err != nil {
		t.Fatalf("store.Import: %v", err)
	}
}
