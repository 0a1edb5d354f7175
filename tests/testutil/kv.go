package testutil

import (
	"testing"

	"github.com/nhle/daily-todo/internal/store"
)

// NewTestKV creates an in-memory SQLite-backed KV with all migrations
// applied. It automatically closes the store when the test completes.
func NewTestKV(t *testing.T) *store.SQLiteKV {
	t.Helper()

	kv, err := store.NewSQLiteKV(":memory:")
	if err != nil {
		t.Fatalf("creating test kv: %v", err)
	}

	t.Cleanup(func() {
		if err := kv.Close(); err != nil {
			t.Errorf("closing test kv: %v", err)
		}
	})

	return kv
}
