// Package dbtest opens throwaway migrated SQLite databases for repository tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/clinictracker/clinictracker/internal/platform/db"
)

// New returns a migrated database in t's temp dir, closed on cleanup.
func New(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()
	d, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "clinic.db"), 1, 1)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if _, err := db.NewMigrator(d, db.EmbeddedMigrations(d.Dialect)).Up(ctx); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return d
}
