// ABOUTME: Tests for versioned schema migrations
// ABOUTME: Covers version tracking, idempotent re-runs, and table creation

package storage

import (
	"testing"
)

func TestMigrate_SetsTargetVersion(t *testing.T) {
	s := testStore(t)

	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != TargetSchemaVersion {
		t.Errorf("got schema version %d, want %d", version, TargetSchemaVersion)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := testStore(t)

	// Running migrate again against an up-to-date database must be a no-op.
	if err := migrate(s.db); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if err := migrate(s.db); err != nil {
		t.Fatalf("third migrate failed: %v", err)
	}

	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != TargetSchemaVersion {
		t.Errorf("got schema version %d, want %d", version, TargetSchemaVersion)
	}
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	s := testStore(t)

	for _, table := range []string{"app_settings", "dog_profiles", "trigger_logs", "walks", "walk_points", "migration_meta"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestMigrate_SingleMetaRow(t *testing.T) {
	s := testStore(t)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM migration_meta").Scan(&count); err != nil {
		t.Fatalf("failed to count meta rows: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d migration_meta rows, want 1", count)
	}
}
