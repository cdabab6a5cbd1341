// ABOUTME: Versioned schema migrations with a single-row migration_meta record
// ABOUTME: Pending steps run inside one exclusive transaction and roll back together

package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is one versioned schema step. Statements use IF NOT EXISTS
// semantics so a step retried after a crash between commit and version
// bump converges instead of failing on duplicate objects.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "base schema",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS app_settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS dog_profiles (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				name TEXT NOT NULL,
				breed TEXT NOT NULL DEFAULT '',
				age INTEGER NOT NULL DEFAULT 0,
				weight REAL NOT NULL DEFAULT 0,
				triggers TEXT NOT NULL DEFAULT '[]',
				reactivity_level INTEGER NOT NULL DEFAULT 1,
				training_method TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_dog_profiles_owner ON dog_profiles(owner_id, created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS trigger_logs (
				id TEXT PRIMARY KEY,
				dog_id TEXT NOT NULL,
				owner_id TEXT NOT NULL,
				trigger_type TEXT NOT NULL,
				severity INTEGER NOT NULL,
				distance_meters REAL,
				location_latitude REAL,
				location_longitude REAL,
				notes TEXT,
				logged_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_trigger_logs_owner ON trigger_logs(owner_id, logged_at)`,
			`CREATE TABLE IF NOT EXISTS walks (
				id TEXT PRIMARY KEY,
				dog_id TEXT NOT NULL,
				owner_id TEXT NOT NULL,
				distance_threshold_meters REAL NOT NULL,
				started_at DATETIME NOT NULL,
				ended_at DATETIME,
				success_rating INTEGER,
				technique_used TEXT,
				notes TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_walks_owner ON walks(owner_id, started_at)`,
			`CREATE TABLE IF NOT EXISTS walk_points (
				id TEXT PRIMARY KEY,
				walk_id TEXT NOT NULL REFERENCES walks(id) ON DELETE CASCADE,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				accuracy REAL,
				captured_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_walk_points_walk ON walk_points(walk_id, captured_at)`,
		},
	},
	{
		version: 2,
		name:    "trigger type index",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_trigger_logs_type ON trigger_logs(trigger_type)`,
		},
	},
}

// TargetSchemaVersion is the schema version this build requires.
var TargetSchemaVersion = migrations[len(migrations)-1].version

// migrate brings the database to the target schema version. All pending
// steps run in one exclusive transaction; on any failure the whole batch
// rolls back and the store stays at its prior consistent version.
func migrate(db *sql.DB) error {
	if err := ensureMeta(db); err != nil {
		return fmt.Errorf("%w: %v", ErrMigration, err)
	}

	current, err := schemaVersion(db)
	if err != nil {
		return fmt.Errorf("%w: read version: %v", ErrMigration, err)
	}
	if current >= TargetSchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrMigration, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("%w: step %d (%s): %v", ErrMigration, m.version, m.name, err)
			}
		}
	}

	if _, err := tx.Exec(
		"UPDATE migration_meta SET schema_version = ?, updated_at = ? WHERE id = 1",
		TargetSchemaVersion, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("%w: bump version: %v", ErrMigration, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrMigration, err)
	}
	return nil
}

// ensureMeta creates the migration_meta table and its single row when absent.
func ensureMeta(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS migration_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		schema_version INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	)`); err != nil {
		return err
	}
	_, err := db.Exec(
		"INSERT OR IGNORE INTO migration_meta (id, schema_version, updated_at) VALUES (1, 0, ?)",
		time.Now().UTC(),
	)
	return err
}

// schemaVersion reads the stored schema version, defaulting to 0.
func schemaVersion(db *sql.DB) (int, error) {
	var v int
	err := db.QueryRow("SELECT schema_version FROM migration_meta WHERE id = 1").Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// SchemaVersion exposes the stored schema version for diagnostics.
func (s *Store) SchemaVersion() (int, error) {
	return schemaVersion(s.db)
}
