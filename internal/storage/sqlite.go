// ABOUTME: SQLite store handle and single-flight schema manager
// ABOUTME: Opens the database once, applies pragmas and migrations, seeds device identity

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the shared handle to the on-device database. It is the single
// source of truth for the device; repositories borrow it per call and
// never cache rows beyond one operation.
type Store struct {
	db   *sql.DB
	path string
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Scan helpers accept it so the export engine can reuse them inside a
// transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Manager owns lazy, exactly-once initialization of the store. Concurrent
// callers during initialization all wait on the same in-flight open and
// receive the same *Store (or the same error); setup never runs twice.
type Manager struct {
	path  string
	once  sync.Once
	store *Store
	err   error
}

// NewManager creates a manager for the database at path. Nothing is
// opened until the first call to Open.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Open returns the shared store, performing setup on the first call.
func (m *Manager) Open() (*Store, error) {
	m.once.Do(func() {
		m.store, m.err = open(m.path)
	})
	return m.store, m.err
}

// DefaultDBPath returns the default database path following XDG spec.
func DefaultDBPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "leash", "leash.db")
}

func open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // 0750 is appropriate for user data directory
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, path: path}

	if err := s.configurePragmas(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := s.seedIdentity(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed identity: %w", err)
	}

	return s, nil
}

// configurePragmas sets up SQLite for concurrent readers during writes.
func (s *Store) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// seedIdentity generates the local owner id on first open. The owner id
// is the tenant key for every locally-stored entity; it is minted once
// per install and is not a networked account identity.
func (s *Store) seedIdentity() error {
	settings := NewSettingsRepo(s)
	if _, err := settings.Get(SettingOwnerID); err == nil {
		return nil
	}
	return settings.Set(SettingOwnerID, uuid.NewString())
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
