// ABOUTME: Tests for store initialization and the single-flight manager
// ABOUTME: Covers directory creation, identity seeding, and concurrent opens

package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// testStore creates a temporary database for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewManager(dbPath).Open()
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// testOwner returns the seeded device owner id.
func testOwner(t *testing.T, s *Store) string {
	t.Helper()
	owner, err := NewSettingsRepo(s).OwnerID()
	if err != nil {
		t.Fatalf("failed to get owner id: %v", err)
	}
	return owner
}

func TestManagerOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewManager(dbPath).Open()
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Path() != dbPath {
		t.Errorf("got path %s, want %s", s.Path(), dbPath)
	}
}

func TestManagerOpen_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "path")
	dbPath := filepath.Join(nested, "test.db")

	s, err := NewManager(dbPath).Open()
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Error("nested directory was not created")
	}
}

func TestManagerOpen_SingleFlight(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "test.db"))

	const workers = 16
	stores := make([]*Store, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			s, err := m.Open()
			if err != nil {
				t.Errorf("concurrent open failed: %v", err)
				return
			}
			stores[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if stores[i] != stores[0] {
			t.Fatal("concurrent opens returned different stores")
		}
	}
	defer stores[0].Close()
}

func TestManagerOpen_SeedsOwnerIdentity(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewManager(dbPath).Open()
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}

	owner := testOwner(t, s)
	if owner == "" {
		t.Fatal("owner id was not seeded")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	// Reopening the same file keeps the identity stable.
	s2, err := NewManager(dbPath).Open()
	if err != nil {
		t.Fatalf("failed to reopen: %v", err)
	}
	defer s2.Close()

	if got := testOwner(t, s2); got != owner {
		t.Errorf("owner id changed across opens: got %s, want %s", got, owner)
	}
}
