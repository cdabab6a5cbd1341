// ABOUTME: Tests for the app settings repository
// ABOUTME: Covers upsert semantics, deletes, and usage counters

package storage

import (
	"errors"
	"testing"
)

func TestSettingsSetGet(t *testing.T) {
	s := testStore(t)
	repo := NewSettingsRepo(s)

	if err := repo.Set("theme", "dark"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	got, err := repo.Get("theme")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if got != "dark" {
		t.Errorf("got %q, want %q", got, "dark")
	}

	// Set replaces, never duplicates.
	if err := repo.Set("theme", "light"); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}
	got, err = repo.Get("theme")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if got != "light" {
		t.Errorf("got %q, want %q", got, "light")
	}
}

func TestSettingsGet_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := NewSettingsRepo(s).Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSettingsDelete(t *testing.T) {
	s := testStore(t)
	repo := NewSettingsRepo(s)

	if err := repo.Set("theme", "dark"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := repo.Delete("theme"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := repo.Get("theme"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after delete", err)
	}

	// Deleting a missing key is not an error.
	if err := repo.Delete("missing"); err != nil {
		t.Errorf("delete of missing key failed: %v", err)
	}
}

func TestSettingsAll(t *testing.T) {
	s := testStore(t)
	repo := NewSettingsRepo(s)

	if err := repo.Set("a", "1"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := repo.Set("b", "2"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	all, err := repo.All()
	if err != nil {
		t.Fatalf("failed to get all: %v", err)
	}
	// owner_id is seeded on open, so at least three keys exist.
	if all["a"] != "1" || all["b"] != "2" {
		t.Errorf("got %v, want a=1 b=2 present", all)
	}
	if all[SettingOwnerID] == "" {
		t.Error("seeded owner id missing from All")
	}
}

func TestSettingsIncrementCounter(t *testing.T) {
	s := testStore(t)
	repo := NewSettingsRepo(s)

	for want := 1; want <= 3; want++ {
		got, err := repo.IncrementCounter("walks_recorded")
		if err != nil {
			t.Fatalf("failed to increment: %v", err)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}

	// A malformed stored value restarts from 1.
	if err := repo.Set("walks_recorded", "banana"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	got, err := repo.IncrementCounter("walks_recorded")
	if err != nil {
		t.Fatalf("failed to increment: %v", err)
	}
	if got != 1 {
		t.Errorf("got %d after malformed value, want 1", got)
	}
}
