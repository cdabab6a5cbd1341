// ABOUTME: Tests for the walk repository
// ABOUTME: Covers the single-active-walk rule, the closing update, and the route cascade

package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/harper/leash/internal/models"
)

// startWalk creates a profile and an in-progress walk for the owner.
func startWalk(t *testing.T, s *Store, owner string) *models.Walk {
	t.Helper()
	p, err := NewProfileRepo(s).Create(owner, testProfileInput())
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	w, err := NewWalkRepo(s).Start(owner, WalkInput{DogID: p.ID, DistanceThresholdMeters: 15})
	if err != nil {
		t.Fatalf("failed to start walk: %v", err)
	}
	return w
}

func TestWalkStart(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)

	w := startWalk(t, s, owner)
	if !w.Active() {
		t.Error("new walk should be active")
	}
	if w.DistanceThresholdMeters != 15 {
		t.Errorf("got threshold %v, want 15", w.DistanceThresholdMeters)
	}

	got, err := NewWalkRepo(s).ActiveWalk(owner)
	if err != nil {
		t.Fatalf("failed to get active walk: %v", err)
	}
	if got.ID != w.ID {
		t.Errorf("got active walk %s, want %s", got.ID, w.ID)
	}
}

func TestWalkStart_Validation(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewWalkRepo(s)

	if _, err := repo.Start(owner, WalkInput{DistanceThresholdMeters: 15}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing dog_id: got %v, want ErrValidation", err)
	}
	if _, err := repo.Start(owner, WalkInput{DogID: "dog_x", DistanceThresholdMeters: 0}); !errors.Is(err, ErrValidation) {
		t.Errorf("zero threshold: got %v, want ErrValidation", err)
	}
	if _, err := repo.Start(owner, WalkInput{DogID: "dog_x", DistanceThresholdMeters: -1}); !errors.Is(err, ErrValidation) {
		t.Errorf("negative threshold: got %v, want ErrValidation", err)
	}
}

func TestWalkStart_OnlyOneActive(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewWalkRepo(s)

	w := startWalk(t, s, owner)

	_, err := repo.Start(owner, WalkInput{DogID: w.DogID, DistanceThresholdMeters: 10})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("second start: got %v, want ErrValidation", err)
	}

	// Ending the walk frees the slot.
	if _, err := repo.End(w.ID, EndPatch{}); err != nil {
		t.Fatalf("failed to end walk: %v", err)
	}
	if _, err := repo.Start(owner, WalkInput{DogID: w.DogID, DistanceThresholdMeters: 10}); err != nil {
		t.Fatalf("start after end failed: %v", err)
	}
}

func TestWalkEnd(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewWalkRepo(s)

	w := startWalk(t, s, owner)

	rating := 4
	notes := "calm past two dogs"
	ended, err := repo.End(w.ID, EndPatch{SuccessRating: &rating, Notes: &notes})
	if err != nil {
		t.Fatalf("failed to end walk: %v", err)
	}

	if ended.EndedAt == nil {
		t.Fatal("ended_at was not set")
	}
	if ended.EndedAt.Before(ended.StartedAt) {
		t.Errorf("ended_at %v before started_at %v", ended.EndedAt, ended.StartedAt)
	}
	if ended.SuccessRating == nil || *ended.SuccessRating != 4 {
		t.Errorf("got rating %v, want 4", ended.SuccessRating)
	}
	if ended.Notes == nil || *ended.Notes != notes {
		t.Errorf("got notes %v, want %q", ended.Notes, notes)
	}

	if _, err := repo.ActiveWalk(owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("active walk after end: got %v, want ErrNotFound", err)
	}
}

func TestWalkEnd_Twice(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewWalkRepo(s)

	w := startWalk(t, s, owner)
	if _, err := repo.End(w.ID, EndPatch{}); err != nil {
		t.Fatalf("failed to end walk: %v", err)
	}

	if _, err := repo.End(w.ID, EndPatch{}); !errors.Is(err, ErrValidation) {
		t.Errorf("second end: got %v, want ErrValidation", err)
	}
}

func TestWalkEnd_InvalidRating(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewWalkRepo(s)

	w := startWalk(t, s, owner)

	bad := 6
	if _, err := repo.End(w.ID, EndPatch{SuccessRating: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}

	// A rejected end leaves the walk in progress.
	got, err := repo.GetByID(w.ID)
	if err != nil {
		t.Fatalf("failed to get walk: %v", err)
	}
	if !got.Active() {
		t.Error("rejected end closed the walk")
	}
}

func TestWalkList_NewestFirst(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewWalkRepo(s)

	first := startWalk(t, s, owner)
	if _, err := repo.End(first.ID, EndPatch{}); err != nil {
		t.Fatalf("failed to end walk: %v", err)
	}
	second, err := repo.Start(owner, WalkInput{DogID: first.DogID, DistanceThresholdMeters: 10})
	if err != nil {
		t.Fatalf("failed to start second walk: %v", err)
	}
	later := time.Now().UTC().Add(time.Second)
	if _, err := s.db.Exec("UPDATE walks SET started_at = ? WHERE id = ?", later, second.ID); err != nil {
		t.Fatalf("failed to bump started_at: %v", err)
	}

	walks, err := repo.ListByOwner(owner, ListOptions{})
	if err != nil {
		t.Fatalf("failed to list walks: %v", err)
	}
	if len(walks) != 2 {
		t.Fatalf("got %d walks, want 2", len(walks))
	}
	if walks[0].ID != second.ID {
		t.Errorf("got first walk %s, want newest %s", walks[0].ID, second.ID)
	}
}

func TestWalkDelete_CascadesRoutePoints(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewWalkRepo(s)
	pointRepo := NewPointRepo(s)

	w := startWalk(t, s, owner)

	now := time.Now().UTC()
	batch := []*models.RoutePoint{
		models.NewRoutePoint(w.ID, 41.8781, -87.6298, nil, now),
		models.NewRoutePoint(w.ID, 41.8790, -87.6298, nil, now.Add(time.Minute)),
	}
	if err := pointRepo.InsertBatch(batch); err != nil {
		t.Fatalf("failed to insert points: %v", err)
	}

	if err := repo.Delete(w.ID); err != nil {
		t.Fatalf("failed to delete walk: %v", err)
	}

	if _, err := repo.GetByID(w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("walk survived delete: %v", err)
	}
	count, err := pointRepo.CountByWalk(w.ID)
	if err != nil {
		t.Fatalf("failed to count points: %v", err)
	}
	if count != 0 {
		t.Errorf("got %d orphaned points, want 0", count)
	}
}

func TestWalkDelete_NotFound(t *testing.T) {
	s := testStore(t)
	repo := NewWalkRepo(s)

	if err := repo.Delete("walk_0000000000_0000000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
