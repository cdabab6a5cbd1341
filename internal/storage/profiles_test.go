// ABOUTME: Tests for the dog profile repository
// ABOUTME: Covers creation, validation, active profile policy, and patch updates

package storage

import (
	"errors"
	"testing"
	"time"
)

func testProfileInput() ProfileInput {
	return ProfileInput{
		Name:            "Rex",
		Breed:           "border collie",
		Age:             3,
		Weight:          20,
		Triggers:        []string{"dogs", "bikes"},
		ReactivityLevel: 4,
	}
}

func TestProfileCreate(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewProfileRepo(s)

	p, err := repo.Create(owner, testProfileInput())
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	got, err := repo.GetByID(p.ID)
	if err != nil {
		t.Fatalf("failed to get profile: %v", err)
	}
	if got.Name != "Rex" || got.Breed != "border collie" || got.Age != 3 || got.Weight != 20 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if got.OwnerID != owner {
		t.Errorf("got owner %s, want %s", got.OwnerID, owner)
	}
	if len(got.Triggers) != 2 || got.Triggers[0] != "bikes" || got.Triggers[1] != "dogs" {
		t.Errorf("got triggers %v, want normalized [bikes dogs]", got.Triggers)
	}
}

func TestProfileCreate_Validation(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewProfileRepo(s)

	tests := []struct {
		name  string
		mutil func(*ProfileInput)
	}{
		{"empty name", func(in *ProfileInput) { in.Name = "  " }},
		{"negative age", func(in *ProfileInput) { in.Age = -1 }},
		{"negative weight", func(in *ProfileInput) { in.Weight = -0.5 }},
		{"reactivity too low", func(in *ProfileInput) { in.ReactivityLevel = 0 }},
		{"reactivity too high", func(in *ProfileInput) { in.ReactivityLevel = 6 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testProfileInput()
			tt.mutil(&in)
			_, err := repo.Create(owner, in)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("got error %v, want ErrValidation", err)
			}
		})
	}
}

func TestProfileGetByID_NotFound(t *testing.T) {
	s := testStore(t)
	repo := NewProfileRepo(s)

	_, err := repo.GetByID("dog_0000000000_0000000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestActiveProfile_LatestWins(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewProfileRepo(s)

	first, err := repo.Create(owner, testProfileInput())
	if err != nil {
		t.Fatalf("failed to create first profile: %v", err)
	}

	// Force a strictly newer created_at for the second profile.
	in := testProfileInput()
	in.Name = "Luna"
	second, err := repo.Create(owner, in)
	if err != nil {
		t.Fatalf("failed to create second profile: %v", err)
	}
	later := time.Now().UTC().Add(time.Second)
	if _, err := s.db.Exec("UPDATE dog_profiles SET created_at = ? WHERE id = ?", later, second.ID); err != nil {
		t.Fatalf("failed to bump created_at: %v", err)
	}

	active, err := repo.ActiveProfile(owner)
	if err != nil {
		t.Fatalf("failed to get active profile: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("got active %s (%s), want latest %s", active.ID, active.Name, second.ID)
	}
	_ = first
}

func TestActiveProfile_NoneYet(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewProfileRepo(s)

	_, err := repo.ActiveProfile(owner)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestProfileUpdate_PartialPatch(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewProfileRepo(s)

	p, err := repo.Create(owner, testProfileInput())
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	reactivity := 2
	updated, err := repo.Update(p.ID, ProfilePatch{ReactivityLevel: &reactivity})
	if err != nil {
		t.Fatalf("failed to update profile: %v", err)
	}

	if updated.ReactivityLevel != 2 {
		t.Errorf("got reactivity %d, want 2", updated.ReactivityLevel)
	}
	// Untouched fields survive the patch.
	if updated.Name != p.Name || updated.Breed != p.Breed || updated.Age != p.Age {
		t.Errorf("patch clobbered unrelated fields: %+v", updated)
	}
	if !updated.UpdatedAt.After(p.UpdatedAt) && !updated.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v -> %v", p.UpdatedAt, updated.UpdatedAt)
	}
}

func TestProfileUpdate_ReplacesTriggerSet(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewProfileRepo(s)

	p, err := repo.Create(owner, testProfileInput())
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	updated, err := repo.Update(p.ID, ProfilePatch{Triggers: []string{"Skateboards", "dogs", "DOGS"}})
	if err != nil {
		t.Fatalf("failed to update profile: %v", err)
	}
	if len(updated.Triggers) != 2 || updated.Triggers[0] != "dogs" || updated.Triggers[1] != "skateboards" {
		t.Errorf("got triggers %v, want [dogs skateboards]", updated.Triggers)
	}
}

func TestProfileUpdate_InvalidPatch(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	repo := NewProfileRepo(s)

	p, err := repo.Create(owner, testProfileInput())
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	bad := 9
	if _, err := repo.Update(p.ID, ProfilePatch{ReactivityLevel: &bad}); !errors.Is(err, ErrValidation) {
		t.Errorf("got error %v, want ErrValidation", err)
	}

	// The stored row is untouched after a rejected patch.
	got, err := repo.GetByID(p.ID)
	if err != nil {
		t.Fatalf("failed to get profile: %v", err)
	}
	if got.ReactivityLevel != p.ReactivityLevel {
		t.Errorf("rejected patch leaked: got reactivity %d, want %d", got.ReactivityLevel, p.ReactivityLevel)
	}
}

func TestProfileUpdate_NotFound(t *testing.T) {
	s := testStore(t)
	repo := NewProfileRepo(s)

	name := "Ghost"
	_, err := repo.Update("dog_0000000000_0000000000000000", ProfilePatch{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}
