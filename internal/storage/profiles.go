// ABOUTME: Dog profile repository over the dog_profiles table
// ABOUTME: Owns profile validation, the triggers tag set, and the latest-wins active profile policy

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harper/leash/internal/models"
)

// ProfileRepo provides typed CRUD over dog_profiles.
type ProfileRepo struct {
	store *Store
}

// NewProfileRepo creates a profile repository sharing the store handle.
func NewProfileRepo(s *Store) *ProfileRepo {
	return &ProfileRepo{store: s}
}

// ProfileInput is the payload for creating a profile.
type ProfileInput struct {
	Name            string
	Breed           string
	Age             int
	Weight          float64
	Triggers        []string
	ReactivityLevel int
	TrainingMethod  *string
}

// ProfilePatch carries the fields to shallow-merge in an update. Nil
// pointers leave the stored value untouched; Triggers replaces the whole
// set when non-nil.
type ProfilePatch struct {
	Name            *string
	Breed           *string
	Age             *int
	Weight          *float64
	Triggers        []string
	ReactivityLevel *int
	TrainingMethod  *string
}

func validateProfileInput(in ProfileInput) error {
	if err := models.ValidateName(in.Name); err != nil {
		return err
	}
	if in.Age < 0 {
		return fmt.Errorf("age must not be negative")
	}
	if in.Weight < 0 {
		return fmt.Errorf("weight must not be negative")
	}
	return models.ValidateScale("reactivity_level", in.ReactivityLevel)
}

// Create inserts a new profile for the owner.
func (r *ProfileRepo) Create(ownerID string, in ProfileInput) (*models.DogProfile, error) {
	if err := validateProfileInput(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := time.Now().UTC()
	p := &models.DogProfile{
		ID:              models.NewID(models.PrefixProfile),
		OwnerID:         ownerID,
		Name:            strings.TrimSpace(in.Name),
		Breed:           strings.TrimSpace(in.Breed),
		Age:             in.Age,
		Weight:          in.Weight,
		Triggers:        models.NormalizeTriggers(in.Triggers),
		ReactivityLevel: in.ReactivityLevel,
		TrainingMethod:  in.TrainingMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := insertProfile(r.store.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

func insertProfile(q querier, p *models.DogProfile) error {
	triggers, err := json.Marshal(p.Triggers)
	if err != nil {
		return fmt.Errorf("marshal triggers: %w", err)
	}
	_, err = q.Exec(
		`INSERT INTO dog_profiles (id, owner_id, name, breed, age, weight, triggers, reactivity_level, training_method, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.Breed, p.Age, p.Weight, string(triggers),
		p.ReactivityLevel, p.TrainingMethod, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert profile: %v", ErrStorage, err)
	}
	return nil
}

const profileColumns = "id, owner_id, name, breed, age, weight, triggers, reactivity_level, training_method, created_at, updated_at"

// GetByID retrieves a profile by id.
func (r *ProfileRepo) GetByID(id string) (*models.DogProfile, error) {
	row := r.store.db.QueryRow(
		"SELECT "+profileColumns+" FROM dog_profiles WHERE id = ?", id,
	)
	return scanProfile(row)
}

// ListByOwner returns the owner's profiles filtered and ordered by created_at.
func (r *ProfileRepo) ListByOwner(ownerID string, opts ListOptions) ([]*models.DogProfile, error) {
	where, args, tail := opts.clauses("created_at")
	rows, err := r.store.db.Query(
		"SELECT "+profileColumns+" FROM dog_profiles WHERE owner_id = ?"+where+tail,
		append([]any{ownerID}, args...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query profiles: %v", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()
	return scanProfiles(rows)
}

// ActiveProfile returns the owner's current profile. The schema permits
// several profiles per owner; the latest created_at wins, with the id as
// a deterministic tiebreak.
func (r *ProfileRepo) ActiveProfile(ownerID string) (*models.DogProfile, error) {
	row := r.store.db.QueryRow(
		"SELECT "+profileColumns+" FROM dog_profiles WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		ownerID,
	)
	return scanProfile(row)
}

// Update loads the profile, shallow-merges the patch over it, recomputes
// updated_at, and writes it back. A missing profile is ErrNotFound.
func (r *ProfileRepo) Update(id string, patch ProfilePatch) (*models.DogProfile, error) {
	p, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Breed != nil {
		p.Breed = strings.TrimSpace(*patch.Breed)
	}
	if patch.Age != nil {
		p.Age = *patch.Age
	}
	if patch.Weight != nil {
		p.Weight = *patch.Weight
	}
	if patch.Triggers != nil {
		p.Triggers = models.NormalizeTriggers(patch.Triggers)
	}
	if patch.ReactivityLevel != nil {
		p.ReactivityLevel = *patch.ReactivityLevel
	}
	if patch.TrainingMethod != nil {
		p.TrainingMethod = patch.TrainingMethod
	}

	if err := validateProfileInput(ProfileInput{
		Name:            p.Name,
		Breed:           p.Breed,
		Age:             p.Age,
		Weight:          p.Weight,
		Triggers:        p.Triggers,
		ReactivityLevel: p.ReactivityLevel,
		TrainingMethod:  p.TrainingMethod,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	p.UpdatedAt = time.Now().UTC()

	triggers, err := json.Marshal(p.Triggers)
	if err != nil {
		return nil, fmt.Errorf("marshal triggers: %w", err)
	}
	_, err = r.store.db.Exec(
		`UPDATE dog_profiles SET name = ?, breed = ?, age = ?, weight = ?, triggers = ?,
		 reactivity_level = ?, training_method = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Breed, p.Age, p.Weight, string(triggers),
		p.ReactivityLevel, p.TrainingMethod, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: update profile: %v", ErrStorage, err)
	}
	return p, nil
}

func scanProfile(row *sql.Row) (*models.DogProfile, error) {
	var p models.DogProfile
	var triggers string
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Breed, &p.Age, &p.Weight,
		&triggers, &p.ReactivityLevel, &p.TrainingMethod, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan profile: %v", ErrStorage, err)
	}
	if err := json.Unmarshal([]byte(triggers), &p.Triggers); err != nil {
		p.Triggers = nil
	}
	return &p, nil
}

func scanProfiles(rows *sql.Rows) ([]*models.DogProfile, error) {
	var profiles []*models.DogProfile
	for rows.Next() {
		var p models.DogProfile
		var triggers string
		err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Breed, &p.Age, &p.Weight,
			&triggers, &p.ReactivityLevel, &p.TrainingMethod, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: scan profile: %v", ErrStorage, err)
		}
		if err := json.Unmarshal([]byte(triggers), &p.Triggers); err != nil {
			p.Triggers = nil
		}
		profiles = append(profiles, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return profiles, nil
}

func listProfiles(q querier) ([]*models.DogProfile, error) {
	rows, err := q.Query("SELECT " + profileColumns + " FROM dog_profiles ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("%w: query profiles: %v", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()
	return scanProfiles(rows)
}
