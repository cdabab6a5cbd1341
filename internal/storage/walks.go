// ABOUTME: Walk repository over the walks table
// ABOUTME: Enforces the single-active-walk convention and owns the route point cascade

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harper/leash/internal/models"
)

// WalkRepo provides typed operations over walks.
type WalkRepo struct {
	store *Store
}

// NewWalkRepo creates a walk repository sharing the store handle.
func NewWalkRepo(s *Store) *WalkRepo {
	return &WalkRepo{store: s}
}

// WalkInput is the payload for starting a walk.
type WalkInput struct {
	DogID                   string
	DistanceThresholdMeters float64
	TechniqueUsed           *string
	Notes                   *string
}

// EndPatch carries the optional fields of the single closing update.
type EndPatch struct {
	SuccessRating *int
	TechniqueUsed *string
	Notes         *string
}

// Start creates a walk with ended_at null. At most one walk per owner may
// be in progress; the check lives here so no caller can forget it.
func (r *WalkRepo) Start(ownerID string, in WalkInput) (*models.Walk, error) {
	if strings.TrimSpace(in.DogID) == "" {
		return nil, fmt.Errorf("%w: dog_id is required", ErrValidation)
	}
	if in.DistanceThresholdMeters <= 0 {
		return nil, fmt.Errorf("%w: distance_threshold_meters must be positive", ErrValidation)
	}

	if _, err := r.ActiveWalk(ownerID); err == nil {
		return nil, fmt.Errorf("%w: a walk is already in progress", ErrValidation)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	w := &models.Walk{
		ID:                      models.NewID(models.PrefixWalk),
		DogID:                   in.DogID,
		OwnerID:                 ownerID,
		DistanceThresholdMeters: in.DistanceThresholdMeters,
		StartedAt:               now,
		TechniqueUsed:           in.TechniqueUsed,
		Notes:                   in.Notes,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := insertWalk(r.store.db, w); err != nil {
		return nil, err
	}
	return w, nil
}

func insertWalk(q querier, w *models.Walk) error {
	_, err := q.Exec(
		`INSERT INTO walks (id, dog_id, owner_id, distance_threshold_meters, started_at, ended_at,
		 success_rating, technique_used, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.DogID, w.OwnerID, w.DistanceThresholdMeters, w.StartedAt, w.EndedAt,
		w.SuccessRating, w.TechniqueUsed, w.Notes, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert walk: %v", ErrStorage, err)
	}
	return nil
}

const walkColumns = "id, dog_id, owner_id, distance_threshold_meters, started_at, ended_at, success_rating, technique_used, notes, created_at, updated_at"

// GetByID retrieves a walk by id.
func (r *WalkRepo) GetByID(id string) (*models.Walk, error) {
	row := r.store.db.QueryRow("SELECT "+walkColumns+" FROM walks WHERE id = ?", id)
	return scanWalk(row)
}

// ListByOwner returns the owner's walks filtered and ordered by started_at.
func (r *WalkRepo) ListByOwner(ownerID string, opts ListOptions) ([]*models.Walk, error) {
	where, args, tail := opts.clauses("started_at")
	rows, err := r.store.db.Query(
		"SELECT "+walkColumns+" FROM walks WHERE owner_id = ?"+where+tail,
		append([]any{ownerID}, args...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query walks: %v", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()
	return scanWalks(rows)
}

// ActiveWalk returns the owner's in-progress walk, or ErrNotFound.
func (r *WalkRepo) ActiveWalk(ownerID string) (*models.Walk, error) {
	row := r.store.db.QueryRow(
		"SELECT "+walkColumns+" FROM walks WHERE owner_id = ? AND ended_at IS NULL ORDER BY started_at DESC LIMIT 1",
		ownerID,
	)
	return scanWalk(row)
}

// End performs the single closing update: sets ended_at and merges the
// optional rating, technique, and notes. Ending an already-ended walk is
// a validation error, not a silent overwrite.
func (r *WalkRepo) End(id string, patch EndPatch) (*models.Walk, error) {
	w, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !w.Active() {
		return nil, fmt.Errorf("%w: walk already ended", ErrValidation)
	}
	if patch.SuccessRating != nil {
		if err := models.ValidateScale("success_rating", *patch.SuccessRating); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		w.SuccessRating = patch.SuccessRating
	}
	if patch.TechniqueUsed != nil {
		w.TechniqueUsed = patch.TechniqueUsed
	}
	if patch.Notes != nil {
		w.Notes = patch.Notes
	}

	now := time.Now().UTC()
	w.EndedAt = &now
	w.UpdatedAt = now

	_, err = r.store.db.Exec(
		`UPDATE walks SET ended_at = ?, success_rating = ?, technique_used = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		w.EndedAt, w.SuccessRating, w.TechniqueUsed, w.Notes, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: end walk: %v", ErrStorage, err)
	}
	return w, nil
}

// Delete removes a walk and its route points in one transaction. The
// cascade is explicit and centralized here; the schema-level ON DELETE
// CASCADE is only a backstop.
func (r *WalkRepo) Delete(id string) error {
	if _, err := r.GetByID(id); err != nil {
		return err
	}
	tx, err := r.store.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM walk_points WHERE walk_id = ?", id); err != nil {
		return fmt.Errorf("%w: delete route points: %v", ErrStorage, err)
	}
	if _, err := tx.Exec("DELETE FROM walks WHERE id = ?", id); err != nil {
		return fmt.Errorf("%w: delete walk: %v", ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

func scanWalk(row *sql.Row) (*models.Walk, error) {
	var w models.Walk
	err := row.Scan(&w.ID, &w.DogID, &w.OwnerID, &w.DistanceThresholdMeters,
		&w.StartedAt, &w.EndedAt, &w.SuccessRating, &w.TechniqueUsed, &w.Notes,
		&w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan walk: %v", ErrStorage, err)
	}
	return &w, nil
}

func scanWalks(rows *sql.Rows) ([]*models.Walk, error) {
	var walks []*models.Walk
	for rows.Next() {
		var w models.Walk
		err := rows.Scan(&w.ID, &w.DogID, &w.OwnerID, &w.DistanceThresholdMeters,
			&w.StartedAt, &w.EndedAt, &w.SuccessRating, &w.TechniqueUsed, &w.Notes,
			&w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: scan walk: %v", ErrStorage, err)
		}
		walks = append(walks, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return walks, nil
}

func listWalks(q querier) ([]*models.Walk, error) {
	rows, err := q.Query("SELECT " + walkColumns + " FROM walks ORDER BY started_at")
	if err != nil {
		return nil, fmt.Errorf("%w: query walks: %v", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()
	return scanWalks(rows)
}
