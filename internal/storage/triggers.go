// ABOUTME: Trigger log repository over the trigger_logs table
// ABOUTME: Logs are immutable after creation; deleted only via wipe or import-replace

package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harper/leash/internal/models"
)

// TriggerRepo provides typed operations over trigger_logs.
type TriggerRepo struct {
	store *Store
}

// NewTriggerRepo creates a trigger log repository sharing the store handle.
func NewTriggerRepo(s *Store) *TriggerRepo {
	return &TriggerRepo{store: s}
}

// TriggerInput is the payload for logging a trigger event. Latitude and
// Longitude must be provided together or not at all. LoggedAt defaults to
// now when nil.
type TriggerInput struct {
	DogID          string
	TriggerType    string
	Severity       int
	DistanceMeters *float64
	Latitude       *float64
	Longitude      *float64
	Notes          *string
	LoggedAt       *time.Time
}

func validateTriggerInput(in TriggerInput) error {
	if strings.TrimSpace(in.DogID) == "" {
		return fmt.Errorf("dog_id is required")
	}
	if strings.TrimSpace(in.TriggerType) == "" {
		return fmt.Errorf("trigger_type is required")
	}
	if err := models.ValidateScale("severity", in.Severity); err != nil {
		return err
	}
	if in.DistanceMeters != nil && *in.DistanceMeters < 0 {
		return fmt.Errorf("distance_meters must not be negative")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return fmt.Errorf("location latitude and longitude must be provided together")
	}
	if in.Latitude != nil {
		return models.ValidateCoordinates(*in.Latitude, *in.Longitude)
	}
	return nil
}

// Create inserts a new trigger log for the owner.
func (r *TriggerRepo) Create(ownerID string, in TriggerInput) (*models.TriggerLog, error) {
	if err := validateTriggerInput(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := time.Now().UTC()
	loggedAt := now
	if in.LoggedAt != nil {
		loggedAt = in.LoggedAt.UTC()
	}

	t := &models.TriggerLog{
		ID:             models.NewID(models.PrefixTrigger),
		DogID:          in.DogID,
		OwnerID:        ownerID,
		TriggerType:    strings.ToLower(strings.TrimSpace(in.TriggerType)),
		Severity:       in.Severity,
		DistanceMeters: in.DistanceMeters,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Notes:          in.Notes,
		LoggedAt:       loggedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := insertTrigger(r.store.db, t); err != nil {
		return nil, err
	}
	return t, nil
}

func insertTrigger(q querier, t *models.TriggerLog) error {
	_, err := q.Exec(
		`INSERT INTO trigger_logs (id, dog_id, owner_id, trigger_type, severity, distance_meters,
		 location_latitude, location_longitude, notes, logged_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.DogID, t.OwnerID, t.TriggerType, t.Severity, t.DistanceMeters,
		t.Latitude, t.Longitude, t.Notes, t.LoggedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert trigger log: %v", ErrStorage, err)
	}
	return nil
}

const triggerColumns = "id, dog_id, owner_id, trigger_type, severity, distance_meters, location_latitude, location_longitude, notes, logged_at, created_at, updated_at"

// GetByID retrieves a trigger log by id.
func (r *TriggerRepo) GetByID(id string) (*models.TriggerLog, error) {
	row := r.store.db.QueryRow(
		"SELECT "+triggerColumns+" FROM trigger_logs WHERE id = ?", id,
	)
	return scanTrigger(row)
}

// ListByOwner returns the owner's trigger logs filtered and ordered by logged_at.
func (r *TriggerRepo) ListByOwner(ownerID string, opts ListOptions) ([]*models.TriggerLog, error) {
	where, args, tail := opts.clauses("logged_at")
	rows, err := r.store.db.Query(
		"SELECT "+triggerColumns+" FROM trigger_logs WHERE owner_id = ?"+where+tail,
		append([]any{ownerID}, args...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query trigger logs: %v", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()
	return scanTriggers(rows)
}

// CountByOwner returns the number of trigger logs for an owner.
func (r *TriggerRepo) CountByOwner(ownerID string) (int, error) {
	var n int
	err := r.store.db.QueryRow(
		"SELECT COUNT(*) FROM trigger_logs WHERE owner_id = ?", ownerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count trigger logs: %v", ErrStorage, err)
	}
	return n, nil
}

func scanTrigger(row *sql.Row) (*models.TriggerLog, error) {
	var t models.TriggerLog
	err := row.Scan(&t.ID, &t.DogID, &t.OwnerID, &t.TriggerType, &t.Severity,
		&t.DistanceMeters, &t.Latitude, &t.Longitude, &t.Notes,
		&t.LoggedAt, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan trigger log: %v", ErrStorage, err)
	}
	return &t, nil
}

func scanTriggers(rows *sql.Rows) ([]*models.TriggerLog, error) {
	var logs []*models.TriggerLog
	for rows.Next() {
		var t models.TriggerLog
		err := rows.Scan(&t.ID, &t.DogID, &t.OwnerID, &t.TriggerType, &t.Severity,
			&t.DistanceMeters, &t.Latitude, &t.Longitude, &t.Notes,
			&t.LoggedAt, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: scan trigger log: %v", ErrStorage, err)
		}
		logs = append(logs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return logs, nil
}

func listTriggers(q querier) ([]*models.TriggerLog, error) {
	rows, err := q.Query("SELECT " + triggerColumns + " FROM trigger_logs ORDER BY logged_at")
	if err != nil {
		return nil, fmt.Errorf("%w: query trigger logs: %v", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()
	return scanTriggers(rows)
}
