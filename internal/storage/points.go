// ABOUTME: Walk route point repository over the walk_points table
// ABOUTME: Batch inserts are transactional and idempotent by primary key for flush retries

package storage

import (
	"database/sql"
	"fmt"

	"github.com/harper/leash/internal/models"
)

// PointRepo provides typed operations over walk_points.
type PointRepo struct {
	store *Store
}

// NewPointRepo creates a route point repository sharing the store handle.
func NewPointRepo(s *Store) *PointRepo {
	return &PointRepo{store: s}
}

const pointColumns = "id, walk_id, latitude, longitude, accuracy, captured_at"

// InsertBatch persists a batch of route points in one transaction.
// Point ids are minted once per sample and reused when a failed flush is
// retried, so INSERT OR IGNORE makes re-delivery idempotent.
func (r *PointRepo) InsertBatch(points []*models.RoutePoint) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := r.store.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO walk_points (id, walk_id, latitude, longitude, accuracy, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", ErrStorage, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range points {
		if _, err := stmt.Exec(p.ID, p.WalkID, p.Latitude, p.Longitude, p.Accuracy, p.CapturedAt); err != nil {
			return fmt.Errorf("%w: insert route point: %v", ErrStorage, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// ListByWalk returns a walk's route points ordered by captured_at.
// Routes read oldest-first by default.
func (r *PointRepo) ListByWalk(walkID string, opts ListOptions) ([]*models.RoutePoint, error) {
	if opts.Sort == "" {
		opts.Sort = SortAsc
	}
	where, args, tail := opts.clauses("captured_at")
	rows, err := r.store.db.Query(
		"SELECT "+pointColumns+" FROM walk_points WHERE walk_id = ?"+where+tail,
		append([]any{walkID}, args...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query route points: %v", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()
	return scanPoints(rows)
}

// CountByWalk returns the number of persisted points for a walk.
func (r *PointRepo) CountByWalk(walkID string) (int, error) {
	var n int
	err := r.store.db.QueryRow(
		"SELECT COUNT(*) FROM walk_points WHERE walk_id = ?", walkID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count route points: %v", ErrStorage, err)
	}
	return n, nil
}

func insertPoint(q querier, p *models.RoutePoint) error {
	_, err := q.Exec(
		`INSERT OR IGNORE INTO walk_points (id, walk_id, latitude, longitude, accuracy, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.WalkID, p.Latitude, p.Longitude, p.Accuracy, p.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert route point: %v", ErrStorage, err)
	}
	return nil
}

func scanPoints(rows *sql.Rows) ([]*models.RoutePoint, error) {
	var points []*models.RoutePoint
	for rows.Next() {
		var p models.RoutePoint
		err := rows.Scan(&p.ID, &p.WalkID, &p.Latitude, &p.Longitude, &p.Accuracy, &p.CapturedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: scan route point: %v", ErrStorage, err)
		}
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return points, nil
}

func listPoints(q querier) ([]*models.RoutePoint, error) {
	rows, err := q.Query("SELECT " + pointColumns + " FROM walk_points ORDER BY captured_at")
	if err != nil {
		return nil, fmt.Errorf("%w: query route points: %v", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()
	return scanPoints(rows)
}
