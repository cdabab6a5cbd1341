// ABOUTME: Repository interfaces and shared list options
// ABOUTME: Enables testability and keeps query option semantics in one place

package storage

import (
	"time"

	"github.com/harper/leash/internal/models"
)

// SortOrder selects ascending or descending order on an entity's primary
// timestamp.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListOptions filter and page owner-scoped list queries.
//
// Since is an inclusive lower bound on the entity's primary timestamp.
// Offset is ignored unless Limit is also set.
type ListOptions struct {
	Since  *time.Time
	Sort   SortOrder
	Limit  int
	Offset int
}

// clauses renders the options against the given timestamp column,
// returning an extra WHERE fragment (with leading AND), its args, and the
// ORDER/LIMIT tail.
func (o ListOptions) clauses(tsCol string) (string, []any, string) {
	where := ""
	var args []any
	if o.Since != nil {
		where = " AND " + tsCol + " >= ?"
		args = append(args, o.Since.UTC())
	}

	dir := "DESC"
	if o.Sort == SortAsc {
		dir = "ASC"
	}
	tail := " ORDER BY " + tsCol + " " + dir

	if o.Limit > 0 {
		tail += " LIMIT ?"
		args = append(args, o.Limit)
		if o.Offset > 0 {
			tail += " OFFSET ?"
			args = append(args, o.Offset)
		}
	}
	return where, args, tail
}

// ProfileRepository defines operations for dog profiles.
type ProfileRepository interface {
	Create(ownerID string, in ProfileInput) (*models.DogProfile, error)
	GetByID(id string) (*models.DogProfile, error)
	ListByOwner(ownerID string, opts ListOptions) ([]*models.DogProfile, error)
	ActiveProfile(ownerID string) (*models.DogProfile, error)
	Update(id string, patch ProfilePatch) (*models.DogProfile, error)
}

// TriggerRepository defines operations for trigger logs. Logs are
// immutable after creation; there is no update path.
type TriggerRepository interface {
	Create(ownerID string, in TriggerInput) (*models.TriggerLog, error)
	GetByID(id string) (*models.TriggerLog, error)
	ListByOwner(ownerID string, opts ListOptions) ([]*models.TriggerLog, error)
	CountByOwner(ownerID string) (int, error)
}

// WalkRepository defines operations for walks. The only mutation after
// Start is the single closing update performed by End.
type WalkRepository interface {
	Start(ownerID string, in WalkInput) (*models.Walk, error)
	GetByID(id string) (*models.Walk, error)
	ListByOwner(ownerID string, opts ListOptions) ([]*models.Walk, error)
	ActiveWalk(ownerID string) (*models.Walk, error)
	End(id string, patch EndPatch) (*models.Walk, error)
	Delete(id string) error
}

// PointRepository defines operations for walk route points.
type PointRepository interface {
	InsertBatch(points []*models.RoutePoint) error
	ListByWalk(walkID string, opts ListOptions) ([]*models.RoutePoint, error)
	CountByWalk(walkID string) (int, error)
}

// SettingsRepository defines the generic key/value settings store.
type SettingsRepository interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	All() (map[string]string, error)
	OwnerID() (string, error)
	IncrementCounter(key string) (int, error)
}

// Compile-time checks that the SQLite repositories satisfy the interfaces.
var (
	_ ProfileRepository  = (*ProfileRepo)(nil)
	_ TriggerRepository  = (*TriggerRepo)(nil)
	_ WalkRepository     = (*WalkRepo)(nil)
	_ PointRepository    = (*PointRepo)(nil)
	_ SettingsRepository = (*SettingsRepo)(nil)
)
