// ABOUTME: Export/import engine for whole-database snapshots
// ABOUTME: Validates before mutating, replaces atomically, and remaps ownership to the local device

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harper/leash/internal/models"
	"gopkg.in/yaml.v3"
)

// SnapshotVersion is the current snapshot format version. Older versions
// must remain importable: v1 predates the accuracy column on points, which
// simply defaults to null.
const SnapshotVersion = 2

// Snapshot is the versioned backup/restore document: the entire local
// dataset at one instant.
type Snapshot struct {
	Version     int                  `json:"version" yaml:"version"`
	ExportedAt  time.Time            `json:"exported_at" yaml:"exported_at"`
	AppSettings map[string]string    `json:"app_settings" yaml:"app_settings"`
	DogProfiles []*models.DogProfile `json:"dog_profiles" yaml:"dog_profiles"`
	TriggerLogs []*models.TriggerLog `json:"trigger_logs" yaml:"trigger_logs"`
	Walks       []*models.Walk       `json:"walks" yaml:"walks"`
	WalkPoints  []*models.RoutePoint `json:"walk_points" yaml:"walk_points"`
}

// Export reads every table and the full settings map inside one read
// transaction, so concurrent writes cannot leave referential pairs
// (points referencing a walk) mismatched in the snapshot.
func Export(s *Store) (*Snapshot, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	settings, err := allSettings(tx)
	if err != nil {
		return nil, err
	}
	profiles, err := listProfiles(tx)
	if err != nil {
		return nil, err
	}
	triggers, err := listTriggers(tx)
	if err != nil {
		return nil, err
	}
	walks, err := listWalks(tx)
	if err != nil {
		return nil, err
	}
	points, err := listPoints(tx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version:     SnapshotVersion,
		ExportedAt:  time.Now().UTC(),
		AppSettings: settings,
		DogProfiles: profiles,
		TriggerLogs: triggers,
		Walks:       walks,
		WalkPoints:  points,
	}
	if snap.DogProfiles == nil {
		snap.DogProfiles = []*models.DogProfile{}
	}
	if snap.TriggerLogs == nil {
		snap.TriggerLogs = []*models.TriggerLog{}
	}
	if snap.Walks == nil {
		snap.Walks = []*models.Walk{}
	}
	if snap.WalkPoints == nil {
		snap.WalkPoints = []*models.RoutePoint{}
	}
	return snap, nil
}

// EncodeJSON serializes the snapshot as indented JSON, the canonical
// snapshot encoding.
func (snap *Snapshot) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

// EncodeYAML serializes the snapshot as YAML for human inspection.
func (snap *Snapshot) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(snap)
}

// DecodeSnapshot parses a snapshot document, sniffing JSON vs YAML, and
// validates its structure before any row is interpreted. Structural
// problems (missing arrays, settings not a flat map, unknown version)
// return ErrValidation; malformed fields inside a row fall back to safe
// defaults instead of aborting.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var raw map[string]any
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: parse snapshot: %v", ErrValidation, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: parse snapshot: %v", ErrValidation, err)
		}
	}

	version, ok := intValue(raw["version"])
	if !ok {
		return nil, fmt.Errorf("%w: snapshot version missing or not a number", ErrValidation)
	}
	if version < 1 || version > SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d (this build reads 1..%d)",
			ErrValidation, version, SnapshotVersion)
	}

	settings, err := flatStringMap(raw["app_settings"])
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version:     version,
		ExportedAt:  timeValue(raw["exported_at"], time.Now().UTC()),
		AppSettings: settings,
		DogProfiles: []*models.DogProfile{},
		TriggerLogs: []*models.TriggerLog{},
		Walks:       []*models.Walk{},
		WalkPoints:  []*models.RoutePoint{},
	}

	profiles, err := rowMaps(raw, "dog_profiles")
	if err != nil {
		return nil, err
	}
	for _, m := range profiles {
		snap.DogProfiles = append(snap.DogProfiles, decodeProfileRow(m))
	}

	triggers, err := rowMaps(raw, "trigger_logs")
	if err != nil {
		return nil, err
	}
	for _, m := range triggers {
		snap.TriggerLogs = append(snap.TriggerLogs, decodeTriggerRow(m))
	}

	walks, err := rowMaps(raw, "walks")
	if err != nil {
		return nil, err
	}
	for _, m := range walks {
		snap.Walks = append(snap.Walks, decodeWalkRow(m))
	}

	points, err := rowMaps(raw, "walk_points")
	if err != nil {
		return nil, err
	}
	for _, m := range points {
		snap.WalkPoints = append(snap.WalkPoints, decodePointRow(m))
	}

	return snap, nil
}

// Import performs a full replace: inside one exclusive transaction it
// deletes every managed row, re-seeds identity settings, and re-inserts
// the snapshot's rows with owner_id rewritten to this device's local
// owner id. Entity ids, timestamps, and relationships are preserved.
// Any failure rolls the store back to its pre-import state.
func Import(s *Store, snap *Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	owner, err := NewSettingsRepo(s).OwnerID()
	if err == ErrNotFound {
		owner = uuid.NewString()
	} else if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteAllRows(tx); err != nil {
		return err
	}

	for k, v := range snap.AppSettings {
		if k == SettingOwnerID {
			continue
		}
		if err := setSetting(tx, k, v); err != nil {
			return err
		}
	}
	if err := setSetting(tx, SettingOwnerID, owner); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, src := range snap.DogProfiles {
		p := *src
		p.OwnerID = owner
		fillDefaults(&p.ID, models.PrefixProfile, &p.CreatedAt, &p.UpdatedAt, now)
		if err := insertProfile(tx, &p); err != nil {
			return err
		}
	}
	for _, src := range snap.TriggerLogs {
		t := *src
		t.OwnerID = owner
		fillDefaults(&t.ID, models.PrefixTrigger, &t.CreatedAt, &t.UpdatedAt, now)
		if t.LoggedAt.IsZero() {
			t.LoggedAt = now
		}
		if err := insertTrigger(tx, &t); err != nil {
			return err
		}
	}
	for _, src := range snap.Walks {
		w := *src
		w.OwnerID = owner
		fillDefaults(&w.ID, models.PrefixWalk, &w.CreatedAt, &w.UpdatedAt, now)
		if w.StartedAt.IsZero() {
			w.StartedAt = now
		}
		if err := insertWalk(tx, &w); err != nil {
			return err
		}
	}
	for _, src := range snap.WalkPoints {
		p := *src
		if p.ID == "" {
			p.ID = models.NewID(models.PrefixPoint)
		}
		if p.CapturedAt.IsZero() {
			p.CapturedAt = now
		}
		if err := insertPoint(tx, &p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// ClearAll deletes every managed row, then re-seeds just the device
// identity and a reset onboarding flag, as one transaction. The existing
// owner id is kept when present; identity survives a wipe, data does not.
func ClearAll(s *Store) error {
	owner, err := NewSettingsRepo(s).OwnerID()
	if err == ErrNotFound {
		owner = uuid.NewString()
	} else if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteAllRows(tx); err != nil {
		return err
	}
	if err := setSetting(tx, SettingOwnerID, owner); err != nil {
		return err
	}
	if err := setSetting(tx, SettingOnboardingComplete, "false"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

func validateSnapshot(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrValidation)
	}
	if snap.Version < 1 || snap.Version > SnapshotVersion {
		return fmt.Errorf("%w: unsupported snapshot version %d", ErrValidation, snap.Version)
	}
	if snap.AppSettings == nil || snap.DogProfiles == nil || snap.TriggerLogs == nil ||
		snap.Walks == nil || snap.WalkPoints == nil {
		return fmt.Errorf("%w: snapshot is missing required sections", ErrValidation)
	}
	return nil
}

// deleteAllRows clears the managed tables, children before parents.
func deleteAllRows(q querier) error {
	for _, table := range []string{"walk_points", "walks", "trigger_logs", "dog_profiles", "app_settings"} {
		if _, err := q.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("%w: clear %s: %v", ErrStorage, table, err)
		}
	}
	return nil
}

func fillDefaults(id *string, prefix string, createdAt, updatedAt *time.Time, now time.Time) {
	if *id == "" {
		*id = models.NewID(prefix)
	}
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}
