// ABOUTME: App settings repository over the app_settings key/value table
// ABOUTME: Holds the device owner identity, onboarding progress, and usage counters

package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Well-known setting keys.
const (
	SettingOwnerID            = "owner_id"
	SettingOnboardingComplete = "onboarding_complete"
)

// SettingsRepo provides upsert key/value access to app_settings.
type SettingsRepo struct {
	store *Store
}

// NewSettingsRepo creates a settings repository sharing the store handle.
func NewSettingsRepo(s *Store) *SettingsRepo {
	return &SettingsRepo{store: s}
}

// Get returns the value for a key, or ErrNotFound.
func (r *SettingsRepo) Get(key string) (string, error) {
	var v string
	err := r.store.db.QueryRow("SELECT value FROM app_settings WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: get setting: %v", ErrStorage, err)
	}
	return v, nil
}

// Set writes a value, replacing any previous value for the key.
func (r *SettingsRepo) Set(key, value string) error {
	return setSetting(r.store.db, key, value)
}

func setSetting(q querier, key, value string) error {
	_, err := q.Exec(
		`INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: set setting: %v", ErrStorage, err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (r *SettingsRepo) Delete(key string) error {
	if _, err := r.store.db.Exec("DELETE FROM app_settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("%w: delete setting: %v", ErrStorage, err)
	}
	return nil
}

// All returns the full settings map.
func (r *SettingsRepo) All() (map[string]string, error) {
	return allSettings(r.store.db)
}

func allSettings(q querier) (map[string]string, error) {
	rows, err := q.Query("SELECT key, value FROM app_settings")
	if err != nil {
		return nil, fmt.Errorf("%w: query settings: %v", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: scan setting: %v", ErrStorage, err)
		}
		settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return settings, nil
}

// OwnerID returns the device's local owner identity.
func (r *SettingsRepo) OwnerID() (string, error) {
	return r.Get(SettingOwnerID)
}

// IncrementCounter bumps an integer feature-usage counter and returns the
// new value. A missing or malformed value counts as 0.
func (r *SettingsRepo) IncrementCounter(key string) (int, error) {
	current, err := r.Get(key)
	if err != nil && err != ErrNotFound {
		return 0, err
	}
	n, _ := strconv.Atoi(current)
	n++
	if err := r.Set(key, strconv.Itoa(n)); err != nil {
		return 0, err
	}
	return n, nil
}
