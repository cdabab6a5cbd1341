// ABOUTME: Common storage errors
// ABOUTME: Sentinel taxonomy matched with errors.Is across the module

package storage

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned for malformed input to create, update, or
// import operations. Validation failures never mutate state.
var ErrValidation = errors.New("validation failed")

// ErrStorage is returned for engine-level I/O or transaction failures.
var ErrStorage = errors.New("storage failure")

// ErrMigration is returned when schema migration fails. Migration failure
// is fatal to startup; the store is rolled back to its prior version.
var ErrMigration = errors.New("migration failed")
