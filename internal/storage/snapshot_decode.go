// ABOUTME: Lenient field coercion for imported snapshot rows
// ABOUTME: Structural problems abort; malformed row fields fall back to safe defaults

package storage

import (
	"fmt"
	"time"

	"github.com/harper/leash/internal/models"
)

// rowMaps extracts a required array of row objects from the raw document.
// A missing or non-array section is a structural validation failure.
func rowMaps(raw map[string]any, key string) ([]map[string]any, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: snapshot is missing %q", ErrValidation, key)
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: snapshot %q is not an array", ErrValidation, key)
	}
	rows := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		m, ok := anyMap(el)
		if !ok {
			return nil, fmt.Errorf("%w: snapshot %q contains a non-object row", ErrValidation, key)
		}
		rows = append(rows, m)
	}
	return rows, nil
}

// flatStringMap validates the app_settings section: present, a map, and
// flat (scalar values only).
func flatStringMap(v any) (map[string]string, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: snapshot is missing app_settings", ErrValidation)
	}
	m, ok := anyMap(v)
	if !ok {
		return nil, fmt.Errorf("%w: snapshot app_settings is not a map", ErrValidation)
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		switch s := val.(type) {
		case string:
			out[k] = s
		case bool, int, int64, float64:
			out[k] = fmt.Sprintf("%v", s)
		default:
			return nil, fmt.Errorf("%w: snapshot app_settings is not a flat map", ErrValidation)
		}
	}
	return out, nil
}

// anyMap normalizes JSON's map[string]any and YAML's map[any]any rows.
func anyMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func decodeProfileRow(m map[string]any) *models.DogProfile {
	now := time.Now().UTC()
	created := timeValue(m["created_at"], now)
	return &models.DogProfile{
		ID:              stringValue(m["id"]),
		OwnerID:         stringValue(m["owner_id"]),
		Name:            stringValue(m["name"]),
		Breed:           stringValue(m["breed"]),
		Age:             clampNonNegative(intOrZero(m["age"])),
		Weight:          floatNonNegative(m["weight"]),
		Triggers:        models.NormalizeTriggers(stringSlice(m["triggers"])),
		ReactivityLevel: clampScale(intOrZero(m["reactivity_level"])),
		TrainingMethod:  stringPtr(m["training_method"]),
		CreatedAt:       created,
		UpdatedAt:       timeValue(m["updated_at"], created),
	}
}

func decodeTriggerRow(m map[string]any) *models.TriggerLog {
	now := time.Now().UTC()
	created := timeValue(m["created_at"], now)
	t := &models.TriggerLog{
		ID:             stringValue(m["id"]),
		DogID:          stringValue(m["dog_id"]),
		OwnerID:        stringValue(m["owner_id"]),
		TriggerType:    stringValue(m["trigger_type"]),
		Severity:       clampScale(intOrZero(m["severity"])),
		DistanceMeters: floatPtr(m["distance_meters"]),
		Latitude:       floatPtr(m["location_latitude"]),
		Longitude:      floatPtr(m["location_longitude"]),
		Notes:          stringPtr(m["notes"]),
		LoggedAt:       timeValue(m["logged_at"], created),
		CreatedAt:      created,
		UpdatedAt:      timeValue(m["updated_at"], created),
	}
	if t.DistanceMeters != nil && *t.DistanceMeters < 0 {
		t.DistanceMeters = nil
	}
	// The location pair is both-or-neither.
	if (t.Latitude == nil) != (t.Longitude == nil) {
		t.Latitude, t.Longitude = nil, nil
	}
	return t
}

func decodeWalkRow(m map[string]any) *models.Walk {
	now := time.Now().UTC()
	created := timeValue(m["created_at"], now)
	w := &models.Walk{
		ID:                      stringValue(m["id"]),
		DogID:                   stringValue(m["dog_id"]),
		OwnerID:                 stringValue(m["owner_id"]),
		DistanceThresholdMeters: floatNonNegative(m["distance_threshold_meters"]),
		StartedAt:               timeValue(m["started_at"], created),
		EndedAt:                 timePtr(m["ended_at"]),
		TechniqueUsed:           stringPtr(m["technique_used"]),
		Notes:                   stringPtr(m["notes"]),
		CreatedAt:               created,
		UpdatedAt:               timeValue(m["updated_at"], created),
	}
	if w.DistanceThresholdMeters <= 0 {
		w.DistanceThresholdMeters = 1
	}
	if rating, ok := intValue(m["success_rating"]); ok {
		r := clampScale(rating)
		w.SuccessRating = &r
	}
	return w
}

func decodePointRow(m map[string]any) *models.RoutePoint {
	return &models.RoutePoint{
		ID:         stringValue(m["id"]),
		WalkID:     stringValue(m["walk_id"]),
		Latitude:   floatOrZero(m["latitude"]),
		Longitude:  floatOrZero(m["longitude"]),
		Accuracy:   floatPtr(m["accuracy"]),
		CapturedAt: timeValue(m["captured_at"], time.Now().UTC()),
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func stringPtr(v any) *string {
	if s, ok := v.(string); ok && s != "" {
		return &s
	}
	return nil
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func floatOrZero(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func floatNonNegative(v any) float64 {
	f := floatOrZero(v)
	if f < 0 {
		return 0
	}
	return f
}

func floatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case float64, int, int64:
		f := floatOrZero(v)
		return &f
	default:
		return nil
	}
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func intOrZero(v any) int {
	n, _ := intValue(v)
	return n
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// clampScale forces a 1-5 rating into range; malformed values become 1.
func clampScale(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

func timeValue(v any, def time.Time) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC()
			}
		}
	}
	return def
}

func timePtr(v any) *time.Time {
	if v == nil {
		return nil
	}
	zero := time.Time{}
	t := timeValue(v, zero)
	if t.IsZero() {
		return nil
	}
	return &t
}
