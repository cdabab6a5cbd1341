// ABOUTME: Core data models for dog profiles, trigger logs, walks, and route points
// ABOUTME: Provides id generation, constructors, and input validation

package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity id prefixes. Ids are {prefix}_{time}_{random} where the trailing
// components are the timestamp and entropy halves of a ULID, so ids sort
// roughly by creation time without any central coordination.
const (
	PrefixProfile = "dog"
	PrefixTrigger = "trig"
	PrefixWalk    = "walk"
	PrefixPoint   = "pt"
)

// ulidTimeLen is the length of the timestamp portion of a ULID string.
const ulidTimeLen = 10

// NewID generates a new entity id with the given prefix.
func NewID(prefix string) string {
	s := ulid.Make().String()
	return fmt.Sprintf("%s_%s_%s", prefix, s[:ulidTimeLen], s[ulidTimeLen:])
}

// Known trigger type tags. Stored as free strings so older snapshots
// keep importing when the list grows.
const (
	TriggerDogs       = "dogs"
	TriggerStrangers  = "strangers"
	TriggerBikes      = "bikes"
	TriggerCars       = "cars"
	TriggerChildren   = "children"
	TriggerLoudNoises = "loud_noises"
	TriggerWildlife   = "wildlife"
	TriggerOther      = "other"
)

// Known training method / technique tags.
const (
	MethodBAT                 = "bat"
	MethodLAT                 = "lat"
	MethodCounterConditioning = "counter_conditioning"
	MethodEngageDisengage     = "engage_disengage"
)

// DogProfile describes a dog being trained.
type DogProfile struct {
	ID              string    `json:"id" yaml:"id"`
	OwnerID         string    `json:"owner_id" yaml:"owner_id"`
	Name            string    `json:"name" yaml:"name"`
	Breed           string    `json:"breed" yaml:"breed"`
	Age             int       `json:"age" yaml:"age"`
	Weight          float64   `json:"weight" yaml:"weight"`
	Triggers        []string  `json:"triggers" yaml:"triggers"`
	ReactivityLevel int       `json:"reactivity_level" yaml:"reactivity_level"`
	TrainingMethod  *string   `json:"training_method,omitempty" yaml:"training_method,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// TriggerLog records one reaction event. Immutable after creation.
type TriggerLog struct {
	ID             string    `json:"id" yaml:"id"`
	DogID          string    `json:"dog_id" yaml:"dog_id"`
	OwnerID        string    `json:"owner_id" yaml:"owner_id"`
	TriggerType    string    `json:"trigger_type" yaml:"trigger_type"`
	Severity       int       `json:"severity" yaml:"severity"`
	DistanceMeters *float64  `json:"distance_meters,omitempty" yaml:"distance_meters,omitempty"`
	Latitude       *float64  `json:"location_latitude,omitempty" yaml:"location_latitude,omitempty"`
	Longitude      *float64  `json:"location_longitude,omitempty" yaml:"location_longitude,omitempty"`
	Notes          *string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	LoggedAt       time.Time `json:"logged_at" yaml:"logged_at"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
}

// Walk is one structured training walk. EndedAt nil means in progress;
// at most one walk per owner should be in progress at a time.
type Walk struct {
	ID                      string     `json:"id" yaml:"id"`
	DogID                   string     `json:"dog_id" yaml:"dog_id"`
	OwnerID                 string     `json:"owner_id" yaml:"owner_id"`
	DistanceThresholdMeters float64    `json:"distance_threshold_meters" yaml:"distance_threshold_meters"`
	StartedAt               time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt                 *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	SuccessRating           *int       `json:"success_rating,omitempty" yaml:"success_rating,omitempty"`
	TechniqueUsed           *string    `json:"technique_used,omitempty" yaml:"technique_used,omitempty"`
	Notes                   *string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt               time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at" yaml:"updated_at"`
}

// Active reports whether the walk is still in progress.
func (w *Walk) Active() bool {
	return w.EndedAt == nil
}

// RoutePoint is one recorded GPS sample for a walk. Append-only.
type RoutePoint struct {
	ID         string    `json:"id" yaml:"id"`
	WalkID     string    `json:"walk_id" yaml:"walk_id"`
	Latitude   float64   `json:"latitude" yaml:"latitude"`
	Longitude  float64   `json:"longitude" yaml:"longitude"`
	Accuracy   *float64  `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
}

// NewRoutePoint creates a route point with a generated id.
func NewRoutePoint(walkID string, lat, lng float64, accuracy *float64, capturedAt time.Time) *RoutePoint {
	return &RoutePoint{
		ID:         NewID(PrefixPoint),
		WalkID:     walkID,
		Latitude:   lat,
		Longitude:  lng,
		Accuracy:   accuracy,
		CapturedAt: capturedAt,
	}
}

// ValidateCoordinates checks that latitude and longitude are within valid ranges.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates cannot be NaN")
	}
	if math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("coordinates cannot be infinite")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateName checks that a dog name is non-empty after trimming.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty or whitespace")
	}
	if len(name) > 255 {
		return fmt.Errorf("name too long (max 255 characters)")
	}
	return nil
}

// ValidateScale checks a 1-5 rating such as severity or reactivity level.
func ValidateScale(field string, v int) error {
	if v < 1 || v > 5 {
		return fmt.Errorf("%s must be between 1 and 5", field)
	}
	return nil
}

// NormalizeTriggers trims, lowercases, dedupes, and sorts trigger tags.
// Tag order is irrelevant, so a canonical order keeps comparisons simple.
func NormalizeTriggers(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
