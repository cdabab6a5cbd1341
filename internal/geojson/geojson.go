// ABOUTME: GeoJSON generation utilities
// ABOUTME: Converts walk route points to GeoJSON FeatureCollections

package geojson

import (
	"encoding/json"
	"time"

	"github.com/harper/leash/internal/models"
)

// FeatureCollection represents a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a GeoJSON Feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry represents a GeoJSON Geometry.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// PointCoordinates represents [longitude, latitude] for a Point.
type PointCoordinates [2]float64

// LineCoordinates represents [[lng, lat], ...] for a LineString.
type LineCoordinates []PointCoordinates

// RoutePoints converts a walk's route points to a FeatureCollection of Points.
func RoutePoints(points []*models.RoutePoint) *FeatureCollection {
	features := make([]Feature, 0, len(points))

	for _, pt := range points {
		props := map[string]interface{}{
			"captured_at": pt.CapturedAt.Format(time.RFC3339),
		}
		if pt.Accuracy != nil {
			props["accuracy"] = *pt.Accuracy
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: PointCoordinates{pt.Longitude, pt.Latitude},
			},
			Properties: props,
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// RouteLine converts a walk's route points, ordered by capture time, to a
// FeatureCollection containing one LineString. Fewer than 2 points yields
// an empty collection.
func RouteLine(walkID string, points []*models.RoutePoint) *FeatureCollection {
	fc := &FeatureCollection{
		Type:     "FeatureCollection",
		Features: []Feature{},
	}
	if len(points) < 2 {
		return fc
	}

	coords := make(LineCoordinates, len(points))
	for i, pt := range points {
		coords[i] = PointCoordinates{pt.Longitude, pt.Latitude}
	}

	fc.Features = append(fc.Features, Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "LineString",
			Coordinates: coords,
		},
		Properties: map[string]interface{}{
			"walk_id":     walkID,
			"point_count": len(points),
		},
	})
	return fc
}

// ToJSON serializes a FeatureCollection to JSON.
func (fc *FeatureCollection) ToJSON() ([]byte, error) {
	return json.Marshal(fc)
}

// ToJSONIndent serializes a FeatureCollection to indented JSON.
func (fc *FeatureCollection) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}
