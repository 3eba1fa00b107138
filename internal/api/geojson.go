package api

import (
	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(pts []models.EnrichedPoint) FeatureCollection {
	features := make([]Feature, 0, len(pts))

	for _, p := range pts {
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{p.Longitude, p.Latitude},
			},
			Properties: map[string]any{
				"point_id":       p.ID,
				"distance_km":    p.DistanceKm,
				"azimuth_deg":    p.AzimuthDeg,
				"elevation_m":    p.ElevationM,
				"landcover_code": p.LandCoverCode,
				"category":       p.Category,
				"roughness":      p.Roughness,
				"zone":           int(p.Zone),
				"zone_name":      p.Zone.String(),
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
