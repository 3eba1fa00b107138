package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
)

// BuildProfiles folds the enriched batch into one profile per azimuth.
// The transmitter point is prepended to every azimuth's arrays so each
// profile is a complete path from the antenna outwards; all arrays in a
// profile share index alignment.
func BuildProfiles(tx models.Transmitter, pts []models.EnrichedPoint) ([]models.Profile, error) {
	var origin *models.EnrichedPoint
	for i := range pts {
		if pts[i].IsTransmitter() {
			origin = &pts[i]
			break
		}
	}
	if origin == nil {
		return nil, fmt.Errorf("enriched batch has no transmitter point")
	}

	// Azimuths in first-seen order; points within each are already sorted
	// by distance.
	var order []float64
	groups := make(map[float64][]models.EnrichedPoint)
	for _, p := range pts {
		if p.IsTransmitter() {
			continue
		}
		if _, seen := groups[p.AzimuthDeg]; !seen {
			order = append(order, p.AzimuthDeg)
		}
		groups[p.AzimuthDeg] = append(groups[p.AzimuthDeg], p)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("enriched batch has no receiver points")
	}

	profiles := make([]models.Profile, 0, len(order))
	for _, az := range order {
		group := groups[az]
		last := group[len(group)-1]

		prof := models.Profile{
			AzimuthDeg:   az,
			FrequencyGHz: tx.FrequencyGHz,
			TimePercent:  tx.TimePercent,
			Distances:    make([]float64, 0, len(group)+1),
			Heights:      make([]int, 0, len(group)+1),
			Roughness:    make([]float64, 0, len(group)+1),
			Categories:   make([]int, 0, len(group)+1),
			Zones:        make([]models.Zone, 0, len(group)+1),
			TxHeight:     tx.AntennaHeight,
			RxHeight:     tx.RxAntennaHeight,
			Polarization: tx.Polarization,
			TxLatitude:   tx.Latitude,
			TxLongitude:  tx.Longitude,
			RxLatitude:   last.Latitude,
			RxLongitude:  last.Longitude,
		}

		for _, p := range append([]models.EnrichedPoint{*origin}, group...) {
			prof.Distances = append(prof.Distances, p.DistanceKm)
			prof.Heights = append(prof.Heights, int(math.Round(p.ElevationM)))
			prof.Roughness = append(prof.Roughness, p.Roughness)
			prof.Categories = append(prof.Categories, p.Category)
			prof.Zones = append(prof.Zones, p.Zone)
		}
		profiles = append(profiles, prof)
	}
	return profiles, nil
}

// WriteProfilesCSV writes one semicolon-separated row per profile. Array
// columns hold bracketed lists ("[0, 0.5, 1]"), which is why the writer is
// hand-rolled: the list separator is a comma and must not be escaped the
// way a CSV encoder would.
func WriteProfilesCSV(profiles []models.Profile, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	var b strings.Builder
	b.WriteString("f;p;d;h;R;Ct;zone;htg;hrg;pol;phi_t;phi_r;lam_t;lam_r;azimuth\n")

	for _, prof := range profiles {
		cells := []string{
			formatFloat(prof.FrequencyGHz),
			strconv.Itoa(prof.TimePercent),
			floatList(prof.Distances),
			intList(prof.Heights),
			floatList(prof.Roughness),
			intList(prof.Categories),
			zoneList(prof.Zones),
			formatFloat(prof.TxHeight),
			formatFloat(prof.RxHeight),
			strconv.Itoa(prof.Polarization),
			formatFloat(prof.TxLatitude),
			formatFloat(prof.RxLatitude),
			formatFloat(prof.TxLongitude),
			formatFloat(prof.RxLongitude),
			formatFloat(prof.AzimuthDeg),
		}
		b.WriteString(strings.Join(cells, ";"))
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing profiles csv: %w", err)
	}
	return nil
}

// WritePointsGeoJSON exports the enriched batch as a point feature
// collection for map inspection.
func WritePointsGeoJSON(pts []models.EnrichedPoint, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	for _, p := range pts {
		f := geojson.NewFeature(orb.Point{p.Longitude, p.Latitude})
		f.Properties["point_id"] = p.ID
		f.Properties["distance_km"] = p.DistanceKm
		f.Properties["azimuth_deg"] = p.AzimuthDeg
		f.Properties["elevation_m"] = p.ElevationM
		f.Properties["landcover_code"] = p.LandCoverCode
		f.Properties["category"] = p.Category
		f.Properties["roughness"] = p.Roughness
		f.Properties["zone"] = int(p.Zone)
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding geojson: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing geojson: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func floatList(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func intList(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func zoneList(vals []models.Zone) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(int(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
