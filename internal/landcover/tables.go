// Package landcover fetches, caches and classifies land-cover rasters.
// Raw codes come from a 10 m land-cover product; they are mapped to the
// clutter categories and roughness values the propagation model consumes.
package landcover

import (
	"encoding/json"
	"fmt"
	"os"
)

// UnknownCode is the raw code assigned to points outside the raster or on
// nodata pixels.
const UnknownCode = 254

// Tables hold the two static lookups applied after raster sampling:
// raw code → category, category → roughness. An unmapped raw code maps to
// DefaultCategory rather than failing, so one bad pixel can never abort a
// batch.
type Tables struct {
	CodeToCategory      map[int]int     `json:"code_to_category"`
	CategoryToRoughness map[int]float64 `json:"category_to_roughness"`
	DefaultCategory     int             `json:"default_category"`
	DefaultRoughness    float64         `json:"default_roughness"`
}

// DefaultTables covers the standard 10 m land-cover code set:
// 10 tree, 20 shrub, 30 grass, 40 crop, 50 built, 60 bare, 70 snow,
// 80 water, 90 wetland, 95 mangrove, 100 moss. Categories follow the
// model's clutter classes (1 water/open, 2 open/rural, 3 trees/forest,
// 4 urban, 5 dense urban); roughness is the representative clutter
// height in meters.
func DefaultTables() Tables {
	return Tables{
		CodeToCategory: map[int]int{
			10:  3,
			20:  2,
			30:  2,
			40:  2,
			50:  4,
			60:  2,
			70:  2,
			80:  1,
			90:  2,
			95:  3,
			100: 2,
		},
		CategoryToRoughness: map[int]float64{
			1: 0,
			2: 0,
			3: 15,
			4: 10,
			5: 20,
		},
		DefaultCategory:  2,
		DefaultRoughness: 0,
	}
}

// LoadTables reads a JSON override file, or returns the defaults when
// path is empty.
func LoadTables(path string) (Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("reading tables: %w", err)
	}
	t := DefaultTables()
	if err := json.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("parsing tables: %w", err)
	}
	if len(t.CodeToCategory) == 0 || len(t.CategoryToRoughness) == 0 {
		return Tables{}, fmt.Errorf("tables file %s has empty lookup maps", path)
	}
	return t, nil
}

// MapCodes applies both lookups over the whole code batch. unmapped counts
// codes that fell back to the default category.
func (t Tables) MapCodes(codes []int) (categories []int, roughness []float64, unmapped int) {
	categories = make([]int, len(codes))
	roughness = make([]float64, len(codes))
	for i, code := range codes {
		ct, ok := t.CodeToCategory[code]
		if !ok {
			ct = t.DefaultCategory
			unmapped++
		}
		categories[i] = ct

		r, ok := t.CategoryToRoughness[ct]
		if !ok {
			r = t.DefaultRoughness
		}
		roughness[i] = r
	}
	return categories, roughness, unmapped
}
