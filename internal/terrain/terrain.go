// Package terrain samples elevations from a directory of 1-degree SRTM
// .hgt tiles. Tile acquisition is out of scope here: the provider assumes
// tiles either exist in the cache directory or are absent, in which case
// affected points get the configured fallback elevation.
package terrain

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gocache "github.com/patrickmn/go-cache"

	"github.com/oguzhanerr/mst-gis-optimized/internal/geo"
	"github.com/oguzhanerr/mst-gis-optimized/internal/raster"
)

// SRTM void sentinel.
const voidValue = -32768

// Valid .hgt grid sizes: 3601x3601 (1 arc-second) or 1201x1201 (3 arc-second).
var hgtSizes = map[int64]int{
	3601 * 3601 * 2: 3601,
	1201 * 1201 * 2: 1201,
}

// Provider resolves elevations against the tile cache. Loaded tiles stay
// resident for the life of the process; misses are remembered so absent
// tiles are stat'ed only once per batch run.
type Provider struct {
	cacheDir string
	tiles    *gocache.Cache
}

type missingTile struct{}

func NewProvider(cacheDir string) *Provider {
	return &Provider{
		cacheDir: cacheDir,
		tiles:    gocache.New(gocache.NoExpiration, 0),
	}
}

// SampleBatch returns one elevation per coordinate pair. Points whose tile
// is absent, or that hit a data void, get fallback; missing counts those
// substitutions. Points are grouped by tile so each tile is resolved once.
func (p *Provider) SampleBatch(lons, lats []float64, fallback float64) (vals []float64, missing int) {
	n := len(lons)
	vals = make([]float64, n)

	// Group point indices per tile so each tile loads (or fails) once.
	groups := make(map[string][]int)
	for i := 0; i < n; i++ {
		name := geo.TileName(lats[i], lons[i])
		groups[name] = append(groups[name], i)
	}

	for name, idxs := range groups {
		src := p.tile(name)
		if src == nil {
			for _, i := range idxs {
				vals[i] = fallback
			}
			missing += len(idxs)
			continue
		}

		xs := make([]float64, len(idxs))
		ys := make([]float64, len(idxs))
		for j, i := range idxs {
			xs[j] = lons[i]
			ys[j] = lats[i]
		}
		sub, miss := src.SampleBatch(xs, ys, fallback)
		for j, i := range idxs {
			vals[i] = sub[j]
		}
		missing += miss
	}
	return vals, missing
}

// tile returns the raster for a tile name, loading and caching it on first
// use. Returns nil when the tile file is absent or unreadable.
func (p *Provider) tile(name string) *raster.Source {
	if v, ok := p.tiles.Get(name); ok {
		if src, ok := v.(*raster.Source); ok {
			return src
		}
		return nil // remembered miss
	}

	src, err := loadHGT(filepath.Join(p.cacheDir, name+".hgt"))
	if err != nil {
		slog.Warn("elevation tile unavailable", "tile", name, "error", err)
		p.tiles.Set(name, missingTile{}, gocache.NoExpiration)
		return nil
	}

	slog.Debug("loaded elevation tile", "tile", name, "size", src.Width)
	p.tiles.Set(name, src, gocache.NoExpiration)
	return src
}

// loadHGT reads a raw SRTM tile: big-endian int16, row-major starting at
// the tile's north-west corner, named after its south-west corner.
func loadHGT(path string) (*raster.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	size, ok := hgtSizes[int64(len(data))]
	if !ok {
		return nil, fmt.Errorf("unexpected hgt size %d bytes in %s", len(data), path)
	}

	latSW, lonSW, err := parseTileName(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	band := make([]float64, size*size)
	for i := range band {
		band[i] = float64(int16(binary.BigEndian.Uint16(data[2*i:])))
	}

	// Pixel centers sit on the grid nodes; rows run north to south. The
	// extra row/column overlaps the neighbouring tile, so pixel size is
	// 1/(size-1) degrees.
	px := 1.0 / float64(size-1)
	transform := raster.NorthUp(lonSW-px/2, latSW+1+px/2, px, -px)

	src, err := raster.New(path, transform, size, size, band)
	if err != nil {
		return nil, err
	}
	src.SetNoData(voidValue)
	return src, nil
}

func parseTileName(base string) (latSW, lonSW float64, err error) {
	var ns, ew string
	var latDeg, lonDeg int
	if _, err := fmt.Sscanf(base, "%1s%2d%1s%3d.hgt", &ns, &latDeg, &ew, &lonDeg); err != nil {
		return 0, 0, fmt.Errorf("bad tile name %q: %w", base, err)
	}
	if ns == "S" {
		latDeg = -latDeg
	}
	if ew == "W" {
		lonDeg = -lonDeg
	}
	return float64(latDeg), float64(lonDeg), nil
}

// ClampToRange substitutes fallback for every value outside [min, max] and
// returns the number of substitutions. This is the guard against nodata
// sentinels leaking through as absurd elevations; it is a pure pass over
// the sampled slice, independent of how the values were obtained.
func ClampToRange(vals []float64, min, max, fallback float64) (replaced int) {
	for i, v := range vals {
		if v < min || v > max {
			vals[i] = fallback
			replaced++
		}
	}
	return replaced
}
