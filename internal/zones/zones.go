// Package zones assigns a radio-climatic zone to every point by polygon
// containment, with a nearest-polygon fallback for points that slip
// through boundary seams. The polygon set is loaded once and is read-only.
package zones

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"

	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
)

type zonePolygon struct {
	zoneID int
	geom   orb.Geometry
	bound  orb.Bound
}

// Resolver holds the polygon set and its spatial index. Safe for
// concurrent use once built.
type Resolver struct {
	defaultZone models.Zone
	polys       []zonePolygon
	index       rtree.RTreeG[int]
	extent      float64 // largest side of the set's bounding box, degrees
}

// Load reads a GeoJSON polygon collection with a zone_type_id property per
// feature. A missing file is not an error: every point then receives the
// default zone and no spatial work happens.
func Load(path string, defaultZone models.Zone) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("zone polygons not found, all points get default zone", "path", path, "default", defaultZone)
		return &Resolver{defaultZone: defaultZone}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading zones: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing zones: %w", err)
	}

	r := NewResolver(fc, defaultZone)
	slog.Info("loaded zone polygons", "count", len(r.polys))
	return r, nil
}

// NewResolver builds a resolver from an already-parsed feature collection.
// Non-areal geometries are skipped. Feature order is preserved; it is part
// of the deterministic tie-break rule.
func NewResolver(fc *geojson.FeatureCollection, defaultZone models.Zone) *Resolver {
	r := &Resolver{defaultZone: defaultZone}

	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		zp := zonePolygon{
			zoneID: int(f.Properties.MustInt("zone_type_id", int(defaultZone))),
			geom:   f.Geometry,
			bound:  f.Geometry.Bound(),
		}
		idx := len(r.polys)
		r.polys = append(r.polys, zp)
		r.index.Insert(
			[2]float64{zp.bound.Min[0], zp.bound.Min[1]},
			[2]float64{zp.bound.Max[0], zp.bound.Max[1]},
			idx,
		)

		if side := zp.bound.Max[0] - zp.bound.Min[0]; side > r.extent {
			r.extent = side
		}
		if side := zp.bound.Max[1] - zp.bound.Min[1]; side > r.extent {
			r.extent = side
		}
	}
	return r
}

// Empty reports whether the resolver carries no polygons.
func (r *Resolver) Empty() bool {
	return len(r.polys) == 0
}

// ResolveBatch assigns exactly one zone per point. The primary pass is a
// containment join against the index; only the unmatched residual pays
// for the nearest-polygon fallback. Every returned zone is non-zero.
func (r *Resolver) ResolveBatch(lons, lats []float64) (zones []models.Zone, fallbacks int) {
	n := len(lons)
	zones = make([]models.Zone, n)

	if r.Empty() {
		for i := range zones {
			zones[i] = r.defaultZone
		}
		return zones, 0
	}

	for i := 0; i < n; i++ {
		pt := orb.Point{lons[i], lats[i]}
		if id, ok := r.containing(pt); ok {
			zones[i] = models.Zone(id)
			continue
		}
		zones[i] = models.Zone(r.nearest(pt))
		fallbacks++
	}
	return zones, fallbacks
}

// containing returns the zone of the lowest-indexed polygon containing the
// point. Candidate order from the index is unspecified, so all candidates
// are checked and the lowest feature index wins.
func (r *Resolver) containing(pt orb.Point) (zoneID int, ok bool) {
	best := -1
	r.index.Search([2]float64{pt[0], pt[1]}, [2]float64{pt[0], pt[1]},
		func(_, _ [2]float64, idx int) bool {
			if best != -1 && idx >= best {
				return true
			}
			if geometryContains(r.polys[idx].geom, pt) {
				best = idx
			}
			return true
		})
	if best == -1 {
		return 0, false
	}
	return r.polys[best].zoneID, true
}

// nearest finds the closest polygon by planar distance, widening the index
// search window until candidates appear. Ties are broken by lowest zone
// id, then lowest feature index, so re-runs are stable.
func (r *Resolver) nearest(pt orb.Point) (zoneID int) {
	radius := 0.01
	limit := r.extent * 2
	if limit < radius {
		limit = radius
	}

	var candidates []int
	for len(candidates) == 0 {
		candidates = candidates[:0]
		r.index.Search(
			[2]float64{pt[0] - radius, pt[1] - radius},
			[2]float64{pt[0] + radius, pt[1] + radius},
			func(_, _ [2]float64, idx int) bool {
				candidates = append(candidates, idx)
				return true
			})
		if radius > limit {
			break
		}
		radius *= 4
	}
	if len(candidates) == 0 {
		// Point is far outside the whole set; measure against everything.
		for idx := range r.polys {
			candidates = append(candidates, idx)
		}
	}

	bestIdx := -1
	bestDist := math.Inf(1)
	for _, idx := range candidates {
		d := planar.DistanceFrom(r.polys[idx].geom, pt)
		if d < bestDist ||
			(d == bestDist && bestIdx >= 0 && betterTie(r.polys[idx], idx, r.polys[bestIdx], bestIdx)) {
			bestDist = d
			bestIdx = idx
		}
	}
	return r.polys[bestIdx].zoneID
}

func betterTie(a zonePolygon, aIdx int, b zonePolygon, bIdx int) bool {
	if a.zoneID != b.zoneID {
		return a.zoneID < b.zoneID
	}
	return aIdx < bIdx
}

func geometryContains(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, pt)
	default:
		return false
	}
}
