// Package extract joins the generated point batch against the elevation
// tiles, the land-cover raster and the zone polygons. All dataset access
// is batched; per-point work is limited to gathering results back into
// the output slice.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oguzhanerr/mst-gis-optimized/internal/landcover"
	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
	"github.com/oguzhanerr/mst-gis-optimized/internal/raster"
	"github.com/oguzhanerr/mst-gis-optimized/internal/terrain"
	"github.com/oguzhanerr/mst-gis-optimized/internal/worker"
	"github.com/oguzhanerr/mst-gis-optimized/internal/zones"
)

// Summary counts every fallback substitution made during one extraction
// batch. The batch itself never fails on bad data; these counters are the
// operator's signal that inputs need attention.
type Summary struct {
	Points             int
	ElevationFallbacks int
	ElevationClamped   int
	LandCoverMisses    int
	UnmappedCodes      int
	ZoneFallbacks      int
}

// Extractor holds the opened datasets for one run. Elevation and Zones
// must be set; a nil LandCover raster marks every point with the unknown
// code instead of failing.
type Extractor struct {
	Elevation *terrain.Provider
	LandCover *raster.Source
	Zones     *zones.Resolver
	Tables    landcover.Tables

	ElevationMin      float64
	ElevationMax      float64
	ElevationFallback float64

	Workers int
}

// job is one contiguous azimuth group within the point slice.
type job struct {
	start, end int
}

// Enrich attributes every point. Points arrive grouped by azimuth, so each
// group becomes one unit of work; the output preserves input order because
// every group writes into its own pre-allocated range. Running the same
// batch twice produces identical output.
func (e *Extractor) Enrich(ctx context.Context, pts []models.ReceiverPoint) ([]models.EnrichedPoint, Summary, error) {
	if e.Elevation == nil || e.Zones == nil {
		return nil, Summary{}, fmt.Errorf("extractor is missing elevation or zone datasets")
	}
	if len(pts) == 0 {
		return nil, Summary{}, nil
	}

	out := make([]models.EnrichedPoint, len(pts))
	summary := Summary{Points: len(pts)}
	var mu sync.Mutex

	pool := worker.NewPool(e.Workers, e.Workers*2, func(ctx context.Context, j job) error {
		s, err := e.enrichRange(pts, out, j.start, j.end)
		if err != nil {
			return err
		}
		mu.Lock()
		summary.ElevationFallbacks += s.ElevationFallbacks
		summary.ElevationClamped += s.ElevationClamped
		summary.LandCoverMisses += s.LandCoverMisses
		summary.UnmappedCodes += s.UnmappedCodes
		summary.ZoneFallbacks += s.ZoneFallbacks
		mu.Unlock()
		return nil
	})
	pool.Start(ctx)

	submitErr := e.submitGroups(ctx, pts, pool)
	if err := pool.Stop(); err != nil {
		return nil, Summary{}, fmt.Errorf("enriching points: %w", err)
	}
	if submitErr != nil {
		return nil, Summary{}, submitErr
	}

	slog.Info("extraction complete",
		"points", summary.Points,
		"elevation_fallbacks", summary.ElevationFallbacks,
		"elevation_clamped", summary.ElevationClamped,
		"landcover_misses", summary.LandCoverMisses,
		"unmapped_codes", summary.UnmappedCodes,
		"zone_fallbacks", summary.ZoneFallbacks)
	return out, summary, nil
}

// submitGroups walks the ordered batch and submits one job per azimuth
// group. The transmitter point forms its own group.
func (e *Extractor) submitGroups(ctx context.Context, pts []models.ReceiverPoint, pool *worker.Pool[job]) error {
	start := 0
	for i := 1; i <= len(pts); i++ {
		if i == len(pts) || pts[i].AzimuthDeg != pts[start].AzimuthDeg {
			if err := pool.Submit(ctx, job{start: start, end: i}); err != nil {
				return err
			}
			start = i
		}
	}
	return nil
}

func (e *Extractor) enrichRange(pts []models.ReceiverPoint, out []models.EnrichedPoint, start, end int) (Summary, error) {
	n := end - start
	lons := make([]float64, n)
	lats := make([]float64, n)
	for i := 0; i < n; i++ {
		lons[i] = pts[start+i].Longitude
		lats[i] = pts[start+i].Latitude
	}

	var s Summary

	elevs, missing := e.Elevation.SampleBatch(lons, lats, e.ElevationFallback)
	s.ElevationFallbacks = missing
	s.ElevationClamped = terrain.ClampToRange(elevs, e.ElevationMin, e.ElevationMax, e.ElevationFallback)

	codes := make([]int, n)
	if e.LandCover != nil {
		raw, misses := e.LandCover.SampleBatch(lons, lats, landcover.UnknownCode)
		s.LandCoverMisses = misses
		for i, v := range raw {
			codes[i] = int(v)
		}
	} else {
		for i := range codes {
			codes[i] = landcover.UnknownCode
		}
		s.LandCoverMisses = n
	}
	cats, rough, unmapped := e.Tables.MapCodes(codes)
	s.UnmappedCodes = unmapped

	zs, fallbacks := e.Zones.ResolveBatch(lons, lats)
	s.ZoneFallbacks = fallbacks

	for i := 0; i < n; i++ {
		out[start+i] = models.EnrichedPoint{
			ReceiverPoint: pts[start+i],
			ElevationM:    elevs[i],
			LandCoverCode: codes[i],
			Category:      cats[i],
			Roughness:     rough[i],
			Zone:          zs[i],
		}
	}
	return s, nil
}
