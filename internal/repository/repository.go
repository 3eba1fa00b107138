package repository

import (
	"context"

	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
)

// CacheRepository persists per-phase completion records. GetEntry returns
// (nil, nil) when no record exists for the phase.
type CacheRepository interface {
	GetEntry(ctx context.Context, phase string) (*models.CacheEntry, error)
	PutEntry(ctx context.Context, e *models.CacheEntry) error
	DeleteEntries(ctx context.Context) error
}

// RunRepository records orchestrator invocations.
type RunRepository interface {
	AddRun(ctx context.Context, r *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, limit int) ([]models.Run, error)
}

// PointRepository stores the enriched point set of a run. ReplacePoints is
// atomic: a re-run never leaves a mix of old and new points behind.
type PointRepository interface {
	ReplacePoints(ctx context.Context, runID string, pts []models.EnrichedPoint) error
	ListPoints(ctx context.Context, runID string) ([]models.EnrichedPoint, error)
}
