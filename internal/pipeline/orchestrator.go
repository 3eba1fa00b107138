// Package pipeline orchestrates the batch run as a fixed sequence of
// phases. Each phase fingerprints its inputs, consults the cache table
// and either reuses the recorded artifact or recomputes it. Phases are
// at-least-once: a crash between compute and record only costs a re-run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
	"github.com/oguzhanerr/mst-gis-optimized/internal/repository"
)

// Phase names, in execution order.
const (
	PhaseSetup           = "setup"
	PhaseDataPrep        = "data_prep"
	PhasePointGeneration = "point_generation"
	PhaseExtraction      = "extraction"
	PhaseExport          = "export"
)

// phase couples a name with the inputs that determine its output and the
// function that produces the artifact.
type phase struct {
	name   string
	inputs any
	run    func(ctx context.Context) (artifact string, err error)

	// valid vets a cached artifact beyond its own existence. Phases whose
	// artifact only references other files set this to check the referents
	// too; nil means existence suffices.
	valid func(artifact string) bool
}

// runPhase executes one phase through the cache. A cache hit requires a
// record for the phase, a matching fingerprint, and the artifact file
// still on disk, together with any files the artifact references.
// Anything else is a miss, including a record whose artifact (or a file
// it points at) has been deleted out from under it.
func (o *Orchestrator) runPhase(ctx context.Context, ph phase, upstream string) (artifact, fingerprint string, err error) {
	fingerprint, err = Fingerprint(ph.inputs, upstream)
	if err != nil {
		return "", "", fmt.Errorf("phase %s: %w", ph.name, err)
	}

	if !o.forced(ph.name) {
		entry, err := o.cache.GetEntry(ctx, ph.name)
		if err != nil {
			return "", "", fmt.Errorf("phase %s: consulting cache: %w", ph.name, err)
		}
		if entry != nil && entry.Fingerprint == fingerprint {
			switch {
			case !fileExists(entry.Artifact):
				slog.Warn("cache record points at missing artifact, recomputing",
					"phase", ph.name, "artifact", entry.Artifact)
			case ph.valid != nil && !ph.valid(entry.Artifact):
				slog.Warn("cached artifact references missing files, recomputing",
					"phase", ph.name, "artifact", entry.Artifact)
			default:
				slog.Info("phase cached, skipping", "phase", ph.name, "artifact", entry.Artifact)
				return entry.Artifact, fingerprint, nil
			}
		}
	} else {
		slog.Info("force refresh, ignoring cache", "phase", ph.name)
	}

	started := time.Now()
	artifact, err = ph.run(ctx)
	if err != nil {
		return "", "", fmt.Errorf("phase %s: %w", ph.name, err)
	}

	entry := &models.CacheEntry{
		Phase:       ph.name,
		Fingerprint: fingerprint,
		Artifact:    artifact,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.cache.PutEntry(ctx, entry); err != nil {
		return "", "", fmt.Errorf("phase %s: recording completion: %w", ph.name, err)
	}

	slog.Info("phase complete", "phase", ph.name, "artifact", artifact, "took", time.Since(started))
	return artifact, fingerprint, nil
}

// forced reports whether the phase must recompute regardless of cache
// state. "all" forces every phase.
func (o *Orchestrator) forced(name string) bool {
	return slices.Contains(o.force, "all") || slices.Contains(o.force, name)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Repositories groups the persistence interfaces the orchestrator needs.
// *repository.SQLiteDB satisfies all three.
type Repositories struct {
	Cache  repository.CacheRepository
	Runs   repository.RunRepository
	Points repository.PointRepository
}
