package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/oguzhanerr/mst-gis-optimized/internal/config"
	"github.com/oguzhanerr/mst-gis-optimized/internal/extract"
	"github.com/oguzhanerr/mst-gis-optimized/internal/landcover"
	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
	"github.com/oguzhanerr/mst-gis-optimized/internal/pointgen"
	"github.com/oguzhanerr/mst-gis-optimized/internal/terrain"
	"github.com/oguzhanerr/mst-gis-optimized/internal/zones"
)

// Orchestrator runs the full phase sequence for one transmitter.
type Orchestrator struct {
	cfg   *config.Config
	cache CacheStore
	runs  RunStore
	pts   PointStore

	client *landcover.Client
	store  *landcover.Store
	force  []string

	artifactsDir string
}

// Store aliases so the struct fields above read cleanly.
type (
	CacheStore = interface {
		GetEntry(ctx context.Context, phase string) (*models.CacheEntry, error)
		PutEntry(ctx context.Context, e *models.CacheEntry) error
	}
	RunStore = interface {
		AddRun(ctx context.Context, r *models.Run) error
	}
	PointStore = interface {
		ReplacePoints(ctx context.Context, runID string, pts []models.EnrichedPoint) error
	}
)

func New(cfg *config.Config, repos Repositories) *Orchestrator {
	o := &Orchestrator{
		cfg:          cfg,
		cache:        repos.Cache,
		runs:         repos.Runs,
		pts:          repos.Points,
		store:        landcover.NewStore(filepath.Join(cfg.Pipeline.DataRoot, "landcover")),
		force:        cfg.Pipeline.ForceRefresh,
		artifactsDir: filepath.Join(cfg.Pipeline.DataRoot, "artifacts"),
	}

	lc := cfg.LandCover
	if lc.Enabled && lc.ClientID != "" {
		o.client = landcover.NewClient(lc.ClientID, lc.ClientSecret,
			lc.TokenURL, lc.ProcessURL, lc.CollectionID, lc.Retries, lc.Timeout)
	}
	return o
}

// Result is what one orchestrator invocation hands back to the caller.
type Result struct {
	RunID         string
	ProfilesCSV   string
	PointsGeoJSON string
	Summary       extract.Summary
}

// Artifact payloads. These are the on-disk contract between phases, so a
// cached artifact from a previous process is as good as a fresh one.
type setupArtifact struct {
	DataRoot     string `json:"data_root"`
	ArtifactsDir string `json:"artifacts_dir"`
	ElevationDir string `json:"elevation_dir"`
	LandCoverDir string `json:"landcover_dir"`
}

type dataPrepArtifact struct {
	ChipPath string `json:"chip_path"` // empty when land cover is disabled
}

type pointsArtifact struct {
	Transmitter models.Transmitter     `json:"transmitter"`
	Points      []models.ReceiverPoint `json:"points"`
}

type enrichedArtifact struct {
	Summary extract.Summary        `json:"summary"`
	Points  []models.EnrichedPoint `json:"points"`
}

// Run executes setup through export and returns the export locations.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	if err := o.runs.AddRun(ctx, &models.Run{
		ID:          runID,
		Transmitter: o.transmitter(),
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}

	_, fp, err := o.runPhase(ctx, o.setupPhase(), "")
	if err != nil {
		return nil, err
	}

	prepPath, fp, err := o.runPhase(ctx, o.dataPrepPhase(), fp)
	if err != nil {
		return nil, err
	}

	pointsPath, fp, err := o.runPhase(ctx, o.pointGenerationPhase(), fp)
	if err != nil {
		return nil, err
	}

	enrichedPath, fp, err := o.runPhase(ctx, o.extractionPhase(prepPath, pointsPath), fp)
	if err != nil {
		return nil, err
	}

	var enriched enrichedArtifact
	if err := readArtifact(enrichedPath, &enriched); err != nil {
		return nil, err
	}
	// Persist under the new run id even on a cache hit, so the API always
	// serves this run's points.
	if err := o.pts.ReplacePoints(ctx, runID, enriched.Points); err != nil {
		return nil, fmt.Errorf("persisting points: %w", err)
	}

	csvPath, _, err := o.runPhase(ctx, o.exportPhase(enrichedPath), fp)
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:         runID,
		ProfilesCSV:   csvPath,
		PointsGeoJSON: filepath.Join(o.artifactsDir, "points.geojson"),
		Summary:       enriched.Summary,
	}, nil
}

func (o *Orchestrator) setupPhase() phase {
	art := setupArtifact{
		DataRoot:     o.cfg.Pipeline.DataRoot,
		ArtifactsDir: o.artifactsDir,
		ElevationDir: o.cfg.Elevation.CacheDir,
		LandCoverDir: filepath.Join(o.cfg.Pipeline.DataRoot, "landcover"),
	}
	return phase{
		name:   PhaseSetup,
		inputs: art,
		run: func(ctx context.Context) (string, error) {
			for _, dir := range []string{art.ArtifactsDir, art.ElevationDir, art.LandCoverDir} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return "", fmt.Errorf("creating %s: %w", dir, err)
				}
			}
			return o.writeArtifact("setup.json", art)
		},
	}
}

func (o *Orchestrator) dataPrepPhase() phase {
	tx := o.cfg.Transmitter
	lc := o.cfg.LandCover
	inputs := struct {
		Enabled   bool    `json:"enabled"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Year      int     `json:"year"`
		BufferM   float64 `json:"buffer_m"`
		ChipPx    int     `json:"chip_px"`
	}{lc.Enabled, tx.Latitude, tx.Longitude, lc.Year, lc.BufferM, lc.ChipPx}

	return phase{
		name:   PhaseDataPrep,
		inputs: inputs,
		// The artifact only points at the cached chip; the hit is real
		// only while the chip and its sidecar are still on disk.
		valid: func(artifact string) bool {
			var art dataPrepArtifact
			if err := readArtifact(artifact, &art); err != nil {
				return false
			}
			return art.ChipPath == "" || o.store.Has(art.ChipPath)
		},
		run: func(ctx context.Context) (string, error) {
			var art dataPrepArtifact
			if lc.Enabled {
				chip, err := landcover.Prepare(ctx, o.client, o.store,
					tx.Latitude, tx.Longitude, lc.Year, lc.BufferM, lc.ChipPx,
					o.forced(PhaseDataPrep))
				if err != nil {
					return "", err
				}
				art.ChipPath = chip
			}
			return o.writeArtifact("data_prep.json", art)
		},
	}
}

func (o *Orchestrator) pointGenerationPhase() phase {
	tx := o.cfg.Transmitter
	gen := o.cfg.Generation
	params := pointgen.Params{
		MaxDistanceKm:  gen.MaxDistanceKm,
		DistanceStepKm: gen.DistanceStepKm,
		NumAzimuths:    gen.NumAzimuths,
		Azimuths:       gen.Azimuths,
	}
	inputs := struct {
		Longitude float64         `json:"longitude"`
		Latitude  float64         `json:"latitude"`
		Params    pointgen.Params `json:"params"`
	}{tx.Longitude, tx.Latitude, params}

	return phase{
		name:   PhasePointGeneration,
		inputs: inputs,
		run: func(ctx context.Context) (string, error) {
			pts, err := pointgen.Generate(o.transmitter(), params)
			if err != nil {
				return "", err
			}
			return o.writeArtifact("points.json", pointsArtifact{
				Transmitter: o.transmitter(),
				Points:      pts,
			})
		},
	}
}

func (o *Orchestrator) extractionPhase(prepPath, pointsPath string) phase {
	el := o.cfg.Elevation
	zn := o.cfg.Zones
	inputs := struct {
		ElevationMin      float64 `json:"elevation_min"`
		ElevationMax      float64 `json:"elevation_max"`
		ElevationFallback float64 `json:"elevation_fallback"`
		ElevationDir      string  `json:"elevation_dir"`
		ZonesPath         string  `json:"zones_path"`
		DefaultZone       int     `json:"default_zone"`
		TablesPath        string  `json:"tables_path"`
	}{el.MinM, el.MaxM, el.FallbackM, el.CacheDir, zn.Path, zn.DefaultZone, o.cfg.LandCover.TablesPath}

	return phase{
		name:   PhaseExtraction,
		inputs: inputs,
		run: func(ctx context.Context) (string, error) {
			var prep dataPrepArtifact
			if err := readArtifact(prepPath, &prep); err != nil {
				return "", err
			}
			var batch pointsArtifact
			if err := readArtifact(pointsPath, &batch); err != nil {
				return "", err
			}

			ex, err := o.buildExtractor(prep.ChipPath)
			if err != nil {
				return "", err
			}
			enriched, summary, err := ex.Enrich(ctx, batch.Points)
			if err != nil {
				return "", err
			}
			return o.writeArtifact("enriched.json", enrichedArtifact{
				Summary: summary,
				Points:  enriched,
			})
		},
	}
}

func (o *Orchestrator) buildExtractor(chipPath string) (*extract.Extractor, error) {
	tables, err := landcover.LoadTables(o.cfg.LandCover.TablesPath)
	if err != nil {
		return nil, err
	}
	resolver, err := zones.Load(o.cfg.Zones.Path, models.Zone(o.cfg.Zones.DefaultZone))
	if err != nil {
		return nil, err
	}

	ex := &extract.Extractor{
		Elevation:         terrain.NewProvider(o.cfg.Elevation.CacheDir),
		Zones:             resolver,
		Tables:            tables,
		ElevationMin:      o.cfg.Elevation.MinM,
		ElevationMax:      o.cfg.Elevation.MaxM,
		ElevationFallback: o.cfg.Elevation.FallbackM,
		Workers:           o.cfg.Pipeline.Workers,
	}
	if chipPath != "" {
		src, err := o.store.Load(chipPath)
		if err != nil {
			return nil, fmt.Errorf("opening land cover chip: %w", err)
		}
		ex.LandCover = src
	}
	return ex, nil
}

func (o *Orchestrator) exportPhase(enrichedPath string) phase {
	tx := o.cfg.Transmitter
	inputs := struct {
		FrequencyGHz float64 `json:"frequency_ghz"`
		TimePercent  int     `json:"time_percent"`
		Polarization int     `json:"polarization"`
		TxHeight     float64 `json:"tx_height"`
		RxHeight     float64 `json:"rx_height"`
	}{tx.FrequencyGHz, tx.TimePercent, tx.Polarization, tx.AntennaHeight, tx.RxAntennaHeight}

	return phase{
		name:   PhaseExport,
		inputs: inputs,
		run: func(ctx context.Context) (string, error) {
			var enriched enrichedArtifact
			if err := readArtifact(enrichedPath, &enriched); err != nil {
				return "", err
			}

			profiles, err := BuildProfiles(o.transmitter(), enriched.Points)
			if err != nil {
				return "", err
			}

			csvPath := filepath.Join(o.artifactsDir, "profiles.csv")
			if err := WriteProfilesCSV(profiles, csvPath); err != nil {
				return "", err
			}
			if err := WritePointsGeoJSON(enriched.Points, filepath.Join(o.artifactsDir, "points.geojson")); err != nil {
				return "", err
			}
			return csvPath, nil
		},
	}
}

func (o *Orchestrator) transmitter() models.Transmitter {
	tx := o.cfg.Transmitter
	return models.Transmitter{
		ID:              tx.ID,
		Longitude:       tx.Longitude,
		Latitude:        tx.Latitude,
		AntennaHeight:   tx.AntennaHeight,
		RxAntennaHeight: tx.RxAntennaHeight,
		FrequencyGHz:    tx.FrequencyGHz,
		Polarization:    tx.Polarization,
		TimePercent:     tx.TimePercent,
	}
}

func (o *Orchestrator) writeArtifact(name string, payload any) (string, error) {
	if err := os.MkdirAll(o.artifactsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifacts dir: %w", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding artifact %s: %w", name, err)
	}
	path := filepath.Join(o.artifactsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact %s: %w", name, err)
	}
	return path, nil
}

func readArtifact(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading artifact: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parsing artifact %s: %w", filepath.Base(path), err)
	}
	return nil
}
