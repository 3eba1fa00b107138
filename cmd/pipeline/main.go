package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oguzhanerr/mst-gis-optimized/internal/config"
	"github.com/oguzhanerr/mst-gis-optimized/internal/logging"
	"github.com/oguzhanerr/mst-gis-optimized/internal/pipeline"
	"github.com/oguzhanerr/mst-gis-optimized/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("pipeline starting",
		"transmitter", cfg.Transmitter.ID,
		"lon", cfg.Transmitter.Longitude,
		"lat", cfg.Transmitter.Latitude,
		"max_distance_km", cfg.Generation.MaxDistanceKm)

	db, err := repository.NewSQLiteDB(cfg.Pipeline.DBPath)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch := pipeline.New(cfg, pipeline.Repositories{Cache: db, Runs: db, Points: db})

	result, err := orch.Run(ctx)
	if err != nil {
		logging.Fatalf("Pipeline failed: %v", err)
	}

	slog.Info("pipeline complete",
		"run_id", result.RunID,
		"points", result.Summary.Points,
		"elevation_fallbacks", result.Summary.ElevationFallbacks,
		"zone_fallbacks", result.Summary.ZoneFallbacks)

	// Artifact paths on stdout for scripting; everything else is on stderr.
	fmt.Fprintln(os.Stdout, result.ProfilesCSV)
	fmt.Fprintln(os.Stdout, result.PointsGeoJSON)
}
