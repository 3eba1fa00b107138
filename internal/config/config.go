package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Transmitter TransmitterConfig
	Generation  GenerationConfig
	Elevation   ElevationConfig
	LandCover   LandCoverConfig
	Zones       ZonesConfig
	Pipeline    PipelineConfig
	Server      ServerConfig
	Logging     LoggingConfig
}

type TransmitterConfig struct {
	ID              string
	Longitude       float64
	Latitude        float64
	AntennaHeight   float64 // htg (m)
	RxAntennaHeight float64 // hrg (m)
	FrequencyGHz    float64
	Polarization    int
	TimePercent     int
}

type GenerationConfig struct {
	MaxDistanceKm  float64
	DistanceStepKm float64
	NumAzimuths    int
	Azimuths       []float64 // explicit list; overrides NumAzimuths when set
}

type ElevationConfig struct {
	CacheDir  string
	MinM      float64 // admissible range lower bound
	MaxM      float64 // admissible range upper bound
	FallbackM float64 // substituted for missing or out-of-range samples
}

type LandCoverConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	TokenURL     string
	ProcessURL   string
	CollectionID string
	Year         int
	BufferM      float64
	ChipPx       int
	Retries      int
	Timeout      time.Duration
	TablesPath   string // optional JSON override for the lookup tables
}

type ZonesConfig struct {
	Path        string
	DefaultZone int
}

type PipelineConfig struct {
	DataRoot     string
	DBPath       string
	ForceRefresh []string // phase names, or "all"
	Workers      int
}

type ServerConfig struct {
	Host string
	Port int
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Transmitter: TransmitterConfig{
			ID:              getEnv("TX_ID", "tx-1"),
			Longitude:       getEnvFloat("TX_LON", -13.40694),
			Latitude:        getEnvFloat("TX_LAT", 9.345),
			AntennaHeight:   getEnvFloat("TX_ANTENNA_HEIGHT_M", 30),
			RxAntennaHeight: getEnvFloat("RX_ANTENNA_HEIGHT_M", 10),
			FrequencyGHz:    getEnvFloat("FREQUENCY_GHZ", 0.7),
			Polarization:    getEnvInt("POLARIZATION", 2),
			TimePercent:     getEnvInt("TIME_PERCENTAGE", 50),
		},
		Generation: GenerationConfig{
			MaxDistanceKm:  getEnvFloat("MAX_DISTANCE_KM", 11.0),
			DistanceStepKm: getEnvFloat("DISTANCE_STEP_KM", 0.03),
			NumAzimuths:    getEnvInt("NUM_AZIMUTHS", 36),
			Azimuths:       getEnvFloats("AZIMUTHS", nil),
		},
		Elevation: ElevationConfig{
			CacheDir:  getEnv("ELEVATION_CACHE_DIR", "./data/srtm"),
			MinM:      getEnvFloat("ELEVATION_MIN_M", 0),
			MaxM:      getEnvFloat("ELEVATION_MAX_M", 9000),
			FallbackM: getEnvFloat("ELEVATION_FALLBACK_M", 0),
		},
		LandCover: LandCoverConfig{
			Enabled:      getEnvBool("LANDCOVER_ENABLED", true),
			ClientID:     getEnv("LANDCOVER_CLIENT_ID", ""),
			ClientSecret: getEnv("LANDCOVER_CLIENT_SECRET", ""),
			TokenURL:     getEnv("LANDCOVER_TOKEN_URL", "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"),
			ProcessURL:   getEnv("LANDCOVER_PROCESS_URL", "https://sh.dataspace.copernicus.eu/api/v1/process"),
			CollectionID: getEnv("LANDCOVER_COLLECTION_ID", ""),
			Year:         getEnvInt("LANDCOVER_YEAR", 2020),
			BufferM:      getEnvFloat("LANDCOVER_BUFFER_M", 11000),
			ChipPx:       getEnvInt("LANDCOVER_CHIP_PX", 734),
			Retries:      getEnvInt("LANDCOVER_RETRIES", 3),
			Timeout:      getEnvDuration("LANDCOVER_TIMEOUT", 2*time.Minute),
			TablesPath:   getEnv("LANDCOVER_TABLES_PATH", ""),
		},
		Zones: ZonesConfig{
			Path:        getEnv("ZONES_PATH", "./data/input/reference/zones.json"),
			DefaultZone: getEnvInt("ZONE_DEFAULT", 4),
		},
		Pipeline: PipelineConfig{
			DataRoot:     getEnv("DATA_ROOT", "./data"),
			DBPath:       getEnv("DB_PATH", "./data/pipeline.db"),
			ForceRefresh: splitList(getEnv("FORCE_REFRESH", "")),
			Workers:      getEnvInt("EXTRACTION_WORKERS", 1),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	tx := c.Transmitter
	if tx.Longitude < -180 || tx.Longitude > 180 {
		return fmt.Errorf("invalid transmitter longitude: %v", tx.Longitude)
	}
	if tx.Latitude < -90 || tx.Latitude > 90 {
		return fmt.Errorf("invalid transmitter latitude: %v", tx.Latitude)
	}
	if tx.AntennaHeight <= 0 || tx.AntennaHeight > 500 {
		return fmt.Errorf("TX antenna height out of range (0, 500]: %v", tx.AntennaHeight)
	}
	if tx.RxAntennaHeight <= 0 || tx.RxAntennaHeight > 500 {
		return fmt.Errorf("RX antenna height out of range (0, 500]: %v", tx.RxAntennaHeight)
	}
	if tx.FrequencyGHz < 0.03 || tx.FrequencyGHz > 6 {
		return fmt.Errorf("frequency must be 0.03-6 GHz, got %v", tx.FrequencyGHz)
	}
	if tx.TimePercent < 1 || tx.TimePercent > 50 {
		return fmt.Errorf("time percentage must be 1-50, got %d", tx.TimePercent)
	}
	if tx.Polarization != 1 && tx.Polarization != 2 {
		return fmt.Errorf("polarization must be 1 or 2, got %d", tx.Polarization)
	}

	gen := c.Generation
	if gen.DistanceStepKm <= 0 {
		return fmt.Errorf("distance step must be > 0, got %v", gen.DistanceStepKm)
	}
	if gen.MaxDistanceKm < gen.DistanceStepKm {
		return fmt.Errorf("max distance %v km is below distance step %v km", gen.MaxDistanceKm, gen.DistanceStepKm)
	}
	if len(gen.Azimuths) == 0 && gen.NumAzimuths <= 0 {
		return fmt.Errorf("num azimuths must be > 0, got %d", gen.NumAzimuths)
	}
	for _, az := range gen.Azimuths {
		if az < 0 || az >= 360 {
			return fmt.Errorf("azimuth must be in [0, 360), got %v", az)
		}
	}

	if c.Elevation.MinM >= c.Elevation.MaxM {
		return fmt.Errorf("elevation range invalid: [%v, %v]", c.Elevation.MinM, c.Elevation.MaxM)
	}

	if c.LandCover.Enabled {
		if c.LandCover.ChipPx <= 0 || c.LandCover.BufferM <= 0 {
			return fmt.Errorf("land cover chip size and buffer must be positive")
		}
		if c.LandCover.Retries < 0 {
			return fmt.Errorf("land cover retries must be >= 0, got %d", c.LandCover.Retries)
		}
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("extraction workers must be >= 1, got %d", c.Pipeline.Workers)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvFloats(key string, fallback []float64) []float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := splitList(val)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return fallback
		}
		out = append(out, f)
	}
	return out
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
