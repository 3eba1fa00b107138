package landcover

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oguzhanerr/mst-gis-optimized/internal/raster"
)

// Store caches fetched chips on disk as an 8-bit grayscale PNG plus a JSON
// sidecar holding the bounding box. The cache key encodes every parameter
// that determines the chip's content, so a parameter change is a miss.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

type sidecar struct {
	West   float64 `json:"west"`
	South  float64 `json:"south"`
	East   float64 `json:"east"`
	North  float64 `json:"north"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	NoData int     `json:"nodata"`
}

// Path returns the cache file location for one chip request.
func (s *Store) Path(lat, lon float64, year int, bufferM float64, chipPx int) string {
	name := fmt.Sprintf("lcm10_%g_%g_%d_buf%dm_%dpx.png", lat, lon, year, int(bufferM), chipPx)
	return filepath.Join(s.dir, name)
}

// Has reports whether the chip (and its sidecar) is already cached.
func (s *Store) Has(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	_, err := os.Stat(sidecarPath(path))
	return err == nil
}

// Save writes the chip and sidecar to the cache.
func (s *Store) Save(chip *Chip, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	img := image.NewGray(image.Rect(0, 0, chip.Width, chip.Height))
	for row := 0; row < chip.Height; row++ {
		copy(img.Pix[row*img.Stride:row*img.Stride+chip.Width], chip.Codes[row*chip.Width:(row+1)*chip.Width])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding chip: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	meta := sidecar{
		West: chip.West, South: chip.South, East: chip.East, North: chip.North,
		Width: chip.Width, Height: chip.Height, NoData: UnknownCode,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sidecarPath(path), data, 0o644)
}

// Load opens a cached chip as a raster source with its affine transform
// reconstructed from the sidecar bounding box.
func (s *Store) Load(path string) (*raster.Source, error) {
	metaData, err := os.ReadFile(sidecarPath(path))
	if err != nil {
		return nil, fmt.Errorf("reading chip sidecar: %w", err)
	}
	var meta sidecar
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("parsing chip sidecar: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chip: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding chip: %w", err)
	}

	codes, w, h := grayCodes(img)
	if w != meta.Width || h != meta.Height {
		return nil, fmt.Errorf("chip %s is %dx%d but sidecar says %dx%d", path, w, h, meta.Width, meta.Height)
	}

	band := make([]float64, len(codes))
	for i, c := range codes {
		band[i] = float64(c)
	}

	pxW := (meta.East - meta.West) / float64(w)
	pxH := -(meta.North - meta.South) / float64(h)
	transform := raster.NorthUp(meta.West, meta.North, pxW, pxH)

	src, err := raster.New(path, transform, w, h, band)
	if err != nil {
		return nil, err
	}
	src.SetNoData(float64(meta.NoData))
	return src, nil
}

func sidecarPath(path string) string {
	return path + ".json"
}

// Prepare returns the cache path for the requested chip, fetching it first
// when absent or when force is set. This is the DataPrep phase's only
// entry point: a cache hit performs no network access at all.
func Prepare(ctx context.Context, client *Client, store *Store, lat, lon float64, year int, bufferM float64, chipPx int, force bool) (string, error) {
	path := store.Path(lat, lon, year, bufferM, chipPx)

	if !force && store.Has(path) {
		slog.Info("using cached land cover", "path", path)
		return path, nil
	}

	if client == nil {
		return "", fmt.Errorf("land cover chip %s not cached and no client configured", filepath.Base(path))
	}

	slog.Info("fetching land cover", "lat", lat, "lon", lon, "buffer_m", bufferM)
	chip, err := client.FetchChip(ctx, lat, lon, year, bufferM, chipPx)
	if err != nil {
		return "", err
	}
	if err := store.Save(chip, path); err != nil {
		return "", err
	}

	slog.Info("cached land cover", "path", path, "size", fmt.Sprintf("%dx%d", chip.Width, chip.Height))
	return path, nil
}
