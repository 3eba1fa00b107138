// Package raster wraps one georeferenced grid kept fully resident in
// memory. A Source is opened once per extraction batch; every lookup
// afterwards is a pure affine-inverse plus array-index computation, never
// a file open.
package raster

import "fmt"

// Affine maps pixel (col, row) to a geographic coordinate:
//
//	x = C + A*col + B*row
//	y = F + D*col + E*row
//
// For north-up rasters B and D are zero and E is negative (y decreases
// with increasing row).
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// NorthUp builds the common axis-aligned transform from the raster's
// upper-left corner and pixel sizes. pixelH must be negative for rasters
// stored top row first.
func NorthUp(originX, originY, pixelW, pixelH float64) Affine {
	return Affine{A: pixelW, B: 0, C: originX, D: 0, E: pixelH, F: originY}
}

// Apply maps pixel coordinates to geographic coordinates.
func (t Affine) Apply(col, row float64) (x, y float64) {
	return t.C + t.A*col + t.B*row, t.F + t.D*col + t.E*row
}

// RowCol inverts the transform, returning the pixel containing (x, y).
func (t Affine) RowCol(x, y float64) (row, col int) {
	det := t.A*t.E - t.B*t.D
	if det == 0 {
		return -1, -1
	}
	dx := x - t.C
	dy := y - t.F
	fc := (dx*t.E - dy*t.B) / det
	fr := (dy*t.A - dx*t.D) / det
	// Truncate toward negative infinity so points just west/north of the
	// origin land outside the grid instead of in pixel 0.
	return floorInt(fr), floorInt(fc)
}

func floorInt(f float64) int {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}

// Source is one raster held in memory: band values in row-major order plus
// the affine transform. Read-only after construction.
type Source struct {
	Path      string
	Transform Affine
	Width     int
	Height    int
	NoData    float64
	HasNoData bool

	band []float64
}

// New wraps a decoded band. len(band) must equal width*height.
func New(path string, transform Affine, width, height int, band []float64) (*Source, error) {
	if len(band) != width*height {
		return nil, fmt.Errorf("raster %s: band length %d does not match %dx%d", path, len(band), width, height)
	}
	return &Source{
		Path:      path,
		Transform: transform,
		Width:     width,
		Height:    height,
		band:      band,
	}, nil
}

// SetNoData declares the sentinel value treated as missing data.
func (s *Source) SetNoData(v float64) {
	s.NoData = v
	s.HasNoData = true
}

// Bounds returns the geographic bounding box (minX, minY, maxX, maxY).
func (s *Source) Bounds() (minX, minY, maxX, maxY float64) {
	x0, y0 := s.Transform.Apply(0, 0)
	x1, y1 := s.Transform.Apply(float64(s.Width), float64(s.Height))
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return x0, y0, x1, y1
}

// Sample returns the band value at a geographic coordinate. ok is false
// when the point falls outside the grid or on the nodata sentinel.
func (s *Source) Sample(x, y float64) (v float64, ok bool) {
	row, col := s.Transform.RowCol(x, y)
	if row < 0 || row >= s.Height || col < 0 || col >= s.Width {
		return 0, false
	}
	v = s.band[row*s.Width+col]
	if s.HasNoData && v == s.NoData {
		return 0, false
	}
	return v, true
}

// SampleBatch gathers band values for all coordinates in two passes: one
// transforming every coordinate to pixel space, one indexing the band.
// Points outside the grid or on nodata receive fill; the count of such
// substitutions is returned.
func (s *Source) SampleBatch(xs, ys []float64, fill float64) (vals []float64, missing int) {
	n := len(xs)
	rows := make([]int, n)
	cols := make([]int, n)
	for i := 0; i < n; i++ {
		rows[i], cols[i] = s.Transform.RowCol(xs[i], ys[i])
	}

	vals = make([]float64, n)
	for i := 0; i < n; i++ {
		r, c := rows[i], cols[i]
		if r < 0 || r >= s.Height || c < 0 || c >= s.Width {
			vals[i] = fill
			missing++
			continue
		}
		v := s.band[r*s.Width+c]
		if s.HasNoData && v == s.NoData {
			vals[i] = fill
			missing++
			continue
		}
		vals[i] = v
	}
	return vals, missing
}
