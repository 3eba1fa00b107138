package terrain

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

const testTileSize = 1201

// writeTestTile creates an SRTM3-sized tile with every cell set to elev,
// except cell (voidRow, voidCol) which holds the void sentinel.
func writeTestTile(t *testing.T, dir, name string, elev int16, voidRow, voidCol int) {
	t.Helper()
	data := make([]byte, testTileSize*testTileSize*2)
	for i := 0; i < testTileSize*testTileSize; i++ {
		binary.BigEndian.PutUint16(data[2*i:], uint16(elev))
	}
	if voidRow >= 0 {
		i := voidRow*testTileSize + voidCol
		void := int16(voidValue)
		binary.BigEndian.PutUint16(data[2*i:], uint16(void))
	}
	if err := os.WriteFile(filepath.Join(dir, name+".hgt"), data, 0o644); err != nil {
		t.Fatalf("writing test tile: %v", err)
	}
}

func TestSampleBatch(t *testing.T) {
	dir := t.TempDir()
	writeTestTile(t, dir, "N09W014", 120, -1, -1)

	p := NewProvider(dir)
	lons := []float64{-13.5, -13.40694, -13.01}
	lats := []float64{9.5, 9.345, 9.99}

	vals, missing := p.SampleBatch(lons, lats, 0)
	if missing != 0 {
		t.Errorf("missing = %d, want 0", missing)
	}
	for i, v := range vals {
		if v != 120 {
			t.Errorf("vals[%d] = %v, want 120", i, v)
		}
	}
}

func TestSampleBatchMissingTile(t *testing.T) {
	dir := t.TempDir()
	writeTestTile(t, dir, "N09W014", 80, -1, -1)

	p := NewProvider(dir)
	// Second point falls on the absent N10W014 tile.
	lons := []float64{-13.5, -13.5}
	lats := []float64{9.5, 10.5}

	vals, missing := p.SampleBatch(lons, lats, -5)
	if missing != 1 {
		t.Errorf("missing = %d, want 1", missing)
	}
	if vals[0] != 80 {
		t.Errorf("covered point = %v, want 80", vals[0])
	}
	if vals[1] != -5 {
		t.Errorf("uncovered point = %v, want fallback -5", vals[1])
	}

	// Re-querying must not change the result (miss is remembered).
	vals, missing = p.SampleBatch(lons, lats, -5)
	if missing != 1 || vals[1] != -5 {
		t.Errorf("repeat query: missing=%d vals[1]=%v", missing, vals[1])
	}
}

func TestSampleBatchVoid(t *testing.T) {
	dir := t.TempDir()
	// Void at the tile's north-west corner node.
	writeTestTile(t, dir, "N09W014", 200, 0, 0)

	p := NewProvider(dir)
	vals, missing := p.SampleBatch([]float64{-14.0}, []float64{10.0}, 7)
	if missing != 1 {
		t.Errorf("missing = %d, want 1", missing)
	}
	if vals[0] != 7 {
		t.Errorf("void sample = %v, want fallback 7", vals[0])
	}
}

func TestLoadHGTRejectsBadSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "N09W014.hgt"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadHGT(filepath.Join(dir, "N09W014.hgt")); err == nil {
		t.Error("expected error for truncated tile")
	}
}

func TestClampToRange(t *testing.T) {
	vals := []float64{-32768, 50, 9500, 0, 8848}
	replaced := ClampToRange(vals, 0, 9000, 0)
	if replaced != 2 {
		t.Errorf("replaced = %d, want 2", replaced)
	}
	want := []float64{0, 50, 0, 0, 8848}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("vals[%d] = %v, want %v", i, vals[i], want[i])
		}
	}
}
