package pointgen

import (
	"math"
	"testing"

	"github.com/oguzhanerr/mst-gis-optimized/internal/geo"
	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
)

func testTransmitter() models.Transmitter {
	return models.Transmitter{
		ID:        "tx-1",
		Longitude: -13.40694,
		Latitude:  9.345,
	}
}

func TestGenerateCountAndOrdering(t *testing.T) {
	pts, err := Generate(testTransmitter(), Params{
		MaxDistanceKm:  1.0,
		DistanceStepKm: 0.5,
		Azimuths:       []float64{0, 90, 180, 270},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// 4 azimuths x 2 rings + the transmitter itself.
	if len(pts) != 9 {
		t.Fatalf("len(pts) = %d, want 9", len(pts))
	}

	first := pts[0]
	if !first.IsTransmitter() || first.DistanceKm != 0 || first.ID != 0 {
		t.Errorf("first point must be the transmitter at distance 0, got %+v", first)
	}
	if first.Longitude != -13.40694 || first.Latitude != 9.345 {
		t.Errorf("transmitter point moved: %+v", first)
	}

	// Azimuth 0 group: exactly two points, 0.5 km then 1.0 km.
	var azZero []models.ReceiverPoint
	for _, p := range pts[1:] {
		if p.AzimuthDeg == 0 {
			azZero = append(azZero, p)
		}
	}
	if len(azZero) != 2 {
		t.Fatalf("azimuth-0 group has %d points, want 2", len(azZero))
	}
	if azZero[0].DistanceKm != 0.5 || azZero[1].DistanceKm != 1.0 {
		t.Errorf("azimuth-0 distances = %v, %v; want 0.5, 1.0",
			azZero[0].DistanceKm, azZero[1].DistanceKm)
	}

	// Grouping: azimuths appear in input order, distances increase
	// within each group, IDs are sequential.
	wantAz := []float64{0, 0, 90, 90, 180, 180, 270, 270}
	for i, p := range pts[1:] {
		if p.AzimuthDeg != wantAz[i] {
			t.Errorf("pts[%d].AzimuthDeg = %v, want %v", i+1, p.AzimuthDeg, wantAz[i])
		}
		if p.ID != i+1 {
			t.Errorf("pts[%d].ID = %d, want %d", i+1, p.ID, i+1)
		}
	}
}

func TestGenerateDistancesMatchGeodesic(t *testing.T) {
	tx := testTransmitter()
	pts, err := Generate(tx, Params{
		MaxDistanceKm:  11.0,
		DistanceStepKm: 0.03,
		NumAzimuths:    36,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := 36*366 + 1
	if len(pts) != want {
		t.Fatalf("len(pts) = %d, want %d", len(pts), want)
	}

	// Projected offsets must agree with great-circle distance to well
	// under the 30 m step over an 11 km radius.
	for _, p := range pts[1:] {
		d := geo.HaversineKm(tx.Longitude, tx.Latitude, p.Longitude, p.Latitude)
		if diff := math.Abs(d - p.DistanceKm); diff > 0.005 {
			t.Fatalf("point %d (az %v, %v km): geodesic distance %v differs by %v km",
				p.ID, p.AzimuthDeg, p.DistanceKm, d, diff)
		}
	}
}

func TestGenerateBearings(t *testing.T) {
	tx := testTransmitter()
	pts, err := Generate(tx, Params{
		MaxDistanceKm:  1.0,
		DistanceStepKm: 1.0,
		Azimuths:       []float64{0, 90, 180, 270},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	north, east, south, west := pts[1], pts[2], pts[3], pts[4]
	if north.Latitude <= tx.Latitude {
		t.Errorf("azimuth 0 should move north: lat %v vs tx %v", north.Latitude, tx.Latitude)
	}
	if east.Longitude <= tx.Longitude {
		t.Errorf("azimuth 90 should move east: lon %v vs tx %v", east.Longitude, tx.Longitude)
	}
	if south.Latitude >= tx.Latitude {
		t.Errorf("azimuth 180 should move south: lat %v vs tx %v", south.Latitude, tx.Latitude)
	}
	if west.Longitude >= tx.Longitude {
		t.Errorf("azimuth 270 should move west: lon %v vs tx %v", west.Longitude, tx.Longitude)
	}
}

func TestGenerateValidation(t *testing.T) {
	tx := testTransmitter()
	cases := []struct {
		name string
		p    Params
	}{
		{"zero step", Params{MaxDistanceKm: 1, DistanceStepKm: 0, NumAzimuths: 4}},
		{"negative step", Params{MaxDistanceKm: 1, DistanceStepKm: -0.5, NumAzimuths: 4}},
		{"max below step", Params{MaxDistanceKm: 0.1, DistanceStepKm: 0.5, NumAzimuths: 4}},
		{"no azimuths", Params{MaxDistanceKm: 1, DistanceStepKm: 0.5}},
		{"azimuth 360", Params{MaxDistanceKm: 1, DistanceStepKm: 0.5, Azimuths: []float64{0, 360}}},
		{"negative azimuth", Params{MaxDistanceKm: 1, DistanceStepKm: 0.5, Azimuths: []float64{-10}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pts, err := Generate(tx, tc.p)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if pts != nil {
				t.Error("no points may exist after a validation failure")
			}
		})
	}
}

func TestAzimuthList(t *testing.T) {
	got := Params{NumAzimuths: 4}.AzimuthList()
	want := []float64{0, 90, 180, 270}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("azimuth[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	explicit := Params{NumAzimuths: 4, Azimuths: []float64{45, 135}}.AzimuthList()
	if len(explicit) != 2 || explicit[0] != 45 {
		t.Errorf("explicit list must win: %v", explicit)
	}
}
