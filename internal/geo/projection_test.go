package geo

import (
	"math"
	"testing"
)

func TestForwardInverseRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		lon, lat float64
	}{
		{"guinea", -13.40694, 9.345},
		{"helsinki", 24.9384, 60.1699},
		{"sao_paulo", -46.6333, -23.5505},
		{"zone_edge", -12.0001, 9.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewLocalUTM(tc.lon, tc.lat)
			x, y := p.Forward(tc.lon, tc.lat)
			lon, lat := p.Inverse(x, y)

			if math.Abs(lon-tc.lon) > 1e-7 || math.Abs(lat-tc.lat) > 1e-7 {
				t.Errorf("round trip drifted: got (%v, %v), want (%v, %v)", lon, lat, tc.lon, tc.lat)
			}
		})
	}
}

func TestForwardOffsetIsMetric(t *testing.T) {
	// Project, step 1000 m due east and due north in the plane, come back,
	// and check the geodesic distance is 1 km within projection tolerance.
	lon, lat := -13.40694, 9.345
	p := NewLocalUTM(lon, lat)
	x, y := p.Forward(lon, lat)

	for _, off := range []struct {
		name   string
		dx, dy float64
	}{
		{"east", 1000, 0},
		{"north", 0, 1000},
		{"northeast", 1000 / math.Sqrt2, 1000 / math.Sqrt2},
	} {
		lon2, lat2 := p.Inverse(x+off.dx, y+off.dy)
		gotKm := HaversineKm(lon, lat, lon2, lat2)
		if math.Abs(gotKm-1.0) > 0.002 {
			t.Errorf("%s offset: distance %v km, want 1.0 km", off.name, gotKm)
		}
	}
}

func TestNewLocalUTMZone(t *testing.T) {
	cases := []struct {
		lon, lat float64
		zone     int
		south    bool
	}{
		{-13.40694, 9.345, 28, false},
		{24.9384, 60.1699, 35, false},
		{-46.6333, -23.5505, 23, true},
		{0, 0, 31, false},
		{-180, 10, 1, false},
	}
	for _, tc := range cases {
		p := NewLocalUTM(tc.lon, tc.lat)
		if p.Zone != tc.zone || p.South != tc.south {
			t.Errorf("NewLocalUTM(%v, %v) = zone %d south %v, want zone %d south %v",
				tc.lon, tc.lat, p.Zone, p.South, tc.zone, tc.south)
		}
	}
}

func TestTileName(t *testing.T) {
	cases := []struct {
		lat, lon float64
		want     string
	}{
		{9.345, -13.40694, "N09W014"},
		{60.1699, 24.9384, "N60E024"},
		{-23.5505, -46.6333, "S24W047"},
		{0.5, 0.5, "N00E000"},
		{-0.5, -0.5, "S01W001"},
	}
	for _, tc := range cases {
		if got := TileName(tc.lat, tc.lon); got != tc.want {
			t.Errorf("TileName(%v, %v) = %s, want %s", tc.lat, tc.lon, got, tc.want)
		}
	}
}
