// Package pointgen produces the complete receiver-point batch around a
// transmitter in one call. Downstream extraction is vectorized over the
// whole batch, so there is no streaming mode.
package pointgen

import (
	"fmt"
	"math"

	"github.com/oguzhanerr/mst-gis-optimized/internal/geo"
	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
)

// Params controls one generation batch. Either Azimuths is set explicitly
// or NumAzimuths equally spaced bearings starting at 0 are used.
type Params struct {
	MaxDistanceKm  float64
	DistanceStepKm float64
	NumAzimuths    int
	Azimuths       []float64
}

// AzimuthList returns the effective azimuth list for the parameters.
func (p Params) AzimuthList() []float64 {
	if len(p.Azimuths) > 0 {
		out := make([]float64, len(p.Azimuths))
		copy(out, p.Azimuths)
		return out
	}
	out := make([]float64, 0, p.NumAzimuths)
	for i := 0; i < p.NumAzimuths; i++ {
		out = append(out, float64(i)*360/float64(p.NumAzimuths))
	}
	return out
}

func (p Params) validate() error {
	if p.DistanceStepKm <= 0 {
		return fmt.Errorf("distance step must be > 0, got %v", p.DistanceStepKm)
	}
	if p.MaxDistanceKm < p.DistanceStepKm {
		return fmt.Errorf("max distance %v km is below distance step %v km", p.MaxDistanceKm, p.DistanceStepKm)
	}
	azimuths := p.AzimuthList()
	if len(azimuths) == 0 {
		return fmt.Errorf("azimuth list is empty")
	}
	for _, az := range azimuths {
		if az < 0 || az >= 360 {
			return fmt.Errorf("azimuth must be in [0, 360), got %v", az)
		}
	}
	return nil
}

// Generate builds the full point set: the transmitter itself once at
// distance 0, then for each azimuth every distance step, 2·step, … up to
// the maximum radius. Output ordering is part of the contract: points are
// grouped by azimuth and sorted by increasing distance within a group, so
// export can slice per-azimuth arrays without sorting.
//
// All offsets are computed in the local UTM plane of the transmitter;
// generation either succeeds completely or returns an error with no
// partial output.
func Generate(tx models.Transmitter, p Params) ([]models.ReceiverPoint, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("point generation config: %w", err)
	}

	azimuths := p.AzimuthList()
	// floor with an epsilon so max = n*step is not lost to float noise.
	steps := int(math.Floor(p.MaxDistanceKm/p.DistanceStepKm + 1e-9))

	proj := geo.NewLocalUTM(tx.Longitude, tx.Latitude)
	txX, txY := proj.Forward(tx.Longitude, tx.Latitude)

	points := make([]models.ReceiverPoint, 0, len(azimuths)*steps+1)
	points = append(points, models.ReceiverPoint{
		ID:         0,
		DistanceKm: 0,
		AzimuthDeg: models.TransmitterAzimuth,
		Longitude:  tx.Longitude,
		Latitude:   tx.Latitude,
	})

	id := 1
	for _, az := range azimuths {
		theta := az * math.Pi / 180
		sinT, cosT := math.Sin(theta), math.Cos(theta)

		for i := 1; i <= steps; i++ {
			dKm := float64(i) * p.DistanceStepKm
			dM := dKm * 1000
			lon, lat := proj.Inverse(txX+dM*sinT, txY+dM*cosT)

			points = append(points, models.ReceiverPoint{
				ID:         id,
				DistanceKm: dKm,
				AzimuthDeg: az,
				Longitude:  lon,
				Latitude:   lat,
			})
			id++
		}
	}
	return points, nil
}
