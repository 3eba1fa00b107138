package models

// TransmitterAzimuth marks the single distance-0 point at the transmitter
// itself, which belongs to no azimuth group.
const TransmitterAzimuth = -1.0

// ReceiverPoint is one sample location produced by point generation.
// Points are immutable after creation; enrichment returns a new
// EnrichedPoint instead of mutating in place.
type ReceiverPoint struct {
	ID         int
	DistanceKm float64
	AzimuthDeg float64 // TransmitterAzimuth for the distance-0 point
	Longitude  float64
	Latitude   float64
}

// IsTransmitter reports whether this is the distance-0 point at the
// transmitter site.
func (p ReceiverPoint) IsTransmitter() bool {
	return p.AzimuthDeg == TransmitterAzimuth
}

// EnrichedPoint is a ReceiverPoint plus the attributes extracted against
// the raster and polygon datasets.
type EnrichedPoint struct {
	ReceiverPoint
	ElevationM    float64
	LandCoverCode int
	Category      int
	Roughness     float64
	Zone          Zone
}
