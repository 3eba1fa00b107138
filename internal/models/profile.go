package models

import "time"

// Profile aggregates all enriched points sharing one azimuth into the
// ordered array bundle handed to the propagation-loss model. Index i in
// Distances/Heights/Roughness/Categories/Zones refers to the same
// physical point.
type Profile struct {
	AzimuthDeg   float64
	FrequencyGHz float64
	TimePercent  int
	Distances    []float64
	Heights      []int
	Roughness    []float64
	Categories   []int
	Zones        []Zone
	TxHeight     float64 // htg (m)
	RxHeight     float64 // hrg (m)
	Polarization int
	TxLatitude   float64
	TxLongitude  float64
	RxLatitude   float64
	RxLongitude  float64
}

// CacheEntry records a completed pipeline phase: its input fingerprint and
// the location of the artifact it produced. Consulted before re-running a
// phase; a fingerprint mismatch or missing artifact invalidates it.
type CacheEntry struct {
	Phase       string
	Fingerprint string
	Artifact    string
	CreatedAt   time.Time
}

// Run identifies one orchestrator invocation. It carries the transmitter
// parameters the run executed with, so profiles rebuilt later reflect
// them even after the configuration has moved on.
type Run struct {
	ID          string
	Transmitter Transmitter
	CreatedAt   time.Time
}
