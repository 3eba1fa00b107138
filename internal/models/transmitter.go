package models

// Transmitter describes the radio site all receiver points are generated
// around. Built once from configuration and never mutated afterwards.
type Transmitter struct {
	ID              string
	Longitude       float64
	Latitude        float64
	AntennaHeight   float64 // TX antenna height above ground (m)
	RxAntennaHeight float64 // RX antenna height above ground (m)
	FrequencyGHz    float64
	Polarization    int // 1=horizontal, 2=vertical
	TimePercent     int // time percentage parameter (%)
}
