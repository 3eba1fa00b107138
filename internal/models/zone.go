package models

// Zone is a radio-climatic classification assigned per point via polygon
// containment. The numeric values follow the P.1812 zone coding used by
// the downstream loss model.
type Zone int

const (
	ZoneSea     Zone = 1
	ZoneCoastal Zone = 3
	ZoneInland  Zone = 4
)

func (z Zone) String() string {
	switch z {
	case ZoneSea:
		return "sea"
	case ZoneCoastal:
		return "coastal"
	case ZoneInland:
		return "inland"
	default:
		return "unknown"
	}
}
