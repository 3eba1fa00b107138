package geo

import (
	"fmt"
	"math"
)

// TileName returns the 1-degree elevation tile name containing the given
// position, e.g. N09W014 for (9.345, -13.40694). Tiles are named by their
// south-west corner.
func TileName(lat, lon float64) string {
	latDeg := int(math.Floor(lat))
	lonDeg := int(math.Floor(lon))

	ns, latAbs := "N", latDeg
	if latDeg < 0 {
		ns, latAbs = "S", -latDeg
	}
	ew, lonAbs := "E", lonDeg
	if lonDeg < 0 {
		ew, lonAbs = "W", -lonDeg
	}
	return fmt.Sprintf("%s%02d%s%03d", ns, latAbs, ew, lonAbs)
}
