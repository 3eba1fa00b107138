// Package geo provides the coordinate machinery the pipeline needs:
// a local UTM projection for metric forward-bearing offsets, and the
// 1-degree tile naming scheme used by the elevation cache.
//
// All distance math runs in a single projected plane chosen from the
// transmitter longitude. Working directly in geographic degrees would
// distort distances with latitude, so it is not offered here.
package geo

import "math"

// WGS84 ellipsoid.
const (
	semiMajorAxis = 6378137.0
	flattening    = 1.0 / 298.257223563

	utmScaleFactor   = 0.9996
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0 // southern hemisphere only
)

// Projection converts between WGS84 geographic coordinates and a UTM zone
// plane (transverse Mercator). Construct one per transmitter with
// NewLocalUTM and reuse it for every point of a batch.
type Projection struct {
	Zone  int
	South bool

	lon0 float64 // central meridian (radians)
}

// NewLocalUTM picks the UTM zone containing the given position.
func NewLocalUTM(lon, lat float64) Projection {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	return Projection{
		Zone:  zone,
		South: lat < 0,
		lon0:  deg2rad(float64(zone-1)*6 - 180 + 3),
	}
}

// Forward projects lon/lat (degrees) to easting/northing (meters).
func (p Projection) Forward(lon, lat float64) (x, y float64) {
	phi := deg2rad(lat)
	lam := deg2rad(lon)

	e2 := flattening * (2 - flattening)
	ep2 := e2 / (1 - e2)

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := semiMajorAxis / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := (lam - p.lon0) * cosPhi
	m := meridionalArc(phi)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	x = utmFalseEasting + utmScaleFactor*n*(a+
		(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*ep2)*a5/120)

	y = utmScaleFactor * (m + n*tanPhi*(a2/2+
		(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*ep2)*a6/720))
	if p.South {
		y += utmFalseNorthing
	}
	return x, y
}

// Inverse projects easting/northing (meters) back to lon/lat (degrees).
func (p Projection) Inverse(x, y float64) (lon, lat float64) {
	e2 := flattening * (2 - flattening)
	ep2 := e2 / (1 - e2)

	northing := y
	if p.South {
		northing -= utmFalseNorthing
	}

	m := northing / utmScaleFactor
	mu := m / (semiMajorAxis * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := semiMajorAxis / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := semiMajorAxis * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := (x - utmFalseEasting) / (n1 * utmScaleFactor)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	phi := phi1 - (n1*tanPhi1/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)

	lam := p.lon0 + (d-
		(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120)/cosPhi1

	return rad2deg(lam), rad2deg(phi)
}

// meridionalArc returns the ellipsoidal arc length from the equator to
// latitude phi (radians).
func meridionalArc(phi float64) float64 {
	e2 := flattening * (2 - flattening)
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajorAxis * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// HaversineKm returns the great-circle distance between two positions in
// kilometers. Used to sanity-check projected offsets.
func HaversineKm(lon1, lat1, lon2, lat2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)
	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(s))
}
