package transform

import "math"

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

const (
	degPerRad = 180.0 / math.Pi
	radPerDeg = math.Pi / 180.0
)

// Site is a fixed ground station in geodetic coordinates.
type Site struct {
	LatDeg float64 // geodetic latitude, degrees north
	LonDeg float64 // longitude, degrees east
	AltM   float64 // meters above the WGS-84 ellipsoid
}

// ObserverPosition is a site resolved once into ECEF together with its local
// east/north/up basis, so projecting a sample costs three dot products.
type ObserverPosition struct {
	Site
	ECEF PositionECEF // velocity fields are zero

	east, north, up [3]float64
}

// LookAngles holds azimuth, elevation, and range from observer to target.
type LookAngles struct {
	AzimuthDeg   float64 // 0 = North, clockwise, [0, 360)
	ElevationDeg float64 // 0 = horizon, 90 = zenith
	RangeKm      float64
}

// NewObserverPosition resolves a site on the WGS-84 ellipsoid.
func NewObserverPosition(site Site) ObserverPosition {
	sinLat, cosLat := math.Sincos(site.LatDeg * radPerDeg)
	sinLon, cosLon := math.Sincos(site.LonDeg * radPerDeg)

	// prime vertical radius of curvature
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return ObserverPosition{
		Site: site,
		ECEF: PositionECEF{
			X: (n + site.AltM) * cosLat * cosLon,
			Y: (n + site.AltM) * cosLat * sinLon,
			Z: (n*(1-wgs84E2) + site.AltM) * sinLat,
		},
		east:  [3]float64{-sinLon, cosLon, 0},
		north: [3]float64{-sinLat * cosLon, -sinLat * sinLon, cosLat},
		up:    [3]float64{cosLat * cosLon, cosLat * sinLon, sinLat},
	}
}

// Project returns the geometric look angles from the observer to an ECEF
// position in meters.
func (obs ObserverPosition) Project(pos PositionECEF) LookAngles {
	d := [3]float64{pos.X - obs.ECEF.X, pos.Y - obs.ECEF.Y, pos.Z - obs.ECEF.Z}

	e := dot(obs.east, d)
	n := dot(obs.north, d)
	u := dot(obs.up, d)
	horiz := math.Hypot(e, n)

	la := LookAngles{
		AzimuthDeg: NormalizeAzimuth(math.Atan2(e, n) * degPerRad),
		RangeKm:    math.Hypot(horiz, u) / 1000.0,
	}
	switch {
	case horiz == 0 && u >= 0:
		la.ElevationDeg = 90
	case horiz == 0:
		la.ElevationDeg = -90
	default:
		la.ElevationDeg = math.Atan2(u, horiz) * degPerRad
	}
	return la
}

// NormalizeAzimuth maps an azimuth in degrees into [0, 360).
func NormalizeAzimuth(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	// -1e-15 + 360 rounds to 360
	if deg >= 360.0 {
		deg = 0
	}
	return deg
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
