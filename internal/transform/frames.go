// Package transform carries propagated satellite state into a ground site's
// horizon frame.
//
// SGP4 state arrives in TEME (km, km/s). It is turned into ECEF with a single
// rotation about Z by the IAU-82 Greenwich mean sidereal angle; polar motion
// and the equation of the equinoxes are ignored, which costs well under an
// arcsecond of pointing for LEO targets. Sites sit on the WGS-84 ellipsoid.
package transform

import (
	"math"
	"time"
)

const (
	jdJ2000     = 2451545.0
	jdUnixEpoch = 2440587.5
	daySeconds  = 86400.0
)

// OmegaEarth is Earth's rotation rate in rad/s.
const OmegaEarth = 7.292115146706979e-5

// PositionTEME is a TEME state in km and km/s.
type PositionTEME struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// PositionECEF is an Earth-fixed state in meters and m/s.
type PositionECEF struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// JulianDate returns the UTC Julian Date of t with leap seconds ignored.
// Sub-second parts are kept.
func JulianDate(t time.Time) float64 {
	ns := t.UnixNano()
	return jdUnixEpoch + float64(ns/1e9)/daySeconds + float64(ns%1e9)/1e9/daySeconds
}

// GMST returns Greenwich mean sidereal time in radians, [0, 2π).
// UT1 is taken as UTC.
func GMST(t time.Time) float64 {
	c := (JulianDate(t) - jdJ2000) / 36525.0

	sec := 67310.54841 + (876600*3600+8640184.812866)*c + 0.093104*c*c - 6.2e-6*c*c*c
	sec = math.Mod(sec, daySeconds)
	if sec < 0 {
		sec += daySeconds
	}
	return sec / daySeconds * 2 * math.Pi
}

// TEMEToECEF rotates a TEME state into ECEF at instant t.
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST rotates a TEME state by a known sidereal angle:
//
//	r' = R3(θ) r
//	v' = R3(θ) v - ω × r'
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	sin, cos := math.Sincos(gmst)
	rotX := func(x, y float64) float64 { return x*cos + y*sin }
	rotY := func(x, y float64) float64 { return y*cos - x*sin }

	x, y := rotX(teme.X, teme.Y), rotY(teme.X, teme.Y)
	vx := rotX(teme.VX, teme.VY) + OmegaEarth*y
	vy := rotY(teme.VX, teme.VY) - OmegaEarth*x

	const kmToM = 1000.0
	return PositionECEF{
		X: x * kmToM, Y: y * kmToM, Z: teme.Z * kmToM,
		VX: vx * kmToM, VY: vy * kmToM, VZ: teme.VZ * kmToM,
	}
}
