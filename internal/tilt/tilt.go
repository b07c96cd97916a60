// Package tilt models a pointing mount whose vertical axis is tilted by a
// fixed angle about a horizontal axis.
//
// Directions are handled as unit vectors in a local East-North-Up frame and
// rotated with Rodrigues' formula.
package tilt

import (
	"math"

	"github.com/star/trackgen/internal/transform"
)

const deg2rad = math.Pi / 180.0

// Vec3 is a vector in the local East-North-Up frame.
type Vec3 struct {
	E, N, U float64
}

// Dot returns a·b.
func (a Vec3) Dot(b Vec3) float64 { return a.E*b.E + a.N*b.N + a.U*b.U }

// Cross returns a×b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		E: a.N*b.U - a.U*b.N,
		N: a.U*b.E - a.E*b.U,
		U: a.E*b.N - a.N*b.E,
	}
}

// Scale returns s·a.
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.E * s, a.N * s, a.U * s} }

// Add returns a+b.
func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.E + b.E, a.N + b.N, a.U + b.U} }

// Norm returns |a|.
func (a Vec3) Norm() float64 { return math.Sqrt(a.Dot(a)) }

// Direction returns the ENU unit vector for an azimuth/elevation in degrees.
func Direction(azDeg, elDeg float64) Vec3 {
	az := azDeg * deg2rad
	el := elDeg * deg2rad
	return Vec3{
		E: math.Cos(el) * math.Sin(az),
		N: math.Cos(el) * math.Cos(az),
		U: math.Sin(el),
	}
}

// Angles recovers azimuth in [0, 360) and elevation from an ENU unit vector.
func Angles(v Vec3) (azDeg, elDeg float64) {
	el := math.Asin(math.Max(-1, math.Min(1, v.U)))
	az := math.Atan2(v.E, v.N)
	return transform.NormalizeAzimuth(az / deg2rad), el / deg2rad
}

// Rotate rotates v about the unit axis k by theta radians (Rodrigues):
//
//	v' = v cosθ + (k×v) sinθ + k (k·v)(1 − cosθ)
func Rotate(v, k Vec3, theta float64) Vec3 {
	c := math.Cos(theta)
	s := math.Sin(theta)
	return v.Scale(c).
		Add(k.Cross(v).Scale(s)).
		Add(k.Scale(k.Dot(v) * (1 - c)))
}

// Mount describes a fixed misalignment: the mount is tilted by MagnitudeDeg
// about the horizontal axis pointing at AxisAzimuthDeg.
type Mount struct {
	MagnitudeDeg   float64
	AxisAzimuthDeg float64
}

// IsZero reports an untilted mount.
func (m Mount) IsZero() bool { return m.MagnitudeDeg == 0 }

// Axis is the horizontal ENU unit vector the mount is tilted about.
func (m Mount) Axis() Vec3 {
	a := m.AxisAzimuthDeg * deg2rad
	return Vec3{E: math.Sin(a), N: math.Cos(a)}
}

// Rotate applies the tilt to an ENU direction vector.
func (m Mount) Rotate(v Vec3) Vec3 {
	return Rotate(v, m.Axis(), m.MagnitudeDeg*deg2rad)
}

// Apply returns the azimuth/elevation the tilted mount must command to point
// at the true direction (azDeg, elDeg). An untilted mount returns the input with
// only the azimuth normalized.
func (m Mount) Apply(azDeg, elDeg float64) (float64, float64) {
	if m.IsZero() {
		return transform.NormalizeAzimuth(azDeg), elDeg
	}
	return Angles(m.Rotate(Direction(azDeg, elDeg)))
}
