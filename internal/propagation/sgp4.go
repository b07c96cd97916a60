// Package propagation evaluates a satellite's position from its two-line
// elements. It is the only package that talks to the SGP4 library.
package propagation

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/star/trackgen/internal/cache"
	"github.com/star/trackgen/internal/tle"
	"github.com/star/trackgen/internal/transform"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Propagate() takes the calendar time in whole seconds and the Satellite by
// value, so SGP4 error codes are not visible to the caller. Failures are
// detected from NaN/Inf output and unreasonable position magnitudes, and
// sub-second instants are interpolated (see PropagateTEME).

// Gravity selects the geopotential constants used by SGP4.
type Gravity string

const (
	GravityWGS72 Gravity = "wgs72"
	GravityWGS84 Gravity = "wgs84"
)

// ParseGravity maps a configuration value to a gravity model. Empty selects WGS-84.
func ParseGravity(s string) (Gravity, error) {
	switch Gravity(strings.ToLower(strings.TrimSpace(s))) {
	case "", GravityWGS84:
		return GravityWGS84, nil
	case GravityWGS72:
		return GravityWGS72, nil
	default:
		return "", fmt.Errorf("unknown gravity model %q (want wgs72 or wgs84)", s)
	}
}

func (g Gravity) constants() satellite.Gravity {
	if g == GravityWGS72 {
		return satellite.GravityWGS72
	}
	return satellite.GravityWGS84
}

// SGP4Propagator wraps the go-satellite library for a single satellite.
// Whole-second states are memoized in a StateCache; it is safe for
// concurrent use.
type SGP4Propagator struct {
	sat    satellite.Satellite
	entry  tle.TLEEntry
	states *cache.StateCache
}

// NewSGP4Propagator creates an SGP4 propagator from a TLE entry.
// Returns a *Error wrapping ErrInvalidTLE if the lines fail validation or the
// SGP4 model fails to initialize.
//
// Lines are validated before they reach the library, because go-satellite
// calls log.Fatal on malformed input (which would kill the process).
func NewSGP4Propagator(entry tle.TLEEntry, gravity Gravity) (*SGP4Propagator, error) {
	if err := tle.ValidateLines(entry.Line1, entry.Line2); err != nil {
		return nil, &Error{NORADID: entry.NORADID, Err: fmt.Errorf("%w: %v", ErrInvalidTLE, err)}
	}

	sat := satellite.TLEToSat(strings.TrimSpace(entry.Line1), strings.TrimSpace(entry.Line2), gravity.constants())
	if sat.Error != 0 {
		return nil, &Error{
			NORADID: entry.NORADID,
			Err:     fmt.Errorf("%w: sgp4 init code=%d %s", ErrInvalidTLE, sat.Error, sat.ErrorStr),
		}
	}
	return &SGP4Propagator{sat: sat, entry: entry, states: cache.NewStateCache(cache.DefaultWindow)}, nil
}

// CacheStats reports the whole-second state cache counters.
func (p *SGP4Propagator) CacheStats() cache.Stats {
	return p.states.Stats()
}

// PropagateTEME computes the satellite state at t in the TEME frame (km, km/s).
//
// The library only accepts whole seconds. Sub-second instants are evaluated by
// cubic Hermite interpolation between the enclosing whole seconds using both
// positions and velocities; over one second the interpolation error is far
// below a meter for any Earth orbit.
func (p *SGP4Propagator) PropagateTEME(t time.Time) (transform.PositionTEME, error) {
	t = t.UTC()
	whole := t.Truncate(time.Second)

	s0, err := p.states.GetOrCompute(whole, p.propagateWhole)
	if err != nil {
		return transform.PositionTEME{}, err
	}
	frac := t.Sub(whole).Seconds()
	if frac == 0 {
		return s0, nil
	}

	s1, err := p.states.GetOrCompute(whole.Add(time.Second), p.propagateWhole)
	if err != nil {
		return transform.PositionTEME{}, err
	}
	return hermite(s0, s1, frac), nil
}

// PositionAt returns the satellite state at t in the ECEF frame (m, m/s).
func (p *SGP4Propagator) PositionAt(t time.Time) (transform.PositionECEF, error) {
	teme, err := p.PropagateTEME(t)
	if err != nil {
		return transform.PositionECEF{}, err
	}
	return transform.TEMEToECEF(teme, t), nil
}

func (p *SGP4Propagator) propagateWhole(t time.Time) (transform.PositionTEME, error) {
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.PositionTEME{}, &Error{
			NORADID: p.entry.NORADID, Time: t,
			Err: fmt.Errorf("%w: output is NaN/Inf", ErrDiverged),
		}
	}

	// Position magnitude should be between ~6200km and ~50000km.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.PositionTEME{}, &Error{
			NORADID: p.entry.NORADID, Time: t,
			Err: fmt.Errorf("%w: unreasonable position magnitude %.1f km", ErrDiverged, mag),
		}
	}

	return transform.PositionTEME{
		X: pos.X, Y: pos.Y, Z: pos.Z,
		VX: vel.X, VY: vel.Y, VZ: vel.Z,
	}, nil
}

// hermite interpolates between two states one second apart at fraction f in [0, 1).
func hermite(a, b transform.PositionTEME, f float64) transform.PositionTEME {
	f2 := f * f
	f3 := f2 * f

	h00 := 2*f3 - 3*f2 + 1
	h10 := f3 - 2*f2 + f
	h01 := -2*f3 + 3*f2
	h11 := f3 - f2

	// Derivatives of the basis functions (per second).
	d00 := 6*f2 - 6*f
	d10 := 3*f2 - 4*f + 1
	d01 := -6*f2 + 6*f
	d11 := 3*f2 - 2*f

	pos := func(p0, v0, p1, v1 float64) float64 { return h00*p0 + h10*v0 + h01*p1 + h11*v1 }
	vel := func(p0, v0, p1, v1 float64) float64 { return d00*p0 + d10*v0 + d01*p1 + d11*v1 }

	return transform.PositionTEME{
		X:  pos(a.X, a.VX, b.X, b.VX),
		Y:  pos(a.Y, a.VY, b.Y, b.VY),
		Z:  pos(a.Z, a.VZ, b.Z, b.VZ),
		VX: vel(a.X, a.VX, b.X, b.VX),
		VY: vel(a.Y, a.VY, b.Y, b.VY),
		VZ: vel(a.Z, a.VZ, b.Z, b.VZ),
	}
}
