// Package refraction corrects geometric elevation for atmospheric refraction
// using Bennett's empirical formula with a pressure/temperature scale factor.
package refraction

import (
	"math"

	"github.com/star/trackgen/internal/atmosphere"
)

// GuardDeg is the elevation at or below which no correction is applied.
// The inner tangent diverges at -5.11°, so the guard must be checked first.
const GuardDeg = -1.0

// Bennett returns the apparent elevation (degrees) for a geometric elevation,
// temperature (°C) and pressure (mbar).
func Bennett(elevationDeg, temperatureC, pressureMbar float64) float64 {
	if elevationDeg <= GuardDeg {
		return elevationDeg
	}
	return elevationDeg + OffsetArcmin(elevationDeg, temperatureC, pressureMbar)/60.0
}

// OffsetArcmin is the refraction offset in arcminutes. Callers must only pass
// elevations above GuardDeg.
func OffsetArcmin(elevationDeg, temperatureC, pressureMbar float64) float64 {
	elRad := elevationDeg * math.Pi / 180.0
	inner := elRad + (10.3/(elevationDeg+5.11))*math.Pi/180.0
	scale := (pressureMbar / 1010.0) * (283.0 / (273.0 + temperatureC))
	return scale * (1.02 / math.Tan(inner))
}

// Corrector applies Bennett refraction for a fixed atmospheric state.
type Corrector struct {
	state atmosphere.State
}

// NewCorrector binds a corrector to the site atmosphere.
func NewCorrector(state atmosphere.State) Corrector {
	return Corrector{state: state}
}

// Apply returns the refracted elevation.
func (c Corrector) Apply(elevationDeg float64) float64 {
	return Bennett(elevationDeg, c.state.TemperatureC, c.state.PressureMbar)
}

// State returns the atmospheric state the corrector was built with.
func (c Corrector) State() atmosphere.State {
	return c.state
}
