// Package atmosphere estimates the local pressure and temperature at a site.
//
// Two pressure models are available and exactly one is chosen per run:
// an isothermal exponential atmosphere with an 8.5 km scale height, and the
// ICAO standard-atmosphere barometric formula. Temperature is a fixed input
// (15 °C by default) and is not derived from altitude.
package atmosphere

import (
	"fmt"
	"math"
	"strings"
)

const (
	// SeaLevelPressureMbar is the standard reference pressure at sea level.
	SeaLevelPressureMbar = 1013.25
	// DefaultTemperatureC is used when no site temperature is configured.
	DefaultTemperatureC = 15.0
	// DefaultScaleHeightKm is the scale height of the exponential model.
	DefaultScaleHeightKm = 8.5
)

// Standard atmosphere constants for the barometric formula.
const (
	stdT0     = 288.15    // sea-level temperature, K
	stdLapse  = 0.0065    // temperature lapse rate, K/m
	stdG      = 9.80665   // gravitational acceleration, m/s²
	stdMolarM = 0.0289644 // molar mass of dry air, kg/mol
	stdGasR   = 8.3144598 // universal gas constant, J/(mol·K)
)

// Model estimates pressure at an altitude from a sea-level reference pressure.
type Model interface {
	// PressureMbar returns the pressure in millibar at altM meters.
	PressureMbar(p0Mbar, altM float64) float64
	// Name identifies the model in configuration and logs.
	Name() string
}

// Exponential is an isothermal atmosphere: p = p0 * exp(-h/H).
type Exponential struct {
	ScaleHeightKm float64
}

// PressureMbar implements Model.
func (e Exponential) PressureMbar(p0Mbar, altM float64) float64 {
	h := e.ScaleHeightKm
	if h == 0 {
		h = DefaultScaleHeightKm
	}
	return p0Mbar * math.Exp(-(altM/1000.0)/h)
}

// Name implements Model.
func (Exponential) Name() string { return "exponential" }

// Barometric is the standard-atmosphere barometric formula for the troposphere:
// p = p0 * (1 - L*h/T0)^(g*M/(R*L)).
type Barometric struct{}

// PressureMbar implements Model.
func (Barometric) PressureMbar(p0Mbar, altM float64) float64 {
	exp := (stdG * stdMolarM) / (stdGasR * stdLapse)
	return p0Mbar * math.Pow(1.0-(stdLapse*altM)/stdT0, exp)
}

// Name implements Model.
func (Barometric) Name() string { return "barometric" }

// ParseModel returns the model registered under name. An empty name selects
// the barometric formula.
func ParseModel(name string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "barometric":
		return Barometric{}, nil
	case "exponential", "scale-height":
		return Exponential{ScaleHeightKm: DefaultScaleHeightKm}, nil
	default:
		return nil, fmt.Errorf("unknown pressure model %q (want exponential or barometric)", name)
	}
}

// State is the atmospheric state at the site, fixed for a run.
type State struct {
	PressureMbar float64
	TemperatureC float64
}

// Derive computes the site state once from the model, the sea-level reference
// pressure, the site altitude and the configured temperature.
func Derive(m Model, p0Mbar, altM, temperatureC float64) State {
	return State{
		PressureMbar: m.PressureMbar(p0Mbar, altM),
		TemperatureC: temperatureC,
	}
}
