// Package config loads and validates the parameters of a tracking run.
//
// Values come from a KEY=VALUE property file or a sectioned YAML file, then
// TRACKGEN_<KEY> environment variables override them. Every problem is
// reported as a *Error naming the offending key, before any sample is
// computed.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/star/trackgen/internal/atmosphere"
	"github.com/star/trackgen/internal/output"
	"github.com/star/trackgen/internal/propagation"
	"github.com/star/trackgen/internal/tilt"
	"github.com/star/trackgen/internal/tle"
	"github.com/star/trackgen/internal/tracking"
	"github.com/star/trackgen/internal/transform"
)

// Config is a validated tracking run.
type Config struct {
	TLE    tle.Source
	Site   transform.Site
	Window tracking.Window

	Refraction           bool
	PressureModel        atmosphere.Model
	SeaLevelPressureMbar float64
	TemperatureC         float64
	Tilt                 tilt.Mount

	Decimals     int
	OutputFile   string
	OutputHeader bool
	VisibleOnly  bool

	Gravity propagation.Gravity
	Workers int // 1 runs sequentially, 0 uses one worker per CPU
}

// Atmosphere derives the site's atmospheric state.
func (c Config) Atmosphere() atmosphere.State {
	return atmosphere.Derive(c.PressureModel, c.SeaLevelPressureMbar, c.Site.AltM, c.TemperatureC)
}

// TrackingOptions returns the pipeline options for this run.
func (c Config) TrackingOptions() tracking.Options {
	return tracking.Options{
		Site:        c.Site,
		Refraction:  c.Refraction,
		Atmosphere:  c.Atmosphere(),
		Tilt:        c.Tilt,
		VisibleOnly: c.VisibleOnly,
	}
}

// LogValue implements slog.LogValuer.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("tle_name", c.TLE.Name),
		slog.Float64("site_lat", c.Site.LatDeg),
		slog.Float64("site_lon", c.Site.LonDeg),
		slog.Float64("site_height_m", c.Site.AltM),
		slog.String("start", c.Window.Start.Format(time.RFC3339Nano)),
		slog.String("end", c.Window.End.Format(time.RFC3339Nano)),
		slog.Int64("step_ms", c.Window.Step.Milliseconds()),
		slog.Bool("refraction", c.Refraction),
		slog.String("pressure_model", c.PressureModel.Name()),
		slog.Float64("tilt_deg", c.Tilt.MagnitudeDeg),
		slog.Float64("tilt_azimuth_deg", c.Tilt.AxisAzimuthDeg),
		slog.String("output", c.OutputFile),
		slog.Int("workers", c.Workers),
	)
}

// Load reads the file at path, applies environment overrides and validates
// the result. Unknown keys are logged and ignored.
func Load(path string, logger *slog.Logger) (Config, error) {
	v, err := ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	v.ApplyEnv(os.LookupEnv)
	for _, k := range v.Unknown() {
		logger.Warn("ignoring unknown configuration key", "component", "config", "key", k)
	}
	return FromValues(v)
}

// FromValues parses and validates raw values.
func FromValues(v Values) (Config, error) {
	p := parser{v: v}

	cfg := Config{
		TLE: tle.Source{
			Name:     v.Get(KeyTLEName),
			Line1:    v.Get(KeyTLELine1),
			Line2:    v.Get(KeyTLELine2),
			File:     v.Get(KeyTLEFile),
			URL:      v.Get(KeyTLESourceURL),
			CacheDir: v.Get(KeyTLECacheDir),
		},
		Site: transform.Site{
			LatDeg: p.float(KeySiteLat, math.NaN(), true),
			LonDeg: p.float(KeySiteLon, math.NaN(), true),
			AltM:   p.float(KeySiteHeight, 0, false),
		},
		Window: tracking.Window{
			Start: p.time(KeyStartTime),
			End:   p.time(KeyEndTime),
			Step:  time.Duration(p.int(KeyStepMs, 0, true)) * time.Millisecond,
		},
		Refraction:           p.bool(KeyRefraction, false),
		SeaLevelPressureMbar: p.float(KeySeaLevelPressure, atmosphere.SeaLevelPressureMbar, false),
		TemperatureC:         p.float(KeyTemperature, atmosphere.DefaultTemperatureC, false),
		Tilt: tilt.Mount{
			MagnitudeDeg:   p.float(KeyTilt, 0, false),
			AxisAzimuthDeg: p.float(KeyTiltAzimuth, 0, false),
		},
		Decimals:     p.int(KeyDecimals, output.DefaultDecimals, false),
		OutputFile:   v.Get(KeyOutputFile),
		OutputHeader: p.bool(KeyOutputHeader, false),
		VisibleOnly:  p.bool(KeyVisibleOnly, false),
		Workers:      p.int(KeyWorkers, 1, false),
	}
	if p.err != nil {
		return Config{}, p.err
	}

	model, err := atmosphere.ParseModel(v.Get(KeyPressureModel))
	if err != nil {
		return Config{}, &Error{Key: KeyPressureModel, Err: fmt.Errorf("%w: %v", ErrInvalid, err)}
	}
	cfg.PressureModel = model

	gravity, err := propagation.ParseGravity(v.Get(KeyGravity))
	if err != nil {
		return Config{}, &Error{Key: KeyGravity, Err: fmt.Errorf("%w: %v", ErrInvalid, err)}
	}
	cfg.Gravity = gravity

	if cfg.OutputFile == "" {
		cfg.OutputFile = output.Stdout
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	switch {
	case c.TLE.Line1 != "" || c.TLE.Line2 != "":
		if c.TLE.Line1 == "" {
			return missing(KeyTLELine1)
		}
		if c.TLE.Line2 == "" {
			return missing(KeyTLELine2)
		}
	case c.TLE.File == "" && c.TLE.URL == "":
		return &Error{Key: KeyTLELine1, Err: fmt.Errorf("%w: set %s/%s, %s or %s",
			ErrMissing, KeyTLELine1, KeyTLELine2, KeyTLEFile, KeyTLESourceURL)}
	}

	if c.Site.LatDeg < -90 || c.Site.LatDeg > 90 {
		return invalid(KeySiteLat, "%v outside [-90, 90]", c.Site.LatDeg)
	}
	if c.Site.LonDeg < -180 || c.Site.LonDeg > 360 {
		return invalid(KeySiteLon, "%v outside [-180, 360]", c.Site.LonDeg)
	}
	if c.Window.Step <= 0 {
		return invalid(KeyStepMs, "step must be at least 1 ms")
	}
	if c.Window.End.Before(c.Window.Start) {
		return invalid(KeyEndTime, "end %s is before start %s",
			c.Window.End.Format(time.RFC3339Nano), c.Window.Start.Format(time.RFC3339Nano))
	}
	if c.SeaLevelPressureMbar <= 0 {
		return invalid(KeySeaLevelPressure, "%v must be positive", c.SeaLevelPressureMbar)
	}
	if c.TemperatureC <= -273 {
		return invalid(KeyTemperature, "%v is below absolute zero", c.TemperatureC)
	}
	if math.Abs(c.Tilt.MagnitudeDeg) > 90 {
		return invalid(KeyTilt, "%v outside [-90, 90]", c.Tilt.MagnitudeDeg)
	}
	if c.Decimals < 0 || c.Decimals > output.MaxDecimals {
		return invalid(KeyDecimals, "%d outside [0, %d]", c.Decimals, output.MaxDecimals)
	}
	if c.Workers < 0 {
		return invalid(KeyWorkers, "%d must not be negative", c.Workers)
	}
	return nil
}

// timeLayouts are tried in order; all are interpreted as UTC. Fractional
// seconds are accepted by every layout.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseTime parses a configured instant.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q (want \"2006-01-02 15:04:05.000\" or RFC 3339)", s)
}

// parser accumulates the first error so FromValues can read linearly.
type parser struct {
	v   Values
	err error
}

func (p *parser) fail(err *Error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *parser) raw(key string, required bool) (string, bool) {
	s := p.v.Get(key)
	if s == "" {
		if required {
			p.fail(missing(key))
		}
		return "", false
	}
	return s, true
}

func (p *parser) float(key string, def float64, required bool) float64 {
	s, ok := p.raw(key, required)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(invalid(key, "%q is not a finite number", s))
		return def
	}
	return f
}

func (p *parser) int(key string, def int, required bool) int {
	s, ok := p.raw(key, required)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(invalid(key, "%q is not an integer", s))
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	s, ok := p.raw(key, false)
	if !ok {
		return def
	}
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on", "y", "t":
		return true
	case "0", "false", "no", "off", "n", "f":
		return false
	}
	p.fail(invalid(key, "%q is not a boolean", s))
	return def
}

func (p *parser) time(key string) time.Time {
	s, ok := p.raw(key, true)
	if !ok {
		return time.Time{}
	}
	t, err := ParseTime(s)
	if err != nil {
		p.fail(&Error{Key: key, Err: fmt.Errorf("%w: %v", ErrInvalid, err)})
	}
	return t
}
