// Package output renders pointing samples as text records and writes them to
// a destination.
//
// A record is "HH:MM:SS.mmm,AAA.ddd,EE.ddd": UTC time of day with
// milliseconds, azimuth zero-padded to three integer digits and elevation
// zero-padded to two, both with a configurable number of decimals.
package output

import (
	"math"
	"strconv"
	"time"

	"github.com/star/trackgen/internal/tracking"
)

// DefaultDecimals is the number of decimals used when none is configured.
const DefaultDecimals = 3

// MaxDecimals bounds the configurable precision.
const MaxDecimals = 9

// Header is the optional first line of a track file.
var Header = []string{"HH:MM:SS.mmm", "Azimuth", "Elevation"}

// Formatter renders samples at a fixed precision.
type Formatter struct {
	Decimals int
}

// NewFormatter returns a formatter with decimals clamped to [0, MaxDecimals].
func NewFormatter(decimals int) Formatter {
	return Formatter{Decimals: min(max(decimals, 0), MaxDecimals)}
}

// Fields returns the three record fields for s.
func (f Formatter) Fields(s tracking.Sample) []string {
	return []string{
		FormatTime(s.Time),
		f.Azimuth(s.AzimuthDeg),
		f.Elevation(s.ElevationDeg),
	}
}

// Record returns the comma-separated record for s.
func (f Formatter) Record(s tracking.Sample) string {
	fields := f.Fields(s)
	return fields[0] + "," + fields[1] + "," + fields[2]
}

// FormatTime renders the UTC time of day with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format("15:04:05.000")
}

// Azimuth renders an azimuth with three integer digits. A value that would
// round up to 360 is written as 0.
func (f Formatter) Azimuth(deg float64) string {
	r := f.round(deg)
	if r >= 360 {
		r = 0
	}
	return f.pad(r, 3)
}

// Elevation renders an elevation with two integer digits and a leading '-'
// when negative.
func (f Formatter) Elevation(deg float64) string {
	return f.pad(f.round(deg), 2)
}

func (f Formatter) round(v float64) float64 {
	scale := math.Pow(10, float64(f.Decimals))
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0 // drop the sign of -0
	}
	return r
}

// pad formats v with the formatter's decimals and left-pads the integer part
// with zeros to intDigits, after any sign.
func (f Formatter) pad(v float64, intDigits int) string {
	neg := v < 0
	s := strconv.FormatFloat(math.Abs(v), 'f', f.Decimals, 64)

	intLen := len(s)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			intLen = i
			break
		}
	}

	buf := make([]byte, 0, len(s)+intDigits+1)
	if neg {
		buf = append(buf, '-')
	}
	for i := intLen; i < intDigits; i++ {
		buf = append(buf, '0')
	}
	buf = append(buf, s...)
	return string(buf)
}
