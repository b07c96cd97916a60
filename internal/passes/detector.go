// Package passes finds visibility windows in a generated pointing series.
package passes

import (
	"time"

	"github.com/star/trackgen/internal/tracking"
)

// PassEvent describes a single pass of the target over the site.
type PassEvent struct {
	StartTime        time.Time `json:"start_time"`
	MaxElevationTime time.Time `json:"max_elevation_time"`
	EndTime          time.Time `json:"end_time"`
	DurationSeconds  float64   `json:"duration_seconds"`
	MaxElevation     float64   `json:"max_elevation"`
	AzimuthAtMax     float64   `json:"azimuth_at_max"`
	StartAzimuth     float64   `json:"start_azimuth"`
	EndAzimuth       float64   `json:"end_azimuth"`
	// RiseObserved is false when the series began with the target already up.
	RiseObserved bool `json:"rise_observed"`
	// SetObserved is false when the series ended with the target still up.
	SetObserved bool `json:"set_observed"`
}

// Detector accumulates passes from samples delivered in chronological
// order, for example as a tracking.Pipeline observer. A pass starts at the
// first sample at or above the minimum elevation and ends at the first
// sample below it. Detector is not safe for concurrent use.
type Detector struct {
	minElevation float64
	open         *PassEvent
	passes       []PassEvent
	last         tracking.Sample
	seen         bool
}

// NewDetector creates a detector with the given minimum elevation in degrees.
func NewDetector(minElevation float64) *Detector {
	return &Detector{minElevation: minElevation}
}

// Observe feeds the next sample.
func (d *Detector) Observe(s tracking.Sample) {
	above := s.ElevationDeg >= d.minElevation

	switch {
	case above && d.open == nil:
		d.open = &PassEvent{
			StartTime:        s.Time,
			StartAzimuth:     s.AzimuthDeg,
			MaxElevation:     s.ElevationDeg,
			MaxElevationTime: s.Time,
			AzimuthAtMax:     s.AzimuthDeg,
			RiseObserved:     d.seen,
		}
	case above:
		if s.ElevationDeg > d.open.MaxElevation {
			d.open.MaxElevation = s.ElevationDeg
			d.open.MaxElevationTime = s.Time
			d.open.AzimuthAtMax = s.AzimuthDeg
		}
	case d.open != nil:
		d.passes = append(d.passes, finish(*d.open, s, true))
		d.open = nil
	}

	d.last = s
	d.seen = true
}

// Passes returns the passes found so far. A pass still in progress is
// reported as ending at the last sample.
func (d *Detector) Passes() []PassEvent {
	out := make([]PassEvent, len(d.passes), len(d.passes)+1)
	copy(out, d.passes)
	if d.open != nil {
		out = append(out, finish(*d.open, d.last, false))
	}
	return out
}

func finish(p PassEvent, end tracking.Sample, setObserved bool) PassEvent {
	p.EndTime = end.Time
	p.EndAzimuth = end.AzimuthDeg
	p.DurationSeconds = end.Time.Sub(p.StartTime).Seconds()
	p.SetObserved = setObserved
	return p
}
