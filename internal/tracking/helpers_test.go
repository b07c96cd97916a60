package tracking

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/star/trackgen/internal/transform"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

var runStart = time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC)

// lookPropagator places the target at the given look angles from site, at a
// fixed range. The angles may depend on the instant.
type lookPropagator struct {
	site   transform.Site
	angles func(t time.Time) (azDeg, elDeg float64)
	failAt time.Time
}

var errBoom = errors.New("propagator exploded")

func (p lookPropagator) PositionAt(t time.Time) (transform.PositionECEF, error) {
	if !p.failAt.IsZero() && !t.Before(p.failAt) {
		return transform.PositionECEF{}, errBoom
	}
	az, el := p.angles(t)
	return lookToECEF(p.site, az, el, 1_000_000), nil
}

// lookToECEF returns the ECEF point at range rangeM along (az, el) from site.
func lookToECEF(site transform.Site, azDeg, elDeg, rangeM float64) transform.PositionECEF {
	obs := transform.NewObserverPosition(site)
	sinLat, cosLat := math.Sincos(site.LatDeg * math.Pi / 180)
	sinLon, cosLon := math.Sincos(site.LonDeg * math.Pi / 180)

	az := azDeg * math.Pi / 180
	el := elDeg * math.Pi / 180
	e := rangeM * math.Cos(el) * math.Sin(az)
	n := rangeM * math.Cos(el) * math.Cos(az)
	u := rangeM * math.Sin(el)

	return transform.PositionECEF{
		X: obs.ECEF.X - sinLon*e - sinLat*cosLon*n + cosLat*cosLon*u,
		Y: obs.ECEF.Y + cosLon*e - sinLat*sinLon*n + cosLat*sinLon*u,
		Z: obs.ECEF.Z + cosLat*n + sinLat*u,
	}
}

// fixed returns a look-angle function that ignores time.
func fixed(az, el float64) func(time.Time) (float64, float64) {
	return func(time.Time) (float64, float64) { return az, el }
}

// sweeping returns a look-angle function that changes every millisecond.
func sweeping(t time.Time) (float64, float64) {
	sec := t.Sub(runStart).Seconds()
	return math.Mod(37*sec, 360), 80 * math.Sin(sec/50)
}

// collector is a Sink that records everything it is given.
type collector struct {
	mu      sync.Mutex
	samples []Sample
	failAt  int // fail on the n-th emit (1-based); 0 never fails
}

var errSinkFull = errors.New("sink full")

func (c *collector) Emit(s Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt > 0 && len(c.samples)+1 == c.failAt {
		return errSinkFull
	}
	c.samples = append(c.samples, s)
	return nil
}
