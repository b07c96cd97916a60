package tracking

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/star/trackgen/internal/atmosphere"
	"github.com/star/trackgen/internal/refraction"
	"github.com/star/trackgen/internal/tilt"
	"github.com/star/trackgen/internal/transform"
)

var equatorSite = transform.Site{}

var standardAtmosphere = atmosphere.State{
	PressureMbar: atmosphere.SeaLevelPressureMbar,
	TemperatureC: atmosphere.DefaultTemperatureC,
}

func TestSampleOverheadIsExactlyZenith(t *testing.T) {
	obs := transform.NewObserverPosition(equatorSite)
	prop := propagatorFunc(func(time.Time) (transform.PositionECEF, error) {
		return transform.PositionECEF{X: obs.ECEF.X + 400_000, Y: obs.ECEF.Y, Z: obs.ECEF.Z}, nil
	})

	p := New(prop, Options{Site: equatorSite, Tilt: tilt.Mount{AxisAzimuthDeg: 123}}, testLogger)
	s, err := p.Sample(runStart)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if s.ElevationDeg != 90.0 {
		t.Errorf("elevation = %.15f, want exactly 90", s.ElevationDeg)
	}
	if s.AzimuthDeg < 0 || s.AzimuthDeg >= 360 {
		t.Errorf("azimuth = %v, want within [0, 360)", s.AzimuthDeg)
	}
}

func TestSampleRefractionRaisesElevation(t *testing.T) {
	prop := lookPropagator{site: equatorSite, angles: fixed(45, 10)}

	plain := New(prop, Options{Site: equatorSite}, testLogger)
	refracted := New(prop, Options{Site: equatorSite, Refraction: true, Atmosphere: standardAtmosphere}, testLogger)

	raw, err := plain.Sample(runStart)
	if err != nil {
		t.Fatal(err)
	}
	got, err := refracted.Sample(runStart)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(raw.ElevationDeg-10) > 1e-6 {
		t.Fatalf("raw elevation = %v, want 10", raw.ElevationDeg)
	}
	if got.ElevationDeg <= raw.ElevationDeg {
		t.Errorf("refracted elevation %v not above raw %v", got.ElevationDeg, raw.ElevationDeg)
	}
	want := refraction.Bennett(raw.ElevationDeg, 15, 1013.25)
	if got.ElevationDeg != want {
		t.Errorf("refracted elevation = %v, want %v", got.ElevationDeg, want)
	}
	if math.Abs(got.ElevationDeg-10.0888) > 0.001 {
		t.Errorf("refracted elevation = %.4f, want ~10.0888", got.ElevationDeg)
	}
	if got.AzimuthDeg != raw.AzimuthDeg {
		t.Errorf("refraction changed azimuth: %v vs %v", got.AzimuthDeg, raw.AzimuthDeg)
	}
	if got.Geometric != raw.Geometric {
		t.Errorf("geometric angles differ: %+v vs %+v", got.Geometric, raw.Geometric)
	}
}

func TestSampleRefractionGuard(t *testing.T) {
	prop := lookPropagator{site: equatorSite, angles: fixed(200, -3)}
	p := New(prop, Options{Site: equatorSite, Refraction: true, Atmosphere: standardAtmosphere}, testLogger)

	s, err := p.Sample(runStart)
	if err != nil {
		t.Fatal(err)
	}
	if s.ElevationDeg != s.Geometric.ElevationDeg {
		t.Errorf("elevation below guard was corrected: %v -> %v", s.Geometric.ElevationDeg, s.ElevationDeg)
	}
}

func TestSampleZeroTiltIsIdentity(t *testing.T) {
	site := transform.Site{LatDeg: 52.1, LonDeg: -4.3, AltM: 120}
	for _, axis := range []float64{0, 45, 271.5} {
		prop := lookPropagator{site: site, angles: sweeping}
		p := New(prop, Options{Site: site, Tilt: tilt.Mount{AxisAzimuthDeg: axis}}, testLogger)

		for i := 0; i < 50; i++ {
			s, err := p.Sample(runStart.Add(time.Duration(i) * 7 * time.Second))
			if err != nil {
				t.Fatal(err)
			}
			if s.AzimuthDeg != s.Geometric.AzimuthDeg || s.ElevationDeg != s.Geometric.ElevationDeg {
				t.Fatalf("axis %v: zero tilt changed (%v, %v) to (%v, %v)", axis,
					s.Geometric.AzimuthDeg, s.Geometric.ElevationDeg, s.AzimuthDeg, s.ElevationDeg)
			}
		}
	}
}

func TestSampleTiltApplied(t *testing.T) {
	mount := tilt.Mount{MagnitudeDeg: 2.5, AxisAzimuthDeg: 30}
	prop := lookPropagator{site: equatorSite, angles: fixed(120, 35)}
	p := New(prop, Options{Site: equatorSite, Tilt: mount}, testLogger)

	s, err := p.Sample(runStart)
	if err != nil {
		t.Fatal(err)
	}
	wantAz, wantEl := mount.Apply(s.Geometric.AzimuthDeg, s.Geometric.ElevationDeg)
	if s.AzimuthDeg != wantAz || s.ElevationDeg != wantEl {
		t.Errorf("got (%v, %v), want (%v, %v)", s.AzimuthDeg, s.ElevationDeg, wantAz, wantEl)
	}
	if math.Abs(s.ElevationDeg-35) < 0.1 && math.Abs(s.AzimuthDeg-120) < 0.1 {
		t.Error("tilt had no visible effect")
	}
}

func TestRunEmitsChronologicalFixedStep(t *testing.T) {
	prop := lookPropagator{site: equatorSite, angles: sweeping}
	p := New(prop, Options{Site: equatorSite, Refraction: true, Atmosphere: standardAtmosphere}, testLogger)

	w := Window{Start: runStart, End: runStart.Add(2 * time.Second), Step: 250 * time.Millisecond}
	var sink collector
	st, err := p.Run(context.Background(), w, &sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Computed != 9 || st.Emitted != 9 || len(sink.samples) != 9 {
		t.Fatalf("stats %+v, sink %d, want 9 samples", st, len(sink.samples))
	}
	for i, s := range sink.samples {
		if s.Index != i {
			t.Errorf("sample %d has index %d", i, s.Index)
		}
		if want := runStart.Add(time.Duration(i) * w.Step); !s.Time.Equal(want) {
			t.Errorf("sample %d time = %v, want %v", i, s.Time, want)
		}
		if s.AzimuthDeg < 0 || s.AzimuthDeg >= 360 {
			t.Errorf("sample %d azimuth %v outside [0, 360)", i, s.AzimuthDeg)
		}
	}
}

func TestRunIsStateless(t *testing.T) {
	prop := lookPropagator{site: equatorSite, angles: sweeping}
	p := New(prop, Options{Site: equatorSite, Refraction: true, Atmosphere: standardAtmosphere,
		Tilt: tilt.Mount{MagnitudeDeg: 1, AxisAzimuthDeg: 90}}, testLogger)

	var sink collector
	w := Window{Start: runStart, End: runStart.Add(time.Minute), Step: 3 * time.Second}
	if _, err := p.Run(context.Background(), w, &sink); err != nil {
		t.Fatal(err)
	}

	// Any single instant evaluated alone matches the in-run sample.
	for _, s := range sink.samples {
		alone, err := p.Sample(s.Time)
		if err != nil {
			t.Fatal(err)
		}
		if alone.AzimuthDeg != s.AzimuthDeg || alone.ElevationDeg != s.ElevationDeg {
			t.Errorf("instant %v: alone (%v, %v), in run (%v, %v)", s.Time,
				alone.AzimuthDeg, alone.ElevationDeg, s.AzimuthDeg, s.ElevationDeg)
		}
	}
}

func TestRunPropagationErrorAborts(t *testing.T) {
	failAt := runStart.Add(3 * time.Second)
	prop := lookPropagator{site: equatorSite, angles: sweeping, failAt: failAt}
	p := New(prop, Options{Site: equatorSite}, testLogger)

	var sink collector
	st, err := p.Run(context.Background(), Window{Start: runStart, End: runStart.Add(10 * time.Second), Step: time.Second}, &sink)
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	if len(sink.samples) != 3 || st.Computed != 3 {
		t.Errorf("emitted %d, computed %d before failure, want 3", len(sink.samples), st.Computed)
	}
}

func TestRunSinkErrorAborts(t *testing.T) {
	prop := lookPropagator{site: equatorSite, angles: sweeping}
	p := New(prop, Options{Site: equatorSite}, testLogger)

	sink := collector{failAt: 4}
	st, err := p.Run(context.Background(), Window{Start: runStart, End: runStart.Add(10 * time.Second), Step: time.Second}, &sink)
	if !errors.Is(err, errSinkFull) {
		t.Fatalf("err = %v, want errSinkFull", err)
	}
	if st.Emitted != 3 || st.Computed != 4 {
		t.Errorf("stats = %+v, want 4 computed, 3 emitted", st)
	}
}

func TestRunRejectsInvalidWindow(t *testing.T) {
	p := New(lookPropagator{site: equatorSite, angles: sweeping}, Options{}, testLogger)
	_, err := p.Run(context.Background(), Window{Start: runStart, End: runStart, Step: 0}, &collector{})
	if !errors.Is(err, ErrNonPositiveStep) {
		t.Errorf("err = %v, want ErrNonPositiveStep", err)
	}
}

func TestRunCancelled(t *testing.T) {
	p := New(lookPropagator{site: equatorSite, angles: sweeping}, Options{}, testLogger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sink collector
	_, err := p.Run(ctx, Window{Start: runStart, End: runStart.Add(time.Hour), Step: time.Second}, &sink)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(sink.samples) != 0 {
		t.Errorf("emitted %d samples after cancellation", len(sink.samples))
	}
}

func TestVisibleOnlyAndObservers(t *testing.T) {
	// Elevation follows 80*sin(sec/50): positive for the first ~157 s, then negative.
	prop := lookPropagator{site: equatorSite, angles: sweeping}
	p := New(prop, Options{Site: equatorSite, VisibleOnly: true}, testLogger)

	var observed []Sample
	p.Observe(func(s Sample) { observed = append(observed, s) })

	var sink collector
	w := Window{Start: runStart, End: runStart.Add(300 * time.Second), Step: 10 * time.Second}
	st, err := p.Run(context.Background(), w, &sink)
	if err != nil {
		t.Fatal(err)
	}

	if len(observed) != w.Count() {
		t.Errorf("observer saw %d samples, want %d", len(observed), w.Count())
	}
	if st.Emitted >= st.Computed || st.Emitted == 0 {
		t.Fatalf("stats = %+v, want some but not all samples emitted", st)
	}
	for _, s := range sink.samples {
		if s.ElevationDeg < 0 {
			t.Errorf("sample at %v with elevation %v passed the filter", s.Time, s.ElevationDeg)
		}
	}
}

func TestRunParallelMatchesRun(t *testing.T) {
	site := transform.Site{LatDeg: -33.9, LonDeg: 18.4, AltM: 40}
	opts := Options{
		Site:       site,
		Refraction: true,
		Atmosphere: atmosphere.Derive(atmosphere.Barometric{}, 1010, site.AltM, 12),
		Tilt:       tilt.Mount{MagnitudeDeg: 0.7, AxisAzimuthDeg: 212},
	}
	prop := lookPropagator{site: site, angles: sweeping}
	w := Window{Start: runStart, End: runStart.Add(20 * time.Second), Step: 7 * time.Millisecond}

	var seq collector
	if _, err := New(prop, opts, testLogger).Run(context.Background(), w, &seq); err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{1, 3, 8} {
		var par collector
		st, err := New(prop, opts, testLogger).RunParallel(context.Background(), w, workers, &par)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if st.Computed != len(seq.samples) || len(par.samples) != len(seq.samples) {
			t.Fatalf("workers=%d: %d samples, want %d", workers, len(par.samples), len(seq.samples))
		}
		for i := range seq.samples {
			if par.samples[i] != seq.samples[i] {
				t.Fatalf("workers=%d: sample %d differs: %+v vs %+v", workers, i, par.samples[i], seq.samples[i])
			}
		}
	}
}

func TestRunParallelPropagationErrorAborts(t *testing.T) {
	failAt := runStart.Add(5 * time.Second)
	prop := lookPropagator{site: equatorSite, angles: sweeping, failAt: failAt}
	p := New(prop, Options{Site: equatorSite}, testLogger)

	var sink collector
	w := Window{Start: runStart, End: runStart.Add(60 * time.Second), Step: time.Millisecond}
	_, err := p.RunParallel(context.Background(), w, 4, &sink)
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	// Every emitted sample precedes the failure, in order, with no gaps.
	for i, s := range sink.samples {
		if s.Index != i || !s.Time.Before(failAt) {
			t.Fatalf("emitted sample %d (index %d, time %v) after failure", i, s.Index, s.Time)
		}
	}
	if len(sink.samples) != 5000 {
		t.Errorf("emitted %d samples, want 5000", len(sink.samples))
	}
}

type propagatorFunc func(time.Time) (transform.PositionECEF, error)

func (f propagatorFunc) PositionAt(t time.Time) (transform.PositionECEF, error) { return f(t) }
