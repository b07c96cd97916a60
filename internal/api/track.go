package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/star/trackgen/internal/atmosphere"
	"github.com/star/trackgen/internal/config"
	"github.com/star/trackgen/internal/httputil"
	"github.com/star/trackgen/internal/logging"
	"github.com/star/trackgen/internal/observability"
	"github.com/star/trackgen/internal/output"
	"github.com/star/trackgen/internal/passes"
	"github.com/star/trackgen/internal/propagation"
	"github.com/star/trackgen/internal/tle"
	"github.com/star/trackgen/internal/tracking"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxBodyBytes = 64 << 10

// serverOnlyKeys name files or process settings a request may not set.
var serverOnlyKeys = []string{
	config.KeyTLEFile,
	config.KeyTLESourceURL,
	config.KeyTLECacheDir,
	config.KeyOutputFile,
	config.KeyWorkers,
}

// requestKeys are the configuration keys accepted in a track request.
func requestKeys() []string {
	var keys []string
	for _, k := range config.Keys {
		if !slices.Contains(serverOnlyKeys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// decodeValues reads a JSON object of configuration keys. Values may be
// strings, numbers or booleans; null leaves a key unset.
func decodeValues(r *http.Request) (config.Values, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	allowed := requestKeys()
	v := config.Values{}
	for k, val := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		if !slices.Contains(allowed, key) {
			if slices.Contains(serverOnlyKeys, key) {
				return nil, fmt.Errorf("%s cannot be set in a request", key)
			}
			return nil, fmt.Errorf("unknown key %q", k)
		}
		switch x := val.(type) {
		case nil:
		case string:
			v[key] = x
		case json.Number:
			v[key] = x.String()
		case bool:
			v[key] = strconv.FormatBool(x)
		default:
			return nil, fmt.Errorf("%s must be a string, number or boolean", key)
		}
	}
	return v, nil
}

// wantsJSON picks the response format: ?format= first, then Accept.
func wantsJSON(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "json":
		return true
	case "csv":
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

type targetJSON struct {
	Name    string    `json:"name"`
	NORADID int       `json:"norad_id"`
	Epoch   time.Time `json:"epoch"`

	// element age at the window start; negative before the epoch
	AgeHours float64 `json:"age_hours"`
}

type sampleJSON struct {
	Time                  time.Time `json:"time"`
	AzimuthDeg            float64   `json:"azimuth_deg"`
	ElevationDeg          float64   `json:"elevation_deg"`
	GeometricAzimuthDeg   float64   `json:"geometric_azimuth_deg"`
	GeometricElevationDeg float64   `json:"geometric_elevation_deg"`
	RangeKm               float64   `json:"range_km"`
}

type trackResponse struct {
	Target     targetJSON         `json:"target"`
	Computed   int                `json:"computed"`
	Emitted    int                `json:"emitted"`
	DurationMs int64              `json:"duration_ms"`
	Samples    []sampleJSON       `json:"samples"`
	Passes     []passes.PassEvent `json:"passes"`
}

// trackJob is a validated request ready to run.
type trackJob struct {
	cfg      config.Config
	entry    tle.TLEEntry
	pipeline *tracking.Pipeline
	detector *passes.Detector
	planned  int
}

// prepare turns a request body into a trackJob. On failure it writes the
// error response and returns nil.
func (s *Server) prepare(ctx context.Context, w http.ResponseWriter, r *http.Request, span trace.Span) *trackJob {
	logger := logging.FromContext(ctx, s.logger)
	fail := func(status int, msg string, extra map[string]any) *trackJob {
		span.SetStatus(codes.Error, msg)
		httputil.WriteError(w, status, msg, extra)
		return nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	values, err := decodeValues(r)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error(), nil)
	}

	cfg, err := config.FromValues(values)
	if err != nil {
		var cerr *config.Error
		if errors.As(err, &cerr) {
			return fail(http.StatusBadRequest, err.Error(), map[string]any{"key": cerr.Key})
		}
		return fail(http.StatusBadRequest, err.Error(), nil)
	}

	planned := cfg.Window.Count()
	span.SetAttributes(attribute.Int("track.planned", planned))
	if s.cfg.MaxSamples > 0 && planned > s.cfg.MaxSamples {
		return fail(http.StatusBadRequest, "requested window exceeds sample budget", map[string]any{
			"samples":     planned,
			"max_samples": s.cfg.MaxSamples,
		})
	}

	entry, err := tle.Resolve(ctx, cfg.TLE, logger)
	if err != nil {
		key := config.KeyTLELine1
		var lerr *tle.LineError
		if errors.As(err, &lerr) && lerr.Line == 2 {
			key = config.KeyTLELine2
		}
		return fail(http.StatusBadRequest, err.Error(), map[string]any{"key": key})
	}
	prop, err := propagation.NewSGP4Propagator(entry, cfg.Gravity)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error(), nil)
	}
	span.SetAttributes(attribute.Int("track.norad_id", entry.NORADID))
	logger.Debug("elements resolved", "target", entry)

	job := &trackJob{
		cfg:      cfg,
		entry:    entry,
		pipeline: tracking.New(prop, cfg.TrackingOptions(), logger),
		detector: passes.NewDetector(0),
		planned:  planned,
	}
	job.pipeline.Observe(job.detector.Observe)
	return job
}

// maxPrealloc bounds the sample slice reserved up front for a JSON response;
// larger tracks grow it as records arrive.
const maxPrealloc = 4096

// run executes job with the server's worker setting.
func (s *Server) run(ctx context.Context, job *trackJob, sink tracking.Sink) (tracking.Stats, error) {
	if s.cfg.Workers == 1 {
		return job.pipeline.Run(ctx, job.cfg.Window, sink)
	}
	return job.pipeline.RunParallel(ctx, job.cfg.Window, s.cfg.Workers, sink)
}

func (job *trackJob) target() targetJSON {
	return targetJSON{
		Name:     job.entry.Label(),
		NORADID:  job.entry.NORADID,
		Epoch:    job.entry.Epoch,
		AgeHours: job.entry.AgeAt(job.cfg.Window.Start).Hours(),
	}
}

// trackHandler runs one track request and answers with CSV or JSON.
func (s *Server) trackHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := observability.StartSpan(r.Context(), "api.track")
	defer span.End()

	job := s.prepare(ctx, w, r, span)
	if job == nil {
		return
	}

	if wantsJSON(r) {
		samples := make([]sampleJSON, 0, min(job.planned, maxPrealloc))
		st, err := s.run(ctx, job, tracking.SinkFunc(func(smp tracking.Sample) error {
			samples = append(samples, sampleJSON{
				Time:                  smp.Time,
				AzimuthDeg:            smp.AzimuthDeg,
				ElevationDeg:          smp.ElevationDeg,
				GeometricAzimuthDeg:   smp.Geometric.AzimuthDeg,
				GeometricElevationDeg: smp.Geometric.ElevationDeg,
				RangeKm:               smp.Geometric.RangeKm,
			})
			return nil
		}))
		if err != nil {
			runFailed(w, span, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, trackResponse{
			Target:     job.target(),
			Computed:   st.Computed,
			Emitted:    st.Emitted,
			DurationMs: st.Duration.Milliseconds(),
			Samples:    samples,
			Passes:     job.detector.Passes(),
		})
		return
	}

	// Records are buffered so a failed run can still report an error status.
	var buf bytes.Buffer
	sink, err := output.NewWriterSink(&buf, "response", output.NewFormatter(job.cfg.Decimals), job.cfg.OutputHeader)
	if err != nil {
		runFailed(w, span, err)
		return
	}
	if _, err := s.run(ctx, job, sink); err != nil {
		runFailed(w, span, err)
		return
	}
	if err := sink.Close(); err != nil {
		runFailed(w, span, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="track-%d.csv"`, job.entry.NORADID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func runFailed(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	status := http.StatusInternalServerError
	var perr *propagation.Error
	if errors.As(err, &perr) {
		// The elements cannot be evaluated over the requested window.
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteError(w, status, err.Error(), nil)
}

type configResponse struct {
	Keys     []string          `json:"keys"`
	Defaults map[string]string `json:"defaults"`
}

// configHandler lists the keys a track request accepts and their defaults.
func configHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, configResponse{
		Keys: requestKeys(),
		Defaults: map[string]string{
			config.KeySiteHeight:       "0",
			config.KeyRefraction:       "false",
			config.KeyPressureModel:    atmosphere.Barometric{}.Name(),
			config.KeySeaLevelPressure: strconv.FormatFloat(atmosphere.SeaLevelPressureMbar, 'f', -1, 64),
			config.KeyTemperature:      strconv.FormatFloat(atmosphere.DefaultTemperatureC, 'f', -1, 64),
			config.KeyTilt:             "0",
			config.KeyTiltAzimuth:      "0",
			config.KeyDecimals:         strconv.Itoa(output.DefaultDecimals),
			config.KeyOutputHeader:     "false",
			config.KeyVisibleOnly:      "false",
			config.KeyGravity:          string(propagation.GravityWGS84),
		},
	})
}
