package api

import (
	"net/http"
	"time"

	"github.com/star/trackgen/internal/httputil"
	"github.com/star/trackgen/internal/logging"
	"github.com/star/trackgen/internal/metrics"
	"github.com/star/trackgen/internal/observability"
	"github.com/star/trackgen/internal/output"
	"github.com/star/trackgen/internal/stream"
	"go.opentelemetry.io/otel/codes"
)

type streamMetadata struct {
	targetJSON
	Planned int   `json:"planned"`
	StepMs  int64 `json:"step_ms"`
}

type streamDone struct {
	Computed   int   `json:"computed"`
	Emitted    int   `json:"emitted"`
	DurationMs int64 `json:"duration_ms"`
}

// trackStreamHandler runs a track request and delivers samples as
// server-sent events while they are computed. Request errors are reported
// as JSON before the stream opens; run errors as a final "error" event.
func (s *Server) trackStreamHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := observability.StartSpan(r.Context(), "api.track.stream")
	defer span.End()
	logger := logging.FromContext(ctx, s.logger)

	job := s.prepare(ctx, w, r, span)
	if job == nil {
		return
	}

	ip := httputil.ClientIP(r, s.cfg.TrustProxy)
	release, ok := s.streams.Acquire(ip)
	if !ok {
		metrics.IncStreamRejected()
		logger.Warn("stream limit exceeded", "component", "api", "remote_ip", ip, "current_count", s.streams.Count(ip))
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams", nil)
		return
	}
	metrics.IncStreamsActive()
	start := time.Now()
	var sw *stream.Writer
	defer func() {
		release()
		metrics.DecStreamsActive()
		var messages, sent int64
		if sw != nil {
			messages, sent = sw.Stats()
		}
		logger.Info("stream closed",
			"component", "api",
			"remote_ip", ip,
			"duration_ms", time.Since(start).Milliseconds(),
			"messages", messages,
			"bytes", sent,
		)
	}()

	sw, err := stream.Open(w, output.NewFormatter(job.cfg.Decimals), logger)
	if err != nil {
		logger.Warn("stream open failed", "component", "api", "remote_ip", ip, "error", err)
		return
	}

	if err := sw.Send("metadata", streamMetadata{
		targetJSON: job.target(),
		Planned:    job.planned,
		StepMs:     job.cfg.Window.Step.Milliseconds(),
	}); err != nil {
		return
	}

	st, err := s.run(ctx, job, sw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// The client may be gone; nothing more to do if this fails.
		sw.Send("error", map[string]string{"error": err.Error()})
		return
	}

	if err := sw.Send("passes", job.detector.Passes()); err != nil {
		return
	}
	sw.Send("done", streamDone{
		Computed:   st.Computed,
		Emitted:    st.Emitted,
		DurationMs: st.Duration.Milliseconds(),
	})
}
