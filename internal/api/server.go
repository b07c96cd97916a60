// Package api serves track generation over HTTP.
package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/trackgen/internal/auth"
	"github.com/star/trackgen/internal/config"
	"github.com/star/trackgen/internal/health"
	"github.com/star/trackgen/internal/httputil"
	"github.com/star/trackgen/internal/logging"
	"github.com/star/trackgen/internal/metrics"
	"github.com/star/trackgen/internal/stream"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        config.Server
	readiness  *health.Readiness
	streams    *stream.Limiter
}

// NewServer creates a configured HTTP server. static holds index.html and
// the assets it loads from /static/; nil disables the web page.
func NewServer(cfg config.Server, logger *slog.Logger, static fs.FS) *Server {
	s := &Server{
		logger:    logger,
		cfg:       cfg,
		readiness: &health.Readiness{},
		streams:   stream.NewLimiter(max(cfg.MaxStreamsPerIP, 1), 0),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", s.readiness.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/config", configHandler)
	mux.HandleFunc("POST /api/v1/track", s.trackHandler)
	mux.HandleFunc("POST /api/v1/track/stream", s.trackStreamHandler)

	if static != nil {
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFileFS(w, r, static, "index.html")
		})
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(auth.Config{Enabled: cfg.AuthEnabled, Token: cfg.AuthToken})(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// SetReady flips the /readyz response.
func (s *Server) SetReady(ready bool) {
	s.readiness.SetReady(ready)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// loggingMiddleware tags each request with an ID, stores a request-scoped
// logger in the context and logs the outcome.
func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, requestID := logging.EnsureRequestID(r.Context())
			reqLogger := logger.With("request_id", requestID)
			ctx = logging.ContextWithLogger(ctx, reqLogger)
			w.Header().Set("X-Request-ID", requestID)

			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sr, r.WithContext(ctx))

			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			reqLogger.Log(ctx, level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
