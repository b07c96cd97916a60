package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
)

// Server holds the HTTP server settings, read from the environment.
type Server struct {
	Addr        string
	AuthEnabled bool
	AuthToken   string
	MaxSamples  int // per request
	Workers     int // per request; 0 uses one per CPU
	TrustProxy  bool

	MaxStreamsPerIP int
}

// LoadServer reads TRACKGEN_HTTP_ADDR, TRACKGEN_AUTH_ENABLED,
// TRACKGEN_AUTH_TOKEN, TRACKGEN_MAX_SAMPLES, TRACKGEN_HTTP_WORKERS,
// TRACKGEN_TRUST_PROXY and TRACKGEN_STREAM_MAX_CONCURRENT.
// Malformed numbers fall back to defaults with a warning; a malformed or
// incomplete auth setting is an error.
func LoadServer(logger *slog.Logger) (Server, error) {
	cfg := Server{
		Addr:       getEnvString("TRACKGEN_HTTP_ADDR", ":8080"),
		MaxSamples: getEnvInt(logger, "TRACKGEN_MAX_SAMPLES", 200_000),
		Workers:    getEnvInt(logger, "TRACKGEN_HTTP_WORKERS", 0),

		MaxStreamsPerIP: getEnvInt(logger, "TRACKGEN_STREAM_MAX_CONCURRENT", 4),
	}

	if v := os.Getenv("TRACKGEN_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New("TRACKGEN_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.AuthEnabled = enabled
	}
	if v := os.Getenv("TRACKGEN_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid TRACKGEN_TRUST_PROXY value, defaulting to false", "value", v)
		}
		cfg.TrustProxy = trust
	}
	if cfg.AuthEnabled {
		cfg.AuthToken = os.Getenv("TRACKGEN_AUTH_TOKEN")
		if cfg.AuthToken == "" {
			return cfg, errors.New("TRACKGEN_AUTH_TOKEN is required when auth is enabled")
		}
	}

	logger.Info("server config",
		"addr", cfg.Addr,
		"auth_enabled", cfg.AuthEnabled,
		"max_samples", cfg.MaxSamples,
		"workers", cfg.Workers,
		"trust_proxy", cfg.TrustProxy,
		"max_streams_per_ip", cfg.MaxStreamsPerIP,
	)
	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(logger *slog.Logger, key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logger.Warn("invalid "+key+" value, using default", "value", v, "default", defaultVal)
		return defaultVal
	}
	return n
}
