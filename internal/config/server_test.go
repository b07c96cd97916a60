package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer(testLogger)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.False(t, cfg.AuthEnabled)
	assert.Equal(t, 200_000, cfg.MaxSamples)
	assert.Equal(t, 0, cfg.Workers)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, 4, cfg.MaxStreamsPerIP)
}

func TestLoadServerFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg Server)
	}{
		{
			name: "addr and limits",
			env: map[string]string{
				"TRACKGEN_HTTP_ADDR":             ":9090",
				"TRACKGEN_MAX_SAMPLES":           "5000",
				"TRACKGEN_HTTP_WORKERS":          "3",
				"TRACKGEN_STREAM_MAX_CONCURRENT": "2",
			},
			check: func(t *testing.T, cfg Server) {
				assert.Equal(t, 2, cfg.MaxStreamsPerIP)
				assert.Equal(t, ":9090", cfg.Addr)
				assert.Equal(t, 5000, cfg.MaxSamples)
				assert.Equal(t, 3, cfg.Workers)
			},
		},
		{
			name: "invalid max samples falls back to default",
			env:  map[string]string{"TRACKGEN_MAX_SAMPLES": "lots"},
			check: func(t *testing.T, cfg Server) {
				assert.Equal(t, 200_000, cfg.MaxSamples)
			},
		},
		{
			name: "auth enabled with token",
			env:  map[string]string{"TRACKGEN_AUTH_ENABLED": "true", "TRACKGEN_AUTH_TOKEN": "s3cret"},
			check: func(t *testing.T, cfg Server) {
				assert.True(t, cfg.AuthEnabled)
				assert.Equal(t, "s3cret", cfg.AuthToken)
			},
		},
		{
			name: "trust proxy",
			env:  map[string]string{"TRACKGEN_TRUST_PROXY": "yes"},
			check: func(t *testing.T, cfg Server) {
				assert.False(t, cfg.TrustProxy, "only strconv.ParseBool spellings are accepted")
			},
		},
		{
			name: "trust proxy enabled",
			env:  map[string]string{"TRACKGEN_TRUST_PROXY": "true"},
			check: func(t *testing.T, cfg Server) {
				assert.True(t, cfg.TrustProxy)
			},
		},
		{
			name:    "auth enabled without token",
			env:     map[string]string{"TRACKGEN_AUTH_ENABLED": "1"},
			wantErr: true,
		},
		{
			name:    "auth flag not a bool",
			env:     map[string]string{"TRACKGEN_AUTH_ENABLED": "sometimes"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadServer(testLogger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
