package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	for _, key := range []string{"PORT", "MONGO_DB", "JWT_TTL", "CACHE_BACKEND", "REDIS_ADDR", "NATS_URL", "METRICS_PORT", "TRACING_ENABLED"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "storefront", cfg.MongoDB)
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.False(t, cfg.Tracing)
	assert.Empty(t, cfg.NATSURL)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "3000")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.True(t, cfg.Tracing)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}, wantErr: "JWT_SECRET is required"},
		{name: "missing mongo", env: map[string]string{"MONGO_URI": ""}, wantErr: "MONGO_URI is required"},
		{name: "bad ttl", env: map[string]string{"JWT_TTL": "soon"}, wantErr: "invalid JWT_TTL"},
		{name: "bad backend", env: map[string]string{"CACHE_BACKEND": "memcached"}, wantErr: "unknown CACHE_BACKEND"},
		{name: "bad metrics port", env: map[string]string{"METRICS_PORT": "x"}, wantErr: "invalid METRICS_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
