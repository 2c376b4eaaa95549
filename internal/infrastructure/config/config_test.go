package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "data", cfg.Storage.Path)
	assert.Equal(t, "app-notes-list-v1", cfg.Storage.Key)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, LatencyConfig{
		List:   110 * time.Millisecond,
		Create: 130 * time.Millisecond,
		Update: 200 * time.Millisecond,
		Delete: 130 * time.Millisecond,
	}, cfg.Latency)

	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.App.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("LATENCY_UPDATE", "0s")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENABLE_METRICS", "false")
	t.Setenv("APP_ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "cache:6380", cfg.Redis.GetAddr())
	assert.Zero(t, cfg.Latency.Update)
	assert.Equal(t, 110*time.Millisecond, cfg.Latency.List)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.App.IsProduction())
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "floppy"}, "unknown storage driver"},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}, "server port"},
		{"negative latency", map[string]string{"LATENCY_DELETE": "-1s"}, "latency.delete"},
		{"zero rate limit", map[string]string{"RATE_LIMIT_REQUESTS": "0"}, "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateConfig_RequiresPathAndKey(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Storage.Path = ""
	assert.ErrorContains(t, validateConfig(cfg), "storage path is required")

	cfg.Storage.Driver = DriverMemory
	assert.NoError(t, validateConfig(cfg))

	cfg.Storage.Key = ""
	assert.ErrorContains(t, validateConfig(cfg), "storage key is required")
}

func TestGetDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "notes", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=notes sslmode=disable", cfg.GetDSN())
}
