package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.HTTP.Port)
	require.Equal(t, int64(32<<20), cfg.HTTP.MaxBodyBytes)
	require.Equal(t, "memory", cfg.Storage.Type)
	require.Equal(t, time.Hour, cfg.Storage.TTL)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, "rtcqos", cfg.Exporter.Namespace)
	require.Nil(t, cfg.Stats.SelectedStats)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9090
storage:
  type: redis
  ttl: 30m
  redis:
    host: localhost
    port: 6379
    db: 2
logging:
  level: debug
  format: text
stats:
  selected_stats: [candidate-pair, inbound-rtp]
exporter:
  enabled: true
  namespace: qos
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.HTTP.Port)
	require.Equal(t, "redis", cfg.Storage.Type)
	require.Equal(t, 30*time.Minute, cfg.Storage.TTL)
	require.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr())
	require.Equal(t, 2, cfg.Storage.Redis.DB)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, []string{"candidate-pair", "inbound-rtp"}, cfg.Stats.SelectedStats)
	require.True(t, cfg.Exporter.Enabled)
	require.Equal(t, "qos", cfg.Exporter.Namespace)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9090
logging:
  level: debug
`)
	t.Setenv("RTCQOS_HTTP_PORT", "7000")
	t.Setenv("RTCQOS_LOG_LEVEL", "warn")
	t.Setenv("RTCQOS_STORAGE_TYPE", "redis")
	t.Setenv("RTCQOS_STORAGE_TTL", "5m")
	t.Setenv("RTCQOS_REDIS_HOST", "redis")
	t.Setenv("RTCQOS_REDIS_PORT", "6380")
	t.Setenv("RTCQOS_SELECTED_STATS", " candidate-pair , outbound-rtp,")
	t.Setenv("RTCQOS_EXPORTER_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.HTTP.Port)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Equal(t, 5*time.Minute, cfg.Storage.TTL)
	require.Equal(t, "redis:6380", cfg.Storage.Redis.Addr())
	require.Equal(t, []string{"candidate-pair", "outbound-rtp"}, cfg.Stats.SelectedStats)
	require.True(t, cfg.Exporter.Enabled)
}

func TestEmptySelectedStatsEnv(t *testing.T) {
	t.Setenv("RTCQOS_SELECTED_STATS", "")
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg.Stats.SelectedStats)
	require.Empty(t, cfg.Stats.SelectedStats)
}

func TestInvalidEnv(t *testing.T) {
	tests := map[string]string{
		"RTCQOS_HTTP_PORT":   "abc",
		"RTCQOS_REDIS_PORT":  "abc",
		"RTCQOS_REDIS_DB":    "abc",
		"RTCQOS_STORAGE_TTL": "forever",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load("")
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad port", Config{HTTP: HTTPConfig{Port: 70000}}},
		{"bad storage", Config{Storage: StorageConfig{Type: "etcd"}}},
		{"negative ttl", Config{Storage: StorageConfig{TTL: -time.Second}}},
		{"redis without config", Config{Storage: StorageConfig{Type: "redis"}}},
		{"redis without host", Config{Storage: StorageConfig{Type: "redis", Redis: &RedisConfig{Port: 6379}}}},
		{"redis bad port", Config{Storage: StorageConfig{Type: "redis", Redis: &RedisConfig{Host: "h"}}}},
		{"bad level", Config{Logging: LoggingConfig{Level: "trace"}}},
		{"bad format", Config{Logging: LoggingConfig{Format: "xml"}}},
		{"blank stat type", Config{Stats: StatsConfig{SelectedStats: []string{"codec", " "}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.cfg.Validate())
		})
	}

	require.NoError(t, (&Config{}).Validate())
}

func TestInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "http: [unterminated"))
	require.Error(t, err)
}
