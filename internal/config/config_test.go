package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenandcoop/weather-etl/internal/domain"
	"github.com/greenandcoop/weather-etl/internal/validate"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.MongoURI)
	assert.Equal(t, "forecast", cfg.MongoDatabase)
	assert.Equal(t, "weather_measurements", cfg.MongoCollection)
	assert.False(t, cfg.MongoTLSEnabled)
	assert.False(t, cfg.MongoTLSAllowInvalid)
	assert.Equal(t, 10*time.Second, cfg.MongoConnectTimeout)
	assert.Equal(t, 1, cfg.MongoMaxRetries)
	assert.Equal(t, 2*time.Second, cfg.MongoRetryBackoff)

	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "weather-quality-reports", cfg.KafkaReportTopic)
	assert.Equal(t, "weather-rejected-records", cfg.KafkaRejectTopic)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	assert.False(t, cfg.StrictValidation)
	assert.Equal(t, "insert", cfg.WriteMode)
	assert.Equal(t, 4, cfg.PipelineWorkers)
	assert.Equal(t, time.Hour, cfg.ExpectedInterval)

	assert.Equal(t, []string{domain.SourceInfoClimat, domain.SourceWunderground}, cfg.Sources)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Empty(t, cfg.StationsFile)
	assert.Nil(t, cfg.Bounds)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("MONGODB_DATABASE", "weather_test")
	t.Setenv("MONGODB_COLLECTION", "measurements_test")
	t.Setenv("MONGODB_TLS_ENABLED", "true")
	t.Setenv("MONGODB_CONNECT_TIMEOUT", "3s")
	t.Setenv("MONGODB_MAX_RETRIES", "5")
	t.Setenv("MONGODB_RETRY_BACKOFF", "500ms")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_REPORT_TOPIC", "reports")
	t.Setenv("KAFKA_REJECT_TOPIC", "rejects")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("STRICT_VALIDATION", "true")
	t.Setenv("WRITE_MODE", "upsert")
	t.Setenv("PIPELINE_WORKERS", "8")
	t.Setenv("EXPECTED_INTERVAL", "30m")
	t.Setenv("STATIONS_FILE", "/etc/weather/stations.json")
	t.Setenv("DATA_DIR", "/var/data")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, "weather_test", cfg.MongoDatabase)
	assert.Equal(t, "measurements_test", cfg.MongoCollection)
	assert.True(t, cfg.MongoTLSEnabled)
	assert.Equal(t, 3*time.Second, cfg.MongoConnectTimeout)
	assert.Equal(t, 5, cfg.MongoMaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.MongoRetryBackoff)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "reports", cfg.KafkaReportTopic)
	assert.Equal(t, "rejects", cfg.KafkaRejectTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.StrictValidation)
	assert.Equal(t, "upsert", cfg.WriteMode)
	assert.Equal(t, 8, cfg.PipelineWorkers)
	assert.Equal(t, 30*time.Minute, cfg.ExpectedInterval)
	assert.Equal(t, "/etc/weather/stations.json", cfg.StationsFile)
	assert.Equal(t, "/var/data", cfg.DataDir)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad connect timeout", "MONGODB_CONNECT_TIMEOUT", "soon", "MONGODB_CONNECT_TIMEOUT"},
		{"negative connect timeout", "MONGODB_CONNECT_TIMEOUT", "-1s", "MONGODB_CONNECT_TIMEOUT"},
		{"zero retries", "MONGODB_MAX_RETRIES", "0", "MONGODB_MAX_RETRIES"},
		{"bad retries", "MONGODB_MAX_RETRIES", "many", "MONGODB_MAX_RETRIES"},
		{"bad tls flag", "MONGODB_TLS_ENABLED", "maybe", "MONGODB_TLS_ENABLED"},
		{"zero workers", "PIPELINE_WORKERS", "0", "PIPELINE_WORKERS"},
		{"too many workers", "PIPELINE_WORKERS", "9999", "PIPELINE_WORKERS"},
		{"negative interval", "EXPECTED_INTERVAL", "-1h", "EXPECTED_INTERVAL"},
		{"negative shutdown timeout", "SHUTDOWN_TIMEOUT", "-5s", "SHUTDOWN_TIMEOUT"},
		{"bad write mode", "WRITE_MODE", "replace", "WRITE_MODE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPipelineFile(t *testing.T) {
	t.Run("file values override env defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		payload := `
sources: [wunderground]
stations:
  wunderground: [IICHTE19, ILAMAD25]
bounds:
  temperature: {min: -40, max: 50}
expected_interval: 15m
workers: 2
strict_validation: true
write_mode: upsert
`
		require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

		cfg, err := Load()
		require.NoError(t, err)

		f, err := LoadPipelineFile(path)
		require.NoError(t, err)
		require.NoError(t, f.Apply(cfg))

		assert.Equal(t, []string{domain.SourceWunderground}, cfg.Sources)
		assert.Equal(t, []string{"IICHTE19", "ILAMAD25"}, cfg.Stations[domain.SourceWunderground])
		assert.Equal(t, 15*time.Minute, cfg.ExpectedInterval)
		assert.Equal(t, 2, cfg.PipelineWorkers)
		assert.True(t, cfg.StrictValidation)
		assert.Equal(t, "upsert", cfg.WriteMode)

		// Overrides merge on top of the stock table.
		assert.Equal(t, validate.Range{Min: -40, Max: 50}, cfg.Bounds[domain.FieldTemperature])
		assert.Equal(t, validate.Range{Min: 850, Max: 1085}, cfg.Bounds[domain.FieldPressure])
	})

	t.Run("partial file keeps env values", func(t *testing.T) {
		t.Setenv("PIPELINE_WORKERS", "16")
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		require.NoError(t, os.WriteFile(path, []byte("expected_interval: 10m\n"), 0o600))

		cfg, err := Load()
		require.NoError(t, err)
		f, err := LoadPipelineFile(path)
		require.NoError(t, err)
		require.NoError(t, f.Apply(cfg))

		assert.Equal(t, 16, cfg.PipelineWorkers)
		assert.Equal(t, 10*time.Minute, cfg.ExpectedInterval)
		assert.False(t, cfg.StrictValidation)
	})

	t.Run("invalid file values fail", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		f := &PipelineFile{ExpectedInterval: "soonish"}
		assert.Error(t, f.Apply(cfg))

		f = &PipelineFile{WriteMode: "replace"}
		assert.Error(t, f.Apply(cfg))
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := LoadPipelineFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
