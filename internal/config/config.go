package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/greenandcoop/weather-etl/internal/domain"
	"github.com/greenandcoop/weather-etl/internal/validate"
)

// Config holds all service settings, populated from environment variables
// and optionally overridden by a pipeline YAML file.
type Config struct {
	MongoURI             string
	MongoDatabase        string
	MongoCollection      string
	MongoTLSEnabled      bool
	MongoTLSAllowInvalid bool
	MongoConnectTimeout  time.Duration
	MongoMaxRetries      int
	MongoRetryBackoff    time.Duration

	// KafkaBrokers empty disables report/reject publishing.
	KafkaBrokers     []string
	KafkaReportTopic string
	KafkaRejectTopic string

	// HTTPAddr empty disables the health/metrics server.
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string

	StrictValidation bool
	WriteMode        string
	PipelineWorkers  int
	ExpectedInterval time.Duration

	Sources      []string
	Stations     map[string][]string
	Bounds       validate.Bounds
	StationsFile string
	DataDir      string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	connectTimeout, err := durationEnv("MONGODB_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	maxRetries, err := intEnv("MONGODB_MAX_RETRIES", 1)
	if err != nil {
		return nil, err
	}
	retryBackoff, err := durationEnv("MONGODB_RETRY_BACKOFF", 2*time.Second)
	if err != nil {
		return nil, err
	}
	tlsEnabled, err := boolEnv("MONGODB_TLS_ENABLED", false)
	if err != nil {
		return nil, err
	}
	tlsAllowInvalid, err := boolEnv("MONGODB_TLS_ALLOW_INVALID_CERTS", false)
	if err != nil {
		return nil, err
	}
	strict, err := boolEnv("STRICT_VALIDATION", false)
	if err != nil {
		return nil, err
	}
	workers, err := intEnv("PIPELINE_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	expectedInterval, err := durationEnv("EXPECTED_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MongoURI:             os.Getenv("MONGODB_URI"),
		MongoDatabase:        envOrDefault("MONGODB_DATABASE", "forecast"),
		MongoCollection:      envOrDefault("MONGODB_COLLECTION", "weather_measurements"),
		MongoTLSEnabled:      tlsEnabled,
		MongoTLSAllowInvalid: tlsAllowInvalid,
		MongoConnectTimeout:  connectTimeout,
		MongoMaxRetries:      maxRetries,
		MongoRetryBackoff:    retryBackoff,

		KafkaBrokers:     parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaReportTopic: envOrDefault("KAFKA_REPORT_TOPIC", "weather-quality-reports"),
		KafkaRejectTopic: envOrDefault("KAFKA_REJECT_TOPIC", "weather-rejected-records"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),

		StrictValidation: strict,
		WriteMode:        envOrDefault("WRITE_MODE", "insert"),
		PipelineWorkers:  workers,
		ExpectedInterval: expectedInterval,

		Sources:      []string{domain.SourceInfoClimat, domain.SourceWunderground},
		StationsFile: os.Getenv("STATIONS_FILE"),
		DataDir:      envOrDefault("DATA_DIR", "data"),
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.MongoConnectTimeout <= 0 {
		return fmt.Errorf("MONGODB_CONNECT_TIMEOUT must be positive, got %s", c.MongoConnectTimeout)
	}
	if c.MongoMaxRetries < 1 {
		return fmt.Errorf("MONGODB_MAX_RETRIES must be at least 1, got %d", c.MongoMaxRetries)
	}
	if c.MongoRetryBackoff < 0 {
		return fmt.Errorf("MONGODB_RETRY_BACKOFF must not be negative, got %s", c.MongoRetryBackoff)
	}
	if c.PipelineWorkers < 1 || c.PipelineWorkers > 256 {
		return fmt.Errorf("PIPELINE_WORKERS must be between 1 and 256, got %d", c.PipelineWorkers)
	}
	if c.ExpectedInterval < 0 {
		return fmt.Errorf("EXPECTED_INTERVAL must not be negative, got %s", c.ExpectedInterval)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	if c.WriteMode != "insert" && c.WriteMode != "upsert" {
		return fmt.Errorf("WRITE_MODE must be insert or upsert, got %q", c.WriteMode)
	}
	for _, source := range c.Sources {
		if source != domain.SourceInfoClimat && source != domain.SourceWunderground {
			return fmt.Errorf("unknown source %q", source)
		}
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseBrokers splits a comma-separated broker list, dropping empties.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}
