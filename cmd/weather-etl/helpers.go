package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	kafkaadapter "github.com/greenandcoop/weather-etl/internal/adapter/kafka"
	"github.com/greenandcoop/weather-etl/internal/config"
	"github.com/greenandcoop/weather-etl/internal/domain"
	"github.com/greenandcoop/weather-etl/internal/extract"
	"github.com/greenandcoop/weather-etl/internal/harmonize"
	"github.com/greenandcoop/weather-etl/internal/observability"
	"github.com/greenandcoop/weather-etl/internal/pipeline"
	"github.com/greenandcoop/weather-etl/internal/quality"
	"github.com/greenandcoop/weather-etl/internal/store/mongo"
	"github.com/greenandcoop/weather-etl/internal/validate"
)

const dateLayout = "2006-01-02"

// loadConfig reads the environment configuration and, when path is set,
// merges the pipeline file on top of it.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path != "" {
		f, err := config.LoadPipelineFile(path)
		if err != nil {
			return nil, err
		}
		if err := f.Apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// previousDay returns yesterday's UTC date, the default run target.
func previousDay() string {
	return domain.Now().UTC().AddDate(0, 0, -1).Format(dateLayout)
}

// stationDirectory loads the configured stations file, or the built-in
// directory when none is set.
func stationDirectory(cfg *config.Config) (*extract.Directory, error) {
	if cfg.StationsFile == "" {
		return extract.DefaultDirectory(), nil
	}
	return extract.LoadDirectory(cfg.StationsFile)
}

// buildOpts carries the per-run knobs into buildRunner.
type buildOpts struct {
	targetDate string
	dryRun     bool
}

// buildRunner wires one run's stages from configuration. A store loader is
// only constructed when a MongoDB URI is set or the run is a dry run; with
// neither, the pipeline skips loading. The returned cleanup closes the
// Kafka publisher and must be called once the run is over.
func buildRunner(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, opts buildOpts) (*pipeline.Runner, func(), error) {
	refDate, err := time.Parse(dateLayout, opts.targetDate)
	if err != nil {
		return nil, nil, fmt.Errorf("target date %q: %w", opts.targetDate, err)
	}

	directory, err := stationDirectory(cfg)
	if err != nil {
		return nil, nil, err
	}

	extractors := make([]pipeline.Extractor, 0, len(cfg.Sources))
	for _, source := range cfg.Sources {
		ex, err := extract.ForSource(source, cfg.DataDir, cfg.Stations[source], logger)
		if err != nil {
			return nil, nil, err
		}
		extractors = append(extractors, ex)
	}

	policy := validate.Lenient
	if cfg.StrictValidation {
		policy = validate.Strict
	}

	mode, err := mongo.ParseWriteMode(cfg.WriteMode)
	if err != nil {
		return nil, nil, err
	}

	var loader pipeline.StoreLoader
	if cfg.MongoURI != "" || opts.dryRun {
		loader = mongo.New(mongo.Config{
			URI:                  cfg.MongoURI,
			Database:             cfg.MongoDatabase,
			Collection:           cfg.MongoCollection,
			TLSEnabled:           cfg.MongoTLSEnabled,
			TLSAllowInvalidCerts: cfg.MongoTLSAllowInvalid,
			ConnectTimeout:       cfg.MongoConnectTimeout,
			Retry: mongo.RetryPolicy{
				MaxAttempts:    cfg.MongoMaxRetries,
				InitialBackoff: cfg.MongoRetryBackoff,
			},
			DryRun: opts.dryRun,
		}, logger)
	}

	publisher := kafkaadapter.NewPublisher(cfg, logger)

	runner := pipeline.NewRunner(pipeline.Params{
		Extractors: extractors,
		Harmonizer: harmonize.NewHarmonizer(directory, refDate, logger),
		Validator:  validate.NewValidator(policy, cfg.Bounds, logger),
		Aggregator: quality.NewAggregator(cfg.ExpectedInterval),
		Loader:     loader,
		WriteMode:  mode,
		Reports:    publisher,
		Rejects:    publisher,
		Logger:     logger,
		Metrics:    metrics,
		Workers:    cfg.PipelineWorkers,
	})

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	return runner, cleanup, nil
}

// writeReport renders the quality report as indented JSON to path, or to
// stdout when path is empty.
func writeReport(rep quality.Report, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}
