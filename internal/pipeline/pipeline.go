// Package pipeline orchestrates one extract-transform-load pass over the
// configured sources: extraction, parallel harmonization and validation,
// quality aggregation, the store load, and report publishing.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/greenandcoop/weather-etl/internal/domain"
	"github.com/greenandcoop/weather-etl/internal/observability"
	"github.com/greenandcoop/weather-etl/internal/quality"
	"github.com/greenandcoop/weather-etl/internal/store/mongo"
)

// Extractor reads one day's raw observations for a single source.
type Extractor interface {
	Source() string
	Extract(ctx context.Context, date string) ([]domain.RawObservation, error)
}

// Harmonizer maps one raw observation onto the canonical record shape.
type Harmonizer interface {
	Harmonize(obs domain.RawObservation) (domain.Record, []domain.Anomaly, *domain.Rejection)
}

// Validator applies the plausibility rules to a harmonized record.
type Validator interface {
	Validate(rec domain.Record) (domain.Record, []domain.Anomaly, *domain.Rejection)
}

// Aggregator folds the run's outputs into a quality report.
type Aggregator interface {
	Aggregate(in quality.Input) quality.Report
}

// StoreLoader drives the measurement store for one run. Satisfied by
// *mongo.Loader; nil skips the store entirely.
type StoreLoader interface {
	Connect(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
	Load(ctx context.Context, mode mongo.WriteMode, records []domain.Record) (mongo.LoadReport, error)
	Close(ctx context.Context) error
}

// ReportSink publishes the run's quality report.
type ReportSink interface {
	PublishReport(ctx context.Context, report quality.Report) error
}

// RejectSink publishes the records dropped during the run.
type RejectSink interface {
	PublishRejections(ctx context.Context, runID string, rejections []domain.Rejection) error
}

// Params collects the Runner's collaborators. Loader, Reports, and Rejects
// may be nil; the corresponding step is skipped. A nil Metrics gets an
// unregistered set so call sites never need nil checks.
type Params struct {
	Extractors []Extractor
	Harmonizer Harmonizer
	Validator  Validator
	Aggregator Aggregator
	Loader     StoreLoader
	WriteMode  mongo.WriteMode
	Reports    ReportSink
	Rejects    RejectSink
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	Workers    int
}

// Runner executes a single run. Build one per run: the harmonizer is
// anchored to the run's target date.
type Runner struct {
	extractors []Extractor
	harmonizer Harmonizer
	validator  Validator
	aggregator Aggregator
	loader     StoreLoader
	writeMode  mongo.WriteMode
	reports    ReportSink
	rejects    RejectSink
	logger     *slog.Logger
	metrics    *observability.Metrics
	workers    int
	ready      atomic.Bool
}

// NewRunner creates a Runner with the given stages and observability.
func NewRunner(p Params) *Runner {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	mode := p.WriteMode
	if mode == "" {
		mode = mongo.ModeInsert
	}
	return &Runner{
		extractors: p.Extractors,
		harmonizer: p.Harmonizer,
		validator:  p.Validator,
		aggregator: p.Aggregator,
		loader:     p.Loader,
		writeMode:  mode,
		reports:    p.Reports,
		rejects:    p.Rejects,
		logger:     logger,
		metrics:    metrics,
		workers:    workers,
	}
}

// CheckReadiness returns nil once a run has completed successfully, or an
// error describing why the service is not yet ready.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no run has completed yet")
	}
	return nil
}

// stageOutput is one observation's outcome, kept per input index so the
// worker pool preserves batch order.
type stageOutput struct {
	record    *domain.Record
	anomalies []domain.Anomaly
	rejection *domain.Rejection
}

// Run executes one pass for the target date (YYYY-MM-DD). Record-level
// problems become rejections and anomalies; only setup-class failures
// (unreadable source directory, store unreachable) return an error.
func (r *Runner) Run(ctx context.Context, targetDate string) (Result, error) {
	res := Result{
		RunID:      newRunID(targetDate),
		TargetDate: targetDate,
		StartedAt:  domain.Now(),
	}
	logger := r.logger.With("run_id", res.RunID, "target_date", targetDate)

	r.metrics.RunActive.Set(1)
	defer r.metrics.RunActive.Set(0)

	sources := make([]string, 0, len(r.extractors))
	var raws []domain.RawObservation
	for _, ext := range r.extractors {
		sources = append(sources, ext.Source())
		obs, err := ext.Extract(ctx, targetDate)
		if err != nil {
			return r.fail(res, logger, fmt.Errorf("extract %s: %w", ext.Source(), err))
		}
		r.metrics.ObservationsExtracted.WithLabelValues(ext.Source()).Add(float64(len(obs)))
		raws = append(raws, obs...)
	}
	res.Extracted = len(raws)
	logger.Info("extraction finished", "sources", sources, "observations", len(raws))

	outs := make([]stageOutput, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outs[i] = r.process(raws[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return r.fail(res, logger, fmt.Errorf("transform batch: %w", err))
	}

	accepted := make([]domain.Record, 0, len(raws))
	var rejections []domain.Rejection
	var anomalies []domain.Anomaly
	for _, out := range outs {
		anomalies = append(anomalies, out.anomalies...)
		if out.rejection != nil {
			rejections = append(rejections, *out.rejection)
			if out.rejection.Stage != domain.StageHarmonization {
				res.Harmonized++
			}
			continue
		}
		res.Harmonized++
		accepted = append(accepted, *out.record)
	}
	res.Accepted = len(accepted)
	res.Rejected = len(rejections)

	loadRejections, err := r.runStore(ctx, &res, accepted, &anomalies, logger)
	if err != nil {
		return r.fail(res, logger, err)
	}

	report := r.aggregator.Aggregate(quality.Input{
		RunID:      res.RunID,
		TargetDate: targetDate,
		Sources:    sources,
		Extracted:  res.Extracted,
		Harmonized: res.Harmonized,
		Accepted:   accepted,
		Rejections: rejections,
		Anomalies:  anomalies,
		Loaded:     res.Loaded,
		LoadFailed: res.LoadFailed,
	})
	res.Report = report

	r.publish(ctx, res.RunID, report, append(rejections, loadRejections...), logger)

	res.FinishedAt = domain.Now()
	res.Success = true
	r.ready.Store(true)
	r.metrics.RunDuration.Observe(res.Duration().Seconds())

	logger.Info("run complete",
		"extracted", res.Extracted,
		"harmonized", res.Harmonized,
		"accepted", res.Accepted,
		"rejected", res.Rejected,
		"loaded", res.Loaded,
		"load_failed", res.LoadFailed,
		"duration", res.Duration())
	return res, nil
}

// process runs harmonization and validation for one observation.
func (r *Runner) process(obs domain.RawObservation) stageOutput {
	rec, anomalies, rej := r.harmonizer.Harmonize(obs)
	if rej != nil {
		r.metrics.RecordsRejected.WithLabelValues(string(rej.Stage), string(rej.Reason)).Inc()
		return stageOutput{anomalies: anomalies, rejection: rej}
	}

	out := stageOutput{anomalies: anomalies}
	valid, vAnomalies, vRej := r.validator.Validate(rec)
	out.anomalies = append(out.anomalies, vAnomalies...)
	if vRej != nil {
		r.metrics.RecordsRejected.WithLabelValues(string(vRej.Stage), string(vRej.Reason)).Inc()
		out.rejection = vRej
		return out
	}

	out.record = &valid
	r.metrics.RecordsAccepted.Inc()
	r.metrics.CompletenessScore.Observe(valid.DataQuality.CompletenessScore)
	return out
}

// runStore walks the loader through connect, indexes, load, and close.
// Per-document failures are folded into the result counts and the report's
// anomaly list; the rejections for the reject sink are returned.
func (r *Runner) runStore(ctx context.Context, res *Result, accepted []domain.Record, anomalies *[]domain.Anomaly, logger *slog.Logger) ([]domain.Rejection, error) {
	if r.loader == nil {
		logger.Info("no store configured, skipping load")
		return nil, nil
	}

	if err := r.loader.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	defer func() {
		if err := r.loader.Close(ctx); err != nil {
			logger.Warn("close store failed", "error", err)
		}
	}()

	if err := r.loader.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	report, err := r.loader.Load(ctx, r.writeMode, accepted)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	res.Loaded = report.Loaded
	res.LoadFailed = len(report.Failed)
	r.metrics.RecordsLoaded.Add(float64(report.Loaded))

	rejections := make([]domain.Rejection, 0, len(report.Failed))
	for _, failure := range report.Failed {
		rej := failure.Rejection()
		rejections = append(rejections, rej)
		*anomalies = append(*anomalies, rej.AsAnomaly())
		r.metrics.LoadFailures.Inc()
		r.metrics.RecordsRejected.WithLabelValues(string(rej.Stage), string(rej.Reason)).Inc()
	}
	return rejections, nil
}

// publish sends the report and the rejection stream. Publishing is
// best-effort: failures are logged, never fatal to the run.
func (r *Runner) publish(ctx context.Context, runID string, report quality.Report, rejections []domain.Rejection, logger *slog.Logger) {
	if r.reports != nil {
		if err := r.reports.PublishReport(ctx, report); err != nil {
			logger.Error("publish quality report failed", "error", err)
		}
	}
	if r.rejects != nil && len(rejections) > 0 {
		if err := r.rejects.PublishRejections(ctx, runID, rejections); err != nil {
			logger.Error("publish rejected records failed", "error", err)
		}
	}
}

func (r *Runner) fail(res Result, logger *slog.Logger, err error) (Result, error) {
	res.FinishedAt = domain.Now()
	logger.Error("run failed", "error", err)
	return res, err
}

// newRunID builds an identifier like "run-20260218-7f3a".
func newRunID(targetDate string) string {
	date := strings.ReplaceAll(targetDate, "-", "")
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "run-" + date
	}
	return "run-" + date + "-" + hex.EncodeToString(b[:])
}
