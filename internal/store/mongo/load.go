package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// WriteMode selects how a batch reaches the collection.
type WriteMode string

const (
	// ModeInsert writes the batch with one unordered InsertMany; replayed
	// documents fail on the unique index and surface as DuplicateKey.
	ModeInsert WriteMode = "insert"
	// ModeUpsert replaces each document on its natural key, creating it
	// when absent. Replays are idempotent.
	ModeUpsert WriteMode = "upsert"
)

// ParseWriteMode reads a mode name; empty means insert.
func ParseWriteMode(s string) (WriteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeInsert):
		return ModeInsert, nil
	case string(ModeUpsert):
		return ModeUpsert, nil
	default:
		return "", fmt.Errorf("unknown write mode %q", s)
	}
}

// LoadFailure records one document the store refused. The batch continues
// around it.
type LoadFailure struct {
	Record domain.Record
	Reason domain.Reason
	Detail string
}

// Rejection converts the failure for the run's rejection stream.
func (f LoadFailure) Rejection() domain.Rejection {
	return domain.RejectRecord(f.Record, domain.StageLoad, f.Reason, f.Detail)
}

// LoadReport summarizes one load call.
type LoadReport struct {
	Mode      WriteMode
	Attempted int
	Loaded    int
	Failed    []LoadFailure
	Simulated bool
}

// Load writes the batch. Per-document failures land in the report; only
// command-level errors (and illegal states) fail the call. On a dry run the
// report is simulated with the would-be written count.
func (l *Loader) Load(ctx context.Context, mode WriteMode, records []domain.Record) (LoadReport, error) {
	if l.state != StateIndexesEnsured {
		return LoadReport{}, &TransitionError{Op: "load", From: l.state}
	}
	l.state = StateLoading

	report := LoadReport{Mode: mode, Attempted: len(records)}
	if l.cfg.DryRun || l.collection == nil {
		report.Loaded = len(records)
		report.Simulated = true
		l.state = StateDone
		l.logger.Info("dry run, store writes skipped", "would_write", len(records))
		return report, nil
	}
	if len(records) == 0 {
		l.state = StateDone
		return report, nil
	}

	var err error
	switch mode {
	case ModeInsert:
		err = l.insertMany(ctx, records, &report)
	case ModeUpsert:
		err = l.upsertAll(ctx, records, &report)
	default:
		err = fmt.Errorf("unknown write mode %q", mode)
	}
	if err != nil {
		l.state = StateFailed
		return report, err
	}

	l.state = StateDone
	l.logger.Info("load finished",
		"mode", string(mode),
		"attempted", report.Attempted,
		"loaded", report.Loaded,
		"failed", len(report.Failed))
	return report, nil
}

// insertMany writes the whole batch unordered so one duplicate does not
// shadow the documents behind it.
func (l *Loader) insertMany(ctx context.Context, records []domain.Record, report *LoadReport) error {
	docs := make([]any, len(records))
	for i := range records {
		docs[i] = records[i]
	}

	res, err := l.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		report.Loaded = len(res.InsertedIDs)
		return nil
	}

	var bulkErr mongodrv.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return fmt.Errorf("insert batch: %w", err)
	}
	if bulkErr.WriteConcernError != nil {
		return fmt.Errorf("insert batch: %w", bulkErr)
	}

	for _, we := range bulkErr.WriteErrors {
		if we.Index < 0 || we.Index >= len(records) {
			continue
		}
		report.Failed = append(report.Failed, classifyWriteError(records[we.Index], we.Code, we.Message))
	}
	report.Loaded = len(records) - len(bulkErr.WriteErrors)
	return nil
}

// upsertAll replaces each document on its natural key.
func (l *Loader) upsertAll(ctx context.Context, records []domain.Record, report *LoadReport) error {
	for _, rec := range records {
		filter := bson.D{
			{Key: "station.id", Value: rec.Station.ID},
			{Key: "timestamp", Value: rec.Timestamp},
		}
		_, err := l.collection.ReplaceOne(ctx, filter, rec, options.Replace().SetUpsert(true))
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("upsert batch: %w", err)
			}
			report.Failed = append(report.Failed, LoadFailure{
				Record: rec,
				Reason: domain.ReasonWriteFailed,
				Detail: err.Error(),
			})
			continue
		}
		report.Loaded++
	}
	return nil
}

// classifyWriteError maps a server write error onto the reason enum.
func classifyWriteError(rec domain.Record, code int, message string) LoadFailure {
	reason := domain.ReasonWriteFailed
	if isDuplicateKeyCode(code) {
		reason = domain.ReasonDuplicateKey
	}
	return LoadFailure{Record: rec, Reason: reason, Detail: message}
}

// isDuplicateKeyCode matches the server codes raised by unique-index
// collisions.
func isDuplicateKeyCode(code int) bool {
	switch code {
	case 11000, 11001, 12582:
		return true
	default:
		return false
	}
}
