package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenandcoop/weather-etl/internal/domain"
	"github.com/greenandcoop/weather-etl/internal/pipeline"
	"github.com/greenandcoop/weather-etl/internal/quality"
	"github.com/greenandcoop/weather-etl/internal/store/mongo"
)

// --- mocks ---

type stubExtractor struct {
	source string
	obs    []domain.RawObservation
	err    error
}

func (s *stubExtractor) Source() string { return s.source }

func (s *stubExtractor) Extract(_ context.Context, _ string) ([]domain.RawObservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.obs, nil
}

// stubHarmonizer accepts everything except the listed stations and parses
// the raw timestamp as RFC 3339.
type stubHarmonizer struct {
	reject map[string]bool
}

func (s *stubHarmonizer) Harmonize(obs domain.RawObservation) (domain.Record, []domain.Anomaly, *domain.Rejection) {
	if s.reject[obs.StationID] {
		rej := domain.NewRejection(obs, domain.StageHarmonization, domain.ReasonUnparseableTimestamp, "stub")
		return domain.Record{}, nil, &rej
	}
	ts, _ := time.Parse(time.RFC3339, obs.Timestamp)
	return domain.Record{
		Station:   domain.Station{ID: obs.StationID, Network: domain.NetworkForSource(obs.Source)},
		Timestamp: ts,
		Measurements: map[string]domain.Measurement{
			"temperature": {Value: 4.2, Unit: "celsius"},
		},
		Metadata: domain.Metadata{Source: obs.Source, FileRef: obs.FileRef},
	}, nil, nil
}

type stubValidator struct {
	reject map[string]bool
}

func (s *stubValidator) Validate(rec domain.Record) (domain.Record, []domain.Anomaly, *domain.Rejection) {
	if s.reject[rec.Station.ID] {
		rej := domain.RejectRecord(rec, domain.StageValidation, domain.ReasonOutOfRange, "stub")
		return domain.Record{}, nil, &rej
	}
	rec.DataQuality = domain.DataQuality{CompletenessScore: 0.75}
	return rec, nil, nil
}

type stubLoader struct {
	failures   []mongo.LoadFailure
	connectErr error

	calls  []string
	mode   mongo.WriteMode
	loaded []domain.Record
}

func (s *stubLoader) Connect(context.Context) error {
	s.calls = append(s.calls, "connect")
	return s.connectErr
}

func (s *stubLoader) EnsureIndexes(context.Context) error {
	s.calls = append(s.calls, "indexes")
	return nil
}

func (s *stubLoader) Load(_ context.Context, mode mongo.WriteMode, records []domain.Record) (mongo.LoadReport, error) {
	s.calls = append(s.calls, "load")
	s.mode = mode
	s.loaded = records
	return mongo.LoadReport{
		Mode:      mode,
		Attempted: len(records),
		Loaded:    len(records) - len(s.failures),
		Failed:    s.failures,
	}, nil
}

func (s *stubLoader) Close(context.Context) error {
	s.calls = append(s.calls, "close")
	return nil
}

type captureSink struct {
	reports    []quality.Report
	rejections []domain.Rejection
	runID      string
	reportErr  error
}

func (c *captureSink) PublishReport(_ context.Context, rep quality.Report) error {
	if c.reportErr != nil {
		return c.reportErr
	}
	c.reports = append(c.reports, rep)
	return nil
}

func (c *captureSink) PublishRejections(_ context.Context, runID string, rejs []domain.Rejection) error {
	c.runID = runID
	c.rejections = append(c.rejections, rejs...)
	return nil
}

// --- helpers ---

func freezeClock(t *testing.T) time.Time {
	t.Helper()
	at := time.Date(2026, 2, 19, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { domain.SetClock(nil) })
	return at
}

func makeObs(source, station string, hour int) domain.RawObservation {
	return domain.RawObservation{
		Source:    source,
		StationID: station,
		Timestamp: fmt.Sprintf("2026-02-18T%02d:00:00Z", hour),
		FileRef:   station + "_2026-02-18.jsonl",
	}
}

// --- tests ---

func TestRun_HappyPath(t *testing.T) {
	freezeClock(t)

	infoclimat := &stubExtractor{source: "infoclimat", obs: []domain.RawObservation{
		makeObs("infoclimat", "07015", 10),
		makeObs("infoclimat", "00052", 10),
	}}
	wunderground := &stubExtractor{source: "wunderground", obs: []domain.RawObservation{
		makeObs("wunderground", "IICHTE19", 10),
	}}
	loader := &stubLoader{}
	sink := &captureSink{}

	r := pipeline.NewRunner(pipeline.Params{
		Extractors: []pipeline.Extractor{infoclimat, wunderground},
		Harmonizer: &stubHarmonizer{},
		Validator:  &stubValidator{},
		Aggregator: quality.NewAggregator(time.Hour),
		Loader:     loader,
		Reports:    sink,
		Rejects:    sink,
		Workers:    4,
	})

	require.Error(t, r.CheckReadiness(context.Background()))

	res, err := r.Run(context.Background(), "2026-02-18")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Extracted)
	assert.Equal(t, 3, res.Harmonized)
	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 0, res.Rejected)
	assert.Equal(t, 3, res.Loaded)
	assert.Equal(t, 0, res.LoadFailed)

	assert.Regexp(t, `^run-20260218-[0-9a-f]{4}$`, res.RunID)
	assert.Equal(t, res.RunID, res.Report.Run.RunID)
	assert.Equal(t, "2026-02-18", res.Report.Run.TargetDate)
	assert.Equal(t, []string{"infoclimat", "wunderground"}, res.Report.Run.Sources)
	assert.Equal(t, 3, res.Report.Counts.Loaded)

	assert.Equal(t, []string{"connect", "indexes", "load", "close"}, loader.calls)
	assert.Equal(t, mongo.ModeInsert, loader.mode)

	require.Len(t, sink.reports, 1)
	assert.Empty(t, sink.rejections)
	assert.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRun_RecordRejections(t *testing.T) {
	freezeClock(t)

	ext := &stubExtractor{source: "infoclimat", obs: []domain.RawObservation{
		makeObs("infoclimat", "07015", 10),
		makeObs("infoclimat", "BADTS", 10),
		makeObs("infoclimat", "OUTLIER", 10),
	}}
	sink := &captureSink{}

	r := pipeline.NewRunner(pipeline.Params{
		Extractors: []pipeline.Extractor{ext},
		Harmonizer: &stubHarmonizer{reject: map[string]bool{"BADTS": true}},
		Validator:  &stubValidator{reject: map[string]bool{"OUTLIER": true}},
		Aggregator: quality.NewAggregator(0),
		Rejects:    sink,
	})

	res, err := r.Run(context.Background(), "2026-02-18")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Extracted)
	assert.Equal(t, 2, res.Harmonized)
	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 2, res.Rejected)

	assert.Equal(t, map[string]int{
		"harmonization": 1,
		"validation":    1,
	}, res.Report.Counts.RejectedByStage)

	assert.Equal(t, res.RunID, sink.runID)
	require.Len(t, sink.rejections, 2)
}

func TestRun_ExtractFailureFailsRun(t *testing.T) {
	freezeClock(t)

	ext := &stubExtractor{source: "infoclimat", err: errors.New("data dir unreadable")}
	r := pipeline.NewRunner(pipeline.Params{
		Extractors: []pipeline.Extractor{ext},
		Harmonizer: &stubHarmonizer{},
		Validator:  &stubValidator{},
		Aggregator: quality.NewAggregator(0),
	})

	res, err := r.Run(context.Background(), "2026-02-18")
	require.Error(t, err)
	assert.ErrorContains(t, err, "extract infoclimat")
	assert.False(t, res.Success)
	assert.Error(t, r.CheckReadiness(context.Background()))
}

func TestRun_LoadFailuresReported(t *testing.T) {
	freezeClock(t)

	ext := &stubExtractor{source: "wunderground", obs: []domain.RawObservation{
		makeObs("wunderground", "IICHTE19", 10),
		makeObs("wunderground", "IICHTE19", 11),
		makeObs("wunderground", "ILAMAD25", 10),
	}}
	failed := domain.Record{
		Station:   domain.Station{ID: "IICHTE19", Network: domain.NetworkWeatherUnderground},
		Timestamp: time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC),
		Metadata:  domain.Metadata{Source: "wunderground"},
	}
	loader := &stubLoader{failures: []mongo.LoadFailure{
		{Record: failed, Reason: domain.ReasonDuplicateKey, Detail: "E11000 duplicate key"},
	}}
	sink := &captureSink{}

	r := pipeline.NewRunner(pipeline.Params{
		Extractors: []pipeline.Extractor{ext},
		Harmonizer: &stubHarmonizer{},
		Validator:  &stubValidator{},
		Aggregator: quality.NewAggregator(0),
		Loader:     loader,
		WriteMode:  mongo.ModeUpsert,
		Rejects:    sink,
	})

	res, err := r.Run(context.Background(), "2026-02-18")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 2, res.Loaded)
	assert.Equal(t, 1, res.LoadFailed)
	assert.Equal(t, mongo.ModeUpsert, loader.mode)
	assert.Equal(t, 1, res.Report.Counts.LoadFailed)

	require.Len(t, sink.rejections, 1)
	assert.Equal(t, domain.StageLoad, sink.rejections[0].Stage)
	assert.Equal(t, domain.ReasonDuplicateKey, sink.rejections[0].Reason)

	var loadAnomalies int
	for _, a := range res.Report.Anomalies {
		if a.Stage == domain.StageLoad {
			loadAnomalies++
		}
	}
	assert.Equal(t, 1, loadAnomalies)
}

func TestRun_WithoutStore(t *testing.T) {
	freezeClock(t)

	ext := &stubExtractor{source: "infoclimat", obs: []domain.RawObservation{
		makeObs("infoclimat", "07015", 10),
	}}
	r := pipeline.NewRunner(pipeline.Params{
		Extractors: []pipeline.Extractor{ext},
		Harmonizer: &stubHarmonizer{},
		Validator:  &stubValidator{},
		Aggregator: quality.NewAggregator(0),
	})

	res, err := r.Run(context.Background(), "2026-02-18")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 0, res.Loaded)
	assert.Equal(t, 0, res.Report.Counts.Loaded)
}

func TestRun_PublishFailureIsNotFatal(t *testing.T) {
	freezeClock(t)

	ext := &stubExtractor{source: "infoclimat", obs: []domain.RawObservation{
		makeObs("infoclimat", "07015", 10),
	}}
	sink := &captureSink{reportErr: errors.New("broker down")}

	r := pipeline.NewRunner(pipeline.Params{
		Extractors: []pipeline.Extractor{ext},
		Harmonizer: &stubHarmonizer{},
		Validator:  &stubValidator{},
		Aggregator: quality.NewAggregator(0),
		Reports:    sink,
	})

	res, err := r.Run(context.Background(), "2026-02-18")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, sink.reports)
}

func TestRun_StoreConnectFailureFailsRun(t *testing.T) {
	freezeClock(t)

	ext := &stubExtractor{source: "infoclimat", obs: []domain.RawObservation{
		makeObs("infoclimat", "07015", 10),
	}}
	loader := &stubLoader{connectErr: errors.New("no reachable servers")}

	r := pipeline.NewRunner(pipeline.Params{
		Extractors: []pipeline.Extractor{ext},
		Harmonizer: &stubHarmonizer{},
		Validator:  &stubValidator{},
		Aggregator: quality.NewAggregator(0),
		Loader:     loader,
	})

	res, err := r.Run(context.Background(), "2026-02-18")
	require.Error(t, err)
	assert.ErrorContains(t, err, "connect store")
	assert.False(t, res.Success)
}

func TestRun_WorkerPoolPreservesOrder(t *testing.T) {
	freezeClock(t)

	obs := make([]domain.RawObservation, 40)
	for i := range obs {
		obs[i] = domain.RawObservation{
			Source:    "infoclimat",
			StationID: fmt.Sprintf("s%02d", i),
			Timestamp: "2026-02-18T10:00:00Z",
		}
	}
	ext := &stubExtractor{source: "infoclimat", obs: obs}
	loader := &stubLoader{}

	r := pipeline.NewRunner(pipeline.Params{
		Extractors: []pipeline.Extractor{ext},
		Harmonizer: &stubHarmonizer{},
		Validator:  &stubValidator{},
		Aggregator: quality.NewAggregator(0),
		Loader:     loader,
		Workers:    8,
	})

	res, err := r.Run(context.Background(), "2026-02-18")
	require.NoError(t, err)
	assert.Equal(t, 40, res.Accepted)

	require.Len(t, loader.loaded, 40)
	for i, rec := range loader.loaded {
		assert.Equal(t, fmt.Sprintf("s%02d", i), rec.Station.ID)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	freezeClock(t)

	ext := &stubExtractor{source: "infoclimat", obs: []domain.RawObservation{
		makeObs("infoclimat", "07015", 10),
	}}
	r := pipeline.NewRunner(pipeline.Params{
		Extractors: []pipeline.Extractor{ext},
		Harmonizer: &stubHarmonizer{},
		Validator:  &stubValidator{},
		Aggregator: quality.NewAggregator(0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx, "2026-02-18")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Success)
}
