package quality

import (
	"time"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// anomalyCap bounds the report's anomaly list so report size stays
// independent of batch size.
const anomalyCap = 100

// RunInfo identifies the run a report describes.
type RunInfo struct {
	RunID       string    `json:"run_id"`
	TargetDate  string    `json:"target_date,omitempty"`
	Sources     []string  `json:"sources,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Counts summarizes record flow through the stages. Loaded and LoadFailed
// are filled by the pipeline after the store step; the aggregator itself
// never talks to the store.
type Counts struct {
	Extracted       int            `json:"extracted"`
	Harmonized      int            `json:"harmonized"`
	Accepted        int            `json:"accepted"`
	Rejected        int            `json:"rejected"`
	RejectedByStage map[string]int `json:"rejected_by_stage,omitempty"`
	Loaded          int            `json:"loaded"`
	LoadFailed      int            `json:"load_failed"`
}

// StationStats is the per-station breakdown over accepted records.
type StationStats struct {
	StationID       string  `json:"station_id"`
	Network         string  `json:"network"`
	Records         int     `json:"records"`
	AvgCompleteness float64 `json:"avg_completeness"`
}

// NetworkStats is the per-network breakdown over accepted records.
type NetworkStats struct {
	Network         string  `json:"network"`
	Records         int     `json:"records"`
	Stations        int     `json:"stations"`
	AvgCompleteness float64 `json:"avg_completeness"`
}

// TemporalCoverage describes the observed time span and, when an expected
// reporting interval is known, per-station gaps against it. Durations are
// rendered as strings ("1h0m0s") for the report's consumers.
type TemporalCoverage struct {
	Earliest         time.Time `json:"earliest"`
	Latest           time.Time `json:"latest"`
	ExpectedInterval string    `json:"expected_interval,omitempty"`
	GapCount         int       `json:"gap_count"`
	MaxGap           string    `json:"max_gap,omitempty"`
}

// HistogramBucket is one decile of the completeness-score distribution.
type HistogramBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// Report is the per-run quality summary. It is a derived value with no
// identity of its own: regenerated every run, never merged across runs by
// this system.
type Report struct {
	Run                RunInfo            `json:"run"`
	Counts             Counts             `json:"counts"`
	RejectionRate      float64            `json:"rejection_rate"`
	Stations           []StationStats     `json:"stations"`
	Networks           []NetworkStats     `json:"networks"`
	FieldCompleteness  map[string]float64 `json:"field_completeness"`
	TemporalCoverage   TemporalCoverage   `json:"temporal_coverage"`
	ScoreHistogram     []HistogramBucket  `json:"score_histogram"`
	Anomalies          []domain.Anomaly   `json:"anomalies"`
	AnomaliesTruncated bool               `json:"anomalies_truncated"`
}
