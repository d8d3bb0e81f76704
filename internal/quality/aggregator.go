package quality

import (
	"fmt"
	"sort"
	"time"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// Input bundles everything the aggregator consumes for one run. Anomalies
// are expected in detection order; the pipeline produces them that way.
type Input struct {
	RunID      string
	TargetDate string
	Sources    []string
	Extracted  int
	Harmonized int
	Accepted   []domain.Record
	Rejections []domain.Rejection
	Anomalies  []domain.Anomaly
	Loaded     int
	LoadFailed int
}

// Aggregator folds one run's outputs into a quality report. It is a pure
// function of its input plus the package clock; it performs no I/O.
type Aggregator struct {
	expectedInterval time.Duration
}

// NewAggregator builds an Aggregator. A non-positive expectedInterval
// disables gap detection.
func NewAggregator(expectedInterval time.Duration) *Aggregator {
	return &Aggregator{expectedInterval: expectedInterval}
}

// Aggregate produces the run's quality report. Map-derived sections are
// emitted in sorted key order so identical inputs yield identical reports.
func (a *Aggregator) Aggregate(in Input) Report {
	rep := Report{
		Run: RunInfo{
			RunID:       in.RunID,
			TargetDate:  in.TargetDate,
			Sources:     in.Sources,
			GeneratedAt: domain.Now(),
		},
		Counts: Counts{
			Extracted:  in.Extracted,
			Harmonized: in.Harmonized,
			Accepted:   len(in.Accepted),
			Rejected:   len(in.Rejections),
			Loaded:     in.Loaded,
			LoadFailed: in.LoadFailed,
		},
	}

	if len(in.Rejections) > 0 {
		byStage := make(map[string]int, 3)
		for _, rej := range in.Rejections {
			byStage[string(rej.Stage)]++
		}
		rep.Counts.RejectedByStage = byStage
	}

	if denom := len(in.Accepted) + len(in.Rejections); denom > 0 {
		rep.RejectionRate = float64(len(in.Rejections)) / float64(denom)
	}

	rep.Stations, rep.Networks = a.breakdowns(in.Accepted)
	rep.FieldCompleteness = a.fieldCompleteness(in.Accepted)
	rep.TemporalCoverage = a.temporalCoverage(in.Accepted)
	rep.ScoreHistogram = a.scoreHistogram(in.Accepted)
	rep.Anomalies, rep.AnomaliesTruncated = a.collectAnomalies(in)

	return rep
}

func (a *Aggregator) breakdowns(accepted []domain.Record) ([]StationStats, []NetworkStats) {
	type acc struct {
		network string
		records int
		sum     float64
	}
	stations := make(map[string]*acc)
	type netAcc struct {
		records  int
		sum      float64
		stations map[string]struct{}
	}
	networks := make(map[string]*netAcc)

	for _, rec := range accepted {
		s := stations[rec.Station.ID]
		if s == nil {
			s = &acc{network: rec.Station.Network}
			stations[rec.Station.ID] = s
		}
		s.records++
		s.sum += rec.DataQuality.CompletenessScore

		n := networks[rec.Station.Network]
		if n == nil {
			n = &netAcc{stations: make(map[string]struct{})}
			networks[rec.Station.Network] = n
		}
		n.records++
		n.sum += rec.DataQuality.CompletenessScore
		n.stations[rec.Station.ID] = struct{}{}
	}

	stationStats := make([]StationStats, 0, len(stations))
	for id, s := range stations {
		stationStats = append(stationStats, StationStats{
			StationID:       id,
			Network:         s.network,
			Records:         s.records,
			AvgCompleteness: s.sum / float64(s.records),
		})
	}
	sort.Slice(stationStats, func(i, j int) bool { return stationStats[i].StationID < stationStats[j].StationID })

	networkStats := make([]NetworkStats, 0, len(networks))
	for name, n := range networks {
		networkStats = append(networkStats, NetworkStats{
			Network:         name,
			Records:         n.records,
			Stations:        len(n.stations),
			AvgCompleteness: n.sum / float64(n.records),
		})
	}
	sort.Slice(networkStats, func(i, j int) bool { return networkStats[i].Network < networkStats[j].Network })

	return stationStats, networkStats
}

func (a *Aggregator) fieldCompleteness(accepted []domain.Record) map[string]float64 {
	if len(accepted) == 0 {
		return map[string]float64{}
	}
	ratios := make(map[string]float64, domain.VocabularySize())
	for _, field := range domain.CanonicalFields {
		present := 0
		for _, rec := range accepted {
			if _, ok := rec.Measurements[field]; ok {
				present++
			}
		}
		ratios[field] = float64(present) / float64(len(accepted))
	}
	return ratios
}

func (a *Aggregator) temporalCoverage(accepted []domain.Record) TemporalCoverage {
	cov := TemporalCoverage{}
	if a.expectedInterval > 0 {
		cov.ExpectedInterval = a.expectedInterval.String()
	}
	if len(accepted) == 0 {
		return cov
	}

	perStation := make(map[string][]time.Time)
	cov.Earliest = accepted[0].Timestamp
	cov.Latest = accepted[0].Timestamp
	for _, rec := range accepted {
		if rec.Timestamp.Before(cov.Earliest) {
			cov.Earliest = rec.Timestamp
		}
		if rec.Timestamp.After(cov.Latest) {
			cov.Latest = rec.Timestamp
		}
		perStation[rec.Station.ID] = append(perStation[rec.Station.ID], rec.Timestamp)
	}

	if a.expectedInterval <= 0 {
		return cov
	}

	var maxGap time.Duration
	for _, stamps := range perStation {
		sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
		for i := 1; i < len(stamps); i++ {
			delta := stamps[i].Sub(stamps[i-1])
			if delta > a.expectedInterval {
				cov.GapCount++
				if delta > maxGap {
					maxGap = delta
				}
			}
		}
	}
	if maxGap > 0 {
		cov.MaxGap = maxGap.String()
	}
	return cov
}

func (a *Aggregator) scoreHistogram(accepted []domain.Record) []HistogramBucket {
	buckets := make([]HistogramBucket, 10)
	for i := range buckets {
		buckets[i].Range = fmt.Sprintf("%.1f-%.1f", float64(i)/10, float64(i+1)/10)
	}
	for _, rec := range accepted {
		idx := int(rec.DataQuality.CompletenessScore * 10)
		if idx > 9 {
			idx = 9 // a perfect 1.0 belongs to the top decile
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx].Count++
	}
	return buckets
}

func (a *Aggregator) collectAnomalies(in Input) ([]domain.Anomaly, bool) {
	merged := make([]domain.Anomaly, 0, len(in.Anomalies)+len(in.Rejections))
	merged = append(merged, in.Anomalies...)
	for _, rej := range in.Rejections {
		merged = append(merged, rej.AsAnomaly())
	}

	// Earliest detected first; the stable sort keeps pipeline order for
	// entries stamped in the same clock tick.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DetectedAt.Before(merged[j].DetectedAt)
	})

	if len(merged) > anomalyCap {
		return merged[:anomalyCap], true
	}
	return merged, false
}
