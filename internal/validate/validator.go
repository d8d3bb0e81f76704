package validate

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// Timestamp sanity limits. Observations from the future cannot be real;
// observations older than a year signal a misconfigured backfill.
const (
	futureSkewLimit = time.Hour
	staleAfter      = 365 * 24 * time.Hour
)

// Validator decides whether harmonized records are fit to persist and
// fills their data_quality block.
type Validator struct {
	policy Policy
	bounds Bounds
	logger *slog.Logger
}

// NewValidator builds a Validator. Pass nil bounds for the defaults.
func NewValidator(policy Policy, bounds Bounds, logger *slog.Logger) *Validator {
	if bounds == nil {
		bounds = DefaultBounds()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{policy: policy, bounds: bounds, logger: logger}
}

// Policy returns the active strict/lenient policy.
func (v *Validator) Policy() Policy { return v.policy }

// Validate applies required-field, range, consistency, and timestamp-sanity
// rules to one record. Lenient policy strips offending measurement fields
// and reports them as anomalies; strict policy rejects the record on the
// first violation. The returned record has data_quality populated.
func (v *Validator) Validate(rec domain.Record) (domain.Record, []domain.Anomaly, *domain.Rejection) {
	if strings.TrimSpace(rec.Station.ID) == "" {
		rej := domain.RejectRecord(rec, domain.StageValidation,
			domain.ReasonMissingRequiredField, "station.id is empty")
		return domain.Record{}, nil, &rej
	}
	if rec.Timestamp.IsZero() {
		rej := domain.RejectRecord(rec, domain.StageValidation,
			domain.ReasonMissingRequiredField, "timestamp is zero")
		return domain.Record{}, nil, &rej
	}

	var anomalies []domain.Anomaly

	// Implausible coordinates are handled before the required-location
	// check: once stripped, the record may no longer satisfy it.
	if loc := rec.Station.Location; loc != nil && !plausibleLocation(*loc) {
		detail := fmt.Sprintf("coordinates (%v, %v) outside WGS-84 bounds", loc.Latitude, loc.Longitude)
		if v.policy == Strict {
			rej := domain.RejectRecord(rec, domain.StageValidation, domain.ReasonOutOfRange, detail)
			return domain.Record{}, nil, &rej
		}
		rec.Station.Location = nil
		rec.Station.LocationGeo = nil
		anomalies = append(anomalies, v.anomaly(rec, "station.location", domain.ReasonOutOfRange, detail))
	}

	if !rec.HasLocation() {
		rej := domain.RejectRecord(rec, domain.StageValidation,
			domain.ReasonMissingRequiredField, "no station location or location_geo")
		return domain.Record{}, nil, &rej
	}

	now := domain.Now()
	if rec.Timestamp.After(now.Add(futureSkewLimit)) {
		rej := domain.RejectRecord(rec, domain.StageValidation, domain.ReasonFutureTimestamp,
			fmt.Sprintf("timestamp %s is ahead of %s", rec.Timestamp.Format(time.RFC3339), now.Format(time.RFC3339)))
		return domain.Record{}, nil, &rej
	}
	if now.Sub(rec.Timestamp) > staleAfter {
		detail := fmt.Sprintf("timestamp %s is more than a year old", rec.Timestamp.Format(time.RFC3339))
		if v.policy == Strict {
			rej := domain.RejectRecord(rec, domain.StageValidation, domain.ReasonStaleTimestamp, detail)
			return domain.Record{}, nil, &rej
		}
		anomalies = append(anomalies, v.anomaly(rec, "timestamp", domain.ReasonStaleTimestamp, detail))
	}

	// Range checks walk the vocabulary in canonical order so strict-mode
	// rejections are deterministic.
	for _, field := range domain.CanonicalFields {
		m, ok := rec.Measurements[field]
		if !ok || v.bounds.Check(field, m.Value) {
			continue
		}
		r := v.bounds[field]
		detail := fmt.Sprintf("%s %v %s outside [%v, %v]", field, m.Value, m.Unit, r.Min, r.Max)
		if v.policy == Strict {
			rej := domain.RejectRecord(rec, domain.StageValidation, domain.ReasonOutOfRange, detail)
			return domain.Record{}, nil, &rej
		}
		delete(rec.Measurements, field)
		anomalies = append(anomalies, v.anomaly(rec, field, domain.ReasonOutOfRange, detail))
	}

	// Cross-field consistency runs after range stripping so it only sees
	// surviving values. Lenient mode strips the secondary quantity of the
	// violated pair (dewpoint, wind_gust), never the primary reading.
	rej, consistencyAnoms := v.checkConsistency(&rec)
	if rej != nil {
		return domain.Record{}, nil, rej
	}
	anomalies = append(anomalies, consistencyAnoms...)

	rec.DataQuality = computeQuality(rec.Measurements)
	return rec, anomalies, nil
}

func (v *Validator) checkConsistency(rec *domain.Record) (*domain.Rejection, []domain.Anomaly) {
	var anomalies []domain.Anomaly

	pairs := []struct {
		primary, secondary string
		violated           func(primary, secondary float64) bool
	}{
		{domain.FieldTemperature, domain.FieldDewpoint,
			func(t, dp float64) bool { return dp > t }},
		{domain.FieldWindSpeed, domain.FieldWindGust,
			func(spd, gust float64) bool { return gust < spd }},
	}

	for _, p := range pairs {
		pm, okP := rec.Measurements[p.primary]
		sm, okS := rec.Measurements[p.secondary]
		if !okP || !okS || !p.violated(pm.Value, sm.Value) {
			continue
		}
		detail := fmt.Sprintf("%s %v inconsistent with %s %v", p.secondary, sm.Value, p.primary, pm.Value)
		if v.policy == Strict {
			rej := domain.RejectRecord(*rec, domain.StageValidation, domain.ReasonInconsistentFields, detail)
			return &rej, nil
		}
		delete(rec.Measurements, p.secondary)
		anomalies = append(anomalies, v.anomaly(*rec, p.secondary, domain.ReasonInconsistentFields, detail))
	}

	return nil, anomalies
}

func (v *Validator) anomaly(rec domain.Record, field string, reason domain.Reason, detail string) domain.Anomaly {
	return domain.Anomaly{
		Stage:      domain.StageValidation,
		Reason:     reason,
		StationID:  rec.Station.ID,
		Field:      field,
		Detail:     detail,
		ObservedAt: rec.Timestamp,
		DetectedAt: domain.Now(),
	}
}

func plausibleLocation(loc domain.Location) bool {
	return loc.Latitude >= -90 && loc.Latitude <= 90 &&
		loc.Longitude >= -180 && loc.Longitude <= 180
}

func computeQuality(measurements map[string]domain.Measurement) domain.DataQuality {
	missing := domain.MissingFields(measurements)
	score := 1 - float64(len(missing))/float64(domain.VocabularySize())
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return domain.DataQuality{CompletenessScore: score, MissingFields: missing}
}
