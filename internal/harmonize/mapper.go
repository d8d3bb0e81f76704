package harmonize

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// MapFields translates the raw fields of one observation into canonical
// measurements using the source's rule table. Null sentinels are skipped
// silently (absent key, not an error). Fields that fail coercion or
// cardinal lookup are dropped and reported as anomalies; they never fail
// the observation itself.
func MapFields(obs domain.RawObservation) (map[string]domain.Measurement, []domain.Anomaly) {
	rules := rulesForSource(obs.Source)
	measurements := make(map[string]domain.Measurement, len(rules))
	var anomalies []domain.Anomaly

	for _, rule := range rules {
		raw, present := obs.Fields[rule.raw]
		if !present || IsNull(raw) {
			continue
		}

		switch rule.kind {
		case kindCardinal:
			deg, ok := CardinalToDegrees(cast.ToString(raw))
			if !ok {
				anomalies = append(anomalies, fieldAnomaly(obs, rule.field,
					domain.ReasonUnknownWindDirection, fmt.Sprintf("cardinal %q not in compass table", cast.ToString(raw))))
				continue
			}
			measurements[rule.field] = domain.Measurement{Value: deg, Unit: domain.CanonicalUnits[rule.field]}

		default:
			val, err := ToFloat(raw)
			if err != nil {
				anomalies = append(anomalies, fieldAnomaly(obs, rule.field,
					domain.ReasonInvalidNumericField, err.Error()))
				continue
			}
			if rule.convert != nil {
				val = rule.convert(val)
			}
			measurements[rule.field] = domain.Measurement{Value: val, Unit: domain.CanonicalUnits[rule.field]}
		}
	}

	return measurements, anomalies
}

func fieldAnomaly(obs domain.RawObservation, field string, reason domain.Reason, detail string) domain.Anomaly {
	return domain.Anomaly{
		Stage:      domain.StageHarmonization,
		Reason:     reason,
		StationID:  obs.StationID,
		Field:      field,
		Detail:     detail,
		DetectedAt: domain.Now(),
	}
}
