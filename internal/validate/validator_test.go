package validate

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// validRecord returns a record carrying every vocabulary field with an
// in-range value, so individual tests can break exactly one thing.
func validRecord(ts time.Time) domain.Record {
	values := map[string]float64{
		domain.FieldTemperature:       12.5,
		domain.FieldDewpoint:          8.3,
		domain.FieldHumidity:          76,
		domain.FieldPressure:          1013.2,
		domain.FieldWindSpeed:         18,
		domain.FieldWindGust:          32.4,
		domain.FieldWindDirection:     225,
		domain.FieldPrecipRate:        0.4,
		domain.FieldPrecip1h:          0.2,
		domain.FieldPrecip3h:          1,
		domain.FieldPrecipAccumulated: 2.5,
		domain.FieldVisibility:        25000,
		domain.FieldCloudCover:        6,
		domain.FieldSnowDepth:         0,
		domain.FieldUVIndex:           1,
		domain.FieldSolarRadiation:    120,
		domain.FieldWeatherCode:       3,
	}
	m := make(map[string]domain.Measurement, len(values))
	for f, v := range values {
		m[f] = domain.Measurement{Value: v, Unit: domain.CanonicalUnits[f]}
	}
	return domain.Record{
		Station: domain.Station{
			ID:          "07015",
			Network:     domain.NetworkInfoClimat,
			Location:    &domain.Location{Latitude: 50.57, Longitude: 3.0975},
			LocationGeo: domain.NewGeoPoint(50.57, 3.0975),
		},
		Timestamp:    ts,
		Measurements: m,
		Metadata:     domain.Metadata{Source: domain.SourceInfoClimat, FileRef: "infoclimat/07015_2026-02-18.jsonl"},
	}
}

func freezeClock(t *testing.T) time.Time {
	t.Helper()
	frozen := time.Date(2026, 2, 19, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { domain.SetClock(nil) })
	return frozen
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "strict", Strict.String())
	assert.Equal(t, "lenient", Lenient.String())
}

func TestBounds(t *testing.T) {
	t.Run("defaults cover the bounded vocabulary", func(t *testing.T) {
		b := DefaultBounds()
		assert.Equal(t, Range{Min: -90, Max: 60}, b[domain.FieldTemperature])
		assert.Equal(t, Range{Min: 850, Max: 1085}, b[domain.FieldPressure])
		assert.Equal(t, Range{Min: 0, Max: 150}, b[domain.FieldWindSpeed])
		assert.Equal(t, Range{Min: 0, Max: 360}, b[domain.FieldWindDirection])
		// Accumulation and WMO codes carry no physical bound.
		assert.NotContains(t, b, domain.FieldPrecipAccumulated)
		assert.NotContains(t, b, domain.FieldWeatherCode)
	})

	t.Run("unbounded fields always pass", func(t *testing.T) {
		b := DefaultBounds()
		assert.True(t, b.Check(domain.FieldWeatherCode, 99))
		assert.True(t, b.Check(domain.FieldPrecipAccumulated, 12345))
	})

	t.Run("merge overrides without mutating the base", func(t *testing.T) {
		base := DefaultBounds()
		merged := base.Merge(Bounds{domain.FieldTemperature: {Min: -40, Max: 40}})

		assert.Equal(t, Range{Min: -40, Max: 40}, merged[domain.FieldTemperature])
		assert.Equal(t, Range{Min: -90, Max: 60}, base[domain.FieldTemperature])
		assert.Equal(t, Range{Min: 0, Max: 100}, merged[domain.FieldHumidity])
	})
}

func TestValidateRequiredFields(t *testing.T) {
	freezeClock(t)
	ts := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)
	v := NewValidator(Lenient, nil, nil)

	t.Run("empty station id", func(t *testing.T) {
		rec := validRecord(ts)
		rec.Station.ID = " "

		_, _, rej := v.Validate(rec)

		require.NotNil(t, rej)
		assert.Equal(t, domain.StageValidation, rej.Stage)
		assert.Equal(t, domain.ReasonMissingRequiredField, rej.Reason)
	})

	t.Run("zero timestamp", func(t *testing.T) {
		rec := validRecord(time.Time{})

		_, _, rej := v.Validate(rec)

		require.NotNil(t, rej)
		assert.Equal(t, domain.ReasonMissingRequiredField, rej.Reason)
	})

	t.Run("no location at all", func(t *testing.T) {
		rec := validRecord(ts)
		rec.Station.Location = nil
		rec.Station.LocationGeo = nil

		_, _, rej := v.Validate(rec)

		require.NotNil(t, rej)
		assert.Equal(t, domain.ReasonMissingRequiredField, rej.Reason)
	})

	t.Run("geo point alone satisfies the location requirement", func(t *testing.T) {
		rec := validRecord(ts)
		rec.Station.Location = nil

		got, anomalies, rej := v.Validate(rec)

		require.Nil(t, rej)
		assert.Empty(t, anomalies)
		assert.Equal(t, 1.0, got.DataQuality.CompletenessScore)
	})
}

func TestValidateRangePolicy(t *testing.T) {
	freezeClock(t)
	ts := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)

	t.Run("lenient strips out-of-range pressure and keeps the record", func(t *testing.T) {
		v := NewValidator(Lenient, nil, nil)
		rec := validRecord(ts)
		rec.Measurements[domain.FieldPressure] = domain.Measurement{Value: 2000, Unit: "hPa"}

		got, anomalies, rej := v.Validate(rec)

		require.Nil(t, rej)
		require.Len(t, anomalies, 1)
		assert.Equal(t, domain.ReasonOutOfRange, anomalies[0].Reason)
		assert.Equal(t, domain.FieldPressure, anomalies[0].Field)

		assert.NotContains(t, got.Measurements, domain.FieldPressure)
		assert.Contains(t, got.DataQuality.MissingFields, domain.FieldPressure)
		assert.Equal(t, 1-float64(1)/float64(domain.VocabularySize()), got.DataQuality.CompletenessScore)
	})

	t.Run("strict rejects the same record outright", func(t *testing.T) {
		v := NewValidator(Strict, nil, nil)
		rec := validRecord(ts)
		rec.Measurements[domain.FieldPressure] = domain.Measurement{Value: 2000, Unit: "hPa"}

		_, anomalies, rej := v.Validate(rec)

		require.NotNil(t, rej)
		assert.Empty(t, anomalies)
		assert.Equal(t, domain.StageValidation, rej.Stage)
		assert.Equal(t, domain.ReasonOutOfRange, rej.Reason)
		assert.Contains(t, rej.Detail, "pressure")
	})

	t.Run("custom bounds override the defaults", func(t *testing.T) {
		bounds := DefaultBounds().Merge(Bounds{domain.FieldTemperature: {Min: -40, Max: 10}})
		v := NewValidator(Lenient, bounds, nil)
		rec := validRecord(ts) // temperature 12.5 now out of range

		got, anomalies, rej := v.Validate(rec)

		require.Nil(t, rej)
		require.Len(t, anomalies, 1)
		assert.Equal(t, domain.FieldTemperature, anomalies[0].Field)
		assert.NotContains(t, got.Measurements, domain.FieldTemperature)
	})
}

func TestValidateConsistency(t *testing.T) {
	freezeClock(t)
	ts := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)

	t.Run("lenient strips dewpoint above temperature", func(t *testing.T) {
		v := NewValidator(Lenient, nil, nil)
		rec := validRecord(ts)
		rec.Measurements[domain.FieldDewpoint] = domain.Measurement{Value: 14.2, Unit: "°C"} // temp is 12.5

		got, anomalies, rej := v.Validate(rec)

		require.Nil(t, rej)
		require.Len(t, anomalies, 1)
		assert.Equal(t, domain.ReasonInconsistentFields, anomalies[0].Reason)
		assert.Equal(t, domain.FieldDewpoint, anomalies[0].Field)

		assert.NotContains(t, got.Measurements, domain.FieldDewpoint)
		assert.Contains(t, got.Measurements, domain.FieldTemperature)
	})

	t.Run("strict rejects dewpoint above temperature", func(t *testing.T) {
		v := NewValidator(Strict, nil, nil)
		rec := validRecord(ts)
		rec.Measurements[domain.FieldDewpoint] = domain.Measurement{Value: 14.2, Unit: "°C"}

		_, _, rej := v.Validate(rec)

		require.NotNil(t, rej)
		assert.Equal(t, domain.ReasonInconsistentFields, rej.Reason)
	})

	t.Run("lenient strips gust below wind speed", func(t *testing.T) {
		v := NewValidator(Lenient, nil, nil)
		rec := validRecord(ts)
		rec.Measurements[domain.FieldWindGust] = domain.Measurement{Value: 9.7, Unit: "km/h"} // speed is 18

		got, anomalies, rej := v.Validate(rec)

		require.Nil(t, rej)
		require.Len(t, anomalies, 1)
		assert.Equal(t, domain.FieldWindGust, anomalies[0].Field)
		assert.Contains(t, got.Measurements, domain.FieldWindSpeed)
	})

	t.Run("equal dewpoint and temperature is consistent", func(t *testing.T) {
		v := NewValidator(Strict, nil, nil)
		rec := validRecord(ts)
		rec.Measurements[domain.FieldDewpoint] = domain.Measurement{Value: 12.5, Unit: "°C"}

		_, anomalies, rej := v.Validate(rec)

		require.Nil(t, rej)
		assert.Empty(t, anomalies)
	})
}

func TestValidateCompleteness(t *testing.T) {
	freezeClock(t)
	ts := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)
	v := NewValidator(Lenient, nil, nil)

	t.Run("missing humidity only", func(t *testing.T) {
		rec := validRecord(ts)
		delete(rec.Measurements, domain.FieldHumidity)

		got, _, rej := v.Validate(rec)

		require.Nil(t, rej)
		assert.Equal(t, 1-float64(1)/float64(domain.VocabularySize()), got.DataQuality.CompletenessScore)
		assert.Equal(t, []string{domain.FieldHumidity}, got.DataQuality.MissingFields)
	})

	t.Run("full vocabulary scores one", func(t *testing.T) {
		got, _, rej := v.Validate(validRecord(ts))

		require.Nil(t, rej)
		assert.Equal(t, 1.0, got.DataQuality.CompletenessScore)
		assert.Empty(t, got.DataQuality.MissingFields)
	})

	t.Run("no measurements scores zero but stays accepted", func(t *testing.T) {
		rec := validRecord(ts)
		rec.Measurements = map[string]domain.Measurement{}

		got, _, rej := v.Validate(rec)

		require.Nil(t, rej)
		assert.Equal(t, 0.0, got.DataQuality.CompletenessScore)
		assert.Len(t, got.DataQuality.MissingFields, domain.VocabularySize())
	})

	t.Run("score stays within the unit interval", func(t *testing.T) {
		got, _, rej := v.Validate(validRecord(ts))
		require.Nil(t, rej)
		assert.GreaterOrEqual(t, got.DataQuality.CompletenessScore, 0.0)
		assert.LessOrEqual(t, got.DataQuality.CompletenessScore, 1.0)
	})
}

func TestValidateTimestampSanity(t *testing.T) {
	frozen := freezeClock(t)

	t.Run("future timestamp rejects regardless of policy", func(t *testing.T) {
		v := NewValidator(Lenient, nil, nil)
		rec := validRecord(frozen.Add(2 * time.Hour))

		_, _, rej := v.Validate(rec)

		require.NotNil(t, rej)
		assert.Equal(t, domain.ReasonFutureTimestamp, rej.Reason)
	})

	t.Run("slight clock skew is tolerated", func(t *testing.T) {
		v := NewValidator(Lenient, nil, nil)
		rec := validRecord(frozen.Add(30 * time.Minute))

		_, _, rej := v.Validate(rec)

		assert.Nil(t, rej)
	})

	t.Run("stale timestamp is an anomaly in lenient mode", func(t *testing.T) {
		v := NewValidator(Lenient, nil, nil)
		rec := validRecord(frozen.Add(-400 * 24 * time.Hour))

		got, anomalies, rej := v.Validate(rec)

		require.Nil(t, rej)
		require.Len(t, anomalies, 1)
		assert.Equal(t, domain.ReasonStaleTimestamp, anomalies[0].Reason)
		// The reading itself is untouched.
		assert.Equal(t, 1.0, got.DataQuality.CompletenessScore)
	})

	t.Run("stale timestamp rejects in strict mode", func(t *testing.T) {
		v := NewValidator(Strict, nil, nil)
		rec := validRecord(frozen.Add(-400 * 24 * time.Hour))

		_, _, rej := v.Validate(rec)

		require.NotNil(t, rej)
		assert.Equal(t, domain.ReasonStaleTimestamp, rej.Reason)
	})
}

func TestValidateLocationSanity(t *testing.T) {
	freezeClock(t)
	ts := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)

	t.Run("implausible coordinates strip to a missing-location rejection", func(t *testing.T) {
		v := NewValidator(Lenient, nil, nil)
		rec := validRecord(ts)
		rec.Station.Location = &domain.Location{Latitude: 999, Longitude: 3}
		rec.Station.LocationGeo = domain.NewGeoPoint(999, 3)

		_, _, rej := v.Validate(rec)

		// Stripping the only position leaves the record unlocatable.
		require.NotNil(t, rej)
		assert.Equal(t, domain.ReasonMissingRequiredField, rej.Reason)
	})

	t.Run("implausible coordinates reject in strict mode", func(t *testing.T) {
		v := NewValidator(Strict, nil, nil)
		rec := validRecord(ts)
		rec.Station.Location = &domain.Location{Latitude: 50.57, Longitude: -190}

		_, _, rej := v.Validate(rec)

		require.NotNil(t, rej)
		assert.Equal(t, domain.ReasonOutOfRange, rej.Reason)
	})
}
