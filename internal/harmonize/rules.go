package harmonize

import (
	"math"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// fieldKind selects the parsing strategy for one raw column.
type fieldKind int

const (
	kindNumeric fieldKind = iota
	kindCardinal
)

// fieldRule maps one source column to a canonical measurement. convert is
// applied after coercion; nil passes the value through unchanged.
type fieldRule struct {
	raw     string
	field   string
	kind    fieldKind
	convert func(float64) float64
}

// Imperial to metric conversions for Weather Underground columns. Results
// are rounded to one decimal, matching the precision of the source data.
func fahrenheitToCelsius(f float64) float64 { return round1((f - 32) * 5 / 9) }

func inchesHgToHectopascals(in float64) float64 { return round1(in * 33.8639) }

func mphToKmh(mph float64) float64 { return round1(mph * 1.609344) }

func inchesToMillimeters(in float64) float64 { return round1(in * 25.4) }

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// wundergroundRules covers the display-style columns of a personal weather
// station export. Values arrive imperial, some with unit suffixes.
var wundergroundRules = []fieldRule{
	{raw: "Temperature", field: domain.FieldTemperature, convert: fahrenheitToCelsius},
	{raw: "Dew Point", field: domain.FieldDewpoint, convert: fahrenheitToCelsius},
	{raw: "Humidity", field: domain.FieldHumidity},
	{raw: "Speed", field: domain.FieldWindSpeed, convert: mphToKmh},
	{raw: "Gust", field: domain.FieldWindGust, convert: mphToKmh},
	{raw: "Wind", field: domain.FieldWindDirection, kind: kindCardinal},
	{raw: "Pressure", field: domain.FieldPressure, convert: inchesHgToHectopascals},
	{raw: "Precip. Rate.", field: domain.FieldPrecipRate, convert: inchesToMillimeters},
	{raw: "Precip. Accum.", field: domain.FieldPrecipAccumulated, convert: inchesToMillimeters},
	{raw: "UV", field: domain.FieldUVIndex},
	{raw: "Solar", field: domain.FieldSolarRadiation},
}

// infoclimatRules covers the French hourly field names. Values are already
// metric; wind direction arrives as numeric degrees.
var infoclimatRules = []fieldRule{
	{raw: "temperature", field: domain.FieldTemperature},
	{raw: "point_de_rosee", field: domain.FieldDewpoint},
	{raw: "humidite", field: domain.FieldHumidity},
	{raw: "pression", field: domain.FieldPressure},
	{raw: "vent_moyen", field: domain.FieldWindSpeed},
	{raw: "vent_rafales", field: domain.FieldWindGust},
	{raw: "vent_direction", field: domain.FieldWindDirection},
	{raw: "pluie_1h", field: domain.FieldPrecip1h},
	{raw: "pluie_3h", field: domain.FieldPrecip3h},
	{raw: "visibilite", field: domain.FieldVisibility},
	{raw: "nebulosite", field: domain.FieldCloudCover},
	{raw: "neige_au_sol", field: domain.FieldSnowDepth},
	{raw: "temps_omm", field: domain.FieldWeatherCode},
}

// rulesForSource returns the rule table for a source tag, nil for unknown
// sources (their observations harmonize to empty measurement maps and fall
// to validation).
func rulesForSource(source string) []fieldRule {
	switch source {
	case domain.SourceWunderground:
		return wundergroundRules
	case domain.SourceInfoClimat:
		return infoclimatRules
	default:
		return nil
	}
}
