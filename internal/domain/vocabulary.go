package domain

// Canonical measurement field names.
const (
	FieldTemperature       = "temperature"
	FieldDewpoint          = "dewpoint"
	FieldHumidity          = "humidity"
	FieldPressure          = "pressure"
	FieldWindSpeed         = "wind_speed"
	FieldWindGust          = "wind_gust"
	FieldWindDirection     = "wind_direction"
	FieldPrecipRate        = "precipitation_rate"
	FieldPrecip1h          = "precipitation_1h"
	FieldPrecip3h          = "precipitation_3h"
	FieldPrecipAccumulated = "precipitation_accumulated"
	FieldVisibility        = "visibility"
	FieldCloudCover        = "cloud_cover"
	FieldSnowDepth         = "snow_depth"
	FieldUVIndex           = "uv_index"
	FieldSolarRadiation    = "solar_radiation"
	FieldWeatherCode       = "weather_code"
)

// CanonicalFields is the full measurement vocabulary in canonical order.
// missing_fields lists and report sections follow this order.
var CanonicalFields = []string{
	FieldTemperature,
	FieldDewpoint,
	FieldHumidity,
	FieldPressure,
	FieldWindSpeed,
	FieldWindGust,
	FieldWindDirection,
	FieldPrecipRate,
	FieldPrecip1h,
	FieldPrecip3h,
	FieldPrecipAccumulated,
	FieldVisibility,
	FieldCloudCover,
	FieldSnowDepth,
	FieldUVIndex,
	FieldSolarRadiation,
	FieldWeatherCode,
}

// CanonicalUnits maps each vocabulary field to its canonical unit.
var CanonicalUnits = map[string]string{
	FieldTemperature:       "°C",
	FieldDewpoint:          "°C",
	FieldHumidity:          "%",
	FieldPressure:          "hPa",
	FieldWindSpeed:         "km/h",
	FieldWindGust:          "km/h",
	FieldWindDirection:     "degrees",
	FieldPrecipRate:        "mm/h",
	FieldPrecip1h:          "mm",
	FieldPrecip3h:          "mm",
	FieldPrecipAccumulated: "mm",
	FieldVisibility:        "m",
	FieldCloudCover:        "octas",
	FieldSnowDepth:         "cm",
	FieldUVIndex:           "index",
	FieldSolarRadiation:    "W/m²",
	FieldWeatherCode:       "omm_code",
}

var canonicalIndex = func() map[string]int {
	m := make(map[string]int, len(CanonicalFields))
	for i, f := range CanonicalFields {
		m[f] = i
	}
	return m
}()

// IsCanonicalField reports whether name belongs to the vocabulary.
func IsCanonicalField(name string) bool {
	_, ok := canonicalIndex[name]
	return ok
}

// VocabularySize is the N in the completeness formula.
func VocabularySize() int { return len(CanonicalFields) }

// MissingFields returns the vocabulary fields absent from measurements,
// in canonical order.
func MissingFields(measurements map[string]Measurement) []string {
	missing := make([]string, 0, len(CanonicalFields))
	for _, f := range CanonicalFields {
		if _, ok := measurements[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
