package validate

import "github.com/greenandcoop/weather-etl/internal/domain"

// Range bounds one measurement field, inclusive on both ends.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Bounds maps canonical fields to physical plausibility ranges in canonical
// units. Fields without an entry are not range-checked.
type Bounds map[string]Range

// DefaultBounds returns the stock range table. Callers override individual
// entries via Merge when a pipeline config file supplies its own.
func DefaultBounds() Bounds {
	return Bounds{
		domain.FieldTemperature:    {Min: -90, Max: 60},
		domain.FieldDewpoint:       {Min: -60, Max: 50},
		domain.FieldHumidity:       {Min: 0, Max: 100},
		domain.FieldPressure:       {Min: 850, Max: 1085},
		domain.FieldWindSpeed:      {Min: 0, Max: 150},
		domain.FieldWindGust:       {Min: 0, Max: 400},
		domain.FieldWindDirection:  {Min: 0, Max: 360},
		domain.FieldPrecipRate:     {Min: 0, Max: 500},
		domain.FieldPrecip1h:       {Min: 0, Max: 300},
		domain.FieldPrecip3h:       {Min: 0, Max: 500},
		domain.FieldVisibility:     {Min: 0, Max: 100000},
		domain.FieldCloudCover:     {Min: 0, Max: 8},
		domain.FieldSnowDepth:      {Min: 0, Max: 1000},
		domain.FieldUVIndex:        {Min: 0, Max: 15},
		domain.FieldSolarRadiation: {Min: 0, Max: 1500},
	}
}

// Merge returns a copy of b with overrides applied on top.
func (b Bounds) Merge(overrides Bounds) Bounds {
	merged := make(Bounds, len(b)+len(overrides))
	for f, r := range b {
		merged[f] = r
	}
	for f, r := range overrides {
		merged[f] = r
	}
	return merged
}

// Check reports whether a field value is acceptable. Unbounded fields
// always pass.
func (b Bounds) Check(field string, value float64) bool {
	r, ok := b[field]
	if !ok {
		return true
	}
	return r.Contains(value)
}
