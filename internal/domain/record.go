package domain

import "time"

// Source tags used by extractors and rule tables.
const (
	SourceInfoClimat   = "infoclimat"
	SourceWunderground = "wunderground"
)

// Network names as persisted in store documents.
const (
	NetworkInfoClimat         = "InfoClimat"
	NetworkWeatherUnderground = "WeatherUnderground"
)

// NetworkForSource maps a source tag to its persisted network name.
// Unknown sources map to the empty string.
func NetworkForSource(source string) string {
	switch source {
	case SourceInfoClimat:
		return NetworkInfoClimat
	case SourceWunderground:
		return NetworkWeatherUnderground
	default:
		return ""
	}
}

// RawObservation is one unprocessed reading as produced by an extractor.
// Fields carries source-native column names and values untouched; all
// interpretation happens during harmonization.
type RawObservation struct {
	Source    string
	StationID string
	Timestamp string
	Fields    map[string]any
	FileRef   string
}

// Location is a WGS-84 coordinate pair in decimal degrees.
type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// GeoPoint is a GeoJSON Point. Coordinates are [longitude, latitude],
// the GeoJSON axis order, reversed from Location.
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds the derived GeoJSON point for a coordinate pair.
func NewGeoPoint(latitude, longitude float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: [2]float64{longitude, latitude}}
}

// Station identifies the reporting station and its fixed attributes.
// Location and LocationGeo are optional: a station missing from the
// directory has neither, and validation decides whether that is fatal.
type Station struct {
	ID          string    `bson:"id" json:"id"`
	Network     string    `bson:"network" json:"network"`
	Name        string    `bson:"name,omitempty" json:"name,omitempty"`
	Location    *Location `bson:"location,omitempty" json:"location,omitempty"`
	LocationGeo *GeoPoint `bson:"location_geo,omitempty" json:"location_geo,omitempty"`
	Elevation   *float64  `bson:"elevation,omitempty" json:"elevation,omitempty"`
	Hardware    string    `bson:"hardware,omitempty" json:"hardware,omitempty"`
}

// StationInfo is directory metadata for one station, consulted during
// harmonization. Pointer fields are nil when the directory does not know
// them; a station absent from the directory simply has no location, which
// validation treats as a missing required field.
type StationInfo struct {
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Elevation *float64 `json:"elevation,omitempty"`
	Hardware  string   `json:"hardware,omitempty"`
}

// Measurement is one reported value in canonical units.
type Measurement struct {
	Value float64 `bson:"value" json:"value"`
	Unit  string  `bson:"unit" json:"unit"`
}

// DataQuality is computed during validation.
type DataQuality struct {
	CompletenessScore float64  `bson:"completeness_score" json:"completeness_score"`
	MissingFields     []string `bson:"missing_fields" json:"missing_fields"`
}

// Metadata records provenance for one record.
type Metadata struct {
	Source     string    `bson:"source" json:"source"`
	IngestedAt time.Time `bson:"ingested_at" json:"ingested_at"`
	FileRef    string    `bson:"file_ref,omitempty" json:"file_ref,omitempty"`
}

// Record is the unified measurement record, the canonical unit of the
// system and the exact document shape persisted to the store. Downstream
// readers depend on these field names; changes must be additive only.
type Record struct {
	Station      Station                `bson:"station" json:"station"`
	Timestamp    time.Time              `bson:"timestamp" json:"timestamp"`
	Measurements map[string]Measurement `bson:"measurements" json:"measurements"`
	DataQuality  DataQuality            `bson:"data_quality" json:"data_quality"`
	Metadata     Metadata               `bson:"metadata" json:"metadata"`
}

// NaturalKey returns the (station id, timestamp) identity enforced by the
// store's unique index. Useful for in-memory grouping and test assertions.
func (r Record) NaturalKey() string {
	return r.Station.ID + "|" + r.Timestamp.UTC().Format(time.RFC3339)
}

// HasLocation reports whether the record carries any usable position.
func (r Record) HasLocation() bool {
	return r.Station.Location != nil || r.Station.LocationGeo != nil
}
