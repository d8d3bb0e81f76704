package domain

import "time"

// Stage identifies where in the chain a record or field failed.
type Stage string

const (
	StageHarmonization Stage = "harmonization"
	StageValidation    Stage = "validation"
	StageLoad          Stage = "load"
)

// Reason classifies a rejection or anomaly. One enum serves both: the same
// reason is record-fatal or field-level depending on where it is raised
// (a bad wind direction drops the field; a bad timestamp drops the record).
type Reason string

const (
	ReasonUnparseableTimestamp Reason = "unparseable_timestamp"
	ReasonMissingStationID     Reason = "missing_station_id"
	ReasonUnknownWindDirection Reason = "unknown_wind_direction"
	ReasonInvalidNumericField  Reason = "invalid_numeric_field"
	ReasonMissingRequiredField Reason = "missing_required_field"
	ReasonOutOfRange           Reason = "out_of_range"
	ReasonInconsistentFields   Reason = "inconsistent_fields"
	ReasonFutureTimestamp      Reason = "future_timestamp"
	ReasonStaleTimestamp       Reason = "stale_timestamp"
	ReasonDuplicateKey         Reason = "duplicate_key"
	ReasonWriteFailed          Reason = "write_failed"
)

// Rejection describes one record dropped from the batch. Rejections are
// never persisted; they are counted, published when a reject sink is
// configured, and sampled into the quality report's anomaly list.
type Rejection struct {
	Source       string    `json:"source"`
	StationID    string    `json:"station_id,omitempty"`
	RawTimestamp string    `json:"raw_timestamp,omitempty"`
	FileRef      string    `json:"file_ref,omitempty"`
	Stage        Stage     `json:"stage"`
	Reason       Reason    `json:"reason"`
	Detail       string    `json:"detail,omitempty"`
	DetectedAt   time.Time `json:"detected_at"`
}

// NewRejection stamps a rejection with the package clock.
func NewRejection(obs RawObservation, stage Stage, reason Reason, detail string) Rejection {
	return Rejection{
		Source:       obs.Source,
		StationID:    obs.StationID,
		RawTimestamp: obs.Timestamp,
		FileRef:      obs.FileRef,
		Stage:        stage,
		Reason:       reason,
		Detail:       detail,
		DetectedAt:   Now(),
	}
}

// RejectRecord builds a rejection for a record that already harmonized,
// carrying provenance from its metadata.
func RejectRecord(rec Record, stage Stage, reason Reason, detail string) Rejection {
	rej := Rejection{
		Source:     rec.Metadata.Source,
		StationID:  rec.Station.ID,
		FileRef:    rec.Metadata.FileRef,
		Stage:      stage,
		Reason:     reason,
		Detail:     detail,
		DetectedAt: Now(),
	}
	if !rec.Timestamp.IsZero() {
		rej.RawTimestamp = rec.Timestamp.UTC().Format(time.RFC3339)
	}
	return rej
}

// Anomaly is a field-level irregularity that did not drop the record: a
// stripped out-of-range value, a failed field coercion, a stale timestamp.
// Rejections are converted to anomalies when the quality report is built.
type Anomaly struct {
	Stage      Stage     `json:"stage"`
	Reason     Reason    `json:"reason"`
	StationID  string    `json:"station_id,omitempty"`
	Field      string    `json:"field,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	ObservedAt time.Time `json:"observed_at,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// AsAnomaly converts a rejection into its quality-report representation.
func (r Rejection) AsAnomaly() Anomaly {
	return Anomaly{
		Stage:      r.Stage,
		Reason:     r.Reason,
		StationID:  r.StationID,
		Detail:     r.Detail,
		DetectedAt: r.DetectedAt,
	}
}
