package harmonize

import (
	"log/slog"
	"strings"
	"time"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// StationLookup resolves a source station id to directory metadata.
// Implemented by extract.Directory; nil disables enrichment.
type StationLookup interface {
	Lookup(source, stationID string) (domain.StationInfo, bool)
}

// Harmonizer assembles raw observations into unified records for one run.
type Harmonizer struct {
	stations StationLookup
	refDate  time.Time
	logger   *slog.Logger
}

// NewHarmonizer builds a Harmonizer. refDate supplies the date for
// time-only timestamps (the run's target date).
func NewHarmonizer(stations StationLookup, refDate time.Time, logger *slog.Logger) *Harmonizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harmonizer{stations: stations, refDate: refDate, logger: logger}
}

// Harmonize converts one raw observation into a unified record. It returns
// the record plus any field-level anomalies, or a rejection when station
// identity or timestamp cannot be determined at all. Every other missing
// field is carried through as absent and left to validation.
func (h *Harmonizer) Harmonize(obs domain.RawObservation) (domain.Record, []domain.Anomaly, *domain.Rejection) {
	if strings.TrimSpace(obs.StationID) == "" {
		rej := domain.NewRejection(obs, domain.StageHarmonization,
			domain.ReasonMissingStationID, "observation carries no station identifier")
		return domain.Record{}, nil, &rej
	}

	ts, err := ParseTimestamp(obs.Timestamp, h.refDate)
	if err != nil {
		rej := domain.NewRejection(obs, domain.StageHarmonization,
			domain.ReasonUnparseableTimestamp, err.Error())
		return domain.Record{}, nil, &rej
	}

	measurements, anomalies := MapFields(obs)
	for i := range anomalies {
		anomalies[i].ObservedAt = ts
	}

	station := domain.Station{
		ID:      obs.StationID,
		Network: domain.NetworkForSource(obs.Source),
	}
	if h.stations != nil {
		if info, ok := h.stations.Lookup(obs.Source, obs.StationID); ok {
			station.Name = info.Name
			station.Hardware = info.Hardware
			station.Elevation = info.Elevation
			if info.Latitude != nil && info.Longitude != nil {
				station.Location = &domain.Location{Latitude: *info.Latitude, Longitude: *info.Longitude}
				station.LocationGeo = domain.NewGeoPoint(*info.Latitude, *info.Longitude)
			}
		} else {
			h.logger.Debug("station not in directory",
				"source", obs.Source, "station_id", obs.StationID)
		}
	}

	rec := domain.Record{
		Station:      station,
		Timestamp:    ts,
		Measurements: measurements,
		Metadata: domain.Metadata{
			Source:     obs.Source,
			IngestedAt: domain.Now(),
			FileRef:    obs.FileRef,
		},
	}
	return rec, anomalies, nil
}
