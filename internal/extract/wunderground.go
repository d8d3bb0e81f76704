package extract

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/cast"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// WundergroundExtractor reads Weather Underground daily files. Each line is
// one observation row keyed by the dashboard's column names ("Temperature",
// "Dew Point", "Precip. Rate."...); the station id is not in the row, it
// comes from the file name.
type WundergroundExtractor struct {
	dataDir  string
	stations []string
	logger   *slog.Logger
}

// NewWundergroundExtractor builds an extractor rooted at dataDir. An empty
// station list means "read whatever daily files exist".
func NewWundergroundExtractor(dataDir string, stations []string, logger *slog.Logger) *WundergroundExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &WundergroundExtractor{dataDir: dataDir, stations: stations, logger: logger}
}

func (e *WundergroundExtractor) Source() string { return domain.SourceWunderground }

// Extract reads the date's files. A station without a file is logged and
// skipped; the batch never fails on absent data.
func (e *WundergroundExtractor) Extract(ctx context.Context, date string) ([]domain.RawObservation, error) {
	paths, err := dailyFiles(e.dataDir, domain.SourceWunderground, date, e.stations)
	if err != nil {
		return nil, err
	}
	var out []domain.RawObservation
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obs, err := e.ExtractFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				e.logger.Warn("no wunderground file", "path", path)
				continue
			}
			return nil, err
		}
		out = append(out, obs...)
	}
	e.logger.Info("wunderground extraction done", "date", date, "observations", len(out))
	return out, nil
}

// ExtractFile reads one file, recovering the station id from its name.
func (e *WundergroundExtractor) ExtractFile(path string) ([]domain.RawObservation, error) {
	objs, skipped, err := readObjects(path)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		e.logger.Warn("skipped undecodable lines", "path", path, "lines", skipped)
	}

	stationID := stationFromFilename(path)
	out := make([]domain.RawObservation, 0, len(objs))
	for _, row := range objs {
		out = append(out, domain.RawObservation{
			Source:    domain.SourceWunderground,
			StationID: stationID,
			Timestamp: cleanTimestamp(cast.ToString(row["Timestamp"])),
			Fields:    row,
			FileRef:   path,
		})
	}
	return out, nil
}

// cleanTimestamp replaces the dashboard's non-breaking spaces so downstream
// layout parsing sees plain ASCII.
func cleanTimestamp(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, " ", " "))
}
