package extract

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/spf13/cast"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// InfoClimatExtractor reads InfoClimat daily files. Each payload carries an
// "hourly" block mapping station id to a list of measurement rows, plus a
// "metadata" block describing units, which harmonization does not need.
type InfoClimatExtractor struct {
	dataDir  string
	stations []string
	logger   *slog.Logger
}

// NewInfoClimatExtractor builds an extractor rooted at dataDir. An empty
// station list means "read whatever daily files exist".
func NewInfoClimatExtractor(dataDir string, stations []string, logger *slog.Logger) *InfoClimatExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &InfoClimatExtractor{dataDir: dataDir, stations: stations, logger: logger}
}

func (e *InfoClimatExtractor) Source() string { return domain.SourceInfoClimat }

// Extract reads the date's files. A station without a file is logged and
// skipped; the batch never fails on absent data.
func (e *InfoClimatExtractor) Extract(ctx context.Context, date string) ([]domain.RawObservation, error) {
	paths, err := dailyFiles(e.dataDir, domain.SourceInfoClimat, date, e.stations)
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
				e.logger.Warn("no infoclimat file", "path", path)
				continue
			}
			return nil, err
		}
		out = append(out, obs...)
	}
	e.logger.Info("infoclimat extraction done", "date", date, "observations", len(out))
	return out, nil
}

// ExtractFile flattens every hourly payload in one file.
func (e *InfoClimatExtractor) ExtractFile(path string) ([]domain.RawObservation, error) {
	objs, skipped, err := readObjects(path)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		e.logger.Warn("skipped undecodable lines", "path", path, "lines", skipped)
	}
	var out []domain.RawObservation
	for _, obj := range objs {
		out = append(out, e.observations(obj, path)...)
	}
	return out, nil
}

// observations flattens one payload. Station ids come from the hourly map
// keys, emitted in sorted order; the "_params" pseudo-station is skipped.
func (e *InfoClimatExtractor) observations(obj map[string]any, fileRef string) []domain.RawObservation {
	hourly, ok := obj["hourly"].(map[string]any)
	if !ok {
		e.logger.Warn("payload without hourly block", "path", fileRef)
		return nil
	}

	ids := make([]string, 0, len(hourly))
	for id := range hourly {
		if id != "_params" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out []domain.RawObservation
	for _, id := range ids {
		rows, ok := hourly[id].([]any)
		if !ok {
			e.logger.Warn("hourly block is not a list", "path", fileRef, "station", id)
			continue
		}
		for _, raw := range rows {
			row, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, domain.RawObservation{
				Source:    domain.SourceInfoClimat,
				StationID: id,
				Timestamp: cast.ToString(row["dh_utc"]),
				Fields:    row,
				FileRef:   fileRef,
			})
		}
	}
	return out
}
