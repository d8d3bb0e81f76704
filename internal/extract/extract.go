// Package extract reads raw observation files for the supported sources and
// turns them into domain.RawObservation values. Files live under
// <dataDir>/<source>/<station>_<YYYY-MM-DD>.jsonl and may carry the Airbyte
// envelope; both the enveloped and the bare layout decode the same way.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// Extractor reads one source's raw observations.
type Extractor interface {
	// Source names the source the extractor reads ("infoclimat",
	// "wunderground").
	Source() string
	// Extract reads all observations for the target date (YYYY-MM-DD).
	// Missing files are skipped; a source with no files yields an empty
	// slice, not an error.
	Extract(ctx context.Context, date string) ([]domain.RawObservation, error)
	// ExtractFile reads a single file regardless of the date layout.
	ExtractFile(path string) ([]domain.RawObservation, error)
}

// ForSource returns the extractor for a source name.
func ForSource(source, dataDir string, stations []string, logger *slog.Logger) (Extractor, error) {
	switch source {
	case domain.SourceInfoClimat:
		return NewInfoClimatExtractor(dataDir, stations, logger), nil
	case domain.SourceWunderground:
		return NewWundergroundExtractor(dataDir, stations, logger), nil
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

// FilePath builds the canonical location of one station's daily file.
func FilePath(dataDir, source, stationID, date string) string {
	return filepath.Join(dataDir, source, stationID+"_"+date+".jsonl")
}

// dailyFiles lists the files to read for a date: the canonical path per
// configured station, or a directory glob when no stations are configured.
func dailyFiles(dataDir, source, date string, stations []string) ([]string, error) {
	if len(stations) > 0 {
		paths := make([]string, 0, len(stations))
		for _, id := range stations {
			paths = append(paths, FilePath(dataDir, source, id, date))
		}
		return paths, nil
	}
	pattern := filepath.Join(dataDir, source, "*_"+date+".jsonl")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	return paths, nil
}

// stationFromFilename recovers the station id from the daily-file layout.
// "IICHTE19_2026-02-18.jsonl" yields "IICHTE19"; a name without the date
// suffix yields the whole stem.
func stationFromFilename(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".jsonl")
	if i := strings.LastIndex(base, "_"); i > 0 {
		return base[:i]
	}
	return base
}
