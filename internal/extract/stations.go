package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/greenandcoop/weather-etl/internal/domain"
)

// Directory is a read-only station metadata lookup keyed by source name and
// station id. It satisfies harmonize.StationLookup.
type Directory struct {
	stations map[string]map[string]domain.StationInfo
}

// LoadDirectory reads a station directory file: a JSON object mapping source
// name to station id to metadata.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations file %s: %w", path, err)
	}
	var stations map[string]map[string]domain.StationInfo
	if err := json.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("parse stations file %s: %w", path, err)
	}
	return &Directory{stations: stations}, nil
}

// DefaultDirectory returns the built-in directory of the cooperative's known
// stations, used when no stations file is configured.
func DefaultDirectory() *Directory {
	return &Directory{stations: map[string]map[string]domain.StationInfo{
		domain.SourceInfoClimat: {
			"07015":      {Name: "Lille-Lesquin", Latitude: f64(50.575), Longitude: f64(3.092), Elevation: f64(47)},
			"00052":      {Name: "Armentières", Latitude: f64(50.689), Longitude: f64(2.877), Elevation: f64(16)},
			"000R5":      {Name: "Bergues", Latitude: f64(50.968), Longitude: f64(2.441), Elevation: f64(17)},
			"STATIC0010": {Name: "Hazebrouck", Latitude: f64(50.734), Longitude: f64(2.545), Elevation: f64(31)},
		},
		domain.SourceWunderground: {
			"IICHTE19": {Name: "WeerstationBS", Latitude: f64(51.092), Longitude: f64(2.999), Elevation: f64(15), Hardware: "other"},
			"ILAMAD25": {Name: "La Madeleine", Latitude: f64(50.659), Longitude: f64(3.07), Elevation: f64(23), Hardware: "other"},
		},
	}}
}

// Lookup resolves a station's metadata. The second return is false when the
// source or station is not in the directory.
func (d *Directory) Lookup(source, stationID string) (domain.StationInfo, bool) {
	if d == nil {
		return domain.StationInfo{}, false
	}
	info, ok := d.stations[source][stationID]
	return info, ok
}

// Stations lists the directory's station ids for one source, sorted.
func (d *Directory) Stations(source string) []string {
	if d == nil {
		return nil
	}
	ids := make([]string, 0, len(d.stations[source]))
	for id := range d.stations[source] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func f64(v float64) *float64 { return &v }
