package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/greenandcoop/weather-etl/internal/domain"
	"github.com/greenandcoop/weather-etl/internal/extract"
)

var genmockFlags struct {
	dataDir string
	date    string
	hours   int
	seed    int64
}

var genmockCmd = &cobra.Command{
	Use:   "genmock",
	Short: "Generate mock raw observation files for local development",
	Long: `Genmock writes one plausible raw daily file per known station, in each
source's native layout: InfoClimat hourly payloads inside the Airbyte
envelope, Weather Underground dashboard rows with imperial unit suffixes
and 12-hour clock times.

The output feeds straight into "weather-etl run" and "weather-etl
validate". A fixed seed produces identical files across invocations.

Usage:
  weather-etl genmock
  weather-etl genmock --data-dir data --date 2026-02-18 --seed 7`,
	Args: cobra.NoArgs,
	RunE: runGenmock,
}

func init() {
	f := genmockCmd.Flags()
	f.StringVar(&genmockFlags.dataDir, "data-dir", "data", "Directory to write raw files under")
	f.StringVar(&genmockFlags.date, "date", "", "Date to generate YYYY-MM-DD (default: yesterday UTC)")
	f.IntVar(&genmockFlags.hours, "hours", 24, "Hourly observations per station")
	f.Int64Var(&genmockFlags.seed, "seed", 1, "Random seed")
}

func runGenmock(_ *cobra.Command, _ []string) error {
	date := genmockFlags.date
	if date == "" {
		date = previousDay()
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("date %q: %w", date, err)
	}
	if genmockFlags.hours < 1 || genmockFlags.hours > 24 {
		return fmt.Errorf("hours must be between 1 and 24, got %d", genmockFlags.hours)
	}

	rng := rand.New(rand.NewSource(genmockFlags.seed))
	directory := extract.DefaultDirectory()

	total := 0
	for _, station := range directory.Stations(domain.SourceInfoClimat) {
		path := extract.FilePath(genmockFlags.dataDir, domain.SourceInfoClimat, station, date)
		rows := infoclimatRows(rng, date, genmockFlags.hours)
		if err := writeInfoClimatFile(path, station, rows); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("infoclimat %s: %d rows", station, len(rows))
		total += len(rows)
	}

	for _, station := range directory.Stations(domain.SourceWunderground) {
		path := extract.FilePath(genmockFlags.dataDir, domain.SourceWunderground, station, date)
		rows := wundergroundRows(rng, genmockFlags.hours)
		if err := writeJSONL(path, rows); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("wunderground %s: %d rows", station, len(rows))
		total += len(rows)
	}

	log.Printf("wrote %d observations under %s for %s", total, genmockFlags.dataDir, date)
	return nil
}

// daylight rises from 0 at 06:00 to 1 at noon and back to 0 at 18:00,
// shaping temperature, UV, and solar radiation curves.
func daylight(hour int) float64 {
	if hour < 6 || hour > 18 {
		return 0
	}
	return math.Sin(math.Pi * float64(hour-6) / 12)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// infoclimatRows builds one day of hourly rows in the InfoClimat field
// vocabulary. Values are metric; visibility is in meters.
func infoclimatRows(rng *rand.Rand, date string, hours int) []map[string]any {
	nightLow := 2 + rng.Float64()*8
	pressure := 1008 + rng.Float64()*16
	rainyDay := rng.Float64() < 0.3

	rows := make([]map[string]any, 0, hours)
	for h := 0; h < hours; h++ {
		temp := round1(nightLow + daylight(h)*6 + rng.Float64())
		wind := round1(rng.Float64() * 20)
		rain1h := 0.0
		if rainyDay && h >= 14 && h <= 16 {
			rain1h = round1(0.2 + rng.Float64()*1.8)
		}

		row := map[string]any{
			"dh_utc":         fmt.Sprintf("%s %02d:00:00", date, h),
			"temperature":    temp,
			"point_de_rosee": round1(temp - 1 - rng.Float64()*4),
			"humidite":       60 + rng.Intn(35),
			"pression":       round1(pressure + rng.Float64()*2 - 1),
			"vent_moyen":     wind,
			"vent_rafales":   round1(wind + rng.Float64()*15),
			"vent_direction": rng.Intn(360),
			"pluie_1h":       rain1h,
			"pluie_3h":       round1(rain1h * 2),
			"visibilite":     float64((5 + rng.Intn(25)) * 1000),
			"nebulosite":     rng.Intn(9),
			"neige_au_sol":   0,
			"temps_omm":      ommCode(rainyDay, rain1h),
		}
		// Upstream marks unreported sensors with a sentinel now and then.
		if h%9 == 5 {
			row["visibilite"] = "N/A"
		}
		rows = append(rows, row)
	}
	return rows
}

// ommCode returns a plausible OMM present-weather code: clear to cloudy by
// default, light rain during rain hours.
func ommCode(rainyDay bool, rain1h float64) int {
	if rain1h > 0 {
		return 61
	}
	if rainyDay {
		return 3
	}
	return 1
}

var compassRose = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// wundergroundRows builds one day of dashboard-style rows: imperial values
// with unit suffixes, cardinal wind, 12-hour clock timestamps.
func wundergroundRows(rng *rand.Rand, hours int) []map[string]any {
	nightLowF := 36 + rng.Float64()*12
	pressureIn := 29.5 + rng.Float64()*0.8

	rows := make([]map[string]any, 0, hours)
	for h := 0; h < hours; h++ {
		tempF := nightLowF + daylight(h)*11 + rng.Float64()*2
		speed := rng.Float64() * 12
		sun := daylight(h)

		rows = append(rows, map[string]any{
			"Timestamp":      time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("3:04 PM"),
			"Temperature":    fmt.Sprintf("%.1f °F", tempF),
			"Dew Point":      fmt.Sprintf("%.1f °F", tempF-4-rng.Float64()*5),
			"Humidity":       fmt.Sprintf("%d %%", 55+rng.Intn(40)),
			"Wind":           compassRose[rng.Intn(len(compassRose))],
			"Speed":          fmt.Sprintf("%.1f mph", speed),
			"Gust":           fmt.Sprintf("%.1f mph", speed+rng.Float64()*9),
			"Pressure":       fmt.Sprintf("%.2f in", pressureIn+rng.Float64()*0.06-0.03),
			"Precip. Rate.":  "0.00 in",
			"Precip. Accum.": "0.00 in",
			"UV":             fmt.Sprintf("%d", int(sun*6)),
			"Solar":          fmt.Sprintf("%.1f w/m²", round1(sun*700*(0.7+0.3*rng.Float64()))),
		})
	}
	return rows
}

// writeInfoClimatFile wraps the hourly rows in the upstream payload layout
// and the Airbyte envelope, one JSON document per file.
func writeInfoClimatFile(path, station string, rows []map[string]any) error {
	payload := map[string]any{
		"_airbyte_data": map[string]any{
			"hourly": map[string]any{
				station: rows,
			},
			"metadata": map[string]any{
				"source": "infoclimat",
				"units": map[string]string{
					"temperature": "°C",
					"pression":    "hPa",
					"vent":        "km/h",
					"visibilite":  "m",
				},
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return writeFile(path, append(data, '\n'))
}

// writeJSONL writes one JSON object per line.
func writeJSONL(path string, rows []map[string]any) error {
	var buf []byte
	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			return err
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return writeFile(path, buf)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
