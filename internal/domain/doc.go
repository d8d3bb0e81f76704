// Package domain models unified per-station weather observations for the
// co-op forecast platform.
//
// # Data Sources
//
// Observations arrive as JSONL files exported by the upstream ingestion jobs,
// one file per station and day. Lines may be bare JSON objects or wrapped in
// an Airbyte envelope ({"_airbyte_data": {...}}); extractors accept both.
// Two station networks feed the system:
//
//	infoclimat    → network "InfoClimat" (French public stations)
//	wunderground  → network "WeatherUnderground" (personal weather stations)
//
// # InfoClimat Conventions
//
// Hourly readings keyed by French field names (temperature, pression,
// humidite, point_de_rosee, vent_moyen, vent_rafales, vent_direction,
// pluie_1h, pluie_3h, visibilite, nebulosite, neige_au_sol, temps_omm).
// Values are already metric. Timestamps come from "dh_utc" as
// "YYYY-MM-DD HH:MM:SS", implicitly UTC. Wind direction is numeric degrees.
//
// # Weather Underground Conventions
//
// Per-observation rows with display-style column names (Temperature,
// "Dew Point", Humidity, Speed, Gust, Wind, Pressure, "Precip. Rate.",
// "Precip. Accum.", UV, Solar). Values are imperial and may carry unit
// suffixes ("57.0 °F", "29.47 in"); harmonization strips suffixes and
// converts to metric. Timestamps are 12-hour clock times ("12:04 AM")
// combined with the file's date. Wind direction is a 16-point compass
// cardinal (N, NNE, NE, ENE, E, ESE, SE, SSE, S, SSW, SW, WSW, W, WNW,
// NW, NNW) mapped to degrees in 22.5° steps, N = 0°.
//
// # Canonical Vocabulary
//
// Measurements use a closed vocabulary of 17 field names with fixed metric
// units (see [CanonicalFields]). A record's measurements map holds only the
// fields the station actually reported: absence means "not reported", never
// a sentinel value. The completeness score is the fraction of the vocabulary
// present after validation.
//
// # Natural Key
//
// (station.id, timestamp) uniquely identifies a persisted record. The store
// enforces this with a unique compound index, so replays and overlapping
// extracts cannot duplicate observations.
package domain
