package pipeline

import (
	"time"

	"github.com/greenandcoop/weather-etl/internal/quality"
)

// Result is the operational summary of one run. The CLI prints it as a
// JSON status line; the quality report itself travels separately.
type Result struct {
	RunID      string    `json:"run_id"`
	TargetDate string    `json:"target_date"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Extracted  int       `json:"extracted"`
	Harmonized int       `json:"harmonized"`
	Accepted   int       `json:"accepted"`
	Rejected   int       `json:"rejected"`
	Loaded     int       `json:"loaded"`
	LoadFailed int       `json:"load_failed"`
	Success    bool      `json:"success"`

	Report quality.Report `json:"-"`
}

// Duration is the wall time the run took.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
