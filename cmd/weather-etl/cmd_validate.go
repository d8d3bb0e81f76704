package main

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/greenandcoop/weather-etl/internal/domain"
	"github.com/greenandcoop/weather-etl/internal/extract"
	"github.com/greenandcoop/weather-etl/internal/harmonize"
	"github.com/greenandcoop/weather-etl/internal/observability"
	"github.com/greenandcoop/weather-etl/internal/validate"
)

var validateFlags struct {
	file   string
	source string
	strict bool
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check one raw observation file without loading it",
	Long: `Validate runs extraction, harmonization, and validation on a single raw
JSONL file and prints what the pipeline would keep. Nothing is written
to the store and nothing is published.

The reference date for time-only timestamps comes from the file name
(<station>_<YYYY-MM-DD>.jsonl); files named differently fall back to
yesterday.

Usage:
  weather-etl validate --source wunderground data/wunderground/IICHTE19_2026-02-18.jsonl
  weather-etl validate --source infoclimat --strict exports/07015_2026-02-18.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateFlags.file, "file", "", "Path to the raw JSONL file")
	f.StringVar(&validateFlags.source, "source", "", "Source the file belongs to: infoclimat or wunderground")
	f.BoolVar(&validateFlags.strict, "strict", false, "Reject on the first violation and exit nonzero on any rejection")
}

func runValidate(_ *cobra.Command, args []string) error {
	path := validateFlags.file
	if path == "" && len(args) > 0 {
		path = args[0]
	}
	if path == "" || validateFlags.source == "" {
		return fmt.Errorf("a file path and --source are required\n\nUsage: weather-etl validate --source wunderground <file.jsonl>")
	}

	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	if validateFlags.strict {
		cfg.StrictValidation = true
	}

	logger := observability.NewLogger(cfg)

	directory, err := stationDirectory(cfg)
	if err != nil {
		return err
	}

	extractor, err := extract.ForSource(validateFlags.source, cfg.DataDir, nil, logger)
	if err != nil {
		return err
	}
	observations, err := extractor.ExtractFile(path)
	if err != nil {
		return err
	}

	refDate, err := time.Parse(dateLayout, dateFromFilename(path))
	if err != nil {
		return fmt.Errorf("reference date: %w", err)
	}

	harmonizer := harmonize.NewHarmonizer(directory, refDate, logger)
	policy := validate.Lenient
	if cfg.StrictValidation {
		policy = validate.Strict
	}
	validator := validate.NewValidator(policy, cfg.Bounds, logger)

	var accepted, anomalies int
	var rejections []domain.Rejection
	for _, obs := range observations {
		rec, hAnoms, rej := harmonizer.Harmonize(obs)
		anomalies += len(hAnoms)
		if rej != nil {
			rejections = append(rejections, *rej)
			continue
		}
		_, vAnoms, vrej := validator.Validate(rec)
		anomalies += len(vAnoms)
		if vrej != nil {
			rejections = append(rejections, *vrej)
			continue
		}
		accepted++
	}

	fmt.Printf("File:      %s\n", path)
	fmt.Printf("Source:    %s\n", validateFlags.source)
	fmt.Printf("Policy:    %s\n", policy)
	fmt.Printf("Extracted: %d\n", len(observations))
	fmt.Printf("Accepted:  %d\n", accepted)
	fmt.Printf("Rejected:  %d\n", len(rejections))
	fmt.Printf("Anomalies: %d\n", anomalies)

	if len(rejections) > 0 {
		fmt.Println()
		for i, rej := range rejections {
			fmt.Printf("  [%d] %s/%s station=%s ts=%q: %s\n",
				i+1, rej.Stage, rej.Reason, rej.StationID, rej.RawTimestamp, rej.Detail)
		}
	}

	if validateFlags.strict && len(rejections) > 0 {
		return fmt.Errorf("%d of %d observations rejected", len(rejections), len(observations))
	}
	if len(rejections) == 0 {
		fmt.Println("\nAll observations passed.")
	}
	return nil
}

var fileDatePattern = regexp.MustCompile(`_(\d{4}-\d{2}-\d{2})\.jsonl$`)

// dateFromFilename recovers the date from the daily-file layout, falling
// back to yesterday for files named outside the convention.
func dateFromFilename(path string) string {
	if m := fileDatePattern.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	return previousDay()
}
