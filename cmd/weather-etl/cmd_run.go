package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/greenandcoop/weather-etl/internal/adapter/http"
	"github.com/greenandcoop/weather-etl/internal/observability"
)

var runFlags struct {
	date       string
	configPath string
	dryRun     bool
	strict     bool
	mode       string
	reportOut  string
	serve      bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run for a target date",
	Long: `Run extracts the target date's raw observation files, harmonizes and
validates them, loads accepted records into MongoDB, and publishes the
run's quality report. The report JSON goes to stdout unless --report-out
redirects it to a file, in which case stdout carries a one-line run
summary instead.

Usage:
  weather-etl run                            # yesterday's data
  weather-etl run --date 2026-02-18
  weather-etl run --dry-run                  # every stage, no writes
  weather-etl run --report-out report.json`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.date, "date", "", "Target date YYYY-MM-DD (default: yesterday UTC)")
	f.StringVar(&runFlags.configPath, "config", "", "Path to a pipeline YAML file merged over the environment")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "Run every stage but skip store writes")
	f.BoolVar(&runFlags.strict, "strict", false, "Reject records on the first validation violation")
	f.StringVar(&runFlags.mode, "mode", "", "Write mode: insert or upsert (default: $WRITE_MODE)")
	f.StringVar(&runFlags.reportOut, "report-out", "", "Write the quality report to this path instead of stdout")
	f.BoolVar(&runFlags.serve, "serve", false, "Expose health and metrics endpoints for the run's duration")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(runFlags.configPath)
	if err != nil {
		return err
	}
	if runFlags.strict {
		cfg.StrictValidation = true
	}
	if runFlags.mode != "" {
		cfg.WriteMode = runFlags.mode
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	targetDate := runFlags.date
	if targetDate == "" {
		targetDate = previousDay()
	}

	runner, cleanup, err := buildRunner(cfg, logger, metrics, buildOpts{
		targetDate: targetDate,
		dryRun:     runFlags.dryRun,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runFlags.serve && cfg.HTTPAddr == "" {
		logger.Warn("--serve requested but HTTP_ADDR is empty, not serving")
	}
	var srv *httpadapter.Server
	if runFlags.serve && cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, httpadapter.ReadinessFunc(runner.CheckReadiness), logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	res, runErr := runner.Run(ctx, targetDate)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	if err := writeReport(res.Report, runFlags.reportOut); err != nil {
		return err
	}
	if runFlags.reportOut != "" {
		status, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("marshal run result: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(status))
	}
	return nil
}
