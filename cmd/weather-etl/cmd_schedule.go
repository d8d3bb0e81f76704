package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	httpadapter "github.com/greenandcoop/weather-etl/internal/adapter/http"
	"github.com/greenandcoop/weather-etl/internal/observability"
)

var scheduleFlags struct {
	cronExpr   string
	configPath string
	runOnStart bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule",
	Long: `Schedule runs the pipeline for the previous UTC day on a cron schedule,
by default every morning at 06:30 UTC, once the sources have exported the
full day. When HTTP_ADDR is set the health, readiness, metrics, and
latest-report endpoints stay up between runs.

Usage:
  weather-etl schedule
  weather-etl schedule --cron "0 7 * * *" --run-on-start`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	f := scheduleCmd.Flags()
	f.StringVar(&scheduleFlags.cronExpr, "cron", "30 6 * * *", "Cron expression for run scheduling")
	f.StringVar(&scheduleFlags.configPath, "config", "", "Path to a pipeline YAML file merged over the environment")
	f.BoolVar(&scheduleFlags.runOnStart, "run-on-start", false, "Execute one run immediately, then follow the schedule")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(scheduleFlags.configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Readiness tracks the scheduler, not a single runner: the service is
	// ready once any run has completed successfully.
	var lastSuccess atomic.Bool
	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		ready := httpadapter.ReadinessFunc(func(context.Context) error {
			if !lastSuccess.Load() {
				return errors.New("no successful run yet")
			}
			return nil
		})
		srv = httpadapter.NewServer(cfg.HTTPAddr, ready, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	// The runner is rebuilt every tick: the harmonizer is anchored to the
	// run's target date, which moves daily.
	execute := func() {
		targetDate := previousDay()
		runner, cleanup, err := buildRunner(cfg, logger, metrics, buildOpts{targetDate: targetDate})
		if err != nil {
			logger.Error("run setup failed", "target_date", targetDate, "error", err)
			return
		}
		defer cleanup()

		res, err := runner.Run(ctx, targetDate)
		if err != nil {
			logger.Error("scheduled run failed", "target_date", targetDate, "error", err)
			return
		}
		lastSuccess.Store(true)
		if srv != nil {
			srv.SetLastReport(res.Report)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(scheduleFlags.cronExpr, execute); err != nil {
		return fmt.Errorf("cron expression %q: %w", scheduleFlags.cronExpr, err)
	}

	if scheduleFlags.runOnStart {
		execute()
	}

	c.Start()
	logger.Info("scheduler started",
		"cron", scheduleFlags.cronExpr,
		"sources", cfg.Sources,
		"http_addr", cfg.HTTPAddr)

	<-ctx.Done()
	logger.Info("shutting down")

	// Stop waits for an in-flight run before the HTTP server goes away.
	<-c.Stop().Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
