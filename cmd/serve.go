package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/huangsam/prscore/core"
	"github.com/huangsam/prscore/internal/metrics"
	"github.com/huangsam/prscore/internal/scheduler"
	"github.com/huangsam/prscore/schema"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd runs sync and evaluation on a schedule and exposes metrics.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled sync and evaluation with a metrics endpoint",
	Long: `Run the pipeline as a long-lived process.

On every tick of --schedule the configured repositories are synced (when --owner
or --repos is set) and a scheduled evaluation batch runs over the lookback window.
A tick is skipped while the previous run is still in progress.

Prometheus metrics are served on --metrics-addr at /metrics.

Examples:
  # Nightly at 02:00 with metrics on :9090
  prscore serve --org 1 --owner acme

  # Every hour
  prscore serve --org 1 --repos acme/api --schedule "@every 1h"`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if cfg.Schedule == "" {
			return fmt.Errorf("--schedule is required for serve")
		}

		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.close()

		sched := scheduler.New(logger)
		if cfg.GitHubOwner != "" || len(cfg.Repositories) > 0 {
			source, err := newSource(ctx)
			if err != nil {
				return err
			}
			syncer := core.NewSyncer(source, p.store, logger)
			if err := sched.Add(ctx, cfg.Schedule, syncAndEvaluateJob(syncer, p.orchestrator)); err != nil {
				return err
			}
		} else if err := sched.Add(ctx, cfg.Schedule, evaluateJob(p.orchestrator)); err != nil {
			return err
		}

		server := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		logger.Info("serving", zap.String("schedule", cfg.Schedule), zap.String("metrics_addr", cfg.MetricsAddr))

		sched.Run(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func scheduledRequest() core.RunRequest {
	req := runRequest()
	req.RunType = schema.ScheduledRun
	return req
}

func evaluateJob(o *core.Orchestrator) scheduler.Job {
	return scheduler.JobFunc{JobName: "evaluate", Fn: func(ctx context.Context) error {
		_, err := o.Run(ctx, scheduledRequest())
		return err
	}}
}

func syncAndEvaluateJob(syncer *core.Syncer, o *core.Orchestrator) scheduler.Job {
	return scheduler.JobFunc{JobName: "sync-evaluate", Fn: func(ctx context.Context) error {
		since := cfg.Since(time.Now())
		if cfg.GitHubOwner != "" {
			if _, err := syncer.SyncOwner(ctx, cfg.OrganizationID, cfg.GitHubOwner, since); err != nil {
				return err
			}
		}
		for _, repo := range cfg.Repositories {
			if _, err := syncer.SyncRepository(ctx, cfg.OrganizationID, repo, since); err != nil {
				return err
			}
		}
		_, err := o.Run(ctx, scheduledRequest())
		return err
	}}
}
