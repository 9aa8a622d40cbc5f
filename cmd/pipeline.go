package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/config"
	"github.com/datopublico/civicingest/internal/etl"
	"github.com/datopublico/civicingest/internal/fetch"
	"github.com/datopublico/civicingest/internal/metrics"
	"github.com/datopublico/civicingest/internal/pipeline"
	"github.com/datopublico/civicingest/internal/store/postgres"
)

var metricsAddr string

func newPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline <legislative|procurement>",
		Short: "Runs a full ingestion pipeline",
		Long: `Runs every extractor of the named pipeline in sequence, with a
settling delay between steps. A failing step is logged and the run
continues with the next one.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"legislative", "procurement"},
		RunE:      runPipelineCommand,
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for /metrics (overrides config)")
	return cmd
}

func runPipelineCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	addr := metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		go serveMetrics(addr, logger)
	}

	switch args[0] {
	case "legislative":
		return runLegislative(cmd.Context(), cfg, logger)
	case "procurement":
		return runProcurement(cmd.Context(), cfg, logger)
	default:
		return fmt.Errorf("unknown pipeline %q", args[0])
	}
}

func runLegislative(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if err := cfg.ValidateLegislative(); err != nil {
		return err
	}

	store, err := postgres.NewLegislativeStore(ctx, cfg.DB.LegislativeDSN, logger)
	if err != nil {
		return fmt.Errorf("open legislative store: %w", err)
	}
	defer store.Close()

	client := fetch.NewClient(cfg.FetchOptions(), logger)
	runner := &pipeline.Runner{
		Name:      "legislative",
		Steps:     legislativeSteps(cfg, client, store, logger),
		Pauser:    etl.TimerPauser{},
		Logger:    logger,
		StepDelay: cfg.StepDelay(),
	}
	return finishRun(runner.Run(ctx))
}

func runProcurement(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if err := cfg.ValidateProcurement(); err != nil {
		return err
	}

	store, err := postgres.NewProcurementStore(ctx, cfg.DB.ProcurementDSN, logger)
	if err != nil {
		return fmt.Errorf("open procurement store: %w", err)
	}
	defer store.Close()

	client := fetch.NewClient(cfg.FetchOptions(), logger)
	runner := &pipeline.Runner{
		Name:      "procurement",
		Steps:     procurementSteps(cfg, client, store, logger),
		Pauser:    etl.TimerPauser{},
		Logger:    logger,
		StepDelay: cfg.StepDelay(),
	}
	return finishRun(runner.Run(ctx))
}

// finishRun converts a run summary into the process exit signal: any
// failed step fails the command, after every step has had its chance.
func finishRun(summary pipeline.Summary, err error) error {
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("pipeline %s: %d of %d steps failed",
			summary.Pipeline, summary.Failed, len(summary.Steps))
	}
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	logger.Info("metrics listener starting", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("metrics listener stopped", zap.Error(err))
	}
}
