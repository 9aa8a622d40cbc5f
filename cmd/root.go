// Package cmd defines the CLI commands for the civicingest executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/config"
	"github.com/datopublico/civicingest/internal/logging"
	"github.com/datopublico/civicingest/internal/metrics"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "civicingest",
		Short: "Ingests Chilean legislative and procurement open data",
		Long: `civicingest crawls the open-data services of the Cámara de Diputados,
the Senado, and MercadoPublico, normalizes their documents, and lands the
records in keyed Postgres tables for downstream analysis.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (settings also load from CIVIC_* env vars and .env)")

	cmd.AddCommand(newPipelineCmd())
	cmd.AddCommand(newExtractCmd())
	return cmd
}

// setup loads configuration and builds the shared logger and metrics.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()
	return cfg, logger, nil
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
