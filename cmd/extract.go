package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datopublico/civicingest/internal/fetch"
	"github.com/datopublico/civicingest/internal/pipeline"
	"github.com/datopublico/civicingest/internal/store/postgres"
)

// legislativeNames are the extractors backed by the legislative store.
var legislativeNames = map[string]bool{
	"discovery":     true,
	"bills":         true,
	"deputies":      true,
	"senators":      true,
	"chamber-votes": true,
	"senate-votes":  true,
}

// procurementNames are the extractors backed by the procurement store.
var procurementNames = map[string]bool{
	"orders":  true,
	"tenders": true,
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <name>",
		Short: "Runs a single extractor",
		Long: `Runs one extractor by name, without the inter-step delay of a full
pipeline run. Available names: ` + strings.Join(extractorNames(), ", ") + `.`,
		Args: cobra.ExactArgs(1),
		RunE: runExtractCommand,
	}
}

func extractorNames() []string {
	names := make([]string, 0, len(legislativeNames)+len(procurementNames))
	for name := range legislativeNames {
		names = append(names, name)
	}
	for name := range procurementNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runExtractCommand(cmd *cobra.Command, args []string) error {
	name := args[0]
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	client := fetch.NewClient(cfg.FetchOptions(), logger)

	var steps []pipeline.Step
	switch {
	case legislativeNames[name]:
		if err := cfg.ValidateLegislative(); err != nil {
			return err
		}
		store, err := postgres.NewLegislativeStore(ctx, cfg.DB.LegislativeDSN, logger)
		if err != nil {
			return fmt.Errorf("open legislative store: %w", err)
		}
		defer store.Close()
		steps = legislativeSteps(cfg, client, store, logger)
	case procurementNames[name]:
		if err := cfg.ValidateProcurement(); err != nil {
			return err
		}
		store, err := postgres.NewProcurementStore(ctx, cfg.DB.ProcurementDSN, logger)
		if err != nil {
			return fmt.Errorf("open procurement store: %w", err)
		}
		defer store.Close()
		steps = procurementSteps(cfg, client, store, logger)
	default:
		return fmt.Errorf("unknown extractor %q, expected one of: %s",
			name, strings.Join(extractorNames(), ", "))
	}

	for _, step := range steps {
		if step.Name() == name {
			return step.Run(ctx)
		}
	}
	return fmt.Errorf("extractor %q not wired", name)
}
