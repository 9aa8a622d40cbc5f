package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 60, cfg.Fetch.TimeoutSeconds)
	require.Equal(t, 3, cfg.Fetch.MaxRetries)
	require.Equal(t, 5, cfg.Fetch.RetryDelaySeconds)
	require.Equal(t, 10, cfg.Pipeline.StepDelaySeconds)
	require.Empty(t, cfg.Metrics.Addr)
	require.False(t, cfg.Logging.Development)

	opts := cfg.FetchOptions()
	require.Equal(t, 60*time.Second, opts.Timeout)
	require.Equal(t, 30*time.Second, opts.LenientTimeout)
	require.Equal(t, 5*time.Second, opts.RetryDelay)
	require.Equal(t, 10*time.Second, cfg.StepDelay())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db:
  legislative_dsn: postgres://leg
  procurement_dsn: postgres://proc
procurement:
  ticket: ABC-123
fetch:
  max_retries: 5
sources:
  chamber_base_url: http://camara.test
logging:
  development: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "postgres://leg", cfg.DB.LegislativeDSN)
	require.Equal(t, "postgres://proc", cfg.DB.ProcurementDSN)
	require.Equal(t, "ABC-123", cfg.Procurement.Ticket)
	require.Equal(t, 5, cfg.Fetch.MaxRetries)
	require.Equal(t, "http://camara.test", cfg.Sources.ChamberBaseURL)
	require.True(t, cfg.Logging.Development)

	require.NoError(t, cfg.ValidateLegislative())
	require.NoError(t, cfg.ValidateProcurement())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CIVIC_DB_LEGISLATIVE_DSN", "postgres://env-leg")
	t.Setenv("CIVIC_PROCUREMENT_TICKET", "ENV-TICKET")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "postgres://env-leg", cfg.DB.LegislativeDSN)
	require.Equal(t, "ENV-TICKET", cfg.Procurement.Ticket)
}

func TestValidationReportsEveryMissingSetting(t *testing.T) {
	var cfg Config

	err := cfg.ValidateLegislative()
	require.Error(t, err)
	require.Contains(t, err.Error(), "db.legislative_dsn")

	err = cfg.ValidateProcurement()
	require.Error(t, err)
	require.Contains(t, err.Error(), "db.procurement_dsn")
	require.Contains(t, err.Error(), "procurement.ticket")
}
