// Package config loads and validates pipeline configuration via Viper.
// A local .env file is honored when present so the same settings work in
// scheduled runs and on a laptop.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/datopublico/civicingest/internal/fetch"
)

// Config captures all ingestion configuration knobs loaded via Viper.
type Config struct {
	DB          DBConfig          `mapstructure:"db"`
	Procurement ProcurementConfig `mapstructure:"procurement"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Sources     SourcesConfig     `mapstructure:"sources"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// DBConfig holds one DSN per destination database. The legislative and
// procurement table groups live in separate instances.
type DBConfig struct {
	LegislativeDSN string `mapstructure:"legislative_dsn"`
	ProcurementDSN string `mapstructure:"procurement_dsn"`
}

// ProcurementConfig holds the MercadoPublico API access key.
type ProcurementConfig struct {
	Ticket string `mapstructure:"ticket"`
}

// FetchConfig configures outbound retrieval behavior.
type FetchConfig struct {
	TimeoutSeconds        int     `mapstructure:"timeout_seconds"`
	LenientTimeoutSeconds int     `mapstructure:"lenient_timeout_seconds"`
	MaxRetries            int     `mapstructure:"max_retries"`
	RetryDelaySeconds     int     `mapstructure:"retry_delay_seconds"`
	UserAgent             string  `mapstructure:"user_agent"`
	HostRPS               float64 `mapstructure:"host_rps"`
	HostBurst             int     `mapstructure:"host_burst"`
}

// SourcesConfig overrides the default source endpoints, mainly for tests
// and staging mirrors.
type SourcesConfig struct {
	ChamberBaseURL     string `mapstructure:"chamber_base_url"`
	SenateBaseURL      string `mapstructure:"senate_base_url"`
	ProcurementBaseURL string `mapstructure:"procurement_base_url"`
}

// PipelineConfig governs run sequencing.
type PipelineConfig struct {
	StepDelaySeconds int `mapstructure:"step_delay_seconds"`
}

// MetricsConfig controls the optional Prometheus listener. An empty
// address disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. Environment variables use
// the CIVIC prefix with underscores, e.g. CIVIC_DB_LEGISLATIVE_DSN.
func Load(path string) (Config, error) {
	// Best effort; scheduled runs have no .env.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CIVIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindKeys(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.timeout_seconds", 60)
	v.SetDefault("fetch.lenient_timeout_seconds", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.retry_delay_seconds", 5)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.host_rps", 0)
	v.SetDefault("fetch.host_burst", 1)
	v.SetDefault("pipeline.step_delay_seconds", 10)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", false)
}

// bindKeys registers the keys that have no default so AutomaticEnv can see
// them without a config file.
func bindKeys(v *viper.Viper) {
	for _, key := range []string{
		"db.legislative_dsn",
		"db.procurement_dsn",
		"procurement.ticket",
		"sources.chamber_base_url",
		"sources.senate_base_url",
		"sources.procurement_base_url",
	} {
		_ = v.BindEnv(key)
	}
}

// ValidateLegislative enforces the settings the legislative pipeline needs.
func (c Config) ValidateLegislative() error {
	return requireAll(map[string]string{
		"db.legislative_dsn": c.DB.LegislativeDSN,
	})
}

// ValidateProcurement enforces the settings the procurement pipeline needs.
func (c Config) ValidateProcurement() error {
	return requireAll(map[string]string{
		"db.procurement_dsn": c.DB.ProcurementDSN,
		"procurement.ticket": c.Procurement.Ticket,
	})
}

// requireAll reports every missing setting at once so a misconfigured
// deployment is fixed in one pass.
func requireAll(settings map[string]string) error {
	missing := make([]string, 0, len(settings))
	for name, value := range settings {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
}

// FetchOptions converts the fetch section into client options.
func (c Config) FetchOptions() fetch.Options {
	return fetch.Options{
		Timeout:        time.Duration(c.Fetch.TimeoutSeconds) * time.Second,
		LenientTimeout: time.Duration(c.Fetch.LenientTimeoutSeconds) * time.Second,
		MaxRetries:     c.Fetch.MaxRetries,
		RetryDelay:     time.Duration(c.Fetch.RetryDelaySeconds) * time.Second,
		UserAgent:      c.Fetch.UserAgent,
		HostRPS:        c.Fetch.HostRPS,
		HostBurst:      c.Fetch.HostBurst,
	}
}

// StepDelay converts the pipeline section into a duration.
func (c Config) StepDelay() time.Duration {
	return time.Duration(c.Pipeline.StepDelaySeconds) * time.Second
}
