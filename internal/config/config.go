package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the kquant platform.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Gather   GatherConfig   `yaml:"gather"`
	Optimize OptimizeConfig `yaml:"optimize"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	ParamsPath string `yaml:"params_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls data gathering behaviour for different markets.
type GatherConfig struct {
	KRDaily GatherJobConfig `yaml:"kr_daily"`
	USDaily GatherJobConfig `yaml:"us_daily"`
}

// GatherJobConfig holds parameters for a single data gathering job.
type GatherJobConfig struct {
	StartDate       string `yaml:"start_date"`
	BatchSize       int    `yaml:"batch_size"`
	MaxWorkers      int    `yaml:"max_workers"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// OptimizeConfig defines the optimization run behaviour: which symbols to
// sweep, when to run, and the shared exit parameters applied to every
// candidate.
type OptimizeConfig struct {
	Watchlist   []string `yaml:"watchlist"`
	Schedule    string   `yaml:"schedule"`
	HistoryDays int      `yaml:"history_days"`
	Parallelism int      `yaml:"parallelism"`
	TargetPct   float64  `yaml:"target_pct"`
	StopPct     float64  `yaml:"stop_pct"`
	MonteCarlo  bool     `yaml:"monte_carlo"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a Config built from environment variables and defaults
// alone, for tools that can run without a config file.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("PARAMS_PATH"); v != "" {
		cfg.Storage.ParamsPath = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills zero-valued fields with working defaults so a minimal
// config file is enough to run.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/kquant.db"
	}
	if cfg.Storage.ParamsPath == "" {
		cfg.Storage.ParamsPath = "data/params.json"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Optimize.HistoryDays == 0 {
		cfg.Optimize.HistoryDays = 504 // ~2 years of daily bars
	}
	if cfg.Optimize.Parallelism == 0 {
		cfg.Optimize.Parallelism = 8
	}
	if cfg.Optimize.TargetPct == 0 {
		cfg.Optimize.TargetPct = 3.0
	}
	if cfg.Optimize.StopPct == 0 {
		cfg.Optimize.StopPct = -5.0
	}
	if cfg.Gather.KRDaily.RateLimitPerMin == 0 {
		cfg.Gather.KRDaily.RateLimitPerMin = 60
	}
	if cfg.Gather.KRDaily.MaxWorkers == 0 {
		cfg.Gather.KRDaily.MaxWorkers = 4
	}
	if cfg.Gather.USDaily.BatchSize == 0 {
		cfg.Gather.USDaily.BatchSize = 200
	}
	if cfg.Gather.USDaily.MaxWorkers == 0 {
		cfg.Gather.USDaily.MaxWorkers = 4
	}
}
