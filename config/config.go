package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full orchestrator configuration, read once at startup.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Risk     RiskConfig     `yaml:"risk"`
	Venue    VenueConfig    `yaml:"venue"`
	Journal  JournalConfig  `yaml:"journal"`
	Telegram TelegramConfig `yaml:"telegram"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// AppConfig contains engine loop parameters.
type AppConfig struct {
	Symbols      []string `yaml:"symbols"`
	PollInterval string   `yaml:"poll_interval"` // e.g. "1s", "500ms"
	OrderTimeout string   `yaml:"order_timeout"` // unfilled placed orders expire after this
	Timezone     string   `yaml:"timezone"`      // broker server timezone for day boundaries
	StrategyTag  string   `yaml:"strategy_tag"`
}

// RiskConfig contains risk limits and the dynamic risk policy knobs.
type RiskConfig struct {
	PerTradePct      float64       `yaml:"per_trade_pct"` // fraction, e.g. 0.005
	PerDayPct        float64       `yaml:"per_day_pct"`   // fraction, e.g. 0.02
	MaxActiveTrades  int           `yaml:"max_active_trades"`
	MinRiskIncrement float64       `yaml:"min_risk_increment"` // account currency
	Dynamic          DynamicConfig `yaml:"dynamic"`
}

// DynamicConfig selects and tunes the drawdown-based risk reduction policy.
type DynamicConfig struct {
	Enabled              bool    `yaml:"enabled"`
	Window               int     `yaml:"window"` // trailing closed-trade count
	DrawdownThresholdPct float64 `yaml:"drawdown_threshold_pct"`
	ReduceFactor         float64 `yaml:"reduce_factor"`
}

// VenueConfig contains venue connectivity, timeout, and retry parameters.
type VenueConfig struct {
	Kind        string  `yaml:"kind"` // "sim" or "rest"
	BaseURL     string  `yaml:"base_url"`
	Token       string  `yaml:"token"`   // supports "env:NAME"
	Timeout     string  `yaml:"timeout"` // per-request HTTP timeout for the rest venue
	MaxAttempts int     `yaml:"max_attempts"`
	BackoffBase string  `yaml:"backoff_base"`
	SimEquity   float64 `yaml:"sim_equity"` // starting equity for the sim venue
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type        string `yaml:"type"` // "csv" or "sqlite"
	Dir         string `yaml:"dir,omitempty"`
	DBPath      string `yaml:"db_path,omitempty"`
	RotateDaily bool   `yaml:"rotate_daily"`
}

// TelegramConfig contains alert delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"` // supports "env:NAME"
	ChatID   string `yaml:"chat_id"`   // supports "env:NAME"
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// LoadFromFile loads, env-resolves, defaults, and validates a YAML config.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.resolveEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// resolveEnv replaces "env:NAME" string values with the value of NAME from
// the process environment. Secrets (venue token, telegram credentials) stay
// out of the config file this way.
func (c *Config) resolveEnv() {
	c.Venue.Token = resolveEnv(c.Venue.Token)
	c.Telegram.BotToken = resolveEnv(c.Telegram.BotToken)
	c.Telegram.ChatID = resolveEnv(c.Telegram.ChatID)
}

func resolveEnv(v string) string {
	if name, ok := strings.CutPrefix(v, "env:"); ok {
		return os.Getenv(name)
	}
	return v
}

// ParsePollInterval parses the configured poll interval.
func (c *AppConfig) ParsePollInterval() (time.Duration, error) {
	return time.ParseDuration(c.PollInterval)
}

// ParseOrderTimeout parses the placed-order expiry deadline.
func (c *AppConfig) ParseOrderTimeout() (time.Duration, error) {
	return time.ParseDuration(c.OrderTimeout)
}

// ParseTimeout parses the rest venue's per-request timeout.
func (c *VenueConfig) ParseTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}

// ParseBackoffBase parses the initial retry backoff delay.
func (c *VenueConfig) ParseBackoffBase() (time.Duration, error) {
	return time.ParseDuration(c.BackoffBase)
}

// Location resolves the configured broker timezone.
func (c *AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.App.Symbols) == 0 {
		return fmt.Errorf("app.symbols must not be empty")
	}
	if _, err := c.App.ParsePollInterval(); err != nil {
		return fmt.Errorf("app.poll_interval: %w", err)
	}
	if _, err := c.App.ParseOrderTimeout(); err != nil {
		return fmt.Errorf("app.order_timeout: %w", err)
	}
	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	if c.Risk.PerTradePct <= 0 || c.Risk.PerTradePct > 1 {
		return fmt.Errorf("risk.per_trade_pct must be between 0 and 1")
	}
	if c.Risk.PerDayPct <= 0 || c.Risk.PerDayPct > 1 {
		return fmt.Errorf("risk.per_day_pct must be between 0 and 1")
	}
	if c.Risk.PerTradePct > c.Risk.PerDayPct {
		return fmt.Errorf("risk.per_trade_pct must not exceed risk.per_day_pct")
	}
	if c.Risk.MaxActiveTrades <= 0 {
		return fmt.Errorf("risk.max_active_trades must be positive")
	}
	if c.Risk.MinRiskIncrement < 0 {
		return fmt.Errorf("risk.min_risk_increment must not be negative")
	}
	if c.Risk.Dynamic.Enabled {
		if c.Risk.Dynamic.Window <= 0 {
			return fmt.Errorf("risk.dynamic.window must be positive")
		}
		if c.Risk.Dynamic.ReduceFactor <= 0 || c.Risk.Dynamic.ReduceFactor >= 1 {
			return fmt.Errorf("risk.dynamic.reduce_factor must be between 0 and 1")
		}
		if c.Risk.Dynamic.DrawdownThresholdPct <= 0 {
			return fmt.Errorf("risk.dynamic.drawdown_threshold_pct must be positive")
		}
	}
	if c.Venue.Kind != "sim" && c.Venue.Kind != "rest" {
		return fmt.Errorf("venue.kind must be 'sim' or 'rest'")
	}
	if c.Venue.Kind == "rest" && c.Venue.BaseURL == "" {
		return fmt.Errorf("venue.base_url required for rest venue")
	}
	if _, err := c.Venue.ParseTimeout(); err != nil {
		return fmt.Errorf("venue.timeout: %w", err)
	}
	if c.Venue.MaxAttempts <= 0 {
		return fmt.Errorf("venue.max_attempts must be positive")
	}
	if _, err := c.Venue.ParseBackoffBase(); err != nil {
		return fmt.Errorf("venue.backoff_base: %w", err)
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && c.Journal.Dir == "" {
		return fmt.Errorf("journal.dir required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path required for SQLite type")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram bot_token and chat_id required when enabled")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Symbols:      []string{"EURUSD"},
			PollInterval: "1s",
			OrderTimeout: "2m",
			Timezone:     "UTC",
			StrategyTag:  "default",
		},
		Risk: RiskConfig{
			PerTradePct:      0.005,
			PerDayPct:        0.02,
			MaxActiveTrades:  4,
			MinRiskIncrement: 1.0,
			Dynamic: DynamicConfig{
				Enabled:              false,
				Window:               10,
				DrawdownThresholdPct: 0.05,
				ReduceFactor:         0.5,
			},
		},
		Venue: VenueConfig{
			Kind:        "sim",
			Timeout:     "5s",
			MaxAttempts: 3,
			BackoffBase: "250ms",
			SimEquity:   10000,
		},
		Journal: JournalConfig{
			Type:        "csv",
			Dir:         "./journal",
			RotateDaily: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
