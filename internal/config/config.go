package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Primary   VenueConfig     `yaml:"primary"`
	Hedge     VenueConfig     `yaml:"hedge"`
	Feed      FeedConfig      `yaml:"feed"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	State     StateConfig     `yaml:"state"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Timescale TimescaleConfig `yaml:"timescale"`

	Credentials Credentials `yaml:"-"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// File, when set, receives a rotated copy of the log stream.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type VenueConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
	// Symbol is "btcusdt" on the primary venue and "BTC-USDT" on the hedge venue.
	Symbol string `yaml:"symbol"`
}

type FeedConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	BufferSize     int           `yaml:"buffer_size"`
}

type StrategyConfig struct {
	PriceDigits      int32           `yaml:"price_digits"`
	VolumeDigits     int32           `yaml:"volume_digits"`
	PriceDepth       decimal.Decimal `yaml:"price_depth"`
	PriceSlipPoint   decimal.Decimal `yaml:"price_slip_point"`
	SlipRatio        decimal.Decimal `yaml:"slip_ratio"`
	UtilizationRatio decimal.Decimal `yaml:"utilization_ratio"`
	PrimaryMinSize   decimal.Decimal `yaml:"primary_min_size"`
	HedgeMinSize     decimal.Decimal `yaml:"hedge_min_size"`
	FloorSize        decimal.Decimal `yaml:"floor_size"`
	LadderLevels     int             `yaml:"ladder_levels"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

func (m MetricsConfig) EnabledValue() bool {
	return m.Enabled != nil && *m.Enabled
}

type TelegramConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Token       string        `yaml:"token"`
	ChatID      string        `yaml:"chat_id"`
	Prefix      string        `yaml:"prefix"`
	MinInterval time.Duration `yaml:"min_interval"`
	Burst       int           `yaml:"burst"`
}

type TimescaleConfig struct {
	Enabled   bool          `yaml:"enabled"`
	DSN       string        `yaml:"dsn"`
	Schema    string        `yaml:"schema"`
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Credentials never live in the YAML file.
type Credentials struct {
	PrimaryKey      string
	PrimarySecret   string
	HedgeKey        string
	HedgeSecret     string
	HedgePassphrase string
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, then applies defaults and environment credentials.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	cfg.Credentials = CredentialsFromEnv()
	return &cfg, validate(&cfg)
}

func CredentialsFromEnv() Credentials {
	get := func(key string) string { return strings.TrimSpace(os.Getenv(key)) }
	return Credentials{
		PrimaryKey:      get("PRIMARY_API_KEY"),
		PrimarySecret:   get("PRIMARY_API_SECRET"),
		HedgeKey:        get("HEDGE_API_KEY"),
		HedgeSecret:     get("HEDGE_API_SECRET"),
		HedgePassphrase: get("HEDGE_PASSPHRASE"),
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File != "" {
		if cfg.Log.MaxSizeMB == 0 {
			cfg.Log.MaxSizeMB = 100
		}
		if cfg.Log.MaxBackups == 0 {
			cfg.Log.MaxBackups = 5
		}
		if cfg.Log.MaxAgeDays == 0 {
			cfg.Log.MaxAgeDays = 14
		}
	}
	venueDefaults(&cfg.Primary, "https://api.huobi.pro", 10)
	venueDefaults(&cfg.Hedge, "https://www.okex.com", 6)
	cfg.Primary.Symbol = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(cfg.Primary.Symbol), "_", ""))
	if cfg.Hedge.Symbol == "" && cfg.Primary.Symbol != "" {
		cfg.Hedge.Symbol = deriveInstrument(cfg.Primary.Symbol)
	}
	cfg.Hedge.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Hedge.Symbol))

	if cfg.Feed.URL == "" {
		cfg.Feed.URL = "wss://api.huobi.pro/ws"
	}
	if cfg.Feed.ReconnectDelay == 0 {
		cfg.Feed.ReconnectDelay = 5 * time.Second
	}
	if cfg.Feed.PingTimeout == 0 {
		cfg.Feed.PingTimeout = 30 * time.Second
	}
	if cfg.Feed.BufferSize == 0 {
		cfg.Feed.BufferSize = 64
	}

	s := &cfg.Strategy
	if s.PriceDigits == 0 {
		s.PriceDigits = 2
	}
	if s.VolumeDigits == 0 {
		s.VolumeDigits = 4
	}
	decimalDefault(&s.PriceDepth, "2")
	decimalDefault(&s.SlipRatio, "0.005")
	decimalDefault(&s.UtilizationRatio, "0.8")
	decimalDefault(&s.PrimaryMinSize, "0.0001")
	decimalDefault(&s.HedgeMinSize, "0.001")
	decimalDefault(&s.FloorSize, "0.001")
	if s.LadderLevels == 0 {
		s.LadderLevels = 20
	}

	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/shadow-hedger.db"
	}
	if cfg.Metrics.Enabled == nil {
		enabled := true
		cfg.Metrics.Enabled = &enabled
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9001"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Telegram.MinInterval == 0 {
		cfg.Telegram.MinInterval = 10 * time.Second
	}
	if cfg.Telegram.Burst == 0 {
		cfg.Telegram.Burst = 3
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
	if cfg.Timescale.QueueSize == 0 {
		cfg.Timescale.QueueSize = 1024
	}
	if cfg.Timescale.Timeout == 0 {
		cfg.Timescale.Timeout = 5 * time.Second
	}
}

func venueDefaults(v *VenueConfig, baseURL string, rate float64) {
	if v.BaseURL == "" {
		v.BaseURL = baseURL
	}
	if v.Timeout == 0 {
		v.Timeout = 10 * time.Second
	}
	if v.RatePerSec == 0 {
		v.RatePerSec = rate
	}
}

func decimalDefault(d *decimal.Decimal, value string) {
	if d.IsZero() {
		*d = decimal.RequireFromString(value)
	}
}

// deriveInstrument maps "btcusdt" to "BTC-USDT" for the common quote assets.
func deriveInstrument(symbol string) string {
	for _, quote := range []string{"usdt", "usdc", "husd", "btc", "eth"} {
		if base, ok := strings.CutSuffix(symbol, quote); ok && base != "" {
			return strings.ToUpper(base + "-" + quote)
		}
	}
	return ""
}

func validate(cfg *Config) error {
	if cfg.Primary.Symbol == "" {
		return errors.New("primary.symbol is required")
	}
	if cfg.Hedge.Symbol == "" {
		return errors.New("hedge.symbol is required")
	}
	s := cfg.Strategy
	one := decimal.NewFromInt(1)
	if !s.UtilizationRatio.IsPositive() || !s.UtilizationRatio.LessThan(one) {
		return errors.New("strategy.utilization_ratio must be in (0,1)")
	}
	if !s.PriceDepth.IsPositive() {
		return errors.New("strategy.price_depth must be > 0")
	}
	if s.PriceSlipPoint.IsNegative() {
		return errors.New("strategy.price_slip_point must be >= 0")
	}
	if s.SlipRatio.IsNegative() || !s.SlipRatio.LessThan(one) {
		return errors.New("strategy.slip_ratio must be in [0,1)")
	}
	if s.PriceDigits < 0 || s.VolumeDigits < 0 {
		return errors.New("strategy price_digits and volume_digits must be >= 0")
	}
	if s.PrimaryMinSize.IsNegative() || s.HedgeMinSize.IsNegative() {
		return errors.New("strategy min sizes must be >= 0")
	}
	if !s.FloorSize.IsPositive() {
		return errors.New("strategy.floor_size must be > 0")
	}
	if s.LadderLevels < 1 {
		return errors.New("strategy.ladder_levels must be >= 1")
	}
	if cfg.Timescale.Enabled && strings.TrimSpace(cfg.Timescale.DSN) == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	return nil
}

// RequireCredentials reports the first missing venue secret.
func (c Credentials) RequireCredentials() error {
	missing := []struct{ name, value string }{
		{"PRIMARY_API_KEY", c.PrimaryKey},
		{"PRIMARY_API_SECRET", c.PrimarySecret},
		{"HEDGE_API_KEY", c.HedgeKey},
		{"HEDGE_API_SECRET", c.HedgeSecret},
		{"HEDGE_PASSPHRASE", c.HedgePassphrase},
	}
	for _, m := range missing {
		if m.value == "" {
			return fmt.Errorf("%s is not set", m.name)
		}
	}
	return nil
}
