package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const minimalYAML = `
primary:
  symbol: btc_usdt
strategy:
  price_slip_point: 0.1
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	strs := map[string][2]string{
		"primary symbol":   {"btcusdt", cfg.Primary.Symbol},
		"hedge symbol":     {"BTC-USDT", cfg.Hedge.Symbol},
		"primary base url": {"https://api.huobi.pro", cfg.Primary.BaseURL},
		"hedge base url":   {"https://www.okex.com", cfg.Hedge.BaseURL},
		"feed url":         {"wss://api.huobi.pro/ws", cfg.Feed.URL},
		"metrics path":     {"/metrics", cfg.Metrics.Path},
	}
	for name, v := range strs {
		if v[0] != v[1] {
			t.Fatalf("expected %s %q, got %q", name, v[0], v[1])
		}
	}
	if cfg.Feed.ReconnectDelay != 5*time.Second {
		t.Fatalf("expected reconnect delay 5s, got %s", cfg.Feed.ReconnectDelay)
	}
	if cfg.Strategy.LadderLevels != 20 {
		t.Fatalf("expected 20 ladder levels, got %d", cfg.Strategy.LadderLevels)
	}
	decimals := map[string][2]decimal.Decimal{
		"utilization ratio": {decimal.RequireFromString("0.8"), cfg.Strategy.UtilizationRatio},
		"slip ratio":        {decimal.RequireFromString("0.005"), cfg.Strategy.SlipRatio},
		"primary min size":  {decimal.RequireFromString("0.0001"), cfg.Strategy.PrimaryMinSize},
		"hedge min size":    {decimal.RequireFromString("0.001"), cfg.Strategy.HedgeMinSize},
		"floor size":        {decimal.RequireFromString("0.001"), cfg.Strategy.FloorSize},
		"price slip point":  {decimal.RequireFromString("0.1"), cfg.Strategy.PriceSlipPoint},
	}
	for name, v := range decimals {
		if !v[0].Equal(v[1]) {
			t.Fatalf("expected %s %s, got %s", name, v[0], v[1])
		}
	}
	if !cfg.Metrics.EnabledValue() {
		t.Fatalf("expected metrics enabled by default")
	}
}

func TestParseKeepsExplicitHedgeSymbol(t *testing.T) {
	cfg, err := Parse([]byte("primary:\n  symbol: ethbtc\nhedge:\n  symbol: eth-btc\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Hedge.Symbol != "ETH-BTC" {
		t.Fatalf("expected ETH-BTC, got %q", cfg.Hedge.Symbol)
	}
}

func TestLogRotationDefaultsOnlyWithFile(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	if cfg.Log.MaxSizeMB != 0 {
		t.Fatalf("expected no rotation without a file, got %d", cfg.Log.MaxSizeMB)
	}

	cfg = &Config{Log: LoggingConfig{File: "bot.log"}}
	applyDefaults(cfg)
	if cfg.Log.MaxSizeMB != 100 || cfg.Log.MaxBackups != 5 {
		t.Fatalf("unexpected rotation defaults %d/%d", cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	}
}

func TestValidateRejectsBadStrategy(t *testing.T) {
	cases := map[string]string{
		"ratio at one":       "primary: {symbol: btcusdt}\nstrategy: {utilization_ratio: 1}\n",
		"negative ratio":     "primary: {symbol: btcusdt}\nstrategy: {utilization_ratio: -0.5}\n",
		"negative slip":      "primary: {symbol: btcusdt}\nstrategy: {price_slip_point: -1}\n",
		"negative digits":    "primary: {symbol: btcusdt}\nstrategy: {price_digits: -1}\n",
		"missing symbol":     "strategy: {utilization_ratio: 0.5}\n",
		"underivable hedge":  "primary: {symbol: foobar}\n",
		"timescale sans dsn": "primary: {symbol: btcusdt}\ntimescale: {enabled: true}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadReadsCredentialsFromEnv(t *testing.T) {
	t.Setenv("PRIMARY_API_KEY", "pk")
	t.Setenv("PRIMARY_API_SECRET", "ps")
	t.Setenv("HEDGE_API_KEY", "hk")
	t.Setenv("HEDGE_API_SECRET", "hs")
	t.Setenv("HEDGE_PASSPHRASE", "pp")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Credentials.PrimaryKey != "pk" || cfg.Credentials.HedgePassphrase != "pp" {
		t.Fatalf("unexpected credentials %+v", cfg.Credentials)
	}
	if err := cfg.Credentials.RequireCredentials(); err != nil {
		t.Fatalf("expected complete credentials: %v", err)
	}
}

func TestRequireCredentialsNamesMissingVariable(t *testing.T) {
	err := Credentials{PrimaryKey: "pk"}.RequireCredentials()
	if err == nil || err.Error() != "PRIMARY_API_SECRET is not set" {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}
