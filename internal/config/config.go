// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBOT_* environment variables.
type Config struct {
	Chain      ChainConfig      `toml:"chain"`
	Tokens     []TokenConfig    `toml:"tokens"`
	Venues     []VenueConfig    `toml:"venues"`
	Pathfinder PathfinderConfig `toml:"pathfinder"`
	Simulator  SimulatorConfig  `toml:"simulator"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Risk       RiskConfig       `toml:"risk"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Oracle     OracleConfig     `toml:"oracle"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ChainConfig holds RPC endpoint and chain parameters.
type ChainConfig struct {
	RPCURL  string `toml:"rpc_url"`
	ChainID int    `toml:"chain_id"`
	// NativeToken is the symbol of the wrapped native token used for gas
	// accounting. It must appear in the tokens list.
	NativeToken string `toml:"native_token"`
}

// TokenConfig describes one seed token of the trading graph.
type TokenConfig struct {
	Address  string `toml:"address"`
	Symbol   string `toml:"symbol"`
	Decimals int    `toml:"decimals"`
}

// VenueConfig describes one DEX the bot trades against.
type VenueConfig struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"` // amm_v2, stable_swap, concentrated
	FeeBps int    `toml:"fee_bps"`
	// Router and Factory are the on-chain contract addresses. Empty in paper
	// mode, where venues are backed by in-memory pools.
	Router  string `toml:"router"`
	Factory string `toml:"factory"`
}

// PathfinderConfig holds path enumeration parameters.
type PathfinderConfig struct {
	MaxPaths   int      `toml:"max_paths"`
	CacheTTL   duration `toml:"cache_ttl"`
	Triangular bool     `toml:"triangular"`
	CrossVenue bool     `toml:"cross_venue"`
}

// SimulatorConfig holds quote simulation parameters.
type SimulatorConfig struct {
	SlippageBps          int      `toml:"slippage_bps"`
	MinProfitUSD         float64  `toml:"min_profit_usd"`
	FallbackGasPerHop    int64    `toml:"fallback_gas_per_hop"`
	GasRefreshInterval   duration `toml:"gas_refresh_interval"`
	PriceRefreshInterval duration `toml:"price_refresh_interval"`
	DefaultGasPriceGwei  int64    `toml:"default_gas_price_gwei"`
	DefaultNativeUSD     float64  `toml:"default_native_usd"`
}

// StrategyConfig holds opportunity selection and sizing parameters.
type StrategyConfig struct {
	MinProfitUSD        float64 `toml:"min_profit_usd"`
	MaxTradeUSD         float64 `toml:"max_trade_usd"`
	MaxPriceImpactPct   float64 `toml:"max_price_impact_pct"`
	MinConfidence       float64 `toml:"min_confidence"`
	MaxGasPriceGwei     int64   `toml:"max_gas_price_gwei"`
	MaxConcurrentTrades int     `toml:"max_concurrent_trades"`
}

// RiskConfig holds risk limits and circuit breaker parameters.
type RiskConfig struct {
	MaxDailyLossUSD        float64  `toml:"max_daily_loss_usd"`
	MaxDailyGasUSD         float64  `toml:"max_daily_gas_usd"`
	MaxConsecutiveFailures int      `toml:"max_consecutive_failures"`
	MaxTokenExposureUSD    float64  `toml:"max_token_exposure_usd"`
	MaxTotalExposureUSD    float64  `toml:"max_total_exposure_usd"`
	MaxPriceImpactPct      float64  `toml:"max_price_impact_pct"`
	MaxSlippagePct         float64  `toml:"max_slippage_pct"`
	MinPairLiquidity       string   `toml:"min_pair_liquidity"` // big integer, smallest units
	BreakerCooldown        duration `toml:"breaker_cooldown"`
}

// ScannerConfig holds the scan loop parameters.
type ScannerConfig struct {
	Interval duration `toml:"interval"`
	// BaseTradeAmount is the start-token input for the first simulation of
	// every path, in smallest units (decimal string).
	BaseTradeAmount string `toml:"base_trade_amount"`
}

// OracleConfig holds static USD price fallbacks keyed by token address.
type OracleConfig struct {
	StaticPricesUSD map[string]float64 `toml:"static_prices_usd"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:      "",
			ChainID:     137,
			NativeToken: "WMATIC",
		},
		Pathfinder: PathfinderConfig{
			MaxPaths:   50,
			CacheTTL:   duration{30 * time.Second},
			Triangular: true,
			CrossVenue: true,
		},
		Simulator: SimulatorConfig{
			SlippageBps:          50,
			MinProfitUSD:         1.0,
			FallbackGasPerHop:    150_000,
			GasRefreshInterval:   duration{30 * time.Second},
			PriceRefreshInterval: duration{60 * time.Second},
			DefaultGasPriceGwei:  30,
			DefaultNativeUSD:     0.5,
		},
		Strategy: StrategyConfig{
			MinProfitUSD:        1.0,
			MaxTradeUSD:         10_000,
			MaxPriceImpactPct:   5.0,
			MinConfidence:       0.5,
			MaxGasPriceGwei:     200,
			MaxConcurrentTrades: 3,
		},
		Risk: RiskConfig{
			MaxDailyLossUSD:        500,
			MaxDailyGasUSD:         200,
			MaxConsecutiveFailures: 3,
			MaxTokenExposureUSD:    5_000,
			MaxTotalExposureUSD:    15_000,
			MaxPriceImpactPct:      5.0,
			MaxSlippagePct:         1.0,
			MinPairLiquidity:       "1000000000000000000000", // 1000 tokens at 18 decimals
			BreakerCooldown:        duration{60 * time.Second},
		},
		Scanner: ScannerConfig{
			Interval:        duration{10 * time.Second},
			BaseTradeAmount: "1000000000000000000000",
		},
		Oracle: OracleConfig{
			StaticPricesUSD: map[string]float64{},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity", "trade", "circuit_breaker"},
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"paper": true,
	"live":  true,
	"scan":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validVenueKinds enumerates the accepted venue kind values.
var validVenueKinds = map[string]bool{
	"amm_v2":       true,
	"stable_swap":  true,
	"concentrated": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: paper, live, scan)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	if strings.ToLower(c.Mode) == "live" && c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url is required for live mode")
	}

	// Tokens — need at least three for triangular enumeration.
	if len(c.Tokens) < 2 {
		errs = append(errs, fmt.Sprintf("tokens: at least 2 seed tokens required, got %d", len(c.Tokens)))
	}
	nativeFound := false
	for i, t := range c.Tokens {
		if t.Address == "" {
			errs = append(errs, fmt.Sprintf("tokens[%d]: address must not be empty", i))
		}
		if t.Symbol == "" {
			errs = append(errs, fmt.Sprintf("tokens[%d]: symbol must not be empty", i))
		}
		if t.Decimals < 0 || t.Decimals > 36 {
			errs = append(errs, fmt.Sprintf("tokens[%d]: decimals must be 0-36, got %d", i, t.Decimals))
		}
		if t.Symbol == c.Chain.NativeToken {
			nativeFound = true
		}
	}
	if c.Chain.NativeToken == "" {
		errs = append(errs, "chain: native_token must not be empty")
	} else if len(c.Tokens) > 0 && !nativeFound {
		errs = append(errs, fmt.Sprintf("chain: native_token %q not present in tokens list", c.Chain.NativeToken))
	}

	// Venues
	if len(c.Venues) == 0 {
		errs = append(errs, "venues: at least one venue required")
	}
	seen := map[string]bool{}
	for i, v := range c.Venues {
		if v.Name == "" {
			errs = append(errs, fmt.Sprintf("venues[%d]: name must not be empty", i))
		} else if seen[v.Name] {
			errs = append(errs, fmt.Sprintf("venues[%d]: duplicate venue name %q", i, v.Name))
		}
		seen[v.Name] = true
		if !validVenueKinds[v.Kind] {
			errs = append(errs, fmt.Sprintf("venues[%d]: unknown kind %q (valid: amm_v2, stable_swap, concentrated)", i, v.Kind))
		}
		if v.FeeBps < 0 || v.FeeBps >= 10_000 {
			errs = append(errs, fmt.Sprintf("venues[%d]: fee_bps must be 0-9999, got %d", i, v.FeeBps))
		}
		if strings.ToLower(c.Mode) == "live" && (v.Router == "" || v.Factory == "") {
			errs = append(errs, fmt.Sprintf("venues[%d]: router and factory are required for live mode", i))
		}
	}

	// Pathfinder
	if c.Pathfinder.MaxPaths < 1 {
		errs = append(errs, "pathfinder: max_paths must be >= 1")
	}
	if !c.Pathfinder.Triangular && !c.Pathfinder.CrossVenue {
		errs = append(errs, "pathfinder: at least one of triangular or cross_venue must be enabled")
	}

	// Simulator
	if c.Simulator.SlippageBps < 0 || c.Simulator.SlippageBps >= 10_000 {
		errs = append(errs, fmt.Sprintf("simulator: slippage_bps must be 0-9999, got %d", c.Simulator.SlippageBps))
	}
	if c.Simulator.FallbackGasPerHop <= 0 {
		errs = append(errs, "simulator: fallback_gas_per_hop must be > 0")
	}
	if c.Simulator.DefaultGasPriceGwei <= 0 {
		errs = append(errs, "simulator: default_gas_price_gwei must be > 0")
	}

	// Strategy
	if c.Strategy.MaxTradeUSD <= 0 {
		errs = append(errs, "strategy: max_trade_usd must be > 0")
	}
	if c.Strategy.MinConfidence < 0 || c.Strategy.MinConfidence > 1 {
		errs = append(errs, fmt.Sprintf("strategy: min_confidence must be 0-1, got %g", c.Strategy.MinConfidence))
	}
	if c.Strategy.MaxConcurrentTrades < 1 {
		errs = append(errs, "strategy: max_concurrent_trades must be >= 1")
	}

	// Risk
	if c.Risk.MaxDailyLossUSD <= 0 {
		errs = append(errs, "risk: max_daily_loss_usd must be > 0")
	}
	if c.Risk.MaxConsecutiveFailures < 1 {
		errs = append(errs, "risk: max_consecutive_failures must be >= 1")
	}
	if c.Risk.BreakerCooldown.Duration <= 0 {
		errs = append(errs, "risk: breaker_cooldown must be > 0")
	}

	// Scanner
	if c.Scanner.Interval.Duration <= 0 {
		errs = append(errs, "scanner: interval must be > 0")
	}
	if c.Scanner.BaseTradeAmount == "" {
		errs = append(errs, "scanner: base_trade_amount must not be empty")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
