package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "ARBOT_CHAIN_RPC_URL")
	setInt(&cfg.Chain.ChainID, "ARBOT_CHAIN_ID")
	setStr(&cfg.Chain.NativeToken, "ARBOT_CHAIN_NATIVE_TOKEN")

	// ── Pathfinder ──
	setInt(&cfg.Pathfinder.MaxPaths, "ARBOT_PATHFINDER_MAX_PATHS")
	setDuration(&cfg.Pathfinder.CacheTTL, "ARBOT_PATHFINDER_CACHE_TTL")
	setBool(&cfg.Pathfinder.Triangular, "ARBOT_PATHFINDER_TRIANGULAR")
	setBool(&cfg.Pathfinder.CrossVenue, "ARBOT_PATHFINDER_CROSS_VENUE")

	// ── Simulator ──
	setInt(&cfg.Simulator.SlippageBps, "ARBOT_SIMULATOR_SLIPPAGE_BPS")
	setFloat64(&cfg.Simulator.MinProfitUSD, "ARBOT_SIMULATOR_MIN_PROFIT_USD")
	setInt64(&cfg.Simulator.FallbackGasPerHop, "ARBOT_SIMULATOR_FALLBACK_GAS_PER_HOP")
	setDuration(&cfg.Simulator.GasRefreshInterval, "ARBOT_SIMULATOR_GAS_REFRESH_INTERVAL")
	setDuration(&cfg.Simulator.PriceRefreshInterval, "ARBOT_SIMULATOR_PRICE_REFRESH_INTERVAL")
	setInt64(&cfg.Simulator.DefaultGasPriceGwei, "ARBOT_SIMULATOR_DEFAULT_GAS_PRICE_GWEI")
	setFloat64(&cfg.Simulator.DefaultNativeUSD, "ARBOT_SIMULATOR_DEFAULT_NATIVE_USD")

	// ── Strategy ──
	setFloat64(&cfg.Strategy.MinProfitUSD, "ARBOT_STRATEGY_MIN_PROFIT_USD")
	setFloat64(&cfg.Strategy.MaxTradeUSD, "ARBOT_STRATEGY_MAX_TRADE_USD")
	setFloat64(&cfg.Strategy.MaxPriceImpactPct, "ARBOT_STRATEGY_MAX_PRICE_IMPACT_PCT")
	setFloat64(&cfg.Strategy.MinConfidence, "ARBOT_STRATEGY_MIN_CONFIDENCE")
	setInt64(&cfg.Strategy.MaxGasPriceGwei, "ARBOT_STRATEGY_MAX_GAS_PRICE_GWEI")
	setInt(&cfg.Strategy.MaxConcurrentTrades, "ARBOT_STRATEGY_MAX_CONCURRENT_TRADES")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxDailyLossUSD, "ARBOT_RISK_MAX_DAILY_LOSS_USD")
	setFloat64(&cfg.Risk.MaxDailyGasUSD, "ARBOT_RISK_MAX_DAILY_GAS_USD")
	setInt(&cfg.Risk.MaxConsecutiveFailures, "ARBOT_RISK_MAX_CONSECUTIVE_FAILURES")
	setFloat64(&cfg.Risk.MaxTokenExposureUSD, "ARBOT_RISK_MAX_TOKEN_EXPOSURE_USD")
	setFloat64(&cfg.Risk.MaxTotalExposureUSD, "ARBOT_RISK_MAX_TOTAL_EXPOSURE_USD")
	setFloat64(&cfg.Risk.MaxPriceImpactPct, "ARBOT_RISK_MAX_PRICE_IMPACT_PCT")
	setFloat64(&cfg.Risk.MaxSlippagePct, "ARBOT_RISK_MAX_SLIPPAGE_PCT")
	setStr(&cfg.Risk.MinPairLiquidity, "ARBOT_RISK_MIN_PAIR_LIQUIDITY")
	setDuration(&cfg.Risk.BreakerCooldown, "ARBOT_RISK_BREAKER_COOLDOWN")

	// ── Scanner ──
	setDuration(&cfg.Scanner.Interval, "ARBOT_SCANNER_INTERVAL")
	setStr(&cfg.Scanner.BaseTradeAmount, "ARBOT_SCANNER_BASE_TRADE_AMOUNT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBOT_REDIS_TLS_ENABLED")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBOT_MODE")
	setStr(&cfg.LogLevel, "ARBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
