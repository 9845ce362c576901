package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"

	"github.com/alanyoungcy/arbot/internal/cache/redis"
	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/executor"
	"github.com/alanyoungcy/arbot/internal/graph"
	"github.com/alanyoungcy/arbot/internal/notify"
	"github.com/alanyoungcy/arbot/internal/oracle"
	"github.com/alanyoungcy/arbot/internal/risk"
	"github.com/alanyoungcy/arbot/internal/scanner"
	"github.com/alanyoungcy/arbot/internal/simulator"
	"github.com/alanyoungcy/arbot/internal/store/postgres"
	"github.com/alanyoungcy/arbot/internal/strategy"
	"github.com/alanyoungcy/arbot/internal/venue"
)

// Dependencies bundles every component the application modes need to operate.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Venues   *venue.Registry
	Finder   *graph.PathFinder
	Oracle   *oracle.Oracle
	Sim      *simulator.Simulator
	Strat    *strategy.Strategy
	Risk     *risk.Manager
	Runner   *executor.Runner
	Scanner  *scanner.Scanner
	Notifier domain.Notifier

	TradeStore domain.TradeStore // nil in scan mode
	PriceCache domain.PriceCache // nil when redis is disabled
}

// staticGasPricer returns a fixed gas price when no RPC endpoint is
// configured (paper and scan modes without a chain connection).
type staticGasPricer struct {
	price *big.Int
}

func (p staticGasPricer) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(p.price), nil
}

// cachingGasPricer writes suggested gas prices through to the shared price
// cache and serves a recent cached value when the inner source fails, so
// several instances sharing one redis see a consistent gas price.
type cachingGasPricer struct {
	inner domain.GasPricer
	cache domain.PriceCache
}

// maxCachedGasAge bounds how stale a cached gas price may be served.
const maxCachedGasAge = 2 * time.Minute

func (p cachingGasPricer) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := p.inner.SuggestGasPrice(ctx)
	if err != nil {
		cached, ts, cerr := p.cache.GetGasPrice(ctx)
		if cerr == nil && time.Since(ts) <= maxCachedGasAge {
			return cached, nil
		}
		return nil, err
	}
	_ = p.cache.SetGasPrice(ctx, price, time.Now())
	return price, nil
}

// needsPostgres returns true for modes that require a database connection.
func needsPostgres(mode string) bool {
	switch mode {
	case "paper", "live":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Seed tokens ---
	tokens := make([]domain.Token, 0, len(cfg.Tokens))
	var native domain.Token
	for _, t := range cfg.Tokens {
		tok := domain.Token{
			Address:  common.HexToAddress(t.Address),
			Symbol:   t.Symbol,
			Decimals: uint8(t.Decimals),
		}
		tokens = append(tokens, tok)
		if t.Symbol == cfg.Chain.NativeToken {
			native = tok
		}
	}

	// --- Chain client (live mode, or scan mode with an RPC endpoint) ---
	var ethClient *ethclient.Client
	if cfg.Chain.RPCURL != "" && mode != "paper" {
		var err error
		ethClient, err = ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: dial rpc: %w", err)
		}
		closers = append(closers, ethClient.Close)
	}

	// --- Venues ---
	registry := venue.NewRegistry()
	for _, vc := range cfg.Venues {
		kind, ok := domain.ParseVenueKind(vc.Kind)
		if !ok {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue %s: unknown kind %q", vc.Name, vc.Kind)
		}

		var adapter domain.VenueAdapter
		if ethClient != nil {
			adapter = venue.NewOnChain(
				vc.Name, kind, vc.FeeBps,
				common.HexToAddress(vc.Router),
				common.HexToAddress(vc.Factory),
				ethClient,
			)
		} else {
			switch kind {
			case domain.VenueKindStableSwap:
				adapter = venue.NewStableSwap(vc.Name, vc.FeeBps, 100)
			default:
				// Concentrated pools are approximated by the constant
				// product curve in paper mode.
				adapter = venue.NewAMMv2(vc.Name, vc.FeeBps)
			}
		}
		registry.Register(adapter)
	}
	deps.Venues = registry

	// In-memory venues start empty; seed synthetic pools so paper mode has a
	// graph to trade against.
	if ethClient == nil {
		seedPaperPools(registry, tokens, cfg.Oracle.StaticPricesUSD, logger)
	}

	// --- PostgreSQL (only for modes that persist trades) ---
	if needsPostgres(mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.TradeStore = postgres.NewTradeStore(pgClient)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	events := make([]notify.Event, 0, len(cfg.Notify.Events))
	for _, e := range cfg.Notify.Events {
		events = append(events, notify.Event(e))
	}
	dispatcher := notify.NewNotifier(senders, events, logger)
	deps.Notifier = notify.NewEventNotifier(dispatcher, logger)

	// --- Risk manager ---
	minLiquidity, ok := new(big.Int).SetString(cfg.Risk.MinPairLiquidity, 10)
	if !ok {
		cleanup()
		return nil, nil, fmt.Errorf("wire: risk: invalid min_pair_liquidity %q", cfg.Risk.MinPairLiquidity)
	}
	riskMgr := risk.NewManager(risk.Limits{
		MaxDailyLossUSD:        cfg.Risk.MaxDailyLossUSD,
		MaxDailyGasUSD:         cfg.Risk.MaxDailyGasUSD,
		MaxConsecutiveFailures: cfg.Risk.MaxConsecutiveFailures,
		MaxTokenExposureUSD:    cfg.Risk.MaxTokenExposureUSD,
		MaxTotalExposureUSD:    cfg.Risk.MaxTotalExposureUSD,
		MaxPriceImpactPct:      cfg.Risk.MaxPriceImpactPct,
		MaxSlippagePct:         cfg.Risk.MaxSlippagePct,
		MinPairLiquidity:       minLiquidity,
		Cooldown:               cfg.Risk.BreakerCooldown.Duration,
	}, deps.Notifier, logger)
	closers = append(closers, riskMgr.Close)
	deps.Risk = riskMgr

	// --- Oracle ---
	priceOracle := oracle.New(registry, deps.PriceCache, logger)
	for addr, usd := range cfg.Oracle.StaticPricesUSD {
		priceOracle.SetStaticPrice(common.HexToAddress(addr), usd)
	}
	deps.Oracle = priceOracle

	// --- Path finder ---
	finder := graph.NewPathFinder(registry, graph.Config{
		SeedTokens: tokens,
		MaxPaths:   cfg.Pathfinder.MaxPaths,
		CacheTTL:   cfg.Pathfinder.CacheTTL.Duration,
		Triangular: cfg.Pathfinder.Triangular,
		CrossVenue: cfg.Pathfinder.CrossVenue,
	}, logger)
	deps.Finder = finder

	// --- Simulator ---
	var gasPricer domain.GasPricer
	if ethClient != nil {
		gasPricer = ethClient
	} else {
		gasPricer = staticGasPricer{
			price: new(big.Int).Mul(
				big.NewInt(cfg.Simulator.DefaultGasPriceGwei),
				big.NewInt(params.GWei),
			),
		}
	}
	if deps.PriceCache != nil {
		gasPricer = cachingGasPricer{inner: gasPricer, cache: deps.PriceCache}
	}
	sim := simulator.New(registry, priceOracle, gasPricer, simulator.Config{
		SlippageBps:          cfg.Simulator.SlippageBps,
		MinProfitUSD:         cfg.Simulator.MinProfitUSD,
		FallbackGasPerHop:    uint64(cfg.Simulator.FallbackGasPerHop),
		NativeToken:          native,
		GasRefreshInterval:   cfg.Simulator.GasRefreshInterval.Duration,
		PriceRefreshInterval: cfg.Simulator.PriceRefreshInterval.Duration,
		DefaultGasPriceWei: new(big.Int).Mul(
			big.NewInt(cfg.Simulator.DefaultGasPriceGwei),
			big.NewInt(params.GWei),
		),
		DefaultNativeUSD: cfg.Simulator.DefaultNativeUSD,
	}, logger)
	deps.Sim = sim

	// --- Strategy ---
	strat := strategy.New(sim, sim, priceOracle, riskMgr, strategy.Constraints{
		MinProfitUSD:      cfg.Strategy.MinProfitUSD,
		MaxTradeUSD:       cfg.Strategy.MaxTradeUSD,
		MaxPriceImpactPct: cfg.Strategy.MaxPriceImpactPct,
		MinConfidence:     cfg.Strategy.MinConfidence,
		MaxGasPriceWei: new(big.Int).Mul(
			big.NewInt(cfg.Strategy.MaxGasPriceGwei),
			big.NewInt(params.GWei),
		),
		MaxConcurrentTrades: cfg.Strategy.MaxConcurrentTrades,
	}, logger)
	deps.Strat = strat

	// --- Executor ---
	// Transaction submission lives outside this service; every mode routes
	// selected opportunities through the paper executor so decisions are
	// recorded without touching the chain.
	exec := executor.NewPaperExecutor(0.05, logger)
	runner := executor.NewRunner(riskMgr, strat, exec, deps.TradeStore, deps.Notifier, logger)
	deps.Runner = runner

	// --- Scanner ---
	baseAmount, ok := new(big.Int).SetString(cfg.Scanner.BaseTradeAmount, 10)
	if !ok || baseAmount.Sign() <= 0 {
		cleanup()
		return nil, nil, fmt.Errorf("wire: scanner: invalid base_trade_amount %q", cfg.Scanner.BaseTradeAmount)
	}
	deps.Scanner = scanner.New(finder, sim, strat, runner, deps.Notifier, scanner.Config{
		Interval:        cfg.Scanner.Interval.Duration,
		BaseTradeAmount: baseAmount,
		DryRun:          mode == "scan",
	}, logger)

	return deps, cleanup, nil
}

// seedPaperPools registers a synthetic pool on every in-memory venue for each
// unordered seed token pair. Reserves are sized to roughly $100k per side
// using static oracle prices, with a small per-venue skew so cross-venue
// spreads exist.
func seedPaperPools(registry *venue.Registry, tokens []domain.Token, pricesUSD map[string]float64, logger *slog.Logger) {
	const depthUSD = 100_000

	priceOf := func(t domain.Token) float64 {
		if p, ok := pricesUSD[strings.ToLower(t.Address.Hex())]; ok && p > 0 {
			return p
		}
		if p, ok := pricesUSD[t.Address.Hex()]; ok && p > 0 {
			return p
		}
		return 1.0
	}

	pools := 0
	for vi, name := range registry.List() {
		adapter, err := registry.Get(name)
		if err != nil {
			continue
		}
		type poolSeeder interface {
			AddPool(tokenA, tokenB domain.Token, reserveA, reserveB *big.Int)
		}
		seeder, ok := adapter.(poolSeeder)
		if !ok {
			continue
		}

		// Venue index skews the second reserve by a few bps per venue.
		skewBps := int64(vi * 7)

		for i := 0; i < len(tokens); i++ {
			for j := i + 1; j < len(tokens); j++ {
				a, b := tokens[i], tokens[j]
				reserveA := tokensForUSD(depthUSD, priceOf(a), a.Decimals)
				reserveB := tokensForUSD(depthUSD, priceOf(b), b.Decimals)
				reserveB.Mul(reserveB, big.NewInt(10_000+skewBps))
				reserveB.Div(reserveB, big.NewInt(10_000))
				seeder.AddPool(a, b, reserveA, reserveB)
				pools++
			}
		}
	}
	logger.Info("seeded paper pools", slog.Int("pools", pools))
}

// tokensForUSD converts a USD notional into smallest token units at the given
// price, truncating fractional units.
func tokensForUSD(usd, priceUSD float64, decimals uint8) *big.Int {
	if priceUSD <= 0 {
		priceUSD = 1
	}
	whole := new(big.Float).Quo(big.NewFloat(usd), big.NewFloat(priceUSD))
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	whole.Mul(whole, scale)
	out, _ := whole.Int(nil)
	return out
}
