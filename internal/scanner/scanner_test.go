package scanner

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/executor"
	"github.com/alanyoungcy/arbot/internal/graph"
	"github.com/alanyoungcy/arbot/internal/oracle"
	"github.com/alanyoungcy/arbot/internal/risk"
	"github.com/alanyoungcy/arbot/internal/simulator"
	"github.com/alanyoungcy/arbot/internal/strategy"
	"github.com/alanyoungcy/arbot/internal/venue"
)

var (
	wmatic = domain.Token{
		Address:  common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),
		Symbol:   "WMATIC",
		Decimals: 18,
	}
	usdc = domain.Token{
		Address:  common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
		Symbol:   "USDC",
		Decimals: 18,
	}
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

type pipeline struct {
	scanner *Scanner
	risk    *risk.Manager
	strat   *strategy.Strategy
}

// newPipeline wires the full decision loop against two in-memory v2 pools
// with a 10% cross-venue price gap, wide enough for the executor to see at
// least one profitable opportunity per cycle.
func newPipeline(t *testing.T, dryRun bool) *pipeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	quickswap := venue.NewAMMv2("quickswap", 30)
	quickswap.AddPool(wmatic, usdc, e18(1_000_000), e18(1_000_000))
	sushiswap := venue.NewAMMv2("sushiswap", 30)
	sushiswap.AddPool(wmatic, usdc, e18(1_000_000), e18(1_100_000))
	reg := venue.NewRegistry()
	reg.Register(quickswap)
	reg.Register(sushiswap)

	orc := oracle.New(reg, nil, logger)
	orc.SetStaticPrice(wmatic.Address, 0.5)
	orc.SetStaticPrice(usdc.Address, 0.5)

	finder := graph.NewPathFinder(reg, graph.Config{
		SeedTokens: []domain.Token{wmatic, usdc},
		MaxPaths:   50,
		CacheTTL:   time.Minute,
		CrossVenue: true,
	}, logger)

	sim := simulator.New(reg, orc, nil, simulator.Config{
		SlippageBps:        50,
		MinProfitUSD:       1,
		NativeToken:        wmatic,
		DefaultGasPriceWei: new(big.Int).Mul(big.NewInt(30), big.NewInt(params.GWei)),
		DefaultNativeUSD:   0.5,
	}, logger)

	riskMgr := risk.NewManager(risk.Limits{
		MaxDailyLossUSD:        500,
		MaxConsecutiveFailures: 3,
		MaxTokenExposureUSD:    50_000,
		MaxTotalExposureUSD:    150_000,
		MaxPriceImpactPct:      5,
		MaxSlippagePct:         1,
		Cooldown:               time.Hour,
	}, nil, logger)
	t.Cleanup(riskMgr.Close)

	strat := strategy.New(sim, sim, orc, riskMgr, strategy.Constraints{
		MinProfitUSD:        1,
		MaxTradeUSD:         10_000,
		MaxPriceImpactPct:   5,
		MinConfidence:       0.5,
		MaxConcurrentTrades: 3,
	}, logger)

	runner := executor.NewRunner(riskMgr, strat, executor.NewPaperExecutor(0, logger), nil, nil, logger)

	sc := New(finder, sim, strat, runner, nil, Config{
		Interval:        time.Second,
		BaseTradeAmount: e18(1_000),
		DryRun:          dryRun,
	}, logger)
	return &pipeline{scanner: sc, risk: riskMgr, strat: strat}
}

func TestScanOnceExecutesProfitableCycle(t *testing.T) {
	p := newPipeline(t, false)
	ctx := context.Background()
	require.NoError(t, p.scanner.finder.Initialize(ctx))

	require.NoError(t, p.scanner.ScanOnce(ctx))

	metrics := p.risk.Metrics()
	assert.GreaterOrEqual(t, metrics.DailyTradeCount, 1)
	assert.Greater(t, metrics.DailyProfitUSD, 0.0)
	assert.Zero(t, metrics.ConsecutiveFailures)
	assert.Zero(t, p.strat.ActiveCount(), "slots released after the cycle")
}

func TestScanOnceDryRunSkipsExecution(t *testing.T) {
	p := newPipeline(t, true)
	ctx := context.Background()
	require.NoError(t, p.scanner.finder.Initialize(ctx))

	require.NoError(t, p.scanner.ScanOnce(ctx))

	metrics := p.risk.Metrics()
	assert.Zero(t, metrics.DailyTradeCount, "dry run must not execute")
	assert.Zero(t, metrics.TotalExposureUSD)
}

func TestScanOnceNoPathsIsClean(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := venue.NewRegistry()
	reg.Register(venue.NewAMMv2("quickswap", 30)) // no pools

	orc := oracle.New(reg, nil, logger)
	finder := graph.NewPathFinder(reg, graph.Config{
		SeedTokens: []domain.Token{wmatic, usdc},
		CrossVenue: true,
	}, logger)
	sim := simulator.New(reg, orc, nil, simulator.Config{NativeToken: wmatic}, logger)
	riskMgr := risk.NewManager(risk.Limits{MaxDailyLossUSD: 500, Cooldown: time.Hour}, nil, logger)
	t.Cleanup(riskMgr.Close)
	strat := strategy.New(sim, sim, orc, riskMgr, strategy.Constraints{MaxConcurrentTrades: 1}, logger)
	runner := executor.NewRunner(riskMgr, strat, executor.NewPaperExecutor(0, logger), nil, nil, logger)

	sc := New(finder, sim, strat, runner, nil, Config{BaseTradeAmount: e18(1)}, logger)
	ctx := context.Background()
	require.NoError(t, sc.finder.Initialize(ctx))
	assert.NoError(t, sc.ScanOnce(ctx))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	p := newPipeline(t, true)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.scanner.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop on cancel")
	}
}
