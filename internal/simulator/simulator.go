// Package simulator walks candidate arbitrage paths hop by hop against the
// venue adapters, accumulating price impact, gas and profit, and scores each
// result with a confidence heuristic.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/venue"
)

// Config holds the simulator parameters.
type Config struct {
	// SlippageBps is the default slippage tolerance applied to final outputs.
	SlippageBps int
	// MinProfitUSD is the profitability floor used by the profitable flag and
	// ValidateSimulation.
	MinProfitUSD float64
	// FallbackGasPerHop is used when a venue cannot estimate swap gas.
	FallbackGasPerHop uint64
	// NativeToken is the wrapped native token; gas costs are denominated in
	// it and converted to USD through its oracle price.
	NativeToken domain.Token
	// GasRefreshInterval and PriceRefreshInterval drive the two background
	// refreshers.
	GasRefreshInterval   time.Duration
	PriceRefreshInterval time.Duration
	// DefaultGasPriceWei seeds the cached gas price until the first refresh.
	DefaultGasPriceWei *big.Int
	// DefaultNativeUSD seeds the cached native price until the first refresh.
	DefaultNativeUSD float64
}

// Simulator executes read-only path simulations. One instance serves all
// concurrent simulations; the two cached scalars (gas price, native USD
// price) are refreshed in the background and read under a short lock, so a
// simulation never waits on a refresh.
type Simulator struct {
	venues *venue.Registry
	oracle domain.PriceOracle
	gas    domain.GasPricer // optional; nil keeps the default gas price
	cfg    Config
	logger *slog.Logger

	mu          sync.RWMutex
	gasPriceWei *big.Int
	nativeUSD   float64
}

// New creates a Simulator.
func New(venues *venue.Registry, oracle domain.PriceOracle, gas domain.GasPricer, cfg Config, logger *slog.Logger) *Simulator {
	if cfg.FallbackGasPerHop == 0 {
		cfg.FallbackGasPerHop = 150_000
	}
	if cfg.GasRefreshInterval <= 0 {
		cfg.GasRefreshInterval = 30 * time.Second
	}
	if cfg.PriceRefreshInterval <= 0 {
		cfg.PriceRefreshInterval = 60 * time.Second
	}
	gasPrice := cfg.DefaultGasPriceWei
	if gasPrice == nil {
		gasPrice = new(big.Int).SetUint64(30 * params.GWei)
	}
	return &Simulator{
		venues:      venues,
		oracle:      oracle,
		gas:         gas,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "simulator")),
		gasPriceWei: new(big.Int).Set(gasPrice),
		nativeUSD:   cfg.DefaultNativeUSD,
	}
}

// Run starts the gas-price and native-price refreshers and blocks until the
// context is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	s.refreshGasPrice(ctx)
	s.refreshNativePrice(ctx)

	gasTicker := time.NewTicker(s.cfg.GasRefreshInterval)
	priceTicker := time.NewTicker(s.cfg.PriceRefreshInterval)
	defer gasTicker.Stop()
	defer priceTicker.Stop()

	s.logger.Info("simulator refreshers started",
		slog.Duration("gas_interval", s.cfg.GasRefreshInterval),
		slog.Duration("price_interval", s.cfg.PriceRefreshInterval),
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-gasTicker.C:
			s.refreshGasPrice(ctx)
		case <-priceTicker.C:
			s.refreshNativePrice(ctx)
		}
	}
}

func (s *Simulator) refreshGasPrice(ctx context.Context) {
	if s.gas == nil {
		return
	}
	price, err := s.gas.SuggestGasPrice(ctx)
	if err != nil {
		s.logger.Warn("gas price refresh failed", slog.String("error", err.Error()))
		return
	}
	s.mu.Lock()
	s.gasPriceWei = price
	s.mu.Unlock()
}

func (s *Simulator) refreshNativePrice(ctx context.Context) {
	price, err := s.oracle.TokenPriceUSD(ctx, s.cfg.NativeToken.Address)
	if err != nil {
		s.logger.Warn("native price refresh failed", slog.String("error", err.Error()))
		return
	}
	s.mu.Lock()
	s.nativeUSD = price
	s.mu.Unlock()
}

// CurrentGasPrice returns the cached gas price in wei.
func (s *Simulator) CurrentGasPrice() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.gasPriceWei)
}

// NativeUSD returns the cached native-token USD price.
func (s *Simulator) NativeUSD() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nativeUSD
}

// hop is one swap leg of a path walk.
type hop struct {
	venue    string
	tokenIn  domain.Token
	tokenOut domain.Token
}

func pathHops(path domain.ArbitragePath) []hop {
	switch path.Kind {
	case domain.PathTriangular:
		hops := make([]hop, 0, 3)
		for i := 0; i < 3; i++ {
			hops = append(hops, hop{
				venue:    path.Venues[i],
				tokenIn:  path.Tokens[i],
				tokenOut: path.Tokens[(i+1)%3],
			})
		}
		return hops
	case domain.PathCrossVenue:
		return []hop{
			{venue: path.Venues[0], tokenIn: path.Tokens[0], tokenOut: path.Tokens[1]},
			{venue: path.Venues[1], tokenIn: path.Tokens[1], tokenOut: path.Tokens[0]},
		}
	default:
		return nil
	}
}

// SimulatePath walks the path with inputAmount and returns the full result.
// Transient hop failures degrade to a zero-value unprofitable result carrying
// the failure as a warning. The only returned errors are structural (invalid
// path or amount) or configuration errors (a venue with no registered
// adapter), which the caller must surface.
func (s *Simulator) SimulatePath(ctx context.Context, path domain.ArbitragePath, inputAmount *big.Int, slippageBps int) (domain.SimulationResult, error) {
	if err := path.Validate(); err != nil {
		return domain.SimulationResult{}, err
	}
	if inputAmount == nil || inputAmount.Sign() <= 0 {
		return domain.SimulationResult{}, domain.ErrInvalidAmount
	}
	if slippageBps < 0 || slippageBps > 10_000 {
		return domain.SimulationResult{}, fmt.Errorf("%w: slippage %d bps", domain.ErrInvalidAmount, slippageBps)
	}

	var warnings []string
	if path.Kind == domain.PathCrossVenue {
		if w := crossVenueSpreadWarning(path); w != "" {
			warnings = append(warnings, w)
		}
	}

	amount := new(big.Int).Set(inputAmount)
	var (
		steps       []domain.SimulationStep
		totalGas    uint64
		totalImpact float64
	)
	for i, h := range pathHops(path) {
		adapter, err := s.venues.Get(h.venue)
		if err != nil {
			// Configuration error: fatal for this call, not a degraded result.
			return domain.SimulationResult{}, err
		}
		amounts, err := adapter.GetAmountsOut(ctx, []common.Address{h.tokenIn.Address, h.tokenOut.Address}, amount)
		if err != nil {
			res := domain.ZeroSimulation(path, inputAmount, slippageBps,
				fmt.Sprintf("hop %d quote on %s failed: %v", i+1, h.venue, err))
			res.Warnings = append(warnings, res.Warnings...)
			return res, nil
		}
		out := amounts[len(amounts)-1]

		impact, err := s.oracle.PriceImpactPct(ctx, h.tokenIn.Address, h.tokenOut.Address, amount, h.venue)
		if err != nil {
			res := domain.ZeroSimulation(path, inputAmount, slippageBps,
				fmt.Sprintf("hop %d impact on %s failed: %v", i+1, h.venue, err))
			res.Warnings = append(warnings, res.Warnings...)
			return res, nil
		}
		if impact > 2 {
			warnings = append(warnings, fmt.Sprintf("hop %d impact %.2f%% exceeds 2%%", i+1, impact))
		}

		gas, err := adapter.EstimateSwapGas(ctx, h.tokenIn.Address, h.tokenOut.Address)
		if err != nil {
			gas = s.cfg.FallbackGasPerHop
		}

		steps = append(steps, domain.SimulationStep{
			Venue:          h.venue,
			TokenIn:        h.tokenIn,
			TokenOut:       h.tokenOut,
			AmountIn:       new(big.Int).Set(amount),
			AmountOut:      new(big.Int).Set(out),
			PriceImpactPct: impact,
			GasEstimate:    gas,
		})
		totalGas += gas
		totalImpact += impact
		amount = new(big.Int).Set(out)
	}

	if amount.Sign() == 0 {
		res := domain.ZeroSimulation(path, inputAmount, slippageBps, "path output is zero")
		res.Warnings = append(warnings, res.Warnings...)
		res.Steps = steps
		return res, nil
	}

	minOutput := MinOutput(amount, slippageBps)
	grossProfit := new(big.Int).Sub(minOutput, inputAmount)
	if grossProfit.Sign() < 0 {
		grossProfit = new(big.Int)
	}
	gasPrice := s.CurrentGasPrice()
	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(totalGas), gasPrice)
	netProfit := new(big.Int).Sub(grossProfit, gasCost)

	// Profit is denominated in the start token, which scan paths anchor on
	// the wrapped native token, so its decimals and the native USD price
	// convert both profit and gas cost.
	nativeUSD := s.NativeUSD()
	decimals := path.Tokens[0].Decimals
	grossUSD := amountToUSD(grossProfit, decimals, nativeUSD)
	netUSD := amountToUSD(netProfit, decimals, nativeUSD)
	gasUSD := amountToUSD(gasCost, s.cfg.NativeToken.Decimals, nativeUSD)

	confidence := confidenceScore(totalImpact, netUSD, len(warnings))
	profitable := netProfit.Sign() > 0 && netUSD >= s.cfg.MinProfitUSD

	return domain.SimulationResult{
		Path:           path,
		InputAmount:    new(big.Int).Set(inputAmount),
		OutputAmount:   amount,
		MinOutput:      minOutput,
		GrossProfit:    grossProfit,
		NetProfit:      netProfit,
		GrossProfitUSD: grossUSD,
		NetProfitUSD:   netUSD,
		GasEstimate:    totalGas,
		GasCost:        gasCost,
		GasCostUSD:     gasUSD,
		PriceImpactPct: totalImpact,
		SlippageBps:    slippageBps,
		Confidence:     confidence,
		Profitable:     profitable,
		Warnings:       warnings,
		Steps:          steps,
		SimulatedAt:    time.Now(),
	}, nil
}

// MinOutput applies the slippage tolerance with exact floor division:
//
//	minOut = out * (10000 - slippageBps) / 10000
func MinOutput(out *big.Int, slippageBps int) *big.Int {
	min := new(big.Int).Mul(out, big.NewInt(int64(10_000-slippageBps)))
	return min.Div(min, big.NewInt(10_000))
}

// confidenceScore starts at 1.0 and is reduced by the highest matching
// price-impact tier, the profit-size tier, and 0.9 per warning.
func confidenceScore(totalImpactPct, netUSD float64, warningCount int) float64 {
	confidence := 1.0
	switch {
	case totalImpactPct > 5:
		confidence *= 0.5
	case totalImpactPct > 3:
		confidence *= 0.7
	case totalImpactPct > 2:
		confidence *= 0.8
	case totalImpactPct > 1:
		confidence *= 0.9
	}
	switch {
	case netUSD < 5:
		confidence *= 0.6
	case netUSD < 10:
		confidence *= 0.8
	}
	confidence *= math.Pow(0.9, float64(warningCount))
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// crossVenueSpreadWarning compares the two venues' mid prices from reserves
// and flags spreads below 0.1% as too small to clear fees.
func crossVenueSpreadWarning(path domain.ArbitragePath) string {
	if len(path.Pairs) != 2 {
		return ""
	}
	buyPrice := pairMidPrice(path.Pairs[0], path.Tokens[0].Address)
	sellPrice := pairMidPrice(path.Pairs[1], path.Tokens[0].Address)
	if buyPrice <= 0 || sellPrice <= 0 {
		return ""
	}
	low := math.Min(buyPrice, sellPrice)
	diffPct := math.Abs(buyPrice-sellPrice) / low * 100
	if diffPct < 0.1 {
		return fmt.Sprintf("price difference too small: %.4f%%", diffPct)
	}
	return ""
}

// pairMidPrice returns the reserve-implied price of base in quote units, or 0
// when reserves are unknown.
func pairMidPrice(pair domain.TradingPair, base common.Address) float64 {
	if !pair.HasReserves() {
		return 0
	}
	reserveBase := pair.ReserveFor(base)
	var reserveQuote *big.Int
	if base == pair.TokenA.Address {
		reserveQuote = pair.ReserveB
	} else {
		reserveQuote = pair.ReserveA
	}
	if reserveBase == nil || reserveBase.Sign() <= 0 || reserveQuote == nil {
		return 0
	}
	price, _ := new(big.Float).Quo(
		new(big.Float).SetInt(reserveQuote),
		new(big.Float).SetInt(reserveBase),
	).Float64()
	return price
}

// amountToUSD converts an exact token amount to a display USD value. Negative
// amounts convert to negative USD.
func amountToUSD(amount *big.Int, decimals uint8, priceUSD float64) float64 {
	if amount == nil || priceUSD == 0 {
		return 0
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	tokens, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), scale).Float64()
	return tokens * priceUSD
}

// ValidateSimulation is the final accept/reject gate applied before a result
// is handed to the strategy.
func (s *Simulator) ValidateSimulation(res domain.SimulationResult) bool {
	if !res.Profitable {
		return false
	}
	if res.NetProfitUSD < s.cfg.MinProfitUSD {
		return false
	}
	if res.PriceImpactPct > 10 {
		return false
	}
	if res.Confidence < 0.5 {
		return false
	}
	if res.GrossProfit.Sign() <= 0 {
		return false
	}
	ratio := new(big.Float).Quo(
		new(big.Float).SetInt(res.GasCost),
		new(big.Float).SetInt(res.GrossProfit),
	)
	v, _ := ratio.Float64()
	return v <= 0.5
}
