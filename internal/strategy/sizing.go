package strategy

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/alanyoungcy/arbot/internal/domain"
)

const (
	// kellySafetyFactor scales the raw Kelly fraction down; full Kelly is far
	// too aggressive for thin on-chain liquidity.
	kellySafetyFactor = 0.3
	// minTradeUSD is the floor any sized trade is clamped to.
	minTradeUSD = 100.0
)

// KellyFraction computes the safety-scaled Kelly position fraction
//
//	f = (p*b - q) / b
//
// with p = confidence, q = 1-p and b the profit/trade ratio. The result is
// clamped to [0, 1] for any confidence in [0, 1] and any positive ratio,
// including ratios approaching zero.
func KellyFraction(confidence, profitRatio float64) float64 {
	if profitRatio <= 0 || confidence <= 0 {
		return 0
	}
	q := 1 - confidence
	f := (confidence*profitRatio - q) / profitRatio
	f *= kellySafetyFactor
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// applyPositionSizing resizes the trade toward the Kelly-optimal notional:
// the target USD is the current notional scaled by the Kelly fraction,
// clamped to [minTradeUSD, MaxTradeUSD], then halved for high-risk or grown
// 20% for low-risk opportunities. A changed amount triggers exactly one
// re-simulation; sizing is deliberately single-pass, so the recorded profit
// may differ slightly from what execution will see.
func (s *Strategy) applyPositionSizing(ctx context.Context, res domain.SimulationResult, risk domain.RiskLevel) (domain.SimulationResult, float64) {
	startToken := res.Path.Tokens[0]
	price, err := s.oracle.TokenPriceUSD(ctx, startToken.Address)
	if err != nil || price <= 0 {
		s.logger.Debug("position sizing skipped: no start-token price",
			slog.String("token", startToken.Symbol),
		)
		return res, 0
	}

	currentUSD := tokensToUSD(res.InputAmount, startToken.Decimals, price)
	if currentUSD <= 0 {
		return res, 0
	}

	profitRatio := res.NetProfitUSD / currentUSD
	f := KellyFraction(res.Confidence, profitRatio)
	targetUSD := currentUSD * f
	if targetUSD < minTradeUSD {
		targetUSD = minTradeUSD
	}
	maxTrade := s.Constraints().MaxTradeUSD
	if maxTrade > 0 && targetUSD > maxTrade {
		targetUSD = maxTrade
	}
	switch risk {
	case domain.RiskHigh:
		targetUSD *= 0.5
	case domain.RiskLow:
		targetUSD *= 1.2
	}

	newAmount := usdToTokens(targetUSD, startToken.Decimals, price)
	if newAmount.Sign() <= 0 || newAmount.Cmp(res.InputAmount) == 0 {
		return res, currentUSD
	}

	resized, err := s.sim.SimulatePath(ctx, res.Path, newAmount, res.SlippageBps)
	if err != nil {
		s.logger.Warn("re-simulation after sizing failed",
			slog.String("path", res.Path.ID),
			slog.String("error", err.Error()),
		)
		return res, currentUSD
	}
	return resized, targetUSD
}

// tokensToUSD converts an exact token amount to its USD notional.
func tokensToUSD(amount *big.Int, decimals uint8, priceUSD float64) float64 {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	tokens, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), scale).Float64()
	return tokens * priceUSD
}

// usdToTokens converts a USD notional back to an exact token amount.
func usdToTokens(usd float64, decimals uint8, priceUSD float64) *big.Int {
	if priceUSD <= 0 {
		return new(big.Int)
	}
	tokens := new(big.Float).Quo(big.NewFloat(usd), big.NewFloat(priceUSD))
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	scaled := new(big.Float).Mul(tokens, scale)
	out, _ := scaled.Int(nil)
	return out
}
