package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbot/internal/domain"
)

func TestKellyFraction(t *testing.T) {
	assert.Zero(t, KellyFraction(0.8, 0))
	assert.Zero(t, KellyFraction(0.8, -1))
	assert.Zero(t, KellyFraction(0, 1))

	// Negative edge floors to zero instead of going short.
	assert.Zero(t, KellyFraction(0.5, 0.5))

	// Certain win bets the full Kelly fraction, scaled by the safety factor.
	assert.InDelta(t, 0.3, KellyFraction(1, 2), 1e-9)
	assert.InDelta(t, 0.24, KellyFraction(0.9, 1), 1e-9)

	for _, conf := range []float64{0.1, 0.5, 0.9, 1} {
		for _, ratio := range []float64{0.01, 0.5, 1, 10, 1000} {
			f := KellyFraction(conf, ratio)
			assert.GreaterOrEqual(t, f, 0.0)
			assert.LessOrEqual(t, f, 1.0)
		}
	}
}

// sizingStrategy wires a strategy whose oracle prices the start token at
// $0.50, so 1000 tokens of input is a $500 notional.
func sizingStrategy(t *testing.T) (*Strategy, *stubResim) {
	t.Helper()
	s, resim := newTestStrategy(t, gwei(30), baseConstraints())
	s.oracle = &stubPrices{prices: map[common.Address]float64{stratTokenA.Address: 0.5}}
	return s, resim
}

func TestApplyPositionSizingSkipsWithoutPrice(t *testing.T) {
	s, resim := newTestStrategy(t, gwei(30), baseConstraints())
	res := passingResult("xv-1", 50)

	sized, tradeUSD := s.applyPositionSizing(context.Background(), res, domain.RiskMedium)
	assert.Zero(t, tradeUSD)
	assert.Equal(t, res.Path.ID, sized.Path.ID)
	assert.Zero(t, resim.calls)
}

func TestApplyPositionSizingFloorsToMinTrade(t *testing.T) {
	s, resim := sizingStrategy(t)
	resim.result = passingResult("xv-1", 42)

	// Confidence 0.8 against a 10% profit ratio makes the Kelly fraction
	// negative, so the trade shrinks to the $100 floor: 200 tokens at $0.50.
	res := passingResult("xv-1", 50)
	res.Confidence = 0.8
	sized, tradeUSD := s.applyPositionSizing(context.Background(), res, domain.RiskMedium)

	require.Equal(t, 1, resim.calls)
	assert.Equal(t, e18(200), resim.lastAmount)
	assert.InDelta(t, 100.0, tradeUSD, 1e-9)
	assert.InDelta(t, 42.0, sized.NetProfitUSD, 1e-9)
	assert.Equal(t, e18(200), sized.InputAmount)
}

func TestApplyPositionSizingRiskMultipliers(t *testing.T) {
	t.Run("high risk halves", func(t *testing.T) {
		s, resim := sizingStrategy(t)
		resim.result = passingResult("xv-1", 42)
		res := passingResult("xv-1", 50)
		res.Confidence = 0.8

		_, tradeUSD := s.applyPositionSizing(context.Background(), res, domain.RiskHigh)
		assert.InDelta(t, 50.0, tradeUSD, 1e-9)
		assert.Equal(t, e18(100), resim.lastAmount)
	})
	t.Run("low risk grows", func(t *testing.T) {
		s, resim := sizingStrategy(t)
		resim.result = passingResult("xv-1", 42)
		res := passingResult("xv-1", 50)
		res.Confidence = 0.8

		_, tradeUSD := s.applyPositionSizing(context.Background(), res, domain.RiskLow)
		assert.InDelta(t, 120.0, tradeUSD, 1e-6)
		assert.Equal(t, 1, resim.calls)
	})
}

func TestApplyPositionSizingClampsToMaxTrade(t *testing.T) {
	s, resim := sizingStrategy(t)
	resim.result = passingResult("xv-1", 42)

	// $50k notional with a strong edge targets $10.5k, over the $10k cap.
	res := passingResult("xv-1", 25_000)
	res.InputAmount = e18(100_000)
	res.Confidence = 0.9
	_, tradeUSD := s.applyPositionSizing(context.Background(), res, domain.RiskMedium)

	assert.InDelta(t, 10_000.0, tradeUSD, 1e-9)
	assert.Equal(t, e18(20_000), resim.lastAmount)
}

func TestApplyPositionSizingUnchangedAmountSkipsResim(t *testing.T) {
	s, resim := sizingStrategy(t)

	// $100 notional with a negative Kelly edge floors to $100: the target
	// equals the current size, so there is nothing to re-simulate.
	res := passingResult("xv-1", 5)
	res.InputAmount = e18(200)
	res.Confidence = 0.8
	sized, tradeUSD := s.applyPositionSizing(context.Background(), res, domain.RiskMedium)

	assert.Zero(t, resim.calls)
	assert.InDelta(t, 100.0, tradeUSD, 1e-9)
	assert.Equal(t, e18(200), sized.InputAmount)
}

func TestApplyPositionSizingResimFailureKeepsOriginal(t *testing.T) {
	s, resim := sizingStrategy(t)
	resim.err = errors.New("venue unavailable")

	res := passingResult("xv-1", 50)
	res.Confidence = 0.8
	sized, tradeUSD := s.applyPositionSizing(context.Background(), res, domain.RiskMedium)

	assert.Equal(t, 1, resim.calls)
	assert.InDelta(t, 500.0, tradeUSD, 1e-9)
	assert.Equal(t, e18(1000), sized.InputAmount)
	assert.InDelta(t, 50.0, sized.NetProfitUSD, 1e-9)
}
