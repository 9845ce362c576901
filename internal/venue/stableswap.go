package venue

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// StableSwap is a flat-curve venue for like-priced assets. It approximates
// stable-swap mechanics by quoting against amplified reserves, which keeps
// slippage near zero until trades approach the real pool depth.
type StableSwap struct {
	inner *AMMv2
	amp   int64
}

// NewStableSwap creates a stable-swap venue. amplification must be >= 1; the
// usual on-chain A parameter of 100 is a reasonable default.
func NewStableSwap(name string, feeBps int, amplification int64) *StableSwap {
	if amplification < 1 {
		amplification = 1
	}
	return &StableSwap{
		inner: NewAMMv2(name, feeBps),
		amp:   amplification,
	}
}

// Name returns the venue identifier.
func (v *StableSwap) Name() string { return v.inner.name }

// Kind returns the venue mechanic.
func (v *StableSwap) Kind() domain.VenueKind { return domain.VenueKindStableSwap }

// FeeBps returns the swap fee in basis points.
func (v *StableSwap) FeeBps() int { return v.inner.feeBps }

// AddPool registers a pool for the token pair with the given reserves.
func (v *StableSwap) AddPool(tokenA, tokenB domain.Token, reserveA, reserveB *big.Int) {
	v.inner.AddPool(tokenA, tokenB, reserveA, reserveB)
}

// PairExists reports whether the venue has a pool for the pair.
func (v *StableSwap) PairExists(ctx context.Context, tokenA, tokenB common.Address) (bool, error) {
	return v.inner.PairExists(ctx, tokenA, tokenB)
}

// GetReserves returns the real (unamplified) reserves.
func (v *StableSwap) GetReserves(ctx context.Context, tokenA, tokenB common.Address) (*big.Int, *big.Int, error) {
	return v.inner.GetReserves(ctx, tokenA, tokenB)
}

// GetAmountsOut quotes against amplified reserves so the curve stays flat for
// small trades. The output is capped at the constant-product quote so it
// never exceeds the real reserve depth.
func (v *StableSwap) GetAmountsOut(ctx context.Context, route []common.Address, amountIn *big.Int) ([]*big.Int, error) {
	if len(route) < 2 {
		return nil, domain.ErrInvalidPath
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	ampFactor := big.NewInt(v.amp)
	amounts := make([]*big.Int, len(route))
	amounts[0] = new(big.Int).Set(amountIn)
	for i := 0; i < len(route)-1; i++ {
		reserveIn, reserveOut, err := v.inner.GetReserves(ctx, route[i], route[i+1])
		if err != nil {
			return nil, err
		}
		ampIn := new(big.Int).Mul(reserveIn, ampFactor)
		ampOut := new(big.Int).Mul(reserveOut, ampFactor)
		out := swapOut(amounts[i], ampIn, ampOut, v.inner.feeBps)
		// The amplified curve cannot pay out more than the pool holds.
		if out.Cmp(reserveOut) > 0 {
			out = new(big.Int).Set(reserveOut)
		}
		amounts[i+1] = out
	}
	return amounts, nil
}

// EstimateSwapGas returns the per-swap gas figure. Stable-swap pools are a
// little heavier than plain v2 swaps.
func (v *StableSwap) EstimateSwapGas(context.Context, common.Address, common.Address) (uint64, error) {
	return defaultSwapGas + 40_000, nil
}
