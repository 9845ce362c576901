// Package oracle implements the price oracle consumed by the simulator and
// risk checks: USD token pricing backed by the shared price cache with a
// static fallback table, and reserve-based price-impact estimation.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/venue"
)

// maxPriceAge bounds how stale a cached price may be before the oracle falls
// back to the static table.
const maxPriceAge = 5 * time.Minute

// Oracle implements domain.PriceOracle.
type Oracle struct {
	venues *venue.Registry
	cache  domain.PriceCache // optional; nil disables the shared cache
	logger *slog.Logger

	mu     sync.RWMutex
	static map[common.Address]float64
}

// New creates an Oracle. cache may be nil, in which case only the static
// table answers USD lookups.
func New(venues *venue.Registry, cache domain.PriceCache, logger *slog.Logger) *Oracle {
	return &Oracle{
		venues: venues,
		cache:  cache,
		logger: logger.With(slog.String("component", "oracle")),
		static: make(map[common.Address]float64),
	}
}

// SetStaticPrice seeds or overrides the fallback USD price for a token.
func (o *Oracle) SetStaticPrice(token common.Address, priceUSD float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.static[token] = priceUSD
}

// TokenPriceUSD returns the token's USD price, preferring a fresh cached
// quote and falling back to the static table. Returns domain.ErrNotFound when
// neither source knows the token.
func (o *Oracle) TokenPriceUSD(ctx context.Context, token common.Address) (float64, error) {
	if o.cache != nil {
		price, ts, err := o.cache.GetTokenPrice(ctx, token)
		switch {
		case err == nil && time.Since(ts) <= maxPriceAge:
			return price, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			o.logger.Debug("price cache lookup failed",
				slog.String("token", token.Hex()),
				slog.String("error", err.Error()),
			)
		}
	}
	o.mu.RLock()
	price, ok := o.static[token]
	o.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("price for %s: %w", token.Hex(), domain.ErrNotFound)
	}
	// Write the static answer through so other processes sharing the cache
	// see the same quote.
	if o.cache != nil {
		if err := o.cache.SetTokenPrice(ctx, token, price, time.Now()); err != nil {
			o.logger.Debug("price cache write failed",
				slog.String("token", token.Hex()),
				slog.String("error", err.Error()),
			)
		}
	}
	return price, nil
}

// PriceImpactPct estimates the percentage the trade moves the pool, using the
// standard reserve-ratio approximation amountIn / (reserveIn + amountIn).
func (o *Oracle) PriceImpactPct(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, venueName string) (float64, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	adapter, err := o.venues.Get(venueName)
	if err != nil {
		return 0, err
	}
	reserveIn, _, err := adapter.GetReserves(ctx, tokenIn, tokenOut)
	if err != nil {
		return 0, fmt.Errorf("price impact %s: %w", venueName, err)
	}
	if reserveIn.Sign() <= 0 {
		return 100, nil
	}
	in := new(big.Float).SetInt(amountIn)
	denom := new(big.Float).SetInt(new(big.Int).Add(reserveIn, amountIn))
	ratio, _ := new(big.Float).Quo(in, denom).Float64()
	return ratio * 100, nil
}
