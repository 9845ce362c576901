package oracle

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbot/internal/domain"
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
		Decimals: 6,
	}
)

// fakeCache is an in-memory stand-in for the redis price cache.
type fakeCache struct {
	prices map[common.Address]float64
	stamps map[common.Address]time.Time
	err    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		prices: make(map[common.Address]float64),
		stamps: make(map[common.Address]time.Time),
	}
}

func (c *fakeCache) SetTokenPrice(ctx context.Context, token common.Address, priceUSD float64, ts time.Time) error {
	c.prices[token] = priceUSD
	c.stamps[token] = ts
	return nil
}

func (c *fakeCache) GetTokenPrice(ctx context.Context, token common.Address) (float64, time.Time, error) {
	if c.err != nil {
		return 0, time.Time{}, c.err
	}
	price, ok := c.prices[token]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return price, c.stamps[token], nil
}

func (c *fakeCache) SetGasPrice(ctx context.Context, wei *big.Int, ts time.Time) error { return nil }

func (c *fakeCache) GetGasPrice(ctx context.Context) (*big.Int, time.Time, error) {
	return nil, time.Time{}, domain.ErrNotFound
}

func oracleTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTokenPriceUSDStaticFallback(t *testing.T) {
	o := New(venue.NewRegistry(), nil, oracleTestLogger())
	o.SetStaticPrice(wmatic.Address, 0.5)

	price, err := o.TokenPriceUSD(context.Background(), wmatic.Address)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, price, 1e-9)

	_, err = o.TokenPriceUSD(context.Background(), usdc.Address)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenPriceUSDPrefersFreshCache(t *testing.T) {
	cache := newFakeCache()
	o := New(venue.NewRegistry(), cache, oracleTestLogger())
	o.SetStaticPrice(wmatic.Address, 0.5)

	require.NoError(t, cache.SetTokenPrice(context.Background(), wmatic.Address, 0.52, time.Now()))
	price, err := o.TokenPriceUSD(context.Background(), wmatic.Address)
	require.NoError(t, err)
	assert.InDelta(t, 0.52, price, 1e-9)
}

func TestTokenPriceUSDStaleCacheFallsBack(t *testing.T) {
	cache := newFakeCache()
	o := New(venue.NewRegistry(), cache, oracleTestLogger())
	o.SetStaticPrice(wmatic.Address, 0.5)

	stale := time.Now().Add(-10 * time.Minute)
	require.NoError(t, cache.SetTokenPrice(context.Background(), wmatic.Address, 0.52, stale))
	price, err := o.TokenPriceUSD(context.Background(), wmatic.Address)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, price, 1e-9)

	// The static answer is written through, refreshing the stale entry.
	assert.InDelta(t, 0.5, cache.prices[wmatic.Address], 1e-9)
	assert.WithinDuration(t, time.Now(), cache.stamps[wmatic.Address], time.Minute)
}

func TestTokenPriceUSDCacheErrorFallsBack(t *testing.T) {
	cache := newFakeCache()
	cache.err = context.DeadlineExceeded
	o := New(venue.NewRegistry(), cache, oracleTestLogger())
	o.SetStaticPrice(wmatic.Address, 0.5)

	price, err := o.TokenPriceUSD(context.Background(), wmatic.Address)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, price, 1e-9)
}

func TestSetStaticPriceOverrides(t *testing.T) {
	o := New(venue.NewRegistry(), nil, oracleTestLogger())
	o.SetStaticPrice(wmatic.Address, 0.5)
	o.SetStaticPrice(wmatic.Address, 0.6)

	price, err := o.TokenPriceUSD(context.Background(), wmatic.Address)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, price, 1e-9)
}

func TestPriceImpactPct(t *testing.T) {
	amm := venue.NewAMMv2("quickswap", 30)
	amm.AddPool(wmatic, usdc, big.NewInt(1_000_000), big.NewInt(1_000_000))
	reg := venue.NewRegistry()
	reg.Register(amm)
	o := New(reg, nil, oracleTestLogger())
	ctx := context.Background()

	// 10k into a 1M reserve moves the pool by 10000/1010000.
	impact, err := o.PriceImpactPct(ctx, wmatic.Address, usdc.Address, big.NewInt(10_000), "quickswap")
	require.NoError(t, err)
	assert.InDelta(t, 100*10_000.0/1_010_000.0, impact, 1e-9)

	_, err = o.PriceImpactPct(ctx, wmatic.Address, usdc.Address, nil, "quickswap")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = o.PriceImpactPct(ctx, wmatic.Address, usdc.Address, big.NewInt(1), "ghost")
	assert.ErrorIs(t, err, domain.ErrNoAdapter)

	_, err = o.PriceImpactPct(ctx, wmatic.Address, common.HexToAddress("0x01"), big.NewInt(1), "quickswap")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPriceImpactPctEmptyReserve(t *testing.T) {
	amm := venue.NewAMMv2("quickswap", 30)
	amm.AddPool(wmatic, usdc, big.NewInt(0), big.NewInt(0))
	reg := venue.NewRegistry()
	reg.Register(amm)
	o := New(reg, nil, oracleTestLogger())

	impact, err := o.PriceImpactPct(context.Background(), wmatic.Address, usdc.Address, big.NewInt(1_000), "quickswap")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, impact, 1e-9)
}
