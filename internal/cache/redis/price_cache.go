package redis

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Token prices
// live at "price:{address}" with fields "usd" and "ts"; the chain gas price
// lives at the fixed key "gasprice" with fields "wei" and "ts".
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(token common.Address) string {
	return "price:" + strings.ToLower(token.Hex())
}

const gasPriceKey = "gasprice"

// SetTokenPrice stores the latest USD price and timestamp for a token.
func (pc *PriceCache) SetTokenPrice(ctx context.Context, token common.Address, priceUSD float64, ts time.Time) error {
	fields := map[string]interface{}{
		"usd": strconv.FormatFloat(priceUSD, 'f', -1, 64),
		"ts":  strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, priceKey(token), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", token.Hex(), err)
	}
	return nil
}

// GetTokenPrice retrieves the latest USD price and timestamp for a token.
// It returns domain.ErrNotFound when no price is cached.
func (pc *PriceCache) GetTokenPrice(ctx context.Context, token common.Address) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(token)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", token.Hex(), err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(vals["usd"], 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", token.Hex(), err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", token.Hex(), err)
	}
	return price, time.Unix(0, tsNano), nil
}

// SetGasPrice stores the chain gas price in wei.
func (pc *PriceCache) SetGasPrice(ctx context.Context, wei *big.Int, ts time.Time) error {
	fields := map[string]interface{}{
		"wei": wei.String(),
		"ts":  strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, gasPriceKey, fields).Err(); err != nil {
		return fmt.Errorf("redis: set gas price: %w", err)
	}
	return nil
}

// GetGasPrice retrieves the cached gas price. It returns domain.ErrNotFound
// when no gas price is cached.
func (pc *PriceCache) GetGasPrice(ctx context.Context) (*big.Int, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, gasPriceKey).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: get gas price: %w", err)
	}
	if len(vals) == 0 {
		return nil, time.Time{}, domain.ErrNotFound
	}
	wei, ok := new(big.Int).SetString(vals["wei"], 10)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("redis: parse gas price %q", vals["wei"])
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: parse gas ts: %w", err)
	}
	return wei, time.Unix(0, tsNano), nil
}
