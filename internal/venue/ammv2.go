package venue

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// defaultSwapGas is the gas estimate for a single v2-style swap when the
// venue cannot provide a better figure.
const defaultSwapGas uint64 = 120_000

var bpsDenominator = big.NewInt(10_000)

// pool is one in-memory constant-product pool.
type pool struct {
	tokenA   domain.Token
	tokenB   domain.Token
	reserveA *big.Int
	reserveB *big.Int
}

// AMMv2 is an in-memory constant-product venue. It backs paper trading and
// tests, and doubles as the quoting engine for venues whose reserves are
// synced from chain by an external process.
type AMMv2 struct {
	name   string
	feeBps int

	mu    sync.RWMutex
	pools map[string]*pool
}

// NewAMMv2 creates an empty constant-product venue with the given swap fee.
func NewAMMv2(name string, feeBps int) *AMMv2 {
	return &AMMv2{
		name:   name,
		feeBps: feeBps,
		pools:  make(map[string]*pool),
	}
}

// Name returns the venue identifier.
func (v *AMMv2) Name() string { return v.name }

// Kind returns the venue mechanic.
func (v *AMMv2) Kind() domain.VenueKind { return domain.VenueKindAMMv2 }

// FeeBps returns the swap fee in basis points.
func (v *AMMv2) FeeBps() int { return v.feeBps }

// AddPool registers a pool for the token pair with the given reserves.
// Re-adding an existing pair overwrites its reserves.
func (v *AMMv2) AddPool(tokenA, tokenB domain.Token, reserveA, reserveB *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pools[domain.PairKey(tokenA.Address, tokenB.Address)] = &pool{
		tokenA:   tokenA,
		tokenB:   tokenB,
		reserveA: new(big.Int).Set(reserveA),
		reserveB: new(big.Int).Set(reserveB),
	}
}

// SetReserves updates the reserves of an existing pool. Unknown pairs are
// ignored.
func (v *AMMv2) SetReserves(tokenA, tokenB common.Address, reserveA, reserveB *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.pools[domain.PairKey(tokenA, tokenB)]
	if !ok {
		return
	}
	if tokenA == p.tokenA.Address {
		p.reserveA, p.reserveB = new(big.Int).Set(reserveA), new(big.Int).Set(reserveB)
	} else {
		p.reserveA, p.reserveB = new(big.Int).Set(reserveB), new(big.Int).Set(reserveA)
	}
}

// PairExists reports whether the venue has a pool for the pair.
func (v *AMMv2) PairExists(_ context.Context, tokenA, tokenB common.Address) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.pools[domain.PairKey(tokenA, tokenB)]
	return ok, nil
}

// GetReserves returns reserves ordered for the requested token ordering.
func (v *AMMv2) GetReserves(_ context.Context, tokenA, tokenB common.Address) (*big.Int, *big.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.pools[domain.PairKey(tokenA, tokenB)]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	ra, rb := new(big.Int).Set(p.reserveA), new(big.Int).Set(p.reserveB)
	if tokenA != p.tokenA.Address {
		ra, rb = rb, ra
	}
	return ra, rb, nil
}

// GetAmountsOut quotes a multi-hop swap using the constant-product formula
// with the venue fee applied per hop. amounts[0] == amountIn.
func (v *AMMv2) GetAmountsOut(ctx context.Context, route []common.Address, amountIn *big.Int) ([]*big.Int, error) {
	if len(route) < 2 {
		return nil, domain.ErrInvalidPath
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	amounts := make([]*big.Int, len(route))
	amounts[0] = new(big.Int).Set(amountIn)
	for i := 0; i < len(route)-1; i++ {
		reserveIn, reserveOut, err := v.GetReserves(ctx, route[i], route[i+1])
		if err != nil {
			return nil, err
		}
		amounts[i+1] = swapOut(amounts[i], reserveIn, reserveOut, v.feeBps)
	}
	return amounts, nil
}

// EstimateSwapGas returns the fixed per-swap gas figure for v2 pools.
func (v *AMMv2) EstimateSwapGas(context.Context, common.Address, common.Address) (uint64, error) {
	return defaultSwapGas, nil
}

// swapOut computes the constant-product output amount:
//
//	out = inWithFee * reserveOut / (reserveIn * 10000 + inWithFee)
//
// where inWithFee = in * (10000 - feeBps). All arithmetic is exact.
func swapOut(amountIn, reserveIn, reserveOut *big.Int, feeBps int) *big.Int {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int)
	}
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(int64(10_000-feeBps)))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, bpsDenominator)
	denominator.Add(denominator, inWithFee)
	return numerator.Div(numerator, denominator)
}
