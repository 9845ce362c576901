package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// VenueAdapter is the quoting surface a single exchange venue exposes to the
// decision pipeline. Implementations must return ErrNotFound for pairs that
// simply do not exist; genuine transport failures are returned as other
// errors.
type VenueAdapter interface {
	Name() string
	Kind() VenueKind
	FeeBps() int
	// PairExists reports whether the venue quotes the given token pair.
	PairExists(ctx context.Context, tokenA, tokenB common.Address) (bool, error)
	// GetReserves returns the pool reserves ordered as (reserveA, reserveB)
	// for the given token ordering. Returns ErrNotFound for absent pairs.
	GetReserves(ctx context.Context, tokenA, tokenB common.Address) (*big.Int, *big.Int, error)
	// GetAmountsOut quotes a multi-hop swap along route for amountIn and
	// returns the running amounts, amounts[0] == amountIn.
	GetAmountsOut(ctx context.Context, route []common.Address, amountIn *big.Int) ([]*big.Int, error)
	// EstimateSwapGas returns the expected gas units for a single swap.
	EstimateSwapGas(ctx context.Context, tokenIn, tokenOut common.Address) (uint64, error)
}

// PriceOracle provides USD pricing and price-impact estimates.
type PriceOracle interface {
	// TokenPriceUSD returns the token's USD price, or ErrNotFound when the
	// oracle has no quote for it.
	TokenPriceUSD(ctx context.Context, token common.Address) (float64, error)
	// PriceImpactPct estimates the percentage deviation a trade of amountIn
	// causes against the pre-trade spot price on the given venue.
	PriceImpactPct(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, venue string) (float64, error)
}

// GasPricer supplies the current gas price. *ethclient.Client satisfies it.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// TradeExecutor physically executes a selected opportunity. Submission
// mechanics (nonce, gas pricing, retries) live behind this boundary.
type TradeExecutor interface {
	Execute(ctx context.Context, opp RankedOpportunity) (TradeResult, error)
}

// Notifier receives pipeline events. Implementations must not block the
// decision loop; delivery is synchronous fan-out in registration order and
// delivery errors are logged, not propagated.
type Notifier interface {
	OpportunityFound(ctx context.Context, opp RankedOpportunity)
	TradeExecuted(ctx context.Context, result TradeResult)
	CircuitBreakerTripped(ctx context.Context, reason string, metrics RiskMetrics)
}

// PriceCache is a shared cache for oracle prices and the chain gas price.
type PriceCache interface {
	SetTokenPrice(ctx context.Context, token common.Address, priceUSD float64, ts time.Time) error
	GetTokenPrice(ctx context.Context, token common.Address) (float64, time.Time, error)
	SetGasPrice(ctx context.Context, wei *big.Int, ts time.Time) error
	GetGasPrice(ctx context.Context) (*big.Int, time.Time, error)
}

// TradeExecution is the ledger record written after each executed trade.
type TradeExecution struct {
	ID            string
	OpportunityID string
	PathID        string
	PathKind      PathKind
	Route         string
	Success       bool
	ProfitUSD     float64
	GasCostUSD    float64
	TxHash        string
	FailureReason string
	ExecutedAt    time.Time
}

// TradeStore persists trade executions and answers daily PnL queries.
type TradeStore interface {
	InsertExecution(ctx context.Context, rec TradeExecution) error
	ListByDay(ctx context.Context, day time.Time) ([]TradeExecution, error)
	DailyPnL(ctx context.Context, day time.Time) (float64, error)
}
