package executor

import (
	"context"
	"log/slog"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// PaperExecutor simulates fills without touching the chain. A configurable
// failure rate exercises the risk manager's failure handling in dry runs.
type PaperExecutor struct {
	failureRate float64
	logger      *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPaperExecutor creates a paper executor failing the given fraction of
// trades (0 disables failures, 1 fails everything).
func NewPaperExecutor(failureRate float64, logger *slog.Logger) *PaperExecutor {
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}
	return &PaperExecutor{
		failureRate: failureRate,
		logger:      logger.With(slog.String("component", "paper_executor")),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute pretends to submit the trade and reports the simulated profit on
// success or a gas-only loss on failure.
func (e *PaperExecutor) Execute(ctx context.Context, opp domain.RankedOpportunity) (domain.TradeResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.TradeResult{}, err
	}
	e.mu.Lock()
	failed := e.rng.Float64() < e.failureRate
	e.mu.Unlock()

	result := domain.TradeResult{
		OpportunityID: opp.ID,
		PathID:        opp.PathID(),
		GasUsed:       opp.Result.GasEstimate,
		GasCostUSD:    opp.Result.GasCostUSD,
		ExecutedAt:    time.Now(),
	}
	if failed {
		result.Success = false
		result.Profit = new(big.Int)
		result.FailureReason = "paper trade failed (simulated)"
		e.logger.Debug("paper trade failed", slog.String("path", opp.PathID()))
		return result, nil
	}
	result.Success = true
	result.Profit = new(big.Int).Set(opp.Result.NetProfit)
	result.ProfitUSD = opp.Result.NetProfitUSD
	e.logger.Debug("paper trade filled",
		slog.String("path", opp.PathID()),
		slog.Float64("profit_usd", result.ProfitUSD),
	)
	return result, nil
}
