// Package executor carries the trade execution boundary: the Runner that
// drives each selected opportunity through the risk gate and bookkeeping
// sequence, and a paper executor for dry runs.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/risk"
	"github.com/alanyoungcy/arbot/internal/strategy"
)

// Runner executes selected opportunities sequentially. For each opportunity
// it performs, exactly once and in order: risk check, strategy pre-send
// check, slot registration, execution, post-trade risk update and slot
// release. Sequential processing keeps exposure and breaker accounting
// consistent; slots are released on every outcome.
type Runner struct {
	risk     *risk.Manager
	strat    *strategy.Strategy
	executor domain.TradeExecutor
	store    domain.TradeStore // optional
	notifier domain.Notifier   // optional
	logger   *slog.Logger
}

// NewRunner creates a Runner. store and notifier may be nil.
func NewRunner(
	riskMgr *risk.Manager,
	strat *strategy.Strategy,
	exec domain.TradeExecutor,
	store domain.TradeStore,
	notifier domain.Notifier,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		risk:     riskMgr,
		strat:    strat,
		executor: exec,
		store:    store,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "executor_runner")),
	}
}

// Process runs the full boundary sequence for each opportunity in order.
// It returns the number of trades attempted.
func (r *Runner) Process(ctx context.Context, opps []domain.RankedOpportunity) int {
	attempted := 0
	for _, opp := range opps {
		if err := ctx.Err(); err != nil {
			return attempted
		}
		if r.processOne(ctx, opp) {
			attempted++
		}
	}
	return attempted
}

func (r *Runner) processOne(ctx context.Context, opp domain.RankedOpportunity) bool {
	assessment := r.risk.CheckRisk(opp)
	if !assessment.Allowed {
		r.logger.Info("opportunity blocked by risk check",
			slog.String("path", opp.PathID()),
			slog.Any("reasons", assessment.Reasons),
		)
		return false
	}

	if ok, reason := r.strat.ShouldExecute(opp); !ok {
		r.logger.Info("opportunity blocked by pre-send check",
			slog.String("path", opp.PathID()),
			slog.String("reason", reason),
		)
		return false
	}

	r.strat.RegisterTradeExecution(opp.PathID())
	defer r.strat.UnregisterTrade(opp.PathID())

	result, err := r.executor.Execute(ctx, opp)
	if err != nil {
		// Executor errors count as failed trades for risk accounting.
		result = domain.TradeResult{
			OpportunityID: opp.ID,
			PathID:        opp.PathID(),
			Success:       false,
			GasCostUSD:    opp.Result.GasCostUSD,
			FailureReason: err.Error(),
			ExecutedAt:    time.Now(),
		}
	}

	r.risk.UpdatePostTrade(ctx, result, opp)

	if r.notifier != nil {
		r.notifier.TradeExecuted(ctx, result)
	}
	r.record(ctx, opp, result)

	r.logger.Info("trade processed",
		slog.String("path", opp.PathID()),
		slog.Bool("success", result.Success),
		slog.Float64("profit_usd", result.ProfitUSD),
	)
	return true
}

func (r *Runner) record(ctx context.Context, opp domain.RankedOpportunity, result domain.TradeResult) {
	if r.store == nil {
		return
	}
	rec := domain.TradeExecution{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		PathID:        opp.PathID(),
		PathKind:      opp.Result.Path.Kind,
		Route:         opp.Result.Path.Describe(),
		Success:       result.Success,
		ProfitUSD:     result.ProfitUSD,
		GasCostUSD:    result.GasCostUSD,
		TxHash:        result.TxHash,
		FailureReason: result.FailureReason,
		ExecutedAt:    result.ExecutedAt,
	}
	if err := r.store.InsertExecution(ctx, rec); err != nil {
		r.logger.Warn("failed to record trade execution",
			slog.String("path", opp.PathID()),
			slog.String("error", err.Error()),
		)
	}
}
