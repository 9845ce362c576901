// Package strategy filters, ranks and sizes simulated opportunities against
// runtime-adjustable constraints, and tracks the concurrency budget of active
// trades.
package strategy

import (
	"context"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"github.com/google/uuid"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// RejectReason identifies which gate rejected a simulation. Counters per
// reason feed the market-condition adjustment logic.
type RejectReason string

const (
	ReasonNone          RejectReason = ""
	ReasonNotProfitable RejectReason = "not_profitable"
	ReasonProfitTooLow  RejectReason = "profit_below_min"
	ReasonImpactTooHigh RejectReason = "impact_too_high"
	ReasonConfidenceLow RejectReason = "confidence_too_low"
	ReasonGasTooHigh    RejectReason = "gas_price_too_high"
	ReasonPathActive    RejectReason = "path_already_active"
	ReasonNoSlots       RejectReason = "no_concurrency_slot"
)

// Constraints are the runtime-adjustable selection limits.
type Constraints struct {
	MinProfitUSD        float64
	MaxTradeUSD         float64
	MaxPriceImpactPct   float64
	MinConfidence       float64
	MaxGasPriceWei      *big.Int
	MaxConcurrentTrades int
}

// Resimulator re-runs a path simulation after position sizing changes the
// input amount. *simulator.Simulator satisfies it.
type Resimulator interface {
	SimulatePath(ctx context.Context, path domain.ArbitragePath, inputAmount *big.Int, slippageBps int) (domain.SimulationResult, error)
}

// GasPriceReader exposes the cached chain gas price.
type GasPriceReader interface {
	CurrentGasPrice() *big.Int
}

// LossTracker exposes the running daily loss, used by the pre-send veto.
// *risk.Manager satisfies it.
type LossTracker interface {
	DailyLossUSD() float64
	DailyLossLimitUSD() float64
}

// Strategy holds the mutable constraints and the in-memory set of active
// trade paths. All methods are safe for concurrent use, though the pipeline
// processes opportunities sequentially.
type Strategy struct {
	sim    Resimulator
	gas    GasPriceReader
	oracle domain.PriceOracle
	losses LossTracker
	logger *slog.Logger

	mu         sync.Mutex
	cons       Constraints
	baseMin    float64
	baseImpact float64
	rejections map[RejectReason]int
	active     map[string]struct{}
}

// New creates a Strategy seeded from cons.
func New(sim Resimulator, gas GasPriceReader, oracle domain.PriceOracle, losses LossTracker, cons Constraints, logger *slog.Logger) *Strategy {
	if cons.MaxConcurrentTrades <= 0 {
		cons.MaxConcurrentTrades = 3
	}
	if cons.MaxPriceImpactPct <= 0 {
		cons.MaxPriceImpactPct = 5
	}
	return &Strategy{
		sim:        sim,
		gas:        gas,
		oracle:     oracle,
		losses:     losses,
		logger:     logger.With(slog.String("component", "strategy")),
		cons:       cons,
		baseMin:    cons.MinProfitUSD,
		baseImpact: cons.MaxPriceImpactPct,
		rejections: make(map[RejectReason]int),
		active:     make(map[string]struct{}),
	}
}

// Constraints returns a copy of the current constraint set.
func (s *Strategy) Constraints() Constraints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cons
}

// RejectionCount returns how often the given gate has rejected so far.
func (s *Strategy) RejectionCount(reason RejectReason) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejections[reason]
}

// AdjustForMarketConditions retunes the constraints from current conditions:
// the minimum profit doubles above 100 gwei and relaxes to 0.7x below
// 30 gwei, and the impact ceiling tightens from 5% to 3% once more than ten
// impact rejections have accumulated.
func (s *Strategy) AdjustForMarketConditions() {
	gasPrice := s.gas.CurrentGasPrice()

	s.mu.Lock()
	defer s.mu.Unlock()

	gwei := new(big.Int).Div(gasPrice, big.NewInt(params.GWei)).Int64()
	switch {
	case gwei > 100:
		s.cons.MinProfitUSD = s.baseMin * 2
	case gwei < 30:
		s.cons.MinProfitUSD = s.baseMin * 0.7
	default:
		s.cons.MinProfitUSD = s.baseMin
	}

	if s.rejections[ReasonImpactTooHigh] > 10 {
		s.cons.MaxPriceImpactPct = 3
	} else {
		s.cons.MaxPriceImpactPct = s.baseImpact
	}

	s.logger.Debug("constraints adjusted",
		slog.Int64("gas_gwei", gwei),
		slog.Float64("min_profit_usd", s.cons.MinProfitUSD),
		slog.Float64("max_impact_pct", s.cons.MaxPriceImpactPct),
	)
}

// IsOpportunityProfitable runs the ordered gate chain and returns the first
// failing gate's reason, recording it in the rejection counters. A passing
// simulation returns (true, ReasonNone).
func (s *Strategy) IsOpportunityProfitable(res domain.SimulationResult) (bool, RejectReason) {
	gasPrice := s.gas.CurrentGasPrice()

	s.mu.Lock()
	defer s.mu.Unlock()

	reason := ReasonNone
	switch {
	case !res.Profitable:
		reason = ReasonNotProfitable
	case res.NetProfitUSD < s.cons.MinProfitUSD:
		reason = ReasonProfitTooLow
	case res.PriceImpactPct > s.cons.MaxPriceImpactPct:
		reason = ReasonImpactTooHigh
	case res.Confidence < s.cons.MinConfidence:
		reason = ReasonConfidenceLow
	case s.cons.MaxGasPriceWei != nil && gasPrice.Cmp(s.cons.MaxGasPriceWei) > 0:
		reason = ReasonGasTooHigh
	case s.isActiveLocked(res.Path.ID):
		reason = ReasonPathActive
	case len(s.active) >= s.cons.MaxConcurrentTrades:
		reason = ReasonNoSlots
	}
	if reason != ReasonNone {
		s.rejections[reason]++
		return false, reason
	}
	return true, ReasonNone
}

// SelectTopOpportunities filters the simulations through the gate chain,
// scores and classifies the survivors, applies risk-adjusted position sizing,
// and returns at most the free concurrency slots' worth of opportunities,
// best score first.
func (s *Strategy) SelectTopOpportunities(ctx context.Context, sims []domain.SimulationResult) []domain.RankedOpportunity {
	var ranked []domain.RankedOpportunity
	for _, res := range sims {
		ok, reason := s.IsOpportunityProfitable(res)
		if !ok {
			s.logger.Debug("opportunity rejected",
				slog.String("path", res.Path.ID),
				slog.String("reason", string(reason)),
			)
			continue
		}

		risk := classifyRisk(res)
		sized, tradeUSD := s.applyPositionSizing(ctx, res, risk)

		maxTrade := s.Constraints().MaxTradeUSD
		if maxTrade > 0 && tradeUSD > maxTrade {
			s.logger.Debug("opportunity dropped after sizing",
				slog.String("path", res.Path.ID),
				slog.Float64("trade_usd", tradeUSD),
				slog.Float64("max_trade_usd", maxTrade),
			)
			continue
		}

		ranked = append(ranked, domain.RankedOpportunity{
			ID:              uuid.NewString(),
			Result:          sized,
			Score:           scoreOpportunity(sized),
			Priority:        classifyPriority(sized),
			Risk:            risk,
			EstimatedBlocks: estimateBlocks(sized.Path.Kind),
			TradeAmountUSD:  tradeUSD,
			RankedAt:        time.Now(),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	s.mu.Lock()
	slots := s.cons.MaxConcurrentTrades - len(s.active)
	s.mu.Unlock()
	if slots < 0 {
		slots = 0
	}
	if len(ranked) > slots {
		ranked = ranked[:slots]
	}
	return ranked
}

// scoreOpportunity computes the composite ranking score:
//
//	netUSD * confidence * (1 - impact/100) * (1 + (1 - gasCost/grossProfit))
func scoreOpportunity(res domain.SimulationResult) float64 {
	gasRatio := 1.0
	if res.GrossProfit.Sign() > 0 {
		ratio := new(big.Float).Quo(
			new(big.Float).SetInt(res.GasCost),
			new(big.Float).SetInt(res.GrossProfit),
		)
		gasRatio, _ = ratio.Float64()
	}
	return res.NetProfitUSD * res.Confidence * (1 - res.PriceImpactPct/100) * (1 + (1 - gasRatio))
}

func classifyPriority(res domain.SimulationResult) domain.ExecutionPriority {
	switch {
	case res.NetProfitUSD > 100 && res.Confidence > 0.8:
		return domain.PriorityHigh
	case res.NetProfitUSD < 20 || res.Confidence < 0.6:
		return domain.PriorityLow
	default:
		return domain.PriorityMedium
	}
}

func classifyRisk(res domain.SimulationResult) domain.RiskLevel {
	switch {
	case res.PriceImpactPct < 1 && res.Confidence > 0.8:
		return domain.RiskLow
	case res.PriceImpactPct > 3 || res.Confidence < 0.6:
		return domain.RiskHigh
	default:
		return domain.RiskMedium
	}
}

func estimateBlocks(kind domain.PathKind) int {
	if kind == domain.PathTriangular {
		return 3
	}
	return 2
}

// RegisterTradeExecution marks the path as actively trading, consuming one
// concurrency slot.
func (s *Strategy) RegisterTradeExecution(pathID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[pathID] = struct{}{}
}

// UnregisterTrade releases the path's slot. The caller must invoke it on both
// success and failure or the slot leaks permanently.
func (s *Strategy) UnregisterTrade(pathID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, pathID)
}

// ActiveCount returns the number of paths currently executing.
func (s *Strategy) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// IsActive reports whether the path currently holds a slot.
func (s *Strategy) IsActive(pathID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isActiveLocked(pathID)
}

func (s *Strategy) isActiveLocked(pathID string) bool {
	_, ok := s.active[pathID]
	return ok
}

// ShouldExecute is the final pre-send re-check: the opportunity must still be
// profitable with usable confidence, no new high-risk trade may start while
// any trade is active, and the daily loss limit vetoes everything.
func (s *Strategy) ShouldExecute(opp domain.RankedOpportunity) (bool, string) {
	if !opp.Result.Profitable {
		return false, "no longer profitable"
	}
	if opp.Result.Confidence < 0.5 {
		return false, "confidence below 0.5"
	}
	if opp.Risk == domain.RiskHigh && s.ActiveCount() > 0 {
		return false, "high-risk trade blocked while trades are active"
	}
	if s.losses != nil && s.losses.DailyLossUSD() >= s.losses.DailyLossLimitUSD() {
		return false, "daily loss limit reached"
	}
	return true, ""
}
