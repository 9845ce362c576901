// Package risk implements the independent pre-trade risk gate and the
// stateful circuit breaker driven by post-trade outcomes.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

// recentOutcomeWindow is how many post-trade outcomes feed the volatility
// bucket.
const recentOutcomeWindow = 20

// maxTokenConcentration caps any single token's exposure share of the total
// exposure limit.
const maxTokenConcentration = 0.30

// Limits are the configured risk ceilings.
type Limits struct {
	MaxDailyLossUSD        float64
	MaxDailyGasUSD         float64
	MaxConsecutiveFailures int
	MaxTokenExposureUSD    float64
	MaxTotalExposureUSD    float64
	MaxPriceImpactPct      float64
	MaxSlippagePct         float64
	// MinPairLiquidity is the minimum combined reserve depth per pair, in
	// smallest token units.
	MinPairLiquidity *big.Int
	// Cooldown is how long the circuit breaker stays open before the
	// automatic reset. Defaults to 60s.
	Cooldown time.Duration
}

// Manager is the process-wide risk state. Normal and CircuitBroken are its
// only states; the breaker trips on daily loss, failure streak, daily gas
// spend or an explicit emergency stop, and exits only via the cooldown timer.
type Manager struct {
	limits   Limits
	notifier domain.Notifier // optional
	logger   *slog.Logger

	mu         sync.Mutex
	metrics    domain.RiskMetrics
	outcomes   []bool
	resetTimer *time.Timer
}

// NewManager creates a Manager in the Normal state.
func NewManager(limits Limits, notifier domain.Notifier, logger *slog.Logger) *Manager {
	if limits.Cooldown <= 0 {
		limits.Cooldown = 60 * time.Second
	}
	if limits.MaxConsecutiveFailures <= 0 {
		limits.MaxConsecutiveFailures = 3
	}
	return &Manager{
		limits:   limits,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "risk_manager")),
		metrics: domain.RiskMetrics{
			TokenExposureUSD: make(map[common.Address]float64),
		},
	}
}

// Metrics returns a copy of the current risk state.
func (m *Manager) Metrics() domain.RiskMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.metrics
	out.TokenExposureUSD = make(map[common.Address]float64, len(m.metrics.TokenExposureUSD))
	for k, v := range m.metrics.TokenExposureUSD {
		out.TokenExposureUSD[k] = v
	}
	return out
}

// DailyLossUSD returns the running daily loss.
func (m *Manager) DailyLossUSD() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics.DailyLossUSD
}

// DailyLossLimitUSD returns the configured daily loss ceiling.
func (m *Manager) DailyLossLimitUSD() float64 {
	return m.limits.MaxDailyLossUSD
}

// CircuitBreakerActive reports whether the breaker is open.
func (m *Manager) CircuitBreakerActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics.CircuitBreakerActive
}

// CooldownRemaining returns how long until the breaker auto-resets, or zero
// when it is closed.
func (m *Manager) CooldownRemaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.metrics.CircuitBreakerActive {
		return 0
	}
	remaining := m.limits.Cooldown - time.Since(m.metrics.CircuitBreakerSince)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CheckRisk runs the independent, non-short-circuiting sub-checks against the
// opportunity and returns the union of failing reasons plus the composite
// risk score. While the breaker is open every check fails immediately with
// the remaining cooldown as the reason.
func (m *Manager) CheckRisk(opp domain.RankedOpportunity) domain.RiskAssessment {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if m.metrics.CircuitBreakerActive {
		remaining := m.limits.Cooldown - now.Sub(m.metrics.CircuitBreakerSince)
		if remaining < 0 {
			remaining = 0
		}
		return domain.RiskAssessment{
			Allowed:   false,
			Reasons:   []string{fmt.Sprintf("circuit breaker active, %s cooldown remaining", remaining.Round(time.Second))},
			Rating:    domain.RatingCritical,
			Score:     100,
			CheckedAt: now,
		}
	}

	var reasons []string
	reasons = append(reasons, m.exposureReasonsLocked(opp)...)
	volatility := m.volatilityLocked()
	reasons = append(reasons, m.marketReasonsLocked(opp, volatility)...)
	reasons = append(reasons, m.liquidityReasonsLocked(opp)...)

	breakdown, score := m.riskScoreLocked(opp)
	rating := ratingFor(score)
	if rating == domain.RatingCritical {
		reasons = append(reasons, fmt.Sprintf("composite risk score %.0f is critical", score))
	}

	return domain.RiskAssessment{
		Allowed:    len(reasons) == 0,
		Reasons:    reasons,
		Score:      score,
		Rating:     rating,
		Breakdown:  breakdown,
		Volatility: volatility,
		CheckedAt:  now,
	}
}

// exposureReasonsLocked checks per-token, total and concentration limits.
func (m *Manager) exposureReasonsLocked(opp domain.RankedOpportunity) []string {
	var reasons []string
	trade := opp.TradeAmountUSD
	token := opp.Result.Path.Tokens[0].Address
	perToken := m.metrics.TokenExposureUSD[token]

	if m.limits.MaxTokenExposureUSD > 0 && perToken+trade > m.limits.MaxTokenExposureUSD {
		reasons = append(reasons, fmt.Sprintf("token exposure %.2f + trade %.2f exceeds limit %.2f",
			perToken, trade, m.limits.MaxTokenExposureUSD))
	}
	if m.limits.MaxTotalExposureUSD > 0 {
		if m.metrics.TotalExposureUSD+trade > m.limits.MaxTotalExposureUSD {
			reasons = append(reasons, fmt.Sprintf("total exposure %.2f + trade %.2f exceeds limit %.2f",
				m.metrics.TotalExposureUSD, trade, m.limits.MaxTotalExposureUSD))
		}
		if perToken+trade > m.limits.MaxTotalExposureUSD*maxTokenConcentration {
			reasons = append(reasons, fmt.Sprintf("token concentration above %.0f%% of total limit",
				maxTokenConcentration*100))
		}
	}
	return reasons
}

// marketReasonsLocked checks impact, slippage, gas ratio and volatility.
func (m *Manager) marketReasonsLocked(opp domain.RankedOpportunity, volatility domain.VolatilityBucket) []string {
	var reasons []string
	res := opp.Result

	if m.limits.MaxPriceImpactPct > 0 && res.PriceImpactPct > m.limits.MaxPriceImpactPct {
		reasons = append(reasons, fmt.Sprintf("price impact %.2f%% exceeds limit %.2f%%",
			res.PriceImpactPct, m.limits.MaxPriceImpactPct))
	}
	slippagePct := float64(res.SlippageBps) / 100
	if m.limits.MaxSlippagePct > 0 && slippagePct > m.limits.MaxSlippagePct {
		reasons = append(reasons, fmt.Sprintf("slippage %.2f%% exceeds limit %.2f%%",
			slippagePct, m.limits.MaxSlippagePct))
	}
	if ratio := gasRatio(res); ratio > 0.5 {
		reasons = append(reasons, fmt.Sprintf("gas cost is %.0f%% of gross profit", ratio*100))
	}
	if volatility == domain.VolatilityHigh || volatility == domain.VolatilityExtreme {
		reasons = append(reasons, fmt.Sprintf("market volatility %s", volatility))
	}
	return reasons
}

// liquidityReasonsLocked checks per-pair reserve depth and balance.
func (m *Manager) liquidityReasonsLocked(opp domain.RankedOpportunity) []string {
	var reasons []string
	for _, pair := range opp.Result.Path.Pairs {
		if !pair.HasReserves() {
			continue
		}
		if m.limits.MinPairLiquidity != nil && pair.Liquidity().Cmp(m.limits.MinPairLiquidity) < 0 {
			reasons = append(reasons, fmt.Sprintf("pair %s/%s on %s below minimum liquidity",
				pair.TokenA.Symbol, pair.TokenB.Symbol, pair.Venue))
		}
		if reserveImbalanced(pair.ReserveA, pair.ReserveB) {
			reasons = append(reasons, fmt.Sprintf("pair %s/%s on %s reserve imbalance above 10:1",
				pair.TokenA.Symbol, pair.TokenB.Symbol, pair.Venue))
		}
	}
	return reasons
}

// riskScoreLocked computes the weighted composite score:
// market 30%, liquidity 20%, concentration 20%, historical 20%, technical 10%.
func (m *Manager) riskScoreLocked(opp domain.RankedOpportunity) (domain.ScoreBreakdown, float64) {
	res := opp.Result
	slippagePct := float64(res.SlippageBps) / 100

	breakdown := domain.ScoreBreakdown{
		Market:    clamp100(res.PriceImpactPct*10 + slippagePct*100),
		Liquidity: clamp100(100 * (1 - res.Confidence)),
		Technical: clamp100(gasRatio(res) * 100),
	}
	if m.limits.MaxTotalExposureUSD > 0 {
		breakdown.Concentration = clamp100(m.metrics.TotalExposureUSD / m.limits.MaxTotalExposureUSD * 100)
	}
	historical := float64(m.metrics.ConsecutiveFailures) * 20
	if m.limits.MaxDailyLossUSD > 0 {
		historical += m.metrics.DailyLossUSD / m.limits.MaxDailyLossUSD * 50
	}
	breakdown.Historical = clamp100(historical)

	score := breakdown.Market*0.30 +
		breakdown.Liquidity*0.20 +
		breakdown.Concentration*0.20 +
		breakdown.Historical*0.20 +
		breakdown.Technical*0.10
	return breakdown, score
}

// volatilityLocked derives the volatility bucket from the recent failure
// rate: <15% low, <30% moderate, <50% high, else extreme.
func (m *Manager) volatilityLocked() domain.VolatilityBucket {
	if len(m.outcomes) == 0 {
		return domain.VolatilityLow
	}
	failures := 0
	for _, success := range m.outcomes {
		if !success {
			failures++
		}
	}
	rate := float64(failures) / float64(len(m.outcomes))
	switch {
	case rate < 0.15:
		return domain.VolatilityLow
	case rate < 0.30:
		return domain.VolatilityModerate
	case rate < 0.50:
		return domain.VolatilityHigh
	default:
		return domain.VolatilityExtreme
	}
}

func ratingFor(score float64) domain.RiskRating {
	switch {
	case score < 25:
		return domain.RatingLow
	case score < 50:
		return domain.RatingMedium
	case score < 75:
		return domain.RatingHigh
	default:
		return domain.RatingCritical
	}
}

func gasRatio(res domain.SimulationResult) float64 {
	if res.GrossProfit == nil || res.GrossProfit.Sign() <= 0 {
		if res.GasCost != nil && res.GasCost.Sign() > 0 {
			return 1
		}
		return 0
	}
	ratio, _ := new(big.Float).Quo(
		new(big.Float).SetInt(res.GasCost),
		new(big.Float).SetInt(res.GrossProfit),
	).Float64()
	return ratio
}

func reserveImbalanced(a, b *big.Int) bool {
	if a == nil || b == nil || a.Sign() == 0 || b.Sign() == 0 {
		return false
	}
	big10 := big.NewInt(10)
	aTen := new(big.Int).Mul(b, big10)
	bTen := new(big.Int).Mul(a, big10)
	return a.Cmp(aTen) > 0 || b.Cmp(bTen) > 0
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// UpdatePostTrade folds a trade outcome into the running state. Success adds
// profit, clears the failure streak and increases the token's exposure by
// the trade notional; failure increments the streak, books the gas spend as
// loss and releases the same notional (floored at zero). Exposure is only
// released on failure: a success leaves capital committed until the position
// unwinds through a later failure or a daily reset.
func (m *Manager) UpdatePostTrade(ctx context.Context, result domain.TradeResult, opp domain.RankedOpportunity) {
	m.mu.Lock()

	token := opp.Result.Path.Tokens[0].Address
	trade := opp.TradeAmountUSD

	m.metrics.DailyTradeCount++
	m.metrics.DailyGasSpendUSD += result.GasCostUSD
	m.outcomes = append(m.outcomes, result.Success)
	if len(m.outcomes) > recentOutcomeWindow {
		m.outcomes = m.outcomes[len(m.outcomes)-recentOutcomeWindow:]
	}

	if result.Success {
		m.metrics.DailyProfitUSD += result.ProfitUSD
		m.metrics.ConsecutiveFailures = 0
		m.metrics.TokenExposureUSD[token] += trade
		m.metrics.TotalExposureUSD += trade
	} else {
		m.metrics.ConsecutiveFailures++
		m.metrics.DailyLossUSD += result.GasCostUSD
		released := trade
		if current := m.metrics.TokenExposureUSD[token]; released > current {
			released = current
		}
		m.metrics.TokenExposureUSD[token] -= released
		m.metrics.TotalExposureUSD -= released
		if m.metrics.TotalExposureUSD < 0 {
			m.metrics.TotalExposureUSD = 0
		}
	}

	trip := ""
	switch {
	case m.limits.MaxDailyLossUSD > 0 && m.metrics.DailyLossUSD >= m.limits.MaxDailyLossUSD:
		trip = fmt.Sprintf("daily loss %.2f reached limit %.2f", m.metrics.DailyLossUSD, m.limits.MaxDailyLossUSD)
	case m.metrics.ConsecutiveFailures >= m.limits.MaxConsecutiveFailures:
		trip = fmt.Sprintf("%d consecutive failures reached limit %d", m.metrics.ConsecutiveFailures, m.limits.MaxConsecutiveFailures)
	case m.limits.MaxDailyGasUSD > 0 && m.metrics.DailyGasSpendUSD >= m.limits.MaxDailyGasUSD:
		trip = fmt.Sprintf("daily gas spend %.2f reached limit %.2f", m.metrics.DailyGasSpendUSD, m.limits.MaxDailyGasUSD)
	}
	m.mu.Unlock()

	if trip != "" {
		m.TripBreaker(ctx, trip)
	}
}

// TripBreaker opens the circuit breaker. Re-tripping while already open is a
// no-op; the armed reset timer is never replaced.
func (m *Manager) TripBreaker(ctx context.Context, reason string) {
	m.mu.Lock()
	if m.metrics.CircuitBreakerActive {
		m.mu.Unlock()
		return
	}
	m.metrics.CircuitBreakerActive = true
	m.metrics.CircuitBreakerSince = time.Now()
	m.resetTimer = time.AfterFunc(m.limits.Cooldown, m.resetBreaker)
	metrics := m.metrics
	m.mu.Unlock()

	m.logger.Warn("circuit breaker tripped",
		slog.String("reason", reason),
		slog.Duration("cooldown", m.limits.Cooldown),
	)
	if m.notifier != nil {
		m.notifier.CircuitBreakerTripped(ctx, reason, metrics)
	}
}

// EmergencyStop trips the breaker immediately with an operator-supplied
// reason.
func (m *Manager) EmergencyStop(ctx context.Context, reason string) {
	m.TripBreaker(ctx, "emergency stop: "+reason)
}

// resetBreaker closes the breaker after the cooldown. The failure streak is
// kept; only the breaker state resets.
func (m *Manager) resetBreaker() {
	m.mu.Lock()
	m.metrics.CircuitBreakerActive = false
	m.metrics.CircuitBreakerSince = time.Time{}
	m.resetTimer = nil
	m.mu.Unlock()
	m.logger.Info("circuit breaker reset after cooldown")
}

// Close cancels the armed reset timer, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetTimer != nil {
		m.resetTimer.Stop()
		m.resetTimer = nil
	}
}

// RunDailyReset resets the daily counters at every UTC midnight and blocks
// until the context is cancelled. The consecutive-failure count and breaker
// state deliberately survive the reset.
func (m *Manager) RunDailyReset(ctx context.Context) error {
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			m.ResetDaily()
		}
	}
}

// ResetDaily zeroes the daily loss, profit, trade count and gas spend.
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	m.metrics.DailyLossUSD = 0
	m.metrics.DailyProfitUSD = 0
	m.metrics.DailyTradeCount = 0
	m.metrics.DailyGasSpendUSD = 0
	m.mu.Unlock()
	m.logger.Info("daily risk counters reset")
}
