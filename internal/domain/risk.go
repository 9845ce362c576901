package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RiskRating classifies a composite risk score.
type RiskRating string

const (
	RatingLow      RiskRating = "low"
	RatingMedium   RiskRating = "medium"
	RatingHigh     RiskRating = "high"
	RatingCritical RiskRating = "critical"
)

// VolatilityBucket is derived from the recent trade failure rate.
type VolatilityBucket string

const (
	VolatilityLow      VolatilityBucket = "low"
	VolatilityModerate VolatilityBucket = "moderate"
	VolatilityHigh     VolatilityBucket = "high"
	VolatilityExtreme  VolatilityBucket = "extreme"
)

// RiskMetrics is the long-lived running risk state. Daily figures reset at
// UTC midnight; the failure streak and breaker state survive the reset.
type RiskMetrics struct {
	DailyProfitUSD       float64
	DailyLossUSD         float64
	DailyTradeCount      int
	DailyGasSpendUSD     float64
	ConsecutiveFailures  int
	TokenExposureUSD     map[common.Address]float64
	TotalExposureUSD     float64
	CircuitBreakerActive bool
	CircuitBreakerSince  time.Time
}

// ScoreBreakdown carries the weighted components of the composite risk score.
type ScoreBreakdown struct {
	Market        float64
	Liquidity     float64
	Concentration float64
	Historical    float64
	Technical     float64
}

// RiskAssessment is the structured verdict of a pre-trade risk check.
// Rejections are values, never errors.
type RiskAssessment struct {
	Allowed    bool
	Reasons    []string
	Score      float64
	Rating     RiskRating
	Breakdown  ScoreBreakdown
	Volatility VolatilityBucket
	CheckedAt  time.Time
}
