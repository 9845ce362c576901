package domain

import (
	"math/big"
	"time"
)

// ExecutionPriority buckets opportunities by how quickly they should be sent.
type ExecutionPriority string

const (
	PriorityHigh   ExecutionPriority = "high"
	PriorityMedium ExecutionPriority = "medium"
	PriorityLow    ExecutionPriority = "low"
)

// RiskLevel buckets opportunities by execution risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RankedOpportunity wraps a simulation that survived the strategy gates,
// carrying its composite score and the sized trade value.
type RankedOpportunity struct {
	ID       string
	Result   SimulationResult
	Score    float64
	Priority ExecutionPriority
	Risk     RiskLevel
	// EstimatedBlocks is the expected execution latency in blocks.
	EstimatedBlocks int
	// TradeAmountUSD is the notional of the (possibly resized) input amount.
	TradeAmountUSD float64
	RankedAt       time.Time
}

// PathID returns the identifier of the underlying route.
func (o RankedOpportunity) PathID() string {
	return o.Result.Path.ID
}

// TradeResult is the post-trade outcome reported back by the executor.
type TradeResult struct {
	OpportunityID string
	PathID        string
	Success       bool
	Profit        *big.Int
	ProfitUSD     float64
	GasUsed       uint64
	GasCostUSD    float64
	TxHash        string
	FailureReason string
	ExecutedAt    time.Time
}
