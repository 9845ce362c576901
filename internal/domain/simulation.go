package domain

import (
	"math/big"
	"time"
)

// SimulationStep is the per-hop breakdown of a simulated path.
type SimulationStep struct {
	Venue          string
	TokenIn        Token
	TokenOut       Token
	AmountIn       *big.Int
	AmountOut      *big.Int
	PriceImpactPct float64
	GasEstimate    uint64
}

// SimulationResult is the outcome of walking one candidate path with a given
// input amount. All token amounts are exact integers in the smallest unit of
// the start token; floats appear only in derived USD figures and percentages.
type SimulationResult struct {
	Path         ArbitragePath
	InputAmount  *big.Int
	OutputAmount *big.Int
	// MinOutput is OutputAmount after applying the slippage tolerance with
	// exact floor division.
	MinOutput      *big.Int
	GrossProfit    *big.Int
	NetProfit      *big.Int
	GrossProfitUSD float64
	NetProfitUSD   float64
	GasEstimate    uint64
	GasCost        *big.Int
	GasCostUSD     float64
	PriceImpactPct float64
	SlippageBps    int
	Confidence     float64
	Profitable     bool
	Warnings       []string
	Steps          []SimulationStep
	SimulatedAt    time.Time
}

// ZeroSimulation returns the degraded, unprofitable result used when a hop
// fails mid-walk. The failure travels as a warning, never as an error.
func ZeroSimulation(path ArbitragePath, input *big.Int, slippageBps int, warning string) SimulationResult {
	return SimulationResult{
		Path:         path,
		InputAmount:  new(big.Int).Set(input),
		OutputAmount: new(big.Int),
		MinOutput:    new(big.Int),
		GrossProfit:  new(big.Int),
		NetProfit:    new(big.Int),
		GasCost:      new(big.Int),
		SlippageBps:  slippageBps,
		Confidence:   0,
		Profitable:   false,
		Warnings:     []string{warning},
		SimulatedAt:  time.Now(),
	}
}
