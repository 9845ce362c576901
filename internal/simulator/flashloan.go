package simulator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// FlashLoanProvider is the closed set of supported flash-loan sources.
type FlashLoanProvider string

const (
	FlashLoanAave     FlashLoanProvider = "aave"
	FlashLoanBalancer FlashLoanProvider = "balancer"
	FlashLoanDodo     FlashLoanProvider = "dodo"
)

// FeeBps returns the provider's flash-loan fee in basis points.
func (p FlashLoanProvider) FeeBps() (int, error) {
	switch p {
	case FlashLoanAave:
		return 9, nil
	case FlashLoanBalancer:
		return 0, nil
	case FlashLoanDodo:
		return 1, nil
	default:
		return 0, fmt.Errorf("unknown flash loan provider %q", p)
	}
}

// SimulateWithFlashLoan runs the base path simulation with the loan amount as
// input, then subtracts the repayment (principal plus provider fee) from the
// output before recomputing net profit. A result that cannot cover repayment
// and gas is unprofitable, never an error.
func (s *Simulator) SimulateWithFlashLoan(ctx context.Context, path domain.ArbitragePath, amount *big.Int, provider FlashLoanProvider) (domain.SimulationResult, error) {
	feeBps, err := provider.FeeBps()
	if err != nil {
		return domain.SimulationResult{}, err
	}
	res, err := s.SimulatePath(ctx, path, amount, s.cfg.SlippageBps)
	if err != nil {
		return domain.SimulationResult{}, err
	}
	if res.OutputAmount.Sign() == 0 {
		return res, nil
	}

	fee := new(big.Int).Mul(amount, big.NewInt(int64(feeBps)))
	fee.Div(fee, big.NewInt(10_000))
	repay := new(big.Int).Add(amount, fee)

	// Everything above the repayment is gross profit; gas still applies.
	gross := new(big.Int).Sub(res.MinOutput, repay)
	if gross.Sign() < 0 {
		gross = new(big.Int)
	}
	net := new(big.Int).Sub(gross, res.GasCost)

	decimals := path.Tokens[0].Decimals
	nativeUSD := s.NativeUSD()
	res.GrossProfit = gross
	res.NetProfit = net
	res.GrossProfitUSD = amountToUSD(gross, decimals, nativeUSD)
	res.NetProfitUSD = amountToUSD(net, decimals, nativeUSD)
	res.Profitable = net.Sign() > 0 && res.NetProfitUSD >= s.cfg.MinProfitUSD
	res.Warnings = append(res.Warnings, fmt.Sprintf("flash loan via %s, fee %d bps", provider, feeBps))
	res.Confidence = confidenceScore(res.PriceImpactPct, res.NetProfitUSD, len(res.Warnings))
	return res, nil
}
