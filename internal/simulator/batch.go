package simulator

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// batchConcurrency bounds the fan-out of one batch so a large enumeration
// cannot flood the venue adapters.
const batchConcurrency = 8

// BatchSimulate simulates all paths concurrently and returns the results
// sorted by net USD profit, descending. Simulations are read-only and
// side-effect-free per path, so the fan-out shares no state beyond the two
// cached scalars. inputAmounts must be parallel to paths.
func (s *Simulator) BatchSimulate(ctx context.Context, paths []domain.ArbitragePath, inputAmounts []*big.Int) ([]domain.SimulationResult, error) {
	if len(paths) != len(inputAmounts) {
		return nil, fmt.Errorf("batch simulate: %d paths but %d amounts", len(paths), len(inputAmounts))
	}
	results := make([]domain.SimulationResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i := range paths {
		g.Go(func() error {
			res, err := s.SimulatePath(gctx, paths[i], inputAmounts[i], s.cfg.SlippageBps)
			if err != nil {
				return fmt.Errorf("simulate %s: %w", paths[i].ID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].NetProfitUSD > results[j].NetProfitUSD
	})
	return results, nil
}
