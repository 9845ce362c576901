package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// TradingMode runs the full decision loop: background price/gas refreshers,
// the daily risk reset, and the scan loop that feeds opportunities through
// risk checks into the executor.
func (a *App) TradingMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trading mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Sim.Run(ctx)
	})
	g.Go(func() error {
		return deps.Risk.RunDailyReset(ctx)
	})
	g.Go(func() error {
		return deps.Scanner.Run(ctx)
	})

	return suppressCanceled(g.Wait())
}

// ScanMode runs the same enumeration and simulation loop but only reports
// selected opportunities; nothing is executed and no trades are recorded.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode (execution disabled)")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Sim.Run(ctx)
	})
	g.Go(func() error {
		return deps.Scanner.Run(ctx)
	})

	return suppressCanceled(g.Wait())
}

// suppressCanceled maps context cancellation to a clean shutdown.
func suppressCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
