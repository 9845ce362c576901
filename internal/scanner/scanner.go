// Package scanner drives the decision pipeline: enumerate candidate paths,
// simulate them, select the top opportunities and hand them to the executor
// boundary, once per scan interval.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/executor"
	"github.com/alanyoungcy/arbot/internal/graph"
	"github.com/alanyoungcy/arbot/internal/simulator"
	"github.com/alanyoungcy/arbot/internal/strategy"
)

// Config holds the scan loop parameters.
type Config struct {
	// Interval between scan cycles.
	Interval time.Duration
	// BaseTradeAmount is the start-token input used for the first simulation
	// of every path; position sizing resizes from there.
	BaseTradeAmount *big.Int
	// DryRun reports selected opportunities without handing them to the
	// runner. Used by scan mode.
	DryRun bool
}

// Scanner owns one logical decision loop. Opportunities within a cycle are
// processed sequentially by the Runner to keep risk accounting consistent.
type Scanner struct {
	finder   *graph.PathFinder
	sim      *simulator.Simulator
	strat    *strategy.Strategy
	runner   *executor.Runner
	notifier domain.Notifier // optional
	cfg      Config
	logger   *slog.Logger
}

// New creates a Scanner.
func New(
	finder *graph.PathFinder,
	sim *simulator.Simulator,
	strat *strategy.Strategy,
	runner *executor.Runner,
	notifier domain.Notifier,
	cfg Config,
	logger *slog.Logger,
) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Scanner{
		finder:   finder,
		sim:      sim,
		strat:    strat,
		runner:   runner,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scanner")),
	}
}

// Run initializes the token graph and scans until the context is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.finder.Initialize(ctx); err != nil {
		return fmt.Errorf("scanner: initialize graph: %w", err)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("scanner started", slog.Duration("interval", s.cfg.Interval))
	defer s.logger.Info("scanner stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.ScanOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Error("scan cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ScanOnce runs a single scan cycle.
func (s *Scanner) ScanOnce(ctx context.Context) error {
	started := time.Now()
	s.strat.AdjustForMarketConditions()

	paths, err := s.finder.EnumeratePaths(ctx)
	if err != nil {
		return fmt.Errorf("enumerate paths: %w", err)
	}
	if len(paths) == 0 {
		s.logger.Debug("no candidate paths this cycle")
		return nil
	}

	amounts := make([]*big.Int, len(paths))
	for i := range amounts {
		amounts[i] = s.cfg.BaseTradeAmount
	}
	results, err := s.sim.BatchSimulate(ctx, paths, amounts)
	if err != nil {
		return fmt.Errorf("batch simulate: %w", err)
	}

	valid := results[:0]
	for _, res := range results {
		if s.sim.ValidateSimulation(res) {
			valid = append(valid, res)
		}
	}

	opps := s.strat.SelectTopOpportunities(ctx, valid)
	if s.notifier != nil {
		for _, opp := range opps {
			s.notifier.OpportunityFound(ctx, opp)
		}
	}
	attempted := 0
	if !s.cfg.DryRun {
		attempted = s.runner.Process(ctx, opps)
	}

	s.logger.Info("scan cycle complete",
		slog.Int("paths", len(paths)),
		slog.Int("valid", len(valid)),
		slog.Int("selected", len(opps)),
		slog.Int("attempted", attempted),
		slog.Duration("took", time.Since(started)),
	)
	return nil
}
