package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/venue"
)

// Config holds the path finder parameters.
type Config struct {
	// SeedTokens is the fixed set of liquid tokens the graph is built from.
	SeedTokens []domain.Token
	// MaxPaths caps each enumeration family.
	MaxPaths int
	// CacheTTL bounds how long triangular results are reused.
	CacheTTL time.Duration
	// Triangular and CrossVenue gate the two path families.
	Triangular bool
	CrossVenue bool
}

type cachedPaths struct {
	paths   []domain.ArbitragePath
	expires time.Time
}

// PathFinder builds the token graph from the venue adapters and enumerates
// candidate triangular and cross-venue routes.
type PathFinder struct {
	graph  *TokenGraph
	venues *venue.Registry
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedPaths
}

// NewPathFinder creates a PathFinder over an empty graph. Call Initialize to
// populate it before enumerating paths.
func NewPathFinder(venues *venue.Registry, cfg Config, logger *slog.Logger) *PathFinder {
	if cfg.MaxPaths <= 0 {
		cfg.MaxPaths = 50
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &PathFinder{
		graph:  NewTokenGraph(),
		venues: venues,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "path_finder")),
	}
}

// Graph exposes the underlying token graph.
func (f *PathFinder) Graph() *TokenGraph { return f.graph }

// Initialize queries every enabled venue for every unordered seed-token pair
// and adds an edge for each existing pool. Absent pairs are expected
// steady-state and skipped silently; transport failures are logged and
// skipped so one flaky venue cannot block graph construction. Re-running is
// idempotent and only adds missing edges.
func (f *PathFinder) Initialize(ctx context.Context) error {
	seeds := f.cfg.SeedTokens
	added := 0
	for _, name := range f.venues.List() {
		adapter, err := f.venues.Get(name)
		if err != nil {
			return err
		}
		for i := 0; i < len(seeds); i++ {
			for j := i + 1; j < len(seeds); j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				a, b := seeds[i], seeds[j]
				exists, err := adapter.PairExists(ctx, a.Address, b.Address)
				if err != nil {
					f.logger.Debug("pair existence check failed",
						slog.String("venue", name),
						slog.String("pair", a.Symbol+"/"+b.Symbol),
						slog.String("error", err.Error()),
					)
					continue
				}
				if !exists {
					continue
				}
				pair := domain.TradingPair{
					TokenA: a,
					TokenB: b,
					Venue:  name,
					FeeBps: adapter.FeeBps(),
				}
				if ra, rb, err := adapter.GetReserves(ctx, a.Address, b.Address); err == nil {
					pair.ReserveA, pair.ReserveB = ra, rb
				}
				f.graph.AddEdge(a, b, pair)
				added++
			}
		}
	}
	f.logger.Info("token graph initialized",
		slog.Int("tokens", f.graph.TokenCount()),
		slog.Int("edges", f.graph.EdgeCount()),
		slog.Int("pairs_added", added),
	)
	return nil
}

// FindTriangularPaths enumerates 3-hop cycles starting from start, or from
// every seed token when start is the zero address. Results are cached per
// (start, maxPaths) for the configured TTL. Each hop uses the venue pair with
// the greatest combined liquidity.
func (f *PathFinder) FindTriangularPaths(ctx context.Context, start common.Address, maxPaths int) ([]domain.ArbitragePath, error) {
	if maxPaths <= 0 {
		maxPaths = f.cfg.MaxPaths
	}
	cacheKey := fmt.Sprintf("tri:%s:%d", strings.ToLower(start.Hex()), maxPaths)
	if paths, ok := f.cachedResult(cacheKey); ok {
		return paths, nil
	}

	starts := make([]common.Address, 0, len(f.cfg.SeedTokens))
	if start != (common.Address{}) {
		starts = append(starts, start)
	} else {
		for _, t := range f.cfg.SeedTokens {
			starts = append(starts, t.Address)
		}
	}

	var paths []domain.ArbitragePath
outer:
	for _, s := range starts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, middle := range f.graph.Neighbors(s) {
			if middle == s {
				continue
			}
			for _, end := range f.graph.Neighbors(middle) {
				if end == s || end == middle {
					continue
				}
				if !f.graph.HasEdge(end, s) {
					continue
				}
				path, ok := f.buildTriangle(s, middle, end)
				if !ok {
					continue
				}
				paths = append(paths, path)
				if len(paths) >= maxPaths {
					break outer
				}
			}
		}
	}

	f.storeResult(cacheKey, paths)
	return paths, nil
}

// buildTriangle assembles the path record for the cycle s -> middle -> end -> s,
// selecting the deepest venue pair per hop.
func (f *PathFinder) buildTriangle(s, middle, end common.Address) (domain.ArbitragePath, bool) {
	tokenS, ok1 := f.graph.Token(s)
	tokenM, ok2 := f.graph.Token(middle)
	tokenE, ok3 := f.graph.Token(end)
	if !ok1 || !ok2 || !ok3 {
		return domain.ArbitragePath{}, false
	}
	hops := [3][2]common.Address{{s, middle}, {middle, end}, {end, s}}
	pairs := make([]domain.TradingPair, 0, 3)
	venues := make([]string, 0, 3)
	for _, hop := range hops {
		pair, ok := f.graph.BestPair(hop[0], hop[1])
		if !ok {
			return domain.ArbitragePath{}, false
		}
		pairs = append(pairs, pair)
		venues = append(venues, pair.Venue)
	}
	tokens := []domain.Token{tokenS, tokenM, tokenE}
	return domain.ArbitragePath{
		ID:     pathID(domain.PathTriangular, tokens, venues),
		Kind:   domain.PathTriangular,
		Tokens: tokens,
		Venues: venues,
		Pairs:  pairs,
	}, true
}

// FindCrossDexPaths emits, for every unordered combination of two venues both
// quoting the token pair, the buy-on-one/sell-on-the-other path and its
// reverse, capped at maxPaths.
func (f *PathFinder) FindCrossDexPaths(ctx context.Context, tokenA, tokenB common.Address, maxPaths int) ([]domain.ArbitragePath, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxPaths <= 0 {
		maxPaths = f.cfg.MaxPaths
	}
	ta, ok1 := f.graph.Token(tokenA)
	tb, ok2 := f.graph.Token(tokenB)
	if !ok1 || !ok2 {
		return nil, nil
	}
	pairs := f.graph.PairsBetween(tokenA, tokenB)
	var paths []domain.ArbitragePath
	for i := 0; i < len(pairs) && len(paths) < maxPaths; i++ {
		for j := i + 1; j < len(pairs) && len(paths) < maxPaths; j++ {
			for _, ordered := range [2][2]int{{i, j}, {j, i}} {
				if len(paths) >= maxPaths {
					break
				}
				buy, sell := pairs[ordered[0]], pairs[ordered[1]]
				tokens := []domain.Token{ta, tb}
				venues := []string{buy.Venue, sell.Venue}
				paths = append(paths, domain.ArbitragePath{
					ID:     pathID(domain.PathCrossVenue, tokens, venues),
					Kind:   domain.PathCrossVenue,
					Tokens: tokens,
					Venues: venues,
					Pairs:  []domain.TradingPair{buy, sell},
				})
			}
		}
	}
	return paths, nil
}

// EnumeratePaths unions the enabled path families: triangular cycles over all
// seed tokens and cross-venue pairs over all ordered seed combinations.
func (f *PathFinder) EnumeratePaths(ctx context.Context) ([]domain.ArbitragePath, error) {
	var paths []domain.ArbitragePath
	if f.cfg.Triangular {
		tri, err := f.FindTriangularPaths(ctx, common.Address{}, f.cfg.MaxPaths)
		if err != nil {
			return nil, err
		}
		paths = append(paths, tri...)
	}
	if f.cfg.CrossVenue {
		seeds := f.cfg.SeedTokens
		for i := 0; i < len(seeds); i++ {
			for j := 0; j < len(seeds); j++ {
				if i == j {
					continue
				}
				cross, err := f.FindCrossDexPaths(ctx, seeds[i].Address, seeds[j].Address, f.cfg.MaxPaths)
				if err != nil {
					return nil, err
				}
				paths = append(paths, cross...)
			}
		}
	}
	return dedupePaths(paths), nil
}

// cachedResult returns a still-fresh cached enumeration.
func (f *PathFinder) cachedResult(key string) ([]domain.ArbitragePath, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		return nil, false
	}
	entry, ok := f.cache[key]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	out := make([]domain.ArbitragePath, len(entry.paths))
	copy(out, entry.paths)
	return out, true
}

func (f *PathFinder) storeResult(key string, paths []domain.ArbitragePath) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		f.cache = make(map[string]cachedPaths)
	}
	stored := make([]domain.ArbitragePath, len(paths))
	copy(stored, paths)
	f.cache[key] = cachedPaths{paths: stored, expires: time.Now().Add(f.cfg.CacheTTL)}
}

// InvalidateCache drops all cached enumerations.
func (f *PathFinder) InvalidateCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = nil
}

func dedupePaths(paths []domain.ArbitragePath) []domain.ArbitragePath {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// pathID derives a stable route identifier so the same route keeps the same
// id across scan cycles, which the strategy's active-path tracking relies on.
func pathID(kind domain.PathKind, tokens []domain.Token, venues []string) string {
	parts := make([]string, 0, len(tokens)+len(venues)+1)
	parts = append(parts, string(kind))
	for _, t := range tokens {
		parts = append(parts, strings.ToLower(t.Address.Hex()))
	}
	parts = append(parts, venues...)
	return strings.Join(parts, "|")
}
