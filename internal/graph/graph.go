// Package graph holds the in-memory token graph and the arbitrage path
// finder built on top of it.
package graph

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// TokenGraph is an undirected multigraph of tradable tokens. Each edge bucket
// is keyed by the unordered token pair and may hold one pair record per venue
// quoting that pair. The graph is append-only: refreshes add missing edges,
// nothing is ever removed.
type TokenGraph struct {
	mu        sync.RWMutex
	tokens    map[common.Address]domain.Token
	adjacency map[common.Address]map[common.Address]struct{}
	edges     map[string][]domain.TradingPair
}

// NewTokenGraph returns an empty graph.
func NewTokenGraph() *TokenGraph {
	return &TokenGraph{
		tokens:    make(map[common.Address]domain.Token),
		adjacency: make(map[common.Address]map[common.Address]struct{}),
		edges:     make(map[string][]domain.TradingPair),
	}
}

// AddEdge inserts both tokens into the adjacency sets and appends pair to the
// multi-edge bucket for the unordered token pair. Adding the same venue's
// pair again refreshes its stored record instead of duplicating it.
func (g *TokenGraph) AddEdge(tokenA, tokenB domain.Token, pair domain.TradingPair) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tokens[tokenA.Address] = tokenA
	g.tokens[tokenB.Address] = tokenB

	if g.adjacency[tokenA.Address] == nil {
		g.adjacency[tokenA.Address] = make(map[common.Address]struct{})
	}
	if g.adjacency[tokenB.Address] == nil {
		g.adjacency[tokenB.Address] = make(map[common.Address]struct{})
	}
	g.adjacency[tokenA.Address][tokenB.Address] = struct{}{}
	g.adjacency[tokenB.Address][tokenA.Address] = struct{}{}

	key := domain.PairKey(tokenA.Address, tokenB.Address)
	bucket := g.edges[key]
	for i := range bucket {
		if bucket[i].Venue == pair.Venue {
			bucket[i] = pair
			return
		}
	}
	g.edges[key] = append(bucket, pair)
}

// Token returns the token record stored for the address.
func (g *TokenGraph) Token(addr common.Address) (domain.Token, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tokens[addr]
	return t, ok
}

// Neighbors returns the addresses adjacent to token in deterministic order.
func (g *TokenGraph) Neighbors(token common.Address) []common.Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.adjacency[token]
	out := make([]common.Address, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Hex() < out[j].Hex()
	})
	return out
}

// HasEdge reports whether any venue quotes the token pair.
func (g *TokenGraph) HasEdge(a, b common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.edges[domain.PairKey(a, b)]
	return ok
}

// PairsBetween returns a copy of the multi-edge bucket for the token pair.
func (g *TokenGraph) PairsBetween(a, b common.Address) []domain.TradingPair {
	g.mu.RLock()
	defer g.mu.RUnlock()
	bucket := g.edges[domain.PairKey(a, b)]
	out := make([]domain.TradingPair, len(bucket))
	copy(out, bucket)
	return out
}

// BestPair returns the venue pair with the greatest combined reserve
// liquidity for the token pair, ties broken by insertion order.
func (g *TokenGraph) BestPair(a, b common.Address) (domain.TradingPair, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	bucket := g.edges[domain.PairKey(a, b)]
	if len(bucket) == 0 {
		return domain.TradingPair{}, false
	}
	best := bucket[0]
	for _, p := range bucket[1:] {
		if p.Liquidity().Cmp(best.Liquidity()) > 0 {
			best = p
		}
	}
	return best, true
}

// EdgeCount returns the number of distinct token pairs with at least one
// venue quoting them.
func (g *TokenGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// TokenCount returns the number of tokens seen so far.
func (g *TokenGraph) TokenCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tokens)
}
