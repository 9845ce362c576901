package domain

import (
	"fmt"
	"strings"
)

// PathKind distinguishes the two supported route shapes.
type PathKind string

const (
	// PathTriangular is a 3-hop cycle through three tokens returning to the
	// start token, each hop potentially on a different venue.
	PathTriangular PathKind = "triangular"
	// PathCrossVenue buys a pair on one venue and sells it on another.
	PathCrossVenue PathKind = "cross_venue"
)

// ArbitragePath is a candidate trade route produced by the path finder.
// Triangular paths carry 3 tokens, 3 venues and 3 pairs forming a cycle;
// cross-venue paths carry exactly 2 tokens and 2 venues (buy then sell).
type ArbitragePath struct {
	ID     string
	Kind   PathKind
	Tokens []Token
	Venues []string
	Pairs  []TradingPair
}

// Hops returns the number of swaps the path performs.
func (p ArbitragePath) Hops() int {
	switch p.Kind {
	case PathTriangular:
		return 3
	case PathCrossVenue:
		return 2
	default:
		return 0
	}
}

// Validate checks the structural invariants of the path.
func (p ArbitragePath) Validate() error {
	switch p.Kind {
	case PathTriangular:
		if len(p.Tokens) != 3 || len(p.Venues) != 3 || len(p.Pairs) != 3 {
			return fmt.Errorf("%w: triangular path needs 3 tokens/venues/pairs, got %d/%d/%d",
				ErrInvalidPath, len(p.Tokens), len(p.Venues), len(p.Pairs))
		}
		for i := range p.Tokens {
			if p.Tokens[i].Address == p.Tokens[(i+1)%3].Address {
				return fmt.Errorf("%w: triangular path tokens must be pairwise distinct", ErrInvalidPath)
			}
		}
	case PathCrossVenue:
		if len(p.Tokens) != 2 || len(p.Venues) != 2 {
			return fmt.Errorf("%w: cross-venue path needs 2 tokens and 2 venues, got %d/%d",
				ErrInvalidPath, len(p.Tokens), len(p.Venues))
		}
		if p.Venues[0] == p.Venues[1] {
			return fmt.Errorf("%w: cross-venue path needs two distinct venues", ErrInvalidPath)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPath, p.Kind)
	}
	return nil
}

// Describe renders a short human-readable route, e.g.
// "WMATIC->USDC->WETH->WMATIC via quickswap,sushiswap,quickswap".
func (p ArbitragePath) Describe() string {
	symbols := make([]string, 0, len(p.Tokens)+1)
	for _, t := range p.Tokens {
		symbols = append(symbols, t.Symbol)
	}
	if p.Kind == PathTriangular && len(p.Tokens) == 3 {
		symbols = append(symbols, p.Tokens[0].Symbol)
	}
	if p.Kind == PathCrossVenue && len(p.Tokens) == 2 {
		symbols = append(symbols, p.Tokens[0].Symbol)
	}
	return strings.Join(symbols, "->") + " via " + strings.Join(p.Venues, ",")
}
