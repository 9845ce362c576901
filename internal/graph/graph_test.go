package graph

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbot/internal/domain"
)

var (
	wmatic = domain.Token{Address: common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"), Symbol: "WMATIC", Decimals: 18}
	usdc   = domain.Token{Address: common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"), Symbol: "USDC", Decimals: 6}
	weth   = domain.Token{Address: common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"), Symbol: "WETH", Decimals: 18}
)

func pairOn(venue string, a, b domain.Token, reserveA, reserveB int64) domain.TradingPair {
	return domain.TradingPair{
		TokenA:   a,
		TokenB:   b,
		Venue:    venue,
		FeeBps:   30,
		ReserveA: big.NewInt(reserveA),
		ReserveB: big.NewInt(reserveB),
	}
}

func TestAddEdgeRefreshesSameVenue(t *testing.T) {
	g := NewTokenGraph()
	g.AddEdge(wmatic, usdc, pairOn("quickswap", wmatic, usdc, 100, 100))
	g.AddEdge(wmatic, usdc, pairOn("quickswap", wmatic, usdc, 500, 500))
	g.AddEdge(wmatic, usdc, pairOn("sushiswap", wmatic, usdc, 200, 200))

	pairs := g.PairsBetween(wmatic.Address, usdc.Address)
	require.Len(t, pairs, 2)
	assert.Equal(t, big.NewInt(500), pairs[0].ReserveA)

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 2, g.TokenCount())
}

func TestNeighborsDeterministic(t *testing.T) {
	g := NewTokenGraph()
	g.AddEdge(wmatic, usdc, pairOn("quickswap", wmatic, usdc, 1, 1))
	g.AddEdge(wmatic, weth, pairOn("quickswap", wmatic, weth, 1, 1))

	first := g.Neighbors(wmatic.Address)
	require.Len(t, first, 2)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, g.Neighbors(wmatic.Address))
	}

	assert.True(t, g.HasEdge(usdc.Address, wmatic.Address))
	assert.False(t, g.HasEdge(usdc.Address, weth.Address))
}

func TestBestPairPicksDeepestLiquidity(t *testing.T) {
	g := NewTokenGraph()
	g.AddEdge(wmatic, usdc, pairOn("quickswap", wmatic, usdc, 100, 100))
	g.AddEdge(wmatic, usdc, pairOn("sushiswap", wmatic, usdc, 400, 400))

	best, ok := g.BestPair(wmatic.Address, usdc.Address)
	require.True(t, ok)
	assert.Equal(t, "sushiswap", best.Venue)

	// Strict comparison keeps the first-inserted pair on ties.
	g2 := NewTokenGraph()
	g2.AddEdge(wmatic, usdc, pairOn("quickswap", wmatic, usdc, 100, 100))
	g2.AddEdge(wmatic, usdc, pairOn("sushiswap", wmatic, usdc, 100, 100))
	best, ok = g2.BestPair(wmatic.Address, usdc.Address)
	require.True(t, ok)
	assert.Equal(t, "quickswap", best.Venue)

	_, ok = g.BestPair(wmatic.Address, weth.Address)
	assert.False(t, ok)
}
