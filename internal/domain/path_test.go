package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tok(hexAddr, symbol string) Token {
	return Token{Address: common.HexToAddress(hexAddr), Symbol: symbol, Decimals: 18}
}

func TestTriangularPathValidate(t *testing.T) {
	a := tok("0x01", "A")
	b := tok("0x02", "B")
	c := tok("0x03", "C")

	valid := ArbitragePath{
		Kind:   PathTriangular,
		Tokens: []Token{a, b, c},
		Venues: []string{"v1", "v2", "v1"},
		Pairs:  make([]TradingPair, 3),
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, 3, valid.Hops())

	wrongCount := valid
	wrongCount.Tokens = []Token{a, b}
	err := wrongCount.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPath)

	repeated := valid
	repeated.Tokens = []Token{a, b, a}
	assert.ErrorIs(t, repeated.Validate(), ErrInvalidPath)
}

func TestCrossVenuePathValidate(t *testing.T) {
	a := tok("0x01", "A")
	b := tok("0x02", "B")

	valid := ArbitragePath{
		Kind:   PathCrossVenue,
		Tokens: []Token{a, b},
		Venues: []string{"v1", "v2"},
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, 2, valid.Hops())

	sameVenue := valid
	sameVenue.Venues = []string{"v1", "v1"}
	assert.ErrorIs(t, sameVenue.Validate(), ErrInvalidPath)

	unknown := ArbitragePath{Kind: PathKind("weird")}
	assert.ErrorIs(t, unknown.Validate(), ErrInvalidPath)
}

func TestPathDescribe(t *testing.T) {
	p := ArbitragePath{
		Kind:   PathTriangular,
		Tokens: []Token{tok("0x01", "WMATIC"), tok("0x02", "USDC"), tok("0x03", "WETH")},
		Venues: []string{"quickswap", "sushiswap", "quickswap"},
	}
	assert.Equal(t, "WMATIC->USDC->WETH->WMATIC via quickswap,sushiswap,quickswap", p.Describe())
}

func TestPairKeyCanonical(t *testing.T) {
	a := common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
	b := common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")

	assert.Equal(t, PairKey(a, b), PairKey(b, a))
	assert.NotEqual(t, PairKey(a, b), PairKey(a, common.HexToAddress("0x03")))
}
