package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVenueKind(t *testing.T) {
	cases := []struct {
		in   string
		want VenueKind
		ok   bool
	}{
		{"amm_v2", VenueKindAMMv2, true},
		{"uniswap_v2", VenueKindAMMv2, true},
		{"stable_swap", VenueKindStableSwap, true},
		{" concentrated ", VenueKindConcentrated, true},
		{"V3", VenueKindConcentrated, true},
		{"orderbook", 0, false},
	}
	for _, tc := range cases {
		kind, ok := ParseVenueKind(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, kind, tc.in)
		}
	}
}

func TestVenueKindRoundTrip(t *testing.T) {
	for _, kind := range []VenueKind{VenueKindAMMv2, VenueKindStableSwap, VenueKindConcentrated} {
		parsed, ok := ParseVenueKind(kind.String())
		require.True(t, ok)
		assert.Equal(t, kind, parsed)
	}
}

func TestTradingPairReserves(t *testing.T) {
	a := tok("0x01", "A")
	b := tok("0x02", "B")

	pair := TradingPair{TokenA: a, TokenB: b}
	assert.False(t, pair.HasReserves())
	assert.Zero(t, pair.Liquidity().Sign())

	pair.ReserveA = big.NewInt(300)
	pair.ReserveB = big.NewInt(700)
	require.True(t, pair.HasReserves())
	assert.Equal(t, big.NewInt(1000), pair.Liquidity())
	assert.Equal(t, big.NewInt(300), pair.ReserveFor(a.Address))
	assert.Equal(t, big.NewInt(700), pair.ReserveFor(b.Address))
	assert.Nil(t, pair.ReserveFor(common.HexToAddress("0x03")))
}
