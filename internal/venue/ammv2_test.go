package venue

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbot/internal/domain"
)

var (
	tokenA = domain.Token{Address: common.HexToAddress("0x01"), Symbol: "AAA", Decimals: 18}
	tokenB = domain.Token{Address: common.HexToAddress("0x02"), Symbol: "BBB", Decimals: 18}
	tokenC = domain.Token{Address: common.HexToAddress("0x03"), Symbol: "CCC", Decimals: 18}
)

func TestSwapOutConstantProduct(t *testing.T) {
	// 1_000 in against 1M/1M reserves at 30 bps:
	// inWithFee = 1000*9970 = 9_970_000
	// out = 9_970_000*1_000_000 / (1_000_000*10_000 + 9_970_000) = 996
	out := swapOut(big.NewInt(1_000), big.NewInt(1_000_000), big.NewInt(1_000_000), 30)
	assert.Equal(t, big.NewInt(996), out)

	// Zero fee against balanced reserves still pays less than input.
	out = swapOut(big.NewInt(1_000), big.NewInt(1_000_000), big.NewInt(1_000_000), 0)
	assert.Equal(t, big.NewInt(999), out)

	// Empty reserves quote zero.
	out = swapOut(big.NewInt(1_000), new(big.Int), big.NewInt(1_000_000), 30)
	assert.Zero(t, out.Sign())
}

func TestAMMv2GetAmountsOut(t *testing.T) {
	ctx := context.Background()
	v := NewAMMv2("quickswap", 30)
	v.AddPool(tokenA, tokenB, big.NewInt(1_000_000), big.NewInt(1_000_000))
	v.AddPool(tokenB, tokenC, big.NewInt(1_000_000), big.NewInt(1_000_000))

	amounts, err := v.GetAmountsOut(ctx, []common.Address{tokenA.Address, tokenB.Address}, big.NewInt(1_000))
	require.NoError(t, err)
	require.Len(t, amounts, 2)
	assert.Equal(t, big.NewInt(1_000), amounts[0])
	assert.Equal(t, big.NewInt(996), amounts[1])

	// Multi-hop chains each hop's output into the next input.
	amounts, err = v.GetAmountsOut(ctx, []common.Address{tokenA.Address, tokenB.Address, tokenC.Address}, big.NewInt(1_000))
	require.NoError(t, err)
	require.Len(t, amounts, 3)
	assert.Equal(t, big.NewInt(992), amounts[2])

	_, err = v.GetAmountsOut(ctx, []common.Address{tokenA.Address}, big.NewInt(1_000))
	assert.ErrorIs(t, err, domain.ErrInvalidPath)

	_, err = v.GetAmountsOut(ctx, []common.Address{tokenA.Address, tokenB.Address}, new(big.Int))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = v.GetAmountsOut(ctx, []common.Address{tokenA.Address, tokenC.Address}, big.NewInt(1_000))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAMMv2ReserveOrdering(t *testing.T) {
	ctx := context.Background()
	v := NewAMMv2("quickswap", 30)
	v.AddPool(tokenA, tokenB, big.NewInt(100), big.NewInt(900))

	ra, rb, err := v.GetReserves(ctx, tokenA.Address, tokenB.Address)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), ra)
	assert.Equal(t, big.NewInt(900), rb)

	// Asking in the reverse order flips the reserves.
	rb, ra, err = v.GetReserves(ctx, tokenB.Address, tokenA.Address)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), ra)
	assert.Equal(t, big.NewInt(900), rb)
}

func TestAMMv2SetReserves(t *testing.T) {
	ctx := context.Background()
	v := NewAMMv2("quickswap", 30)
	v.AddPool(tokenA, tokenB, big.NewInt(100), big.NewInt(100))

	// Update given in reverse token order still lands on the right sides.
	v.SetReserves(tokenB.Address, tokenA.Address, big.NewInt(500), big.NewInt(200))
	ra, rb, err := v.GetReserves(ctx, tokenA.Address, tokenB.Address)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(200), ra)
	assert.Equal(t, big.NewInt(500), rb)

	// Unknown pairs are ignored.
	v.SetReserves(tokenA.Address, tokenC.Address, big.NewInt(1), big.NewInt(1))
	exists, err := v.PairExists(ctx, tokenA.Address, tokenC.Address)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStableSwapFlatterThanV2(t *testing.T) {
	ctx := context.Background()
	reserveA, reserveB := big.NewInt(1_000_000), big.NewInt(1_000_000)

	v2 := NewAMMv2("v2", 4)
	v2.AddPool(tokenA, tokenB, reserveA, reserveB)
	stable := NewStableSwap("stable", 4, 100)
	stable.AddPool(tokenA, tokenB, reserveA, reserveB)

	in := big.NewInt(100_000)
	route := []common.Address{tokenA.Address, tokenB.Address}

	v2Out, err := v2.GetAmountsOut(ctx, route, in)
	require.NoError(t, err)
	stableOut, err := stable.GetAmountsOut(ctx, route, in)
	require.NoError(t, err)

	// Amplification keeps the stable quote closer to 1:1.
	assert.Equal(t, 1, stableOut[1].Cmp(v2Out[1]))
	// But never more than the pool holds.
	assert.LessOrEqual(t, stableOut[1].Cmp(reserveB), 0)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewAMMv2("quickswap", 30))
	r.Register(NewAMMv2("sushiswap", 30))

	assert.Equal(t, []string{"quickswap", "sushiswap"}, r.List())

	adapter, err := r.Get("quickswap")
	require.NoError(t, err)
	assert.Equal(t, "quickswap", adapter.Name())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNoAdapter)
}
