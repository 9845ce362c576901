package venue

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// ContractCaller is the slice of the Ethereum client the on-chain adapter
// needs. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

const (
	routerABIJSON = `[{"name":"getAmountsOut","type":"function","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}]`

	factoryABIJSON = `[{"name":"getPair","type":"function","stateMutability":"view","inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"outputs":[{"name":"pair","type":"address"}]}]`

	pairABIJSON = `[{"name":"getReserves","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]}]`
)

var (
	routerABI  = mustABI(routerABIJSON)
	factoryABI = mustABI(factoryABIJSON)
	pairABI    = mustABI(pairABIJSON)
)

func mustABI(j string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(j))
	if err != nil {
		panic(err)
	}
	return parsed
}

// OnChain quotes a v2-style venue directly from chain through eth_call
// against its router, factory and pair contracts.
type OnChain struct {
	name    string
	kind    domain.VenueKind
	feeBps  int
	router  common.Address
	factory common.Address
	client  ContractCaller
}

// NewOnChain creates an on-chain venue adapter.
func NewOnChain(name string, kind domain.VenueKind, feeBps int, router, factory common.Address, client ContractCaller) *OnChain {
	return &OnChain{
		name:    name,
		kind:    kind,
		feeBps:  feeBps,
		router:  router,
		factory: factory,
		client:  client,
	}
}

// Name returns the venue identifier.
func (v *OnChain) Name() string { return v.name }

// Kind returns the venue mechanic.
func (v *OnChain) Kind() domain.VenueKind { return v.kind }

// FeeBps returns the swap fee in basis points.
func (v *OnChain) FeeBps() int { return v.feeBps }

func (v *OnChain) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return v.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// pairAddress resolves the pool address from the factory. The zero address
// means the pair does not exist on this venue.
func (v *OnChain) pairAddress(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	data, err := factoryABI.Pack("getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("venue %s: pack getPair: %w", v.name, err)
	}
	out, err := v.call(ctx, v.factory, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("venue %s: getPair call: %w", v.name, err)
	}
	vals, err := factoryABI.Unpack("getPair", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("venue %s: unpack getPair: %w", v.name, err)
	}
	return vals[0].(common.Address), nil
}

// PairExists reports whether the factory knows a pool for the pair.
func (v *OnChain) PairExists(ctx context.Context, tokenA, tokenB common.Address) (bool, error) {
	addr, err := v.pairAddress(ctx, tokenA, tokenB)
	if err != nil {
		return false, err
	}
	return addr != (common.Address{}), nil
}

// GetReserves fetches the pool reserves and reorders them for the requested
// token ordering (on chain reserve0 always belongs to the lower address).
func (v *OnChain) GetReserves(ctx context.Context, tokenA, tokenB common.Address) (*big.Int, *big.Int, error) {
	pairAddr, err := v.pairAddress(ctx, tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	if pairAddr == (common.Address{}) {
		return nil, nil, domain.ErrNotFound
	}
	data, err := pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("venue %s: pack getReserves: %w", v.name, err)
	}
	out, err := v.call(ctx, pairAddr, data)
	if err != nil {
		return nil, nil, fmt.Errorf("venue %s: getReserves call: %w", v.name, err)
	}
	vals, err := pairABI.Unpack("getReserves", out)
	if err != nil {
		return nil, nil, fmt.Errorf("venue %s: unpack getReserves: %w", v.name, err)
	}
	reserve0, reserve1 := vals[0].(*big.Int), vals[1].(*big.Int)
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) > 0 {
		reserve0, reserve1 = reserve1, reserve0
	}
	return reserve0, reserve1, nil
}

// GetAmountsOut quotes the route through the venue router.
func (v *OnChain) GetAmountsOut(ctx context.Context, route []common.Address, amountIn *big.Int) ([]*big.Int, error) {
	if len(route) < 2 {
		return nil, domain.ErrInvalidPath
	}
	data, err := routerABI.Pack("getAmountsOut", amountIn, route)
	if err != nil {
		return nil, fmt.Errorf("venue %s: pack getAmountsOut: %w", v.name, err)
	}
	out, err := v.call(ctx, v.router, data)
	if err != nil {
		return nil, fmt.Errorf("venue %s: getAmountsOut call: %w", v.name, err)
	}
	vals, err := routerABI.Unpack("getAmountsOut", out)
	if err != nil {
		return nil, fmt.Errorf("venue %s: unpack getAmountsOut: %w", v.name, err)
	}
	amounts, ok := vals[0].([]*big.Int)
	if !ok || len(amounts) != len(route) {
		return nil, fmt.Errorf("venue %s: unexpected getAmountsOut shape", v.name)
	}
	return amounts, nil
}

// EstimateSwapGas returns a per-kind gas figure. Concentrated-liquidity swaps
// cost more than v2 pool swaps.
func (v *OnChain) EstimateSwapGas(context.Context, common.Address, common.Address) (uint64, error) {
	switch v.kind {
	case domain.VenueKindConcentrated:
		return defaultSwapGas + 60_000, nil
	case domain.VenueKindStableSwap:
		return defaultSwapGas + 40_000, nil
	default:
		return defaultSwapGas, nil
	}
}
