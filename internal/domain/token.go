package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a tradable ERC-20 asset on the target chain.
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// VenueKind is the closed set of supported exchange mechanics. Venue-specific
// branches switch over Kind rather than matching on venue names, so adding a
// new mechanic forces every switch to be revisited.
type VenueKind int

const (
	VenueKindAMMv2 VenueKind = iota
	VenueKindStableSwap
	VenueKindConcentrated
)

// String returns the kind identifier used in config files and logs.
func (k VenueKind) String() string {
	switch k {
	case VenueKindAMMv2:
		return "amm_v2"
	case VenueKindStableSwap:
		return "stable_swap"
	case VenueKindConcentrated:
		return "concentrated"
	default:
		return "unknown"
	}
}

// ParseVenueKind maps a config string to a VenueKind.
func ParseVenueKind(s string) (VenueKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "amm_v2", "v2", "uniswap_v2":
		return VenueKindAMMv2, true
	case "stable_swap", "stable":
		return VenueKindStableSwap, true
	case "concentrated", "v3", "uniswap_v3":
		return VenueKindConcentrated, true
	default:
		return 0, false
	}
}

// TradingPair is one venue's market for two tokens. Reserves are nil when the
// venue has not reported them yet.
type TradingPair struct {
	TokenA   Token
	TokenB   Token
	Venue    string
	FeeBps   int
	ReserveA *big.Int
	ReserveB *big.Int
}

// HasReserves reports whether both reserve sides are known.
func (p TradingPair) HasReserves() bool {
	return p.ReserveA != nil && p.ReserveB != nil
}

// Liquidity returns the combined reserve depth of the pair, or zero when
// reserves are unknown.
func (p TradingPair) Liquidity() *big.Int {
	if !p.HasReserves() {
		return new(big.Int)
	}
	return new(big.Int).Add(p.ReserveA, p.ReserveB)
}

// ReserveFor returns the reserve backing the given token side, or nil when the
// token is not part of the pair.
func (p TradingPair) ReserveFor(token common.Address) *big.Int {
	switch token {
	case p.TokenA.Address:
		return p.ReserveA
	case p.TokenB.Address:
		return p.ReserveB
	default:
		return nil
	}
}

// PairKey builds the canonical unordered key for a token pair. The lower
// address sorts first so (a, b) and (b, a) collapse to the same key.
func PairKey(a, b common.Address) string {
	al, bl := strings.ToLower(a.Hex()), strings.ToLower(b.Hex())
	if al > bl {
		al, bl = bl, al
	}
	return al + ":" + bl
}
