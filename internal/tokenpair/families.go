/*

Canonical bridgeable token tables. Each supported chain carries a small
hardcoded set of canonical stable/base assets; a token is bridgeable only to
the same family's canonical token on the destination chain. Cross-family
bridging (e.g. USDC -> USDT) would require a swap, not a transfer, and is
never allowed.

*/

package tokenpair

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/omnipool-labs/xnav/internal/types"
)

// Family classifies a canonical cross-chain asset.
type Family uint8

const (
	FamilyUSDC Family = iota
	FamilyUSDT
	FamilyWETH
	FamilyWBTC
)

func (f Family) String() string {
	switch f {
	case FamilyUSDC:
		return "usdc"
	case FamilyUSDT:
		return "usdt"
	case FamilyWETH:
		return "weth"
	case FamilyWBTC:
		return "wbtc"
	default:
		return "unknown"
	}
}

// Stable reports whether the family is a 6-decimal stablecoin family
// (18-decimal stand-ins on BSC).
func (f Family) Stable() bool {
	return f == FamilyUSDC || f == FamilyUSDT
}

// canonicalTokens maps each supported chain to its canonical asset per
// family. Chains missing a family (e.g. no canonical USDT or WBTC on Base)
// simply have no entry.
var canonicalTokens = map[types.ChainID]map[Family]common.Address{
	types.ChainEthereum: {
		FamilyUSDC: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		FamilyUSDT: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
		FamilyWETH: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		FamilyWBTC: common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"),
	},
	types.ChainOptimism: {
		FamilyUSDC: common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
		FamilyUSDT: common.HexToAddress("0x94b008aA00579c1307B0EF2c499aD98a8ce58e58"),
		FamilyWETH: common.HexToAddress("0x4200000000000000000000000000000000000006"),
		FamilyWBTC: common.HexToAddress("0x68f180fcCe6836688e9084f035309E29Bf0A2095"),
	},
	types.ChainBSC: {
		// 18-decimal representations of the 6-decimal stablecoin families.
		FamilyUSDC: common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"),
		FamilyUSDT: common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"),
		FamilyWETH: common.HexToAddress("0x2170Ed0880ac9A755fd29B2688956BD959F933F8"),
		FamilyWBTC: common.HexToAddress("0x7130d2A12B9BCbFAe4f2634d864A1Ee1Ce3Ead9c"),
	},
	types.ChainPolygon: {
		FamilyUSDC: common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"),
		FamilyUSDT: common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F"),
		FamilyWETH: common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"),
		FamilyWBTC: common.HexToAddress("0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6"),
	},
	types.ChainBase: {
		FamilyUSDC: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
		FamilyWETH: common.HexToAddress("0x4200000000000000000000000000000000000006"),
	},
	types.ChainArbitrum: {
		FamilyUSDC: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
		FamilyUSDT: common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"),
		FamilyWETH: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		FamilyWBTC: common.HexToAddress("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"),
	},
}

// FamilyOf classifies a token on a given chain.
func FamilyOf(chain types.ChainID, token common.Address) (Family, bool) {
	for family, canonical := range canonicalTokens[chain] {
		if canonical == token {
			return family, true
		}
	}
	return 0, false
}

// CanonicalToken returns the canonical token of a family on a chain.
func CanonicalToken(chain types.ChainID, family Family) (common.Address, bool) {
	token, ok := canonicalTokens[chain][family]
	return token, ok
}

// IsAllowedCrosschainToken reports whether the token is one of the canonical
// bridgeable assets of the given chain. Unknown chains have no canonical set.
func IsAllowedCrosschainToken(chain types.ChainID, token common.Address) bool {
	_, ok := FamilyOf(chain, token)
	return ok
}
