/*

Token and chain identity types. Tokens are EVM addresses; the pool's base
token may be the chain's native asset, represented by the conventional
0xEeee... sentinel so it can flow through the same code paths as ERC-20s.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// ChainID identifies an EVM network by its numeric chain id.
type ChainID uint64

const (
	ChainEthereum ChainID = 1
	ChainOptimism ChainID = 10
	ChainBSC      ChainID = 56
	ChainPolygon  ChainID = 137
	ChainBase     ChainID = 8453
	ChainArbitrum ChainID = 42161
)

// NativeToken is the sentinel address used when the pool's base token is the
// chain's native asset rather than an ERC-20.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// AppBalance is one signed token amount contributed by an external
// application position. Amounts are ephemeral: computed per valuation pass,
// never stored.
type AppBalance struct {
	Token  common.Address `json:"token"`
	Amount sdkmath.Int    `json:"amount"`
}

// MergeAppBalances flattens per-position balances into one entry per token,
// summing amounts for duplicate tokens. Order follows first appearance.
func MergeAppBalances(balances []AppBalance) []AppBalance {
	index := make(map[common.Address]int, len(balances))
	merged := make([]AppBalance, 0, len(balances))
	for _, b := range balances {
		if i, ok := index[b.Token]; ok {
			merged[i].Amount = merged[i].Amount.Add(b.Amount)
			continue
		}
		index[b.Token] = len(merged)
		merged = append(merged, AppBalance{Token: b.Token, Amount: b.Amount})
	}
	return merged
}
