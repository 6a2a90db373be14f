/*

Pool state. One process manages a single pool instance; the pool's real
supply is non-negative by construction, while the virtual supply held in the
ledger is a signed adjustment combined with it only at read time.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// PoolState is the persisted singleton pool record.
type PoolState struct {
	Address      common.Address `json:"address"`
	BaseToken    common.Address `json:"base_token"`
	Decimals     uint8          `json:"decimals"`      // precision of the share unit, typically 18
	TotalSupply  sdkmath.Int    `json:"total_supply"`  // real supply, never negative
	UnitaryValue sdkmath.Int    `json:"unitary_value"` // last persisted per-share value in base token terms
}

// UnitScale returns 10^decimals, the scaling factor between share units and
// the per-share value.
func (p PoolState) UnitScale() sdkmath.Int {
	return sdkmath.NewIntWithDecimal(1, int(p.Decimals))
}

// ParValue returns one whole unit in the pool's precision, used as the
// bootstrap per-share value when no value has ever been recorded.
func (p PoolState) ParValue() sdkmath.Int {
	return p.UnitScale()
}

// EffectiveSupply combines the real supply with the signed virtual supply.
// The result may be negative in degenerate cases; NAV computation treats a
// non-positive effective supply as zero.
func (p PoolState) EffectiveSupply(virtualSupply sdkmath.Int) sdkmath.Int {
	return p.TotalSupply.Add(virtualSupply)
}
