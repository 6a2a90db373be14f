/*

Versioned pool state store. Storage is addressed by logical field name
rather than raw slot arithmetic so the layout stays stable across upgrades;
every scalar write bumps a per-field version for off-chain reconciliation.
Components receive a Store handle explicitly instead of sharing globals.

*/

package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omnipool-labs/xnav/internal/types"
)

// Logical field names for the scalar pool fields.
const (
	FieldTotalSupply   = "total_supply"
	FieldUnitaryValue  = "unitary_value"
	FieldVirtualSupply = "virtual_supply"
)

// VirtualBalanceField is the logical field name of a per-token virtual
// balance.
func VirtualBalanceField(token common.Address) string {
	return "virtual_balance/" + token.Hex()
}

// ChainNavSpreadField is the logical field name of a per-remote-chain nav
// spread.
func ChainNavSpreadField(chain types.ChainID) string {
	return fmt.Sprintf("chain_nav_spread/%d", chain)
}

// Store is the persistence boundary for one pool instance. Implementations
// must keep TotalSupply non-negative; virtual balances, virtual supply and
// nav spreads are signed. Missing entries read as zero.
type Store interface {
	Pool() (types.PoolState, error)
	InitPool(p types.PoolState) error
	SetUnitaryValue(v sdkmath.Int) error
	SetTotalSupply(v sdkmath.Int) error

	VirtualBalance(token common.Address) (sdkmath.Int, error)
	SetVirtualBalance(token common.Address, v sdkmath.Int) error
	VirtualSupply() (sdkmath.Int, error)
	SetVirtualSupply(v sdkmath.Int) error

	ChainNavSpread(chain types.ChainID) (sdkmath.Int, error)
	SetChainNavSpread(chain types.ChainID, v sdkmath.Int) error
	ClearChainNavSpread(chain types.ChainID) error

	ActiveTokens() ([]common.Address, error)
	AddActiveToken(token common.Address) error
	RemoveActiveToken(token common.Address) error

	FieldVersion(field string) (uint64, error)

	AppendAuditEvent(ev types.AuditEvent) error
	IsMessageProcessed(id string) (bool, error)
	MarkMessageProcessed(id string) error

	// WithTransaction runs fn against a transactional view of the store.
	// All mutations made by fn become visible atomically on success and are
	// discarded if fn returns an error.
	WithTransaction(fn func(Store) error) error
}
