/*

External application read interfaces. Each active application contributes
signed token deltas representing pool-owned value held outside plain wallet
balances. All readers must be side-effect-free: a failing reader degrades
the valuation, it never blocks it.

*/

package apps

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// StakingReader queries the external staking registry.
type StakingReader interface {
	// TotalStake returns the pool's delegated stake.
	TotalStake(ctx context.Context, pool common.Address) (sdkmath.Int, error)
	// DelegatorRewardBalance returns the pool's unclaimed reward.
	DelegatorRewardBalance(ctx context.Context, poolID common.Hash, pool common.Address) (sdkmath.Int, error)
}

// PoolKey identifies a concentrated-liquidity pool.
type PoolKey struct {
	Token0 common.Address
	Token1 common.Address
	Fee    uint32
}

// TickRange is a position's active price range.
type TickRange struct {
	Lower int64
	Upper int64
}

// LiquidityReader queries the external liquidity position manager.
type LiquidityReader interface {
	// PositionIDs returns the pool's stored position ids.
	PositionIDs(ctx context.Context, pool common.Address) ([]uint64, error)
	// PoolAndPositionInfo returns a position's pool key and tick range.
	PoolAndPositionInfo(ctx context.Context, id uint64) (PoolKey, TickRange, error)
	// PositionLiquidity returns a position's liquidity.
	PositionLiquidity(ctx context.Context, id uint64) (sdkmath.Int, error)
}

// DerivativePosition is one open leveraged position.
type DerivativePosition struct {
	Market          common.Address
	CollateralToken common.Address
	Collateral      sdkmath.Int // token units
	IsLong          bool
}

// DerivativePositionInfo carries the fallible price-and-PnL view of an open
// position. USD quantities are signed.
type DerivativePositionInfo struct {
	PnlUSD          sdkmath.Int
	PriceImpactUSD  sdkmath.Int
	AccruedFees     sdkmath.Int // collateral token units
	CollateralPrice sdkmath.Int // USD per collateral token unit
}

// DerivativeOrder is one pending order. Increase orders escrow collateral
// plus an execution fee denominated in the wrapped native asset.
type DerivativeOrder struct {
	IsIncrease       bool
	CollateralToken  common.Address
	CollateralAmount sdkmath.Int
	ExecutionFee     sdkmath.Int
}

// DerivativeReader queries the external derivative venue.
type DerivativeReader interface {
	// AccountPositions returns the pool's open positions.
	AccountPositions(ctx context.Context, pool common.Address) ([]DerivativePosition, error)
	// AccountPositionInfo returns price-and-PnL info parallel to
	// AccountPositions. May revert; callers fall back to raw collateral.
	AccountPositionInfo(ctx context.Context, pool common.Address) ([]DerivativePositionInfo, error)
	// AccountOrders returns the pool's pending orders. May revert.
	AccountOrders(ctx context.Context, pool common.Address) ([]DerivativeOrder, error)
}
