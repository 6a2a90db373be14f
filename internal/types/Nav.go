package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// AppType identifies an external application slot in the pool's packed
// application bitmap.
type AppType uint8

const (
	AppStaking    AppType = 0
	AppLiquidity  AppType = 1
	AppDerivative AppType = 2
)

func (a AppType) String() string {
	switch a {
	case AppStaking:
		return "staking"
	case AppLiquidity:
		return "liquidity"
	case AppDerivative:
		return "derivative"
	default:
		return "unknown"
	}
}

// AppBitmap packs the active external applications, indices 0..30.
type AppBitmap uint32

// Active reports whether the application at the given index is enabled.
func (b AppBitmap) Active(app AppType) bool {
	return app < 31 && b&(1<<uint(app)) != 0
}

// AppBalances groups the signed balances produced by one application during
// a valuation pass.
type AppBalances struct {
	App      AppType      `json:"app_type"`
	Balances []AppBalance `json:"balances"`
}

// NavData is the ephemeral result of one NAV computation. Only the unitary
// value is ever written back to pool state.
type NavData struct {
	TotalValue   sdkmath.Int `json:"total_value"`
	UnitaryValue sdkmath.Int `json:"unitary_value"`
	Timestamp    time.Time   `json:"timestamp"`
}
