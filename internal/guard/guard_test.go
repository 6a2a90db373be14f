package guard

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omnipool-labs/xnav/internal/oracle"
	"github.com/omnipool-labs/xnav/internal/state"
	"github.com/omnipool-labs/xnav/internal/types"
)

var (
	baseToken = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	sideToken = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func newTestGuard(t *testing.T) (*Guard, *state.Memory, *oracle.Static) {
	t.Helper()
	mem := state.NewMemory()
	require.NoError(t, mem.InitPool(types.PoolState{
		Address:      common.HexToAddress("0x01"),
		BaseToken:    baseToken,
		Decimals:     6,
		TotalSupply:  sdkmath.NewInt(1_000_000),
		UnitaryValue: sdkmath.NewIntWithDecimal(1, 6), // total assets 1_000_000
	}))
	po := oracle.NewStatic()
	po.SetRate(baseToken, sdkmath.LegacyOneDec())
	po.SetRate(sideToken, sdkmath.LegacyOneDec())
	return New(mem, po), mem, po
}

func TestValidateNavImpact(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	// 100 bps tolerance on 1_000_000 assets allows up to 10_000.
	require.NoError(t, g.ValidateNavImpact(ctx, sideToken, sdkmath.NewInt(10_000), 100))
	err := g.ValidateNavImpact(ctx, sideToken, sdkmath.NewInt(10_100), 100)
	require.ErrorIs(t, err, types.ErrNavImpactTooHigh)

	// Outbound amounts are checked by magnitude.
	err = g.ValidateNavImpact(ctx, sideToken, sdkmath.NewInt(-10_100), 100)
	require.ErrorIs(t, err, types.ErrNavImpactTooHigh)

	// Tolerances wider than 32 bits are honored, not truncated.
	require.NoError(t, g.ValidateNavImpact(ctx, sideToken, sdkmath.NewInt(900_000), uint64(1)<<40))
}

func TestValidateNavImpactMonotonic(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	// Once an amount is rejected, every larger amount is rejected too.
	rejected := false
	for _, amount := range []int64{1_000, 5_000, 10_000, 10_001, 50_000, 1_000_000} {
		err := g.ValidateNavImpact(ctx, sideToken, sdkmath.NewInt(amount), 100)
		if rejected {
			require.Error(t, err, "amount %d", amount)
			continue
		}
		if err != nil {
			require.ErrorIs(t, err, types.ErrNavImpactTooHigh)
			rejected = true
		}
	}
	require.True(t, rejected)
}

func TestValidateNavImpactUnpriceableTokenFailsClosed(t *testing.T) {
	g, _, _ := newTestGuard(t)
	unknown := common.HexToAddress("0x00000000000000000000000000000000000000ff")

	err := g.ValidateNavImpact(context.Background(), unknown, sdkmath.NewInt(1), 10_000)
	require.Error(t, err)
}

func TestValidateNavImpactEmptyPoolAllowsAll(t *testing.T) {
	g, mem, _ := newTestGuard(t)

	require.NoError(t, mem.SetVirtualSupply(sdkmath.NewInt(-1_000_000)))
	require.NoError(t, g.ValidateNavImpact(context.Background(), sideToken, sdkmath.NewInt(1_000_000_000), 1))
}

func TestValidateEffectiveSupplyFloor(t *testing.T) {
	g, _, _ := newTestGuard(t)
	total := sdkmath.NewInt(1000)

	// Floor is total/8 = 125. Effective 124 fails, 125 passes.
	err := g.ValidateEffectiveSupply(total, sdkmath.NewInt(-876))
	require.ErrorIs(t, err, types.ErrEffectiveSupplyTooLow)
	require.NoError(t, g.ValidateEffectiveSupply(total, sdkmath.NewInt(-875)))

	// Positive virtual supply never trips the floor.
	require.NoError(t, g.ValidateEffectiveSupply(total, sdkmath.NewInt(5_000_000)))
	require.NoError(t, g.ValidateEffectiveSupply(sdkmath.ZeroInt(), sdkmath.ZeroInt()))
}
