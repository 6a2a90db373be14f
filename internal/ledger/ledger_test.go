package ledger

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
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func newTestLedger(t *testing.T) (*Ledger, *state.Memory, *oracle.Static) {
	t.Helper()
	mem := state.NewMemory()
	require.NoError(t, mem.InitPool(types.PoolState{
		Address:      common.HexToAddress("0x01"),
		BaseToken:    tokenA,
		Decimals:     18,
		TotalSupply:  sdkmath.NewInt(1000),
		UnitaryValue: sdkmath.NewIntWithDecimal(1, 18),
	}))
	po := oracle.NewStatic()
	po.SetRate(tokenA, sdkmath.LegacyOneDec())
	return New(mem, po), mem, po
}

func TestAdjustBalance(t *testing.T) {
	led, mem, _ := newTestLedger(t)

	got, err := led.AdjustBalance(tokenA, sdkmath.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, "100", got.String())

	got, err = led.AdjustBalance(tokenA, sdkmath.NewInt(-250))
	require.NoError(t, err)
	require.Equal(t, "-150", got.String())

	events := mem.AuditEvents()
	require.Len(t, events, 2)
	require.Equal(t, types.EventVirtualBalanceAdjust, events[1].Kind)
	require.Equal(t, "-250", events[1].Delta.String())
	require.Equal(t, "-150", events[1].Resulting.String())
	require.NotNil(t, events[1].Token)
	require.Equal(t, tokenA, *events[1].Token)
}

func TestAdjustBalanceZeroDeltaIsNoOp(t *testing.T) {
	led, mem, _ := newTestLedger(t)

	_, err := led.AdjustBalance(tokenA, sdkmath.NewInt(5))
	require.NoError(t, err)
	got, err := led.AdjustBalance(tokenA, sdkmath.ZeroInt())
	require.NoError(t, err)
	require.Equal(t, "5", got.String())
	require.Len(t, mem.AuditEvents(), 1)
}

func TestAdjustSupply(t *testing.T) {
	led, mem, _ := newTestLedger(t)

	got, err := led.AdjustSupply(sdkmath.NewInt(-40))
	require.NoError(t, err)
	require.Equal(t, "-40", got.String())

	events := mem.AuditEvents()
	require.Len(t, events, 1)
	require.Equal(t, types.EventVirtualSupplyAdjust, events[0].Kind)
	require.Nil(t, events[0].Token)

	supply, err := led.Supply()
	require.NoError(t, err)
	require.Equal(t, "-40", supply.String())
}

func TestSpreadLifecycle(t *testing.T) {
	led, _, _ := newTestLedger(t)
	chain := types.ChainArbitrum

	has, err := led.HasSpread(chain)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, led.SetSpread(chain, sdkmath.NewInt(-7)))
	has, err = led.HasSpread(chain)
	require.NoError(t, err)
	require.True(t, has)

	// Sync always overwrites.
	require.NoError(t, led.SetSpread(chain, sdkmath.NewInt(12)))
	spread, err := led.Spread(chain)
	require.NoError(t, err)
	require.Equal(t, "12", spread.String())

	require.NoError(t, led.ClearSpread(chain))
	has, err = led.HasSpread(chain)
	require.NoError(t, err)
	require.False(t, has)
}

func TestTrackTokenRequiresPriceFeed(t *testing.T) {
	led, _, po := newTestLedger(t)
	ctx := context.Background()

	require.ErrorIs(t, led.TrackToken(ctx, tokenB), types.ErrNoPriceFeed)

	po.SetRate(tokenB, sdkmath.LegacyNewDec(2))
	require.NoError(t, led.TrackToken(ctx, tokenB))

	tokens, err := led.ActiveTokens()
	require.NoError(t, err)
	require.Equal(t, []common.Address{tokenB}, tokens)

	require.NoError(t, led.UntrackToken(tokenB))
	tokens, err = led.ActiveTokens()
	require.NoError(t, err)
	require.Empty(t, tokens)
}
