package bridge

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omnipool-labs/xnav/internal/oracle"
	"github.com/omnipool-labs/xnav/internal/state"
	"github.com/omnipool-labs/xnav/internal/tokenpair"
	"github.com/omnipool-labs/xnav/internal/types"
)

var (
	relayAddr = common.HexToAddress("0x0000000000000000000000000000000000001eaf")
	recipient = common.HexToAddress("0x00000000000000000000000000000000000000d1")

	usdcEthereum, _ = tokenpair.CanonicalToken(types.ChainEthereum, tokenpair.FamilyUSDC)
	usdcArbitrum, _ = tokenpair.CanonicalToken(types.ChainArbitrum, tokenpair.FamilyUSDC)
	usdcBSC, _      = tokenpair.CanonicalToken(types.ChainBSC, tokenpair.FamilyUSDC)
	usdtEthereum, _ = tokenpair.CanonicalToken(types.ChainEthereum, tokenpair.FamilyUSDT)
	wethArbitrum, _ = tokenpair.CanonicalToken(types.ChainArbitrum, tokenpair.FamilyWETH)
)

// loopbackRelay delivers sends synchronously to the registered destination
// handler, impersonating the recognized relay endpoint.
type loopbackRelay struct {
	handlers map[types.ChainID]*Handler
	fail     bool
}

func (r *loopbackRelay) Send(ctx context.Context, destination types.ChainID, _, token common.Address, amount sdkmath.Int, message []byte) error {
	if r.fail {
		return context.DeadlineExceeded
	}
	dst, ok := r.handlers[destination]
	if !ok {
		return nil
	}
	return dst.ReceiveMessage(ctx, relayAddr, token, amount, message)
}

type chainFixture struct {
	handler *Handler
	store   *state.Memory
}

func newChainPair(t *testing.T) (src, dst chainFixture, relay *loopbackRelay) {
	t.Helper()
	relay = &loopbackRelay{handlers: make(map[types.ChainID]*Handler)}

	build := func(chain types.ChainID, base common.Address, supply int64) chainFixture {
		mem := state.NewMemory()
		require.NoError(t, mem.InitPool(types.PoolState{
			Address:      common.HexToAddress("0x01"),
			BaseToken:    base,
			Decimals:     6,
			TotalSupply:  sdkmath.NewInt(supply),
			UnitaryValue: sdkmath.NewIntWithDecimal(1, 6),
		}))
		po := oracle.NewStatic()
		po.SetRate(base, sdkmath.LegacyOneDec())
		po.SetRate(usdcEthereum, sdkmath.LegacyOneDec())
		po.SetRate(usdcArbitrum, sdkmath.LegacyOneDec())
		h := NewHandler(Config{
			ChainID:         chain,
			RelayEndpoint:   relayAddr,
			NavToleranceBps: 500,
		}, mem, po, relay)
		relay.handlers[chain] = h
		return chainFixture{handler: h, store: mem}
	}

	src = build(types.ChainEthereum, usdcEthereum, 100_000_000)
	dst = build(types.ChainArbitrum, usdcArbitrum, 100_000_000)
	return src, dst, relay
}

func transferParams(amount int64) TransferParams {
	return TransferParams{
		Recipient:          recipient,
		InputToken:         usdcEthereum,
		OutputToken:        usdcArbitrum,
		InputAmount:        sdkmath.NewInt(amount),
		DestinationChainID: types.ChainArbitrum,
	}
}

func TestTransferConservation(t *testing.T) {
	src, dst, _ := newChainPair(t)
	ctx := context.Background()

	_, err := src.handler.InitiateTransfer(ctx, transferParams(250_000), false)
	require.NoError(t, err)

	srcBalance, err := src.store.VirtualBalance(usdcEthereum)
	require.NoError(t, err)
	require.Equal(t, "-250000", srcBalance.String())

	dstBalance, err := dst.store.VirtualBalance(usdcArbitrum)
	require.NoError(t, err)
	require.Equal(t, "250000", dstBalance.String())

	// Both legs priced at the same source NAV: supply deltas cancel exactly.
	srcSupply, err := src.store.VirtualSupply()
	require.NoError(t, err)
	dstSupply, err := dst.store.VirtualSupply()
	require.NoError(t, err)
	require.True(t, srcSupply.IsNegative())
	require.True(t, srcSupply.Add(dstSupply).IsZero(), "supply deltas %s + %s should cancel", srcSupply, dstSupply)
}

func TestTransferConservationAcrossDecimalGap(t *testing.T) {
	relay := &loopbackRelay{handlers: make(map[types.ChainID]*Handler)}

	srcMem := state.NewMemory()
	require.NoError(t, srcMem.InitPool(types.PoolState{
		BaseToken:    usdcBSC,
		Decimals:     18,
		TotalSupply:  sdkmath.NewIntWithDecimal(100, 18),
		UnitaryValue: sdkmath.NewIntWithDecimal(1, 18),
	}))
	srcOracle := oracle.NewStatic()
	srcOracle.SetRate(usdcBSC, sdkmath.LegacyOneDec())
	srcHandler := NewHandler(Config{ChainID: types.ChainBSC, RelayEndpoint: relayAddr, NavToleranceBps: 500}, srcMem, srcOracle, relay)
	relay.handlers[types.ChainBSC] = srcHandler

	dstMem := state.NewMemory()
	require.NoError(t, dstMem.InitPool(types.PoolState{
		BaseToken:    usdcEthereum,
		Decimals:     6,
		TotalSupply:  sdkmath.NewIntWithDecimal(100, 6),
		UnitaryValue: sdkmath.NewIntWithDecimal(1, 6),
	}))
	dstOracle := oracle.NewStatic()
	dstOracle.SetRate(usdcEthereum, sdkmath.LegacyOneDec())
	dstHandler := NewHandler(Config{ChainID: types.ChainEthereum, RelayEndpoint: relayAddr, NavToleranceBps: 500}, dstMem, dstOracle, relay)
	relay.handlers[types.ChainEthereum] = dstHandler

	// 1.5 18-decimal units, with dirt in the truncated digits.
	amount := sdkmath.NewIntWithDecimal(15, 17).AddRaw(999_999_999_999)
	_, err := srcHandler.InitiateTransfer(context.Background(), TransferParams{
		Recipient:          recipient,
		InputToken:         usdcBSC,
		OutputToken:        usdcEthereum,
		InputAmount:        amount,
		DestinationChainID: types.ChainEthereum,
	}, false)
	require.NoError(t, err)

	dstBalance, err := dstMem.VirtualBalance(usdcEthereum)
	require.NoError(t, err)
	require.Equal(t, "1500000", dstBalance.String())

	// Source burns 1.5e18 shares of an 18-decimal pool, destination mints
	// 1.5e6 shares of a 6-decimal pool: equal value, different precision.
	srcSupply, err := srcMem.VirtualSupply()
	require.NoError(t, err)
	dstSupply, err := dstMem.VirtualSupply()
	require.NoError(t, err)
	require.Equal(t, "1500000", dstSupply.String())
	require.True(t, srcSupply.Neg().Sub(amount).Abs().LT(sdkmath.NewIntWithDecimal(1, 12)),
		"source burn %s should match input within rounding", srcSupply)
}

func TestTransferRejectsCrossFamilyPair(t *testing.T) {
	src, _, _ := newChainPair(t)

	params := transferParams(1000)
	params.InputToken = usdtEthereum
	params.OutputToken = wethArbitrum
	_, err := src.handler.InitiateTransfer(context.Background(), params, false)
	require.ErrorIs(t, err, types.ErrWrongDestinationToken)
}

func TestTransferRejectsZeroAmount(t *testing.T) {
	src, _, _ := newChainPair(t)

	_, err := src.handler.InitiateTransfer(context.Background(), transferParams(0), false)
	require.ErrorIs(t, err, types.ErrZeroAmount)
}

func TestTransferImpactTooHighLeavesNoState(t *testing.T) {
	src, _, _ := newChainPair(t)

	// 500 bps of 100_000_000 total assets allows at most 5_000_000.
	_, err := src.handler.InitiateTransfer(context.Background(), transferParams(6_000_000), false)
	require.ErrorIs(t, err, types.ErrNavImpactTooHigh)

	balance, err := src.store.VirtualBalance(usdcEthereum)
	require.NoError(t, err)
	require.True(t, balance.IsZero())
	supply, err := src.store.VirtualSupply()
	require.NoError(t, err)
	require.True(t, supply.IsZero())
}

func TestRelayRejectionRollsBackSourceLeg(t *testing.T) {
	src, dst, relay := newChainPair(t)
	relay.fail = true

	_, err := src.handler.InitiateTransfer(context.Background(), transferParams(1000), false)
	require.Error(t, err)

	// No message in flight, so no debit may survive on either side.
	balance, err := src.store.VirtualBalance(usdcEthereum)
	require.NoError(t, err)
	require.True(t, balance.IsZero(), "source balance %s should be rolled back", balance)
	supply, err := src.store.VirtualSupply()
	require.NoError(t, err)
	require.True(t, supply.IsZero(), "source supply %s should be rolled back", supply)
	dstBalance, err := dst.store.VirtualBalance(usdcArbitrum)
	require.NoError(t, err)
	require.True(t, dstBalance.IsZero())

	// A retry after the relay recovers succeeds from clean state.
	relay.fail = false
	_, err = src.handler.InitiateTransfer(context.Background(), transferParams(1000), false)
	require.NoError(t, err)
	balance, err = src.store.VirtualBalance(usdcEthereum)
	require.NoError(t, err)
	require.Equal(t, "-1000", balance.String())
}

func TestReceiveMessageUnauthorizedCaller(t *testing.T) {
	_, dst, _ := newChainPair(t)

	msg := types.BridgeMessage{
		Type:           types.MessageTransfer,
		ID:             "m-1",
		SourceChainID:  types.ChainEthereum,
		SourceNav:      sdkmath.NewIntWithDecimal(1, 6),
		SourceDecimals: 6,
	}
	encoded, err := msg.Encode()
	require.NoError(t, err)

	err = dst.handler.ReceiveMessage(context.Background(), recipient, usdcArbitrum, sdkmath.NewInt(100), encoded)
	require.ErrorIs(t, err, types.ErrUnauthorizedCaller)

	balance, err := dst.store.VirtualBalance(usdcArbitrum)
	require.NoError(t, err)
	require.True(t, balance.IsZero())
}

func TestReceiveMessageReplayRejected(t *testing.T) {
	_, dst, _ := newChainPair(t)
	ctx := context.Background()

	msg := types.BridgeMessage{
		Type:            types.MessageTransfer,
		ID:              "m-replay",
		SourceChainID:   types.ChainEthereum,
		SourceNav:       sdkmath.NewIntWithDecimal(1, 6),
		SourceDecimals:  6,
		NavToleranceBps: 500,
	}
	encoded, err := msg.Encode()
	require.NoError(t, err)

	require.NoError(t, dst.handler.ReceiveMessage(ctx, relayAddr, usdcArbitrum, sdkmath.NewInt(100), encoded))
	err = dst.handler.ReceiveMessage(ctx, relayAddr, usdcArbitrum, sdkmath.NewInt(100), encoded)
	require.ErrorIs(t, err, types.ErrMessageReplayed)

	balance, err := dst.store.VirtualBalance(usdcArbitrum)
	require.NoError(t, err)
	require.Equal(t, "100", balance.String())
}

func TestReceiveTransferDetectsNavManipulation(t *testing.T) {
	_, dst, _ := newChainPair(t)

	msg := types.BridgeMessage{
		Type:            types.MessageTransfer,
		ID:              "m-manip",
		SourceChainID:   types.ChainEthereum,
		SourceNav:       sdkmath.NewInt(2_000_000), // local is 1_000_000
		SourceDecimals:  6,
		NavToleranceBps: 500,
	}
	encoded, err := msg.Encode()
	require.NoError(t, err)

	err = dst.handler.ReceiveMessage(context.Background(), relayAddr, usdcArbitrum, sdkmath.NewInt(100), encoded)
	require.ErrorIs(t, err, types.ErrNavManipulation)
}

func TestRebalanceRequiresSync(t *testing.T) {
	src, dst, _ := newChainPair(t)
	ctx := context.Background()

	_, err := src.handler.InitiateRebalance(ctx, types.ChainArbitrum, usdcEthereum, usdcArbitrum, recipient, sdkmath.NewInt(5000))
	require.ErrorIs(t, err, types.ErrChainsNotSynced)

	// The destination rejected during delivery, so the source debit rolled
	// back with the rest of the leg.
	srcBalance, err := src.store.VirtualBalance(usdcEthereum)
	require.NoError(t, err)
	require.True(t, srcBalance.IsZero(), "source balance %s should be rolled back", srcBalance)

	// Make the source NAV differ so the sync records a nonzero spread.
	require.NoError(t, src.store.SetUnitaryValue(sdkmath.NewInt(1_010_000)))
	_, err = src.handler.InitiateSync(ctx, types.ChainArbitrum)
	require.NoError(t, err)

	spread, err := dst.store.ChainNavSpread(types.ChainEthereum)
	require.NoError(t, err)
	require.Equal(t, "10000", spread.String())

	_, err = src.handler.InitiateRebalance(ctx, types.ChainArbitrum, usdcEthereum, usdcArbitrum, recipient, sdkmath.NewInt(5000))
	require.NoError(t, err)

	// Balance moved, supply untouched, spread cleared.
	dstBalance, err := dst.store.VirtualBalance(usdcArbitrum)
	require.NoError(t, err)
	require.Equal(t, "5000", dstBalance.String())
	dstSupply, err := dst.store.VirtualSupply()
	require.NoError(t, err)
	require.True(t, dstSupply.IsZero())
	spread, err = dst.store.ChainNavSpread(types.ChainEthereum)
	require.NoError(t, err)
	require.True(t, spread.IsZero())
}

func TestSyncOverwritesSpread(t *testing.T) {
	src, dst, _ := newChainPair(t)
	ctx := context.Background()

	require.NoError(t, src.store.SetUnitaryValue(sdkmath.NewInt(1_020_000)))
	_, err := src.handler.InitiateSync(ctx, types.ChainArbitrum)
	require.NoError(t, err)
	spread, err := dst.store.ChainNavSpread(types.ChainEthereum)
	require.NoError(t, err)
	require.Equal(t, "20000", spread.String())

	require.NoError(t, src.store.SetUnitaryValue(sdkmath.NewInt(990_000)))
	_, err = src.handler.InitiateSync(ctx, types.ChainArbitrum)
	require.NoError(t, err)
	spread, err = dst.store.ChainNavSpread(types.ChainEthereum)
	require.NoError(t, err)
	require.Equal(t, "-10000", spread.String())
}

func TestReceiveTransferUnwrapNativeCreditsNativeSentinel(t *testing.T) {
	_, dst, _ := newChainPair(t)

	msg := types.BridgeMessage{
		Type:            types.MessageTransfer,
		ID:              "m-native",
		SourceChainID:   types.ChainEthereum,
		SourceNav:       sdkmath.NewIntWithDecimal(1, 6),
		SourceDecimals:  6,
		NavToleranceBps: 500,
		UnwrapNative:    true,
	}
	encoded, err := msg.Encode()
	require.NoError(t, err)

	require.NoError(t, dst.handler.ReceiveMessage(context.Background(), relayAddr, usdcArbitrum, sdkmath.NewInt(777), encoded))

	native, err := dst.store.VirtualBalance(types.NativeToken)
	require.NoError(t, err)
	require.Equal(t, "777", native.String())
	wrapped, err := dst.store.VirtualBalance(usdcArbitrum)
	require.NoError(t, err)
	require.True(t, wrapped.IsZero())
}

func TestTransferSupplyFloor(t *testing.T) {
	mem := state.NewMemory()
	require.NoError(t, mem.InitPool(types.PoolState{
		BaseToken:    usdcEthereum,
		Decimals:     6,
		TotalSupply:  sdkmath.NewInt(100_000_000),
		UnitaryValue: sdkmath.NewIntWithDecimal(1, 6),
	}))
	po := oracle.NewStatic()
	po.SetRate(usdcEthereum, sdkmath.LegacyOneDec())
	handler := NewHandler(Config{
		ChainID:         types.ChainEthereum,
		RelayEndpoint:   relayAddr,
		NavToleranceBps: 2000,
	}, mem, po, &loopbackRelay{handlers: map[types.ChainID]*Handler{}})

	// Floor is total/8 = 12_500_000. A further 2_000_000 burn from
	// -86_000_000 would leave 12_000_000 effective.
	require.NoError(t, mem.SetVirtualSupply(sdkmath.NewInt(-86_000_000)))

	_, err := handler.InitiateTransfer(context.Background(), transferParams(2_000_000), false)
	require.ErrorIs(t, err, types.ErrEffectiveSupplyTooLow)

	supply, err := mem.VirtualSupply()
	require.NoError(t, err)
	require.Equal(t, "-86000000", supply.String())
}
