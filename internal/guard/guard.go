/*

Transfer guard. Unlike NAV reads, guard checks fail closed: any error in
pricing or state access rejects the transfer, because an unverifiable
transfer is indistinguishable from a hostile one.

*/

package guard

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/oracle"
	"github.com/omnipool-labs/xnav/internal/state"
	"github.com/omnipool-labs/xnav/internal/types"
)

const bpsDenominator = 10_000

// supplyFloorDivisor bounds how far accumulated negative virtual supply may
// erode the real supply: transfers stop once the effective supply would fall
// under totalSupply/supplyFloorDivisor.
const supplyFloorDivisor = 8

// Guard validates transfers against the pool's persisted economic state.
type Guard struct {
	store  state.Store
	oracle oracle.PriceOracle
	log    zerolog.Logger
}

// New wires the guard to a store handle and price oracle.
func New(store state.Store, po oracle.PriceOracle) *Guard {
	return &Guard{
		store:  store,
		oracle: po,
		log:    logger.GetForComponent("guard"),
	}
}

// ValidateNavImpact rejects a transfer whose base-token value exceeds
// toleranceBps of the pool's total assets, computed from the persisted
// unitary value rather than a fresh valuation so the check cannot be bent by
// the same oracle update that prices the transfer.
func (g *Guard) ValidateNavImpact(ctx context.Context, token common.Address, amount sdkmath.Int, toleranceBps uint64) error {
	pool, err := g.store.Pool()
	if err != nil {
		return err
	}
	virtualSupply, err := g.store.VirtualSupply()
	if err != nil {
		return err
	}
	effectiveSupply := pool.EffectiveSupply(virtualSupply)
	if !effectiveSupply.IsPositive() {
		// An empty pool has no NAV to impact.
		return nil
	}

	totalAssets := pool.UnitaryValue.Mul(effectiveSupply).Quo(pool.UnitScale())
	if totalAssets.IsZero() {
		return nil
	}

	value, err := g.oracle.ConvertTokenAmount(ctx, token, amount, pool.BaseToken)
	if err != nil {
		return fmt.Errorf("failed to price transfer amount: %w", err)
	}
	impactBps := value.Abs().MulRaw(bpsDenominator).Quo(totalAssets)
	if impactBps.GT(sdkmath.NewIntFromUint64(toleranceBps)) {
		g.log.Warn().
			Str("token", token.Hex()).
			Str("amount", amount.String()).
			Str("impact_bps", impactBps.String()).
			Uint64("tolerance_bps", toleranceBps).
			Msg("Transfer rejected by NAV impact check")
		return fmt.Errorf("%w: impact %s bps exceeds tolerance %d bps", types.ErrNavImpactTooHigh, impactBps.String(), toleranceBps)
	}
	return nil
}

// ValidateEffectiveSupply rejects outbound supply adjustments that would
// erode the effective supply below the floor. Only a negative virtual supply
// can trip the floor; positive adjustments always pass.
func (g *Guard) ValidateEffectiveSupply(totalSupply, virtualSupply sdkmath.Int) error {
	if !virtualSupply.IsNegative() {
		return nil
	}
	effective := totalSupply.Add(virtualSupply)
	floor := totalSupply.QuoRaw(supplyFloorDivisor)
	if effective.LT(floor) {
		return fmt.Errorf("%w: effective supply %s under floor %s", types.ErrEffectiveSupplyTooLow, effective.String(), floor.String())
	}
	return nil
}
