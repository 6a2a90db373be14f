package apps

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/mathutil"
	"github.com/omnipool-labs/xnav/internal/oracle"
	"github.com/omnipool-labs/xnav/internal/types"
)

// maxLiquidityPositions bounds the per-pool position list so a hostile or
// buggy position manager cannot make valuation unbounded.
const maxLiquidityPositions = 255

// LiquidityApp values the pool's concentrated-liquidity positions at their
// twap-implied price rather than the manipulable spot price. Unclaimed swap
// fees are intentionally excluded from the valuation.
type LiquidityApp struct {
	reader LiquidityReader
	oracle oracle.PriceOracle
	log    zerolog.Logger
}

// NewLiquidityApp wires the position manager reader and the price oracle.
func NewLiquidityApp(reader LiquidityReader, po oracle.PriceOracle) *LiquidityApp {
	return &LiquidityApp{
		reader: reader,
		oracle: po,
		log:    logger.GetForComponent("liquidity_app"),
	}
}

// Balances returns the token amounts withdrawable from every stored position
// at the twap-implied price. A position whose tokens lack a price feed is
// valued at zero instead of failing the whole valuation.
func (l *LiquidityApp) Balances(ctx context.Context, pool common.Address) ([]types.AppBalance, error) {
	ids, err := l.reader.PositionIDs(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to query position ids: %w", err)
	}
	if len(ids) > maxLiquidityPositions {
		l.log.Warn().Int("count", len(ids)).Msg("Position list exceeds bound, truncating")
		ids = ids[:maxLiquidityPositions]
	}

	var out []types.AppBalance
	for _, id := range ids {
		key, tickRange, err := l.reader.PoolAndPositionInfo(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to query position %d: %w", id, err)
		}
		liquidity, err := l.reader.PositionLiquidity(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to query liquidity of position %d: %w", id, err)
		}
		if !liquidity.IsPositive() {
			continue
		}

		amount0, amount1, err := l.positionAmounts(ctx, key, tickRange, liquidity)
		if err != nil {
			return nil, err
		}
		if amount0 == nil {
			// No usable price feed for the pair.
			l.log.Warn().Uint64("position_id", id).Msg("Valuing unpriceable position at zero")
			continue
		}
		out = append(out, types.AppBalance{Token: key.Token0, Amount: *amount0})
		out = append(out, types.AppBalance{Token: key.Token1, Amount: *amount1})
	}
	return out, nil
}

// positionAmounts computes the withdrawable (amount0, amount1) of a position
// at the synthetic sqrt price derived from the pair's twap ticks. Returns
// (nil, nil, nil) when either token has no price feed.
func (l *LiquidityApp) positionAmounts(ctx context.Context, key PoolKey, tickRange TickRange, liquidity sdkmath.Int) (*sdkmath.Int, *sdkmath.Int, error) {
	for _, token := range []common.Address{key.Token0, key.Token1} {
		ok, err := l.oracle.HasPriceFeed(ctx, token)
		if err != nil {
			return nil, nil, fmt.Errorf("price feed check failed for %s: %w", token.Hex(), err)
		}
		if !ok {
			return nil, nil, nil
		}
	}
	twap0, err := l.oracle.Twap(ctx, key.Token0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query twap for %s: %w", key.Token0.Hex(), err)
	}
	twap1, err := l.oracle.Twap(ctx, key.Token1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query twap for %s: %w", key.Token1.Hex(), err)
	}

	sqrtCurrent, err := mathutil.SqrtRatioFromTicks(twap0, twap1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive sqrt price: %w", err)
	}
	sqrtLower, err := mathutil.SqrtRatioAtTick(tickRange.Lower)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid lower tick %d: %w", tickRange.Lower, err)
	}
	sqrtUpper, err := mathutil.SqrtRatioAtTick(tickRange.Upper)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid upper tick %d: %w", tickRange.Upper, err)
	}

	// Clamp into the range so an out-of-range price yields a single-sided
	// position instead of a negative amount.
	if sqrtCurrent.LT(sqrtLower) {
		sqrtCurrent = sqrtLower
	}
	if sqrtCurrent.GT(sqrtUpper) {
		sqrtCurrent = sqrtUpper
	}

	liq := sdkmath.LegacyNewDecFromInt(liquidity)
	amount0 := liq.Mul(sqrtUpper.Sub(sqrtCurrent)).Quo(sqrtCurrent.Mul(sqrtUpper)).TruncateInt()
	amount1 := liq.Mul(sqrtCurrent.Sub(sqrtLower)).TruncateInt()
	return &amount0, &amount1, nil
}
