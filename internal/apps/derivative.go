package apps

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/mathutil"
	"github.com/omnipool-labs/xnav/internal/types"
)

// DerivativeApp values the pool's open leveraged positions at their net
// collateral and its pending increase orders at their escrowed amounts.
type DerivativeApp struct {
	reader        DerivativeReader
	wrappedNative common.Address
	log           zerolog.Logger
}

// NewDerivativeApp wires the derivative venue reader. wrappedNative is the
// token execution fees are escrowed in.
func NewDerivativeApp(reader DerivativeReader, wrappedNative common.Address) *DerivativeApp {
	return &DerivativeApp{
		reader:        reader,
		wrappedNative: wrappedNative,
		log:           logger.GetForComponent("derivative_app"),
	}
}

// Balances returns one collateral-token entry per open position plus the
// escrowed collateral and execution fees of pending increase orders.
func (d *DerivativeApp) Balances(ctx context.Context, pool common.Address) ([]types.AppBalance, error) {
	positions, err := d.reader.AccountPositions(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}

	// The price-and-PnL view depends on oracle state inside the venue and
	// may revert. Net-collateral valuation then degrades to raw collateral.
	infos, err := d.reader.AccountPositionInfo(ctx, pool)
	if err != nil || len(infos) != len(positions) {
		if err != nil {
			d.log.Warn().Err(err).Msg("Position info unavailable, valuing at raw collateral")
		}
		infos = nil
	}

	var out []types.AppBalance
	for i, pos := range positions {
		amount := pos.Collateral
		if infos != nil {
			amount, err = netCollateral(pos, infos[i])
			if err != nil {
				return nil, fmt.Errorf("failed to value position on %s: %w", pos.Market.Hex(), err)
			}
		}
		out = append(out, types.AppBalance{Token: pos.CollateralToken, Amount: amount})
	}

	orders, err := d.reader.AccountOrders(ctx, pool)
	if err != nil {
		// Pending-order queries share the venue's revert surface; the
		// escrowed value is temporarily invisible rather than fatal.
		d.log.Warn().Err(err).Msg("Order query unavailable, skipping pending orders")
		return out, nil
	}
	for _, order := range orders {
		if !order.IsIncrease {
			continue
		}
		out = append(out, types.AppBalance{Token: order.CollateralToken, Amount: order.CollateralAmount})
		if order.ExecutionFee.IsPositive() {
			out = append(out, types.AppBalance{Token: d.wrappedNative, Amount: order.ExecutionFee})
		}
	}
	return out, nil
}

// netCollateral converts a position's signed USD PnL and price impact into
// collateral token units and nets them against collateral and accrued fees.
// Negative USD quantities round away from zero so losses are never
// under-counted.
func netCollateral(pos DerivativePosition, info DerivativePositionInfo) (sdkmath.Int, error) {
	if !info.CollateralPrice.IsPositive() {
		return pos.Collateral, nil
	}
	pnlTokens, err := usdToTokens(info.PnlUSD, info.CollateralPrice)
	if err != nil {
		return sdkmath.Int{}, err
	}
	impactTokens, err := usdToTokens(info.PriceImpactUSD, info.CollateralPrice)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return pos.Collateral.Add(pnlTokens).Add(impactTokens).Sub(info.AccruedFees), nil
}

func usdToTokens(usd, price sdkmath.Int) (sdkmath.Int, error) {
	if usd.IsNegative() {
		return mathutil.QuoRoundAway(usd, price)
	}
	return usd.Quo(price), nil
}
