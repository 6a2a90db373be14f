/*

NAV engine. One valuation pass sums the pool's wallet balances, the ledger's
virtual balances and the active applications' positions, converts the lot to
base token terms and divides by the effective supply.

Reads fail open: a broken oracle or venue yields a degraded (zero) NAV
instead of an error, so monitoring surfaces stay available. Writes fail
closed: RefreshNav refuses to persist a degraded value.

*/

package nav

import (
	"context"
	"errors"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/apps"
	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/metrics"
	"github.com/omnipool-labs/xnav/internal/oracle"
	"github.com/omnipool-labs/xnav/internal/state"
	"github.com/omnipool-labs/xnav/internal/types"
)

// ErrNavUnavailable is returned by RefreshNav when the valuation degraded and
// persisting it would overwrite a good value with a guess.
var ErrNavUnavailable = errors.New("nav unavailable")

// BalanceReader reads the pool's on-chain wallet balances.
type BalanceReader interface {
	// WalletBalances returns the pool's balance of each token, parallel to
	// the input slice.
	WalletBalances(ctx context.Context, pool common.Address, tokens []common.Address) ([]sdkmath.Int, error)
}

// Engine computes the pool's NAV.
type Engine struct {
	store    state.Store
	oracle   oracle.PriceOracle
	apps     *apps.Aggregator
	balances BalanceReader
	log      zerolog.Logger
}

// New wires the NAV engine.
func New(store state.Store, po oracle.PriceOracle, agg *apps.Aggregator, balances BalanceReader) *Engine {
	return &Engine{
		store:    store,
		oracle:   po,
		apps:     agg,
		balances: balances,
		log:      logger.GetForComponent("nav"),
	}
}

// EstimateNav runs one read-only valuation pass. The degraded flag is set
// when any input was unavailable; a failed base-token conversion yields a
// zero NavData rather than an error.
func (e *Engine) EstimateNav(ctx context.Context) (types.NavData, bool, error) {
	pool, err := e.store.Pool()
	if err != nil {
		return types.NavData{}, false, err
	}

	tokens, amounts, err := e.tokenDeltas(ctx, pool)
	if err != nil {
		return types.NavData{}, false, err
	}

	appBalances, degraded := e.apps.AggregateBalances(ctx, pool.Address)
	for _, b := range appBalances {
		tokens = append(tokens, b.Token)
		amounts = append(amounts, b.Amount)
	}

	totalValue, err := e.oracle.ConvertBatchTokenAmounts(ctx, tokens, amounts, pool.BaseToken)
	if err != nil {
		e.log.Warn().Err(err).Msg("Batch conversion failed, reporting degraded NAV")
		metrics.NavDegraded.Inc()
		return types.NavData{
			TotalValue:   sdkmath.ZeroInt(),
			UnitaryValue: sdkmath.ZeroInt(),
			Timestamp:    time.Now().UTC(),
		}, true, nil
	}

	virtualSupply, err := e.store.VirtualSupply()
	if err != nil {
		return types.NavData{}, false, err
	}

	return types.NavData{
		TotalValue:   totalValue,
		UnitaryValue: unitaryValue(pool, totalValue, pool.EffectiveSupply(virtualSupply)),
		Timestamp:    time.Now().UTC(),
	}, degraded, nil
}

// RefreshNav runs a valuation pass and persists the unitary value. A
// degraded pass is never persisted.
func (e *Engine) RefreshNav(ctx context.Context) (types.NavData, error) {
	nav, degraded, err := e.EstimateNav(ctx)
	if err != nil {
		return types.NavData{}, err
	}
	if degraded {
		return types.NavData{}, ErrNavUnavailable
	}
	if err := e.store.SetUnitaryValue(nav.UnitaryValue); err != nil {
		return types.NavData{}, err
	}
	pool, err := e.store.Pool()
	if err != nil {
		return types.NavData{}, err
	}
	metrics.NavRefreshes.Inc()
	metrics.ObserveUnitaryValue(nav.UnitaryValue, pool.Decimals)
	e.log.Info().
		Str("total_value", nav.TotalValue.String()).
		Str("unitary_value", nav.UnitaryValue.String()).
		Msg("NAV refreshed")
	return nav, nil
}

// tokenDeltas returns the wallet-plus-virtual amount of the base token and
// every tracked token.
func (e *Engine) tokenDeltas(ctx context.Context, pool types.PoolState) ([]common.Address, []sdkmath.Int, error) {
	tokens, err := e.store.ActiveTokens()
	if err != nil {
		return nil, nil, err
	}
	hasBase := false
	for _, token := range tokens {
		if token == pool.BaseToken {
			hasBase = true
			break
		}
	}
	if !hasBase {
		tokens = append([]common.Address{pool.BaseToken}, tokens...)
	}

	wallet, err := e.balances.WalletBalances(ctx, pool.Address, tokens)
	if err != nil {
		return nil, nil, err
	}
	amounts := make([]sdkmath.Int, len(tokens))
	for i, token := range tokens {
		virtual, err := e.store.VirtualBalance(token)
		if err != nil {
			return nil, nil, err
		}
		amounts[i] = wallet[i].Add(virtual)
	}
	return tokens, amounts, nil
}

// unitaryValue applies the supply edge-case policy: a non-positive effective
// supply keeps the last recorded value (par when none exists), a worthless
// pool with live supply is zero, never rounded up.
func unitaryValue(pool types.PoolState, totalValue, effectiveSupply sdkmath.Int) sdkmath.Int {
	if !effectiveSupply.IsPositive() {
		if pool.UnitaryValue.IsPositive() {
			return pool.UnitaryValue
		}
		return pool.ParValue()
	}
	if !totalValue.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return totalValue.Mul(pool.UnitScale()).Quo(effectiveSupply)
}
