/*

Virtual balance / virtual supply ledger and the per-remote-chain nav spread
store. The ledger is deliberately a thin, auditable primitive: additive
signed updates with audit events, no bounds or economic checks. Overflow and
economic-sanity protection belong to the transfer guard.

A Ledger is bound to an explicit Store handle by its caller; the message
handler binds a fresh Ledger to its transaction-scoped store so mutations
commit or vanish with the whole message.

*/

package ledger

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/metrics"
	"github.com/omnipool-labs/xnav/internal/oracle"
	"github.com/omnipool-labs/xnav/internal/state"
	"github.com/omnipool-labs/xnav/internal/types"
)

// Ledger wraps a Store with the signed adjustment operations.
type Ledger struct {
	store  state.Store
	oracle oracle.PriceOracle
	log    zerolog.Logger
}

// New binds a ledger to the given store handle.
func New(store state.Store, po oracle.PriceOracle) *Ledger {
	return &Ledger{
		store:  store,
		oracle: po,
		log:    logger.GetForComponent("ledger"),
	}
}

// AdjustBalance applies a signed delta to a token's virtual balance and
// returns the resulting value. A zero delta is a no-op.
func (l *Ledger) AdjustBalance(token common.Address, delta sdkmath.Int) (sdkmath.Int, error) {
	current, err := l.store.VirtualBalance(token)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if delta.IsZero() {
		return current, nil
	}
	next := current.Add(delta)
	if err := l.store.SetVirtualBalance(token, next); err != nil {
		return sdkmath.Int{}, err
	}
	if err := l.emit(types.EventVirtualBalanceAdjust, &token, delta, next); err != nil {
		return sdkmath.Int{}, err
	}
	return next, nil
}

// AdjustSupply applies a signed delta to the pool's virtual supply and
// returns the resulting value. A zero delta is a no-op.
func (l *Ledger) AdjustSupply(delta sdkmath.Int) (sdkmath.Int, error) {
	current, err := l.store.VirtualSupply()
	if err != nil {
		return sdkmath.Int{}, err
	}
	if delta.IsZero() {
		return current, nil
	}
	next := current.Add(delta)
	if err := l.store.SetVirtualSupply(next); err != nil {
		return sdkmath.Int{}, err
	}
	if err := l.emit(types.EventVirtualSupplyAdjust, nil, delta, next); err != nil {
		return sdkmath.Int{}, err
	}
	return next, nil
}

// Balance returns a token's current virtual balance.
func (l *Ledger) Balance(token common.Address) (sdkmath.Int, error) {
	return l.store.VirtualBalance(token)
}

// Supply returns the current virtual supply.
func (l *Ledger) Supply() (sdkmath.Int, error) {
	return l.store.VirtualSupply()
}

// Spread returns the last recorded nav spread against a remote chain.
func (l *Ledger) Spread(chain types.ChainID) (sdkmath.Int, error) {
	return l.store.ChainNavSpread(chain)
}

// SetSpread records (or overwrites) the nav spread against a remote chain.
func (l *Ledger) SetSpread(chain types.ChainID, spread sdkmath.Int) error {
	return l.store.SetChainNavSpread(chain, spread)
}

// ClearSpread resets the spread after reconciliation.
func (l *Ledger) ClearSpread(chain types.ChainID) error {
	return l.store.ClearChainNavSpread(chain)
}

// HasSpread reports whether a nonzero spread is recorded for the chain.
func (l *Ledger) HasSpread(chain types.ChainID) (bool, error) {
	spread, err := l.store.ChainNavSpread(chain)
	if err != nil {
		return false, err
	}
	return !spread.IsZero(), nil
}

// TrackToken adds a token to the active set. Insertion requires a valid
// price feed so NAV computation never iterates unpriceable tokens.
func (l *Ledger) TrackToken(ctx context.Context, token common.Address) error {
	ok, err := l.oracle.HasPriceFeed(ctx, token)
	if err != nil {
		return fmt.Errorf("price feed check failed for %s: %w", token.Hex(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNoPriceFeed, token.Hex())
	}
	return l.store.AddActiveToken(token)
}

// UntrackToken removes a token from the active set.
func (l *Ledger) UntrackToken(token common.Address) error {
	return l.store.RemoveActiveToken(token)
}

// ActiveTokens lists the tracked tokens.
func (l *Ledger) ActiveTokens() ([]common.Address, error) {
	return l.store.ActiveTokens()
}

func (l *Ledger) emit(kind types.AuditEventKind, token *common.Address, delta, resulting sdkmath.Int) error {
	ev := types.AuditEvent{
		Kind:      kind,
		Token:     token,
		Delta:     delta,
		Resulting: resulting,
		Timestamp: time.Now().UTC(),
	}
	if err := l.store.AppendAuditEvent(ev); err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	metrics.AuditEvents.WithLabelValues(string(kind)).Inc()
	entry := l.log.Info().Str("kind", string(kind)).Str("delta", delta.String()).Str("resulting", resulting.String())
	if token != nil {
		entry = entry.Str("token", token.Hex())
	}
	entry.Msg("Ledger adjustment")
	return nil
}
