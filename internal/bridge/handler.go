/*

Cross-chain message handler. Three message kinds, each processed atomically
inside one store transaction:

  Transfer   — moves value between pools: the source debits a token's virtual
               balance and the value-equal virtual supply, the destination
               credits both. Supply deltas on both legs are derived from the
               same source NAV so they net to zero in value terms.
  Rebalance  — moves tokens without moving value: balance-only delta, only
               admitted after a Sync recorded the remote NAV spread, which it
               then clears.
  Sync       — records the remote chain's NAV spread; no balance or supply
               change.

Authorization is checked before any state is touched, and ledger mutations
come after every guard check so a failure can never leave a partial
adjustment behind. Outbound relay submission joins the source leg's
transaction: a rejected submission rolls the debit back.

*/

package bridge

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/guard"
	"github.com/omnipool-labs/xnav/internal/ledger"
	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/metrics"
	"github.com/omnipool-labs/xnav/internal/oracle"
	"github.com/omnipool-labs/xnav/internal/state"
	"github.com/omnipool-labs/xnav/internal/tokenpair"
	"github.com/omnipool-labs/xnav/internal/types"
)

const bpsDenominator = 10_000

// Config is the handler's chain-local identity.
type Config struct {
	// ChainID of the chain this handler's pool lives on.
	ChainID types.ChainID
	// RelayEndpoint is the only caller ReceiveMessage accepts.
	RelayEndpoint common.Address
	// NavToleranceBps is embedded into outbound messages and used for the
	// local impact check on initiation.
	NavToleranceBps uint64
}

// Handler processes bridge messages against one pool's state.
type Handler struct {
	cfg    Config
	store  state.Store
	oracle oracle.PriceOracle
	relay  Relay
	log    zerolog.Logger
}

// NewHandler wires a message handler.
func NewHandler(cfg Config, store state.Store, po oracle.PriceOracle, relay Relay) *Handler {
	return &Handler{
		cfg:    cfg,
		store:  store,
		oracle: po,
		relay:  relay,
		log:    logger.GetForComponent("bridge"),
	}
}

// InitiateTransfer runs the source leg of a transfer and hands the funds to
// the relay. Returns the message id the destination will see. unwrapNative
// asks the destination to credit its native asset instead of the wrapped
// output token.
func (h *Handler) InitiateTransfer(ctx context.Context, params TransferParams, unwrapNative bool) (string, error) {
	if params.InputAmount.IsNil() || !params.InputAmount.IsPositive() {
		return "", types.ErrZeroAmount
	}
	if err := tokenpair.ValidateBridgeableTokenPair(h.cfg.ChainID, params.DestinationChainID, params.InputToken, params.OutputToken); err != nil {
		return "", h.reject(types.MessageTransfer, err)
	}
	normalized, err := tokenpair.ApplyDecimalConversion(h.cfg.ChainID, params.DestinationChainID, params.InputToken, params.OutputToken, params.InputAmount)
	if err != nil {
		return "", h.reject(types.MessageTransfer, err)
	}
	if normalized.IsZero() {
		// The whole amount was truncation residue.
		return "", h.reject(types.MessageTransfer, types.ErrZeroAmount)
	}
	if !params.OutputAmount.IsNil() && !params.OutputAmount.IsZero() && !params.OutputAmount.Equal(normalized) {
		return "", h.reject(types.MessageTransfer, fmt.Errorf("output amount %s does not match normalized amount %s", params.OutputAmount, normalized))
	}

	id := uuid.NewString()
	var encoded []byte
	err = h.store.WithTransaction(func(tx state.Store) error {
		pool, err := tx.Pool()
		if err != nil {
			return err
		}
		g := guard.New(tx, h.oracle)
		if err := g.ValidateNavImpact(ctx, params.InputToken, params.InputAmount, h.cfg.NavToleranceBps); err != nil {
			return err
		}

		unitary := pool.UnitaryValue
		if !unitary.IsPositive() {
			unitary = pool.ParValue()
		}
		value, err := h.oracle.ConvertTokenAmount(ctx, params.InputToken, params.InputAmount, pool.BaseToken)
		if err != nil {
			return fmt.Errorf("failed to price transfer amount: %w", err)
		}
		shares := value.Mul(pool.UnitScale()).Quo(unitary)

		virtualSupply, err := tx.VirtualSupply()
		if err != nil {
			return err
		}
		if err := g.ValidateEffectiveSupply(pool.TotalSupply, virtualSupply.Sub(shares)); err != nil {
			return err
		}

		msg := types.BridgeMessage{
			Type:            types.MessageTransfer,
			ID:              id,
			SourceChainID:   h.cfg.ChainID,
			SourceNav:       unitary,
			SourceDecimals:  pool.Decimals,
			NavToleranceBps: h.cfg.NavToleranceBps,
			UnwrapNative:    unwrapNative,
		}
		encoded, err = msg.Encode()
		if err != nil {
			return err
		}

		led := ledger.New(tx, h.oracle)
		if _, err := led.AdjustBalance(params.InputToken, params.InputAmount.Neg()); err != nil {
			return err
		}
		if _, err := led.AdjustSupply(shares.Neg()); err != nil {
			return err
		}
		// The debit is still uncommitted here: a relay rejection rolls the
		// whole leg back instead of leaving a debit with no message in
		// flight.
		if err := h.relay.Send(ctx, params.DestinationChainID, params.Recipient, params.OutputToken, normalized, encoded); err != nil {
			return fmt.Errorf("relay send failed for message %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return "", h.reject(types.MessageTransfer, err)
	}
	metrics.MessagesProcessed.WithLabelValues(string(types.MessageTransfer), "sent").Inc()
	h.log.Info().
		Str("message_id", id).
		Uint64("destination_chain", uint64(params.DestinationChainID)).
		Str("input_token", params.InputToken.Hex()).
		Str("amount", params.InputAmount.String()).
		Msg("Transfer initiated")
	return id, nil
}

// InitiateRebalance moves tokens to a remote pool without moving value. The
// destination only accepts it after a Sync, so initiation always follows
// InitiateSync in practice.
func (h *Handler) InitiateRebalance(ctx context.Context, destination types.ChainID, inputToken, outputToken, recipient common.Address, amount sdkmath.Int) (string, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return "", types.ErrZeroAmount
	}
	if err := tokenpair.ValidateBridgeableTokenPair(h.cfg.ChainID, destination, inputToken, outputToken); err != nil {
		return "", h.reject(types.MessageRebalance, err)
	}
	normalized, err := tokenpair.ApplyDecimalConversion(h.cfg.ChainID, destination, inputToken, outputToken, amount)
	if err != nil {
		return "", h.reject(types.MessageRebalance, err)
	}
	if normalized.IsZero() {
		return "", h.reject(types.MessageRebalance, types.ErrZeroAmount)
	}

	id := uuid.NewString()
	var encoded []byte
	err = h.store.WithTransaction(func(tx state.Store) error {
		pool, err := tx.Pool()
		if err != nil {
			return err
		}
		g := guard.New(tx, h.oracle)
		if err := g.ValidateNavImpact(ctx, inputToken, amount, h.cfg.NavToleranceBps); err != nil {
			return err
		}
		msg := types.BridgeMessage{
			Type:            types.MessageRebalance,
			ID:              id,
			SourceChainID:   h.cfg.ChainID,
			SourceNav:       pool.UnitaryValue,
			SourceDecimals:  pool.Decimals,
			NavToleranceBps: h.cfg.NavToleranceBps,
		}
		encoded, err = msg.Encode()
		if err != nil {
			return err
		}
		led := ledger.New(tx, h.oracle)
		if _, err := led.AdjustBalance(inputToken, amount.Neg()); err != nil {
			return err
		}
		if err := h.relay.Send(ctx, destination, recipient, outputToken, normalized, encoded); err != nil {
			return fmt.Errorf("relay send failed for message %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return "", h.reject(types.MessageRebalance, err)
	}
	metrics.MessagesProcessed.WithLabelValues(string(types.MessageRebalance), "sent").Inc()
	return id, nil
}

// InitiateSync publishes this pool's NAV to a remote chain. Purely
// informational on the source side: no local state changes.
func (h *Handler) InitiateSync(ctx context.Context, destination types.ChainID) (string, error) {
	pool, err := h.store.Pool()
	if err != nil {
		return "", err
	}
	msg := types.BridgeMessage{
		Type:            types.MessageSync,
		ID:              uuid.NewString(),
		SourceChainID:   h.cfg.ChainID,
		SourceNav:       pool.UnitaryValue,
		SourceDecimals:  pool.Decimals,
		NavToleranceBps: h.cfg.NavToleranceBps,
	}
	encoded, err := msg.Encode()
	if err != nil {
		return "", err
	}
	if err := h.relay.Send(ctx, destination, common.Address{}, common.Address{}, sdkmath.ZeroInt(), encoded); err != nil {
		return "", fmt.Errorf("relay send failed for message %s: %w", msg.ID, err)
	}
	metrics.MessagesProcessed.WithLabelValues(string(types.MessageSync), "sent").Inc()
	return msg.ID, nil
}

// ReceiveMessage is the destination surface the relay calls with delivered
// funds and the encoded message. Any caller other than the recognized relay
// endpoint is rejected before any state is read or written.
func (h *Handler) ReceiveMessage(ctx context.Context, caller, token common.Address, amount sdkmath.Int, encoded []byte) error {
	if caller != h.cfg.RelayEndpoint {
		return fmt.Errorf("%w: %s", types.ErrUnauthorizedCaller, caller.Hex())
	}
	msg, err := types.DecodeBridgeMessage(encoded)
	if err != nil {
		return err
	}

	err = h.store.WithTransaction(func(tx state.Store) error {
		processed, err := tx.IsMessageProcessed(msg.ID)
		if err != nil {
			return err
		}
		if processed {
			return fmt.Errorf("%w: %s", types.ErrMessageReplayed, msg.ID)
		}

		switch msg.Type {
		case types.MessageTransfer:
			err = h.receiveTransfer(ctx, tx, token, amount, msg)
		case types.MessageRebalance:
			err = h.receiveRebalance(tx, token, amount, msg)
		case types.MessageSync:
			err = h.receiveSync(tx, msg)
		}
		if err != nil {
			return err
		}
		return tx.MarkMessageProcessed(msg.ID)
	})
	if err != nil {
		return h.reject(msg.Type, err)
	}
	metrics.MessagesProcessed.WithLabelValues(string(msg.Type), "ok").Inc()
	h.log.Info().
		Str("message_id", msg.ID).
		Str("type", string(msg.Type)).
		Uint64("source_chain", uint64(msg.SourceChainID)).
		Msg("Bridge message processed")
	return nil
}

func (h *Handler) receiveTransfer(ctx context.Context, tx state.Store, token common.Address, amount sdkmath.Int, msg types.BridgeMessage) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrZeroAmount
	}
	if !tokenpair.IsAllowedCrosschainToken(h.cfg.ChainID, token) {
		return fmt.Errorf("%w: %s on chain %d", types.ErrUnsupportedCrossChainToken, token.Hex(), h.cfg.ChainID)
	}
	pool, err := tx.Pool()
	if err != nil {
		return err
	}

	sourceNav := scaleNav(msg.SourceNav, msg.SourceDecimals, pool.Decimals)
	if err := validateNavAgainstSource(pool.UnitaryValue, sourceNav, msg.NavToleranceBps); err != nil {
		return err
	}

	g := guard.New(tx, h.oracle)
	if err := g.ValidateNavImpact(ctx, token, amount, msg.NavToleranceBps); err != nil {
		return err
	}

	if !sourceNav.IsPositive() {
		sourceNav = pool.ParValue()
	}
	value, err := h.oracle.ConvertTokenAmount(ctx, token, amount, pool.BaseToken)
	if err != nil {
		return fmt.Errorf("failed to price received amount: %w", err)
	}
	// The credit leg uses the source NAV, not the local one, so the supply
	// minted here is value-equal to the supply burned on the source.
	shares := value.Mul(pool.UnitScale()).Quo(sourceNav)

	credit := token
	if msg.UnwrapNative {
		credit = types.NativeToken
	}
	led := ledger.New(tx, h.oracle)
	if _, err := led.AdjustBalance(credit, amount); err != nil {
		return err
	}
	_, err = led.AdjustSupply(shares)
	return err
}

func (h *Handler) receiveRebalance(tx state.Store, token common.Address, amount sdkmath.Int, msg types.BridgeMessage) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrZeroAmount
	}
	spread, err := tx.ChainNavSpread(msg.SourceChainID)
	if err != nil {
		return err
	}
	if spread.IsZero() {
		return fmt.Errorf("%w: chain %d", types.ErrChainsNotSynced, msg.SourceChainID)
	}
	led := ledger.New(tx, h.oracle)
	if _, err := led.AdjustBalance(token, amount); err != nil {
		return err
	}
	return led.ClearSpread(msg.SourceChainID)
}

func (h *Handler) receiveSync(tx state.Store, msg types.BridgeMessage) error {
	pool, err := tx.Pool()
	if err != nil {
		return err
	}
	sourceNav := scaleNav(msg.SourceNav, msg.SourceDecimals, pool.Decimals)
	return tx.SetChainNavSpread(msg.SourceChainID, sourceNav.Sub(pool.UnitaryValue))
}

func (h *Handler) reject(mt types.MessageType, err error) error {
	metrics.MessagesProcessed.WithLabelValues(string(mt), "rejected").Inc()
	h.log.Warn().Err(err).Str("type", string(mt)).Msg("Bridge message rejected")
	return err
}

// scaleNav rescales a per-share value between two share precisions.
func scaleNav(nav sdkmath.Int, from, to uint8) sdkmath.Int {
	if nav.IsNil() {
		return sdkmath.ZeroInt()
	}
	switch {
	case to > from:
		return nav.Mul(sdkmath.NewIntWithDecimal(1, int(to-from)))
	case from > to:
		return nav.Quo(sdkmath.NewIntWithDecimal(1, int(from-to)))
	default:
		return nav
	}
}

// validateNavAgainstSource rejects a transfer when the local per-share value
// has drifted from the sender's beyond the message's tolerance. Either side
// being unset (bootstrap) skips the check.
func validateNavAgainstSource(local, source sdkmath.Int, toleranceBps uint64) error {
	if !local.IsPositive() || !source.IsPositive() {
		return nil
	}
	deviationBps := local.Sub(source).Abs().MulRaw(bpsDenominator).Quo(source)
	if deviationBps.GT(sdkmath.NewIntFromUint64(toleranceBps)) {
		return fmt.Errorf("%w: local %s vs source %s (%s bps)", types.ErrNavManipulation, local, source, deviationBps)
	}
	return nil
}
