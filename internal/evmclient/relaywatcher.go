package evmclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/logger"
)

const relayABIJSON = `[
	{"anonymous":false,"inputs":[{"indexed":false,"name":"token","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"message","type":"bytes"}],"name":"MessageDelivered","type":"event"}
]`

// MessageSink consumes delivered bridge messages.
type MessageSink interface {
	ReceiveMessage(ctx context.Context, caller, token common.Address, amount sdkmath.Int, encoded []byte) error
}

// RelayWatcher polls the relay endpoint contract for MessageDelivered events
// and feeds them to the message handler. The relay contract's address is
// passed as the caller, so the handler's authorization check holds by
// construction.
type RelayWatcher struct {
	client    *Client
	endpoint  common.Address
	abi       abi.ABI
	lastBlock uint64
	log       zerolog.Logger
}

// NewRelayWatcher watches the relay endpoint contract for deliveries.
func NewRelayWatcher(client *Client, endpoint common.Address) (*RelayWatcher, error) {
	parsed, err := abi.JSON(strings.NewReader(relayABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay abi: %w", err)
	}
	return &RelayWatcher{
		client:   client,
		endpoint: endpoint,
		abi:      parsed,
		log:      logger.GetForComponent("relay_watcher"),
	}, nil
}

// Run polls until the context is cancelled. Handler rejections (replays,
// guard failures) are logged and skipped; the relay resubmits if it wants a
// retry.
func (w *RelayWatcher) Run(ctx context.Context, interval time.Duration, sink MessageSink) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.poll(ctx, sink); err != nil {
				w.log.Warn().Err(err).Msg("Relay poll failed")
			}
		}
	}
}

func (w *RelayWatcher) poll(ctx context.Context, sink MessageSink) error {
	head, err := w.client.eth.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to read chain head: %w", err)
	}
	if w.lastBlock == 0 {
		// First poll starts at the head; history is the relay's problem.
		w.lastBlock = head
		return nil
	}
	if head <= w.lastBlock {
		return nil
	}

	eventID := w.abi.Events["MessageDelivered"].ID
	logs, err := w.client.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(w.lastBlock + 1),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{w.endpoint},
		Topics:    [][]common.Hash{{eventID}},
	})
	if err != nil {
		return fmt.Errorf("failed to filter relay logs: %w", err)
	}

	for _, entry := range logs {
		if err := w.dispatch(ctx, sink, entry); err != nil {
			w.log.Warn().
				Err(err).
				Str("tx", entry.TxHash.Hex()).
				Msg("Delivered message rejected")
		}
	}
	w.lastBlock = head
	return nil
}

func (w *RelayWatcher) dispatch(ctx context.Context, sink MessageSink, entry ethtypes.Log) error {
	vals, err := w.abi.Unpack("MessageDelivered", entry.Data)
	if err != nil {
		return fmt.Errorf("failed to unpack delivery event: %w", err)
	}
	token := vals[0].(common.Address)
	amount := sdkmath.NewIntFromBigInt(vals[1].(*big.Int))
	encoded := vals[2].([]byte)
	return sink.ReceiveMessage(ctx, entry.Address, token, amount, encoded)
}
