/*

Bridge message payloads. The relay treats the payload as an opaque byte
record; both ends of a transfer decode it with this package so the encoding
is the single source of truth for the wire format.

*/

package types

import (
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// MessageType discriminates the three cross-chain message kinds.
type MessageType string

const (
	MessageTransfer  MessageType = "transfer"
	MessageRebalance MessageType = "rebalance"
	MessageSync      MessageType = "sync"
)

// BridgeMessage is the encoded record relayed alongside bridged funds.
// SourceNav is the sender's unitary value at send time, expressed in
// SourceDecimals precision, so the destination can both detect manipulation
// and derive a value-equal supply adjustment.
type BridgeMessage struct {
	Type            MessageType `json:"message_type"`
	ID              string      `json:"message_id"`
	SourceChainID   ChainID     `json:"source_chain_id"`
	SourceNav       sdkmath.Int `json:"source_nav"`
	SourceDecimals  uint8       `json:"source_decimals"`
	NavToleranceBps uint64      `json:"nav_tolerance_bps"`
	UnwrapNative    bool        `json:"unwrap_native"`
}

// Encode serializes the message for relay.
func (m BridgeMessage) Encode() ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bridge message: %w", err)
	}
	return raw, nil
}

// DecodeBridgeMessage parses a relayed payload.
func DecodeBridgeMessage(raw []byte) (BridgeMessage, error) {
	var m BridgeMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return BridgeMessage{}, fmt.Errorf("failed to decode bridge message: %w", err)
	}
	switch m.Type {
	case MessageTransfer, MessageRebalance, MessageSync:
	default:
		return BridgeMessage{}, fmt.Errorf("unknown bridge message type %q", m.Type)
	}
	if m.ID == "" {
		return BridgeMessage{}, fmt.Errorf("bridge message is missing an id")
	}
	return m, nil
}
