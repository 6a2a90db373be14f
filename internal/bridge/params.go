package bridge

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omnipool-labs/xnav/internal/types"
)

// TransferParams is the transfer-initiation surface. Deadline and relayer
// fields are passed through to the relay untouched; the handler's checks
// concern only tokens, amounts and chains.
type TransferParams struct {
	Depositor           common.Address
	Recipient           common.Address
	InputToken          common.Address
	OutputToken         common.Address
	InputAmount         sdkmath.Int
	OutputAmount        sdkmath.Int
	DestinationChainID  types.ChainID
	ExclusiveRelayer    common.Address
	QuoteTimestamp      uint32
	FillDeadline        uint32
	ExclusivityDeadline uint32
	Message             []byte
}

// Relay delivers bridged funds and the encoded message to the destination
// chain's handler. Delivery is asynchronous; the relay owns retries.
type Relay interface {
	Send(ctx context.Context, destination types.ChainID, recipient, token common.Address, amount sdkmath.Int, message []byte) error
}
