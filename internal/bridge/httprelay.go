package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omnipool-labs/xnav/internal/types"
)

// HTTPRelay hands outbound messages to the off-chain relay service. The
// relay owns delivery and retries; a 2xx response only means the message was
// accepted for relay.
type HTTPRelay struct {
	url    string
	client *http.Client
}

// NewHTTPRelay points the relay client at the relay service's submit URL.
func NewHTTPRelay(url string) *HTTPRelay {
	return &HTTPRelay{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type relaySubmission struct {
	DestinationChainID types.ChainID  `json:"destination_chain_id"`
	Recipient          common.Address `json:"recipient"`
	Token              common.Address `json:"token"`
	Amount             sdkmath.Int    `json:"amount"`
	Message            []byte         `json:"message"`
}

func (r *HTTPRelay) Send(ctx context.Context, destination types.ChainID, recipient, token common.Address, amount sdkmath.Int, message []byte) error {
	body, err := json.Marshal(relaySubmission{
		DestinationChainID: destination,
		Recipient:          recipient,
		Token:              token,
		Amount:             amount,
		Message:            message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode relay submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay submission failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("relay rejected submission: %s", resp.Status)
	}
	return nil
}
