/*

Thin EVM read client. Everything here is a read-only contract call against
adapter ("lens") contracts that flatten venue state into plain arrays, so the
Go side stays free of per-venue ABI sprawl.

*/

package evmclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/types"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Client wraps an ethclient connection with the call helpers the readers
// share.
type Client struct {
	eth   *ethclient.Client
	erc20 abi.ABI
	log   zerolog.Logger
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	erc20, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	return &Client{
		eth:   eth,
		erc20: erc20,
		log:   logger.GetForComponent("evmclient"),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) call(ctx context.Context, contract common.Address, data []byte) ([]byte, error) {
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call to %s failed: %w", contract.Hex(), err)
	}
	return raw, nil
}

// WalletBalances returns the pool's balance of each token. The native
// sentinel reads the account balance instead of an ERC-20.
func (c *Client) WalletBalances(ctx context.Context, pool common.Address, tokens []common.Address) ([]sdkmath.Int, error) {
	out := make([]sdkmath.Int, len(tokens))
	for i, token := range tokens {
		if token == types.NativeToken {
			balance, err := c.eth.BalanceAt(ctx, pool, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to read native balance of %s: %w", pool.Hex(), err)
			}
			out[i] = sdkmath.NewIntFromBigInt(balance)
			continue
		}
		data, err := c.erc20.Pack("balanceOf", pool)
		if err != nil {
			return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
		}
		raw, err := c.call(ctx, token, data)
		if err != nil {
			return nil, err
		}
		vals, err := c.erc20.Unpack("balanceOf", raw)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack balanceOf from %s: %w", token.Hex(), err)
		}
		out[i] = sdkmath.NewIntFromBigInt(vals[0].(*big.Int))
	}
	return out, nil
}
