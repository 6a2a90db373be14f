package evmclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const oracleABIJSON = `[
	{"inputs":[{"name":"token","type":"address"}],"name":"hasPriceFeed","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"token","type":"address"},{"name":"amount","type":"int256"},{"name":"targetToken","type":"address"}],"name":"convertTokenAmount","outputs":[{"name":"","type":"int256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"tokens","type":"address[]"},{"name":"amounts","type":"int256[]"},{"name":"targetToken","type":"address"}],"name":"convertBatchTokenAmounts","outputs":[{"name":"","type":"int256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"token","type":"address"}],"name":"getTwap","outputs":[{"name":"","type":"int24"}],"stateMutability":"view","type":"function"}
]`

// ContractOracle implements the price oracle interface over the on-chain
// oracle adapter contract.
type ContractOracle struct {
	client   *Client
	contract common.Address
	abi      abi.ABI
}

// NewContractOracle binds the oracle adapter at the given address.
func NewContractOracle(client *Client, contract common.Address) (*ContractOracle, error) {
	parsed, err := abi.JSON(strings.NewReader(oracleABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse oracle abi: %w", err)
	}
	return &ContractOracle{client: client, contract: contract, abi: parsed}, nil
}

func (o *ContractOracle) view(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := o.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	raw, err := o.client.call(ctx, o.contract, data)
	if err != nil {
		return nil, err
	}
	vals, err := o.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return vals, nil
}

func (o *ContractOracle) HasPriceFeed(ctx context.Context, token common.Address) (bool, error) {
	vals, err := o.view(ctx, "hasPriceFeed", token)
	if err != nil {
		return false, err
	}
	return vals[0].(bool), nil
}

func (o *ContractOracle) ConvertTokenAmount(ctx context.Context, token common.Address, amount sdkmath.Int, target common.Address) (sdkmath.Int, error) {
	vals, err := o.view(ctx, "convertTokenAmount", token, amount.BigInt(), target)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return sdkmath.NewIntFromBigInt(vals[0].(*big.Int)), nil
}

func (o *ContractOracle) ConvertBatchTokenAmounts(ctx context.Context, tokens []common.Address, amounts []sdkmath.Int, target common.Address) (sdkmath.Int, error) {
	raw := make([]*big.Int, len(amounts))
	for i, amount := range amounts {
		raw[i] = amount.BigInt()
	}
	vals, err := o.view(ctx, "convertBatchTokenAmounts", tokens, raw, target)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return sdkmath.NewIntFromBigInt(vals[0].(*big.Int)), nil
}

func (o *ContractOracle) Twap(ctx context.Context, token common.Address) (int64, error) {
	vals, err := o.view(ctx, "getTwap", token)
	if err != nil {
		return 0, err
	}
	return vals[0].(*big.Int).Int64(), nil
}
