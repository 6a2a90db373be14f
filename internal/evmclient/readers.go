/*

Application readers over the venue adapter contracts. Each adapter exposes
the venue's account state as parallel flat arrays, which keeps the ABI
surface to plain value types.

*/

package evmclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omnipool-labs/xnav/internal/apps"
)

const stakingABIJSON = `[
	{"inputs":[{"name":"pool","type":"address"}],"name":"getTotalStake","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"poolId","type":"bytes32"},{"name":"pool","type":"address"}],"name":"computeRewardBalanceOfDelegator","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const liquidityABIJSON = `[
	{"inputs":[{"name":"pool","type":"address"}],"name":"getPositionIds","outputs":[{"name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"id","type":"uint256"}],"name":"getPoolAndPositionInfo","outputs":[{"name":"token0","type":"address"},{"name":"token1","type":"address"},{"name":"fee","type":"uint24"},{"name":"tickLower","type":"int24"},{"name":"tickUpper","type":"int24"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"id","type":"uint256"}],"name":"getPositionLiquidity","outputs":[{"name":"","type":"uint128"}],"stateMutability":"view","type":"function"}
]`

const derivativeABIJSON = `[
	{"inputs":[{"name":"pool","type":"address"}],"name":"getAccountPositions","outputs":[{"name":"markets","type":"address[]"},{"name":"collateralTokens","type":"address[]"},{"name":"collaterals","type":"uint256[]"},{"name":"isLongs","type":"bool[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"pool","type":"address"}],"name":"getAccountPositionInfo","outputs":[{"name":"pnls","type":"int256[]"},{"name":"priceImpacts","type":"int256[]"},{"name":"fees","type":"uint256[]"},{"name":"collateralPrices","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"pool","type":"address"}],"name":"getAccountOrders","outputs":[{"name":"isIncreases","type":"bool[]"},{"name":"collateralTokens","type":"address[]"},{"name":"collateralAmounts","type":"uint256[]"},{"name":"executionFees","type":"uint256[]"}],"stateMutability":"view","type":"function"}
]`

type contractReader struct {
	client   *Client
	contract common.Address
	abi      abi.ABI
}

func newContractReader(client *Client, contract common.Address, abiJSON string) (contractReader, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return contractReader{}, fmt.Errorf("failed to parse adapter abi: %w", err)
	}
	return contractReader{client: client, contract: contract, abi: parsed}, nil
}

func (r contractReader) view(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	raw, err := r.client.call(ctx, r.contract, data)
	if err != nil {
		return nil, err
	}
	vals, err := r.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return vals, nil
}

// StakingReader reads the staking registry adapter.
type StakingReader struct {
	contractReader
}

// NewStakingReader binds the staking adapter at the given address.
func NewStakingReader(client *Client, contract common.Address) (*StakingReader, error) {
	r, err := newContractReader(client, contract, stakingABIJSON)
	if err != nil {
		return nil, err
	}
	return &StakingReader{r}, nil
}

func (r *StakingReader) TotalStake(ctx context.Context, pool common.Address) (sdkmath.Int, error) {
	vals, err := r.view(ctx, "getTotalStake", pool)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return sdkmath.NewIntFromBigInt(vals[0].(*big.Int)), nil
}

func (r *StakingReader) DelegatorRewardBalance(ctx context.Context, poolID common.Hash, pool common.Address) (sdkmath.Int, error) {
	vals, err := r.view(ctx, "computeRewardBalanceOfDelegator", poolID, pool)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return sdkmath.NewIntFromBigInt(vals[0].(*big.Int)), nil
}

// LiquidityReader reads the liquidity position manager adapter.
type LiquidityReader struct {
	contractReader
}

// NewLiquidityReader binds the liquidity adapter at the given address.
func NewLiquidityReader(client *Client, contract common.Address) (*LiquidityReader, error) {
	r, err := newContractReader(client, contract, liquidityABIJSON)
	if err != nil {
		return nil, err
	}
	return &LiquidityReader{r}, nil
}

func (r *LiquidityReader) PositionIDs(ctx context.Context, pool common.Address) ([]uint64, error) {
	vals, err := r.view(ctx, "getPositionIds", pool)
	if err != nil {
		return nil, err
	}
	raw := vals[0].([]*big.Int)
	ids := make([]uint64, len(raw))
	for i, id := range raw {
		ids[i] = id.Uint64()
	}
	return ids, nil
}

func (r *LiquidityReader) PoolAndPositionInfo(ctx context.Context, id uint64) (apps.PoolKey, apps.TickRange, error) {
	vals, err := r.view(ctx, "getPoolAndPositionInfo", new(big.Int).SetUint64(id))
	if err != nil {
		return apps.PoolKey{}, apps.TickRange{}, err
	}
	key := apps.PoolKey{
		Token0: vals[0].(common.Address),
		Token1: vals[1].(common.Address),
		Fee:    uint32(vals[2].(*big.Int).Uint64()),
	}
	tickRange := apps.TickRange{
		Lower: vals[3].(*big.Int).Int64(),
		Upper: vals[4].(*big.Int).Int64(),
	}
	return key, tickRange, nil
}

func (r *LiquidityReader) PositionLiquidity(ctx context.Context, id uint64) (sdkmath.Int, error) {
	vals, err := r.view(ctx, "getPositionLiquidity", new(big.Int).SetUint64(id))
	if err != nil {
		return sdkmath.Int{}, err
	}
	return sdkmath.NewIntFromBigInt(vals[0].(*big.Int)), nil
}

// DerivativeReader reads the derivative venue adapter.
type DerivativeReader struct {
	contractReader
}

// NewDerivativeReader binds the derivative adapter at the given address.
func NewDerivativeReader(client *Client, contract common.Address) (*DerivativeReader, error) {
	r, err := newContractReader(client, contract, derivativeABIJSON)
	if err != nil {
		return nil, err
	}
	return &DerivativeReader{r}, nil
}

func (r *DerivativeReader) AccountPositions(ctx context.Context, pool common.Address) ([]apps.DerivativePosition, error) {
	vals, err := r.view(ctx, "getAccountPositions", pool)
	if err != nil {
		return nil, err
	}
	markets := vals[0].([]common.Address)
	tokens := vals[1].([]common.Address)
	collaterals := vals[2].([]*big.Int)
	isLongs := vals[3].([]bool)
	out := make([]apps.DerivativePosition, len(markets))
	for i := range markets {
		out[i] = apps.DerivativePosition{
			Market:          markets[i],
			CollateralToken: tokens[i],
			Collateral:      sdkmath.NewIntFromBigInt(collaterals[i]),
			IsLong:          isLongs[i],
		}
	}
	return out, nil
}

func (r *DerivativeReader) AccountPositionInfo(ctx context.Context, pool common.Address) ([]apps.DerivativePositionInfo, error) {
	vals, err := r.view(ctx, "getAccountPositionInfo", pool)
	if err != nil {
		return nil, err
	}
	pnls := vals[0].([]*big.Int)
	impacts := vals[1].([]*big.Int)
	fees := vals[2].([]*big.Int)
	prices := vals[3].([]*big.Int)
	out := make([]apps.DerivativePositionInfo, len(pnls))
	for i := range pnls {
		out[i] = apps.DerivativePositionInfo{
			PnlUSD:          sdkmath.NewIntFromBigInt(pnls[i]),
			PriceImpactUSD:  sdkmath.NewIntFromBigInt(impacts[i]),
			AccruedFees:     sdkmath.NewIntFromBigInt(fees[i]),
			CollateralPrice: sdkmath.NewIntFromBigInt(prices[i]),
		}
	}
	return out, nil
}

func (r *DerivativeReader) AccountOrders(ctx context.Context, pool common.Address) ([]apps.DerivativeOrder, error) {
	vals, err := r.view(ctx, "getAccountOrders", pool)
	if err != nil {
		return nil, err
	}
	isIncreases := vals[0].([]bool)
	tokens := vals[1].([]common.Address)
	amounts := vals[2].([]*big.Int)
	fees := vals[3].([]*big.Int)
	out := make([]apps.DerivativeOrder, len(isIncreases))
	for i := range isIncreases {
		out[i] = apps.DerivativeOrder{
			IsIncrease:       isIncreases[i],
			CollateralToken:  tokens[i],
			CollateralAmount: sdkmath.NewIntFromBigInt(amounts[i]),
			ExecutionFee:     sdkmath.NewIntFromBigInt(fees[i]),
		}
	}
	return out, nil
}
