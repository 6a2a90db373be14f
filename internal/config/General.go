package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// Application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// PoolAddress is the address of the pool this instance manages.
	PoolAddress common.Address
	// BaseToken is the pool's accounting token. Use the 0xEeee... sentinel
	// for the chain's native asset.
	BaseToken common.Address
	// PoolDecimals is the precision of the pool's share unit.
	PoolDecimals uint8

	// ChainID is the numeric id of the chain the pool lives on.
	ChainID uint64
	// RelayEndpoint is the only address allowed to deliver bridge messages.
	RelayEndpoint common.Address
	// NavToleranceBps is the default impact/deviation tolerance embedded in
	// outbound bridge messages.
	NavToleranceBps uint64

	// AppBitmap packs the external applications active for this pool.
	AppBitmap uint32
	// WrappedNative is the canonical wrapped native token on this chain.
	WrappedNative common.Address
	// RewardToken is the staking registry's reward denomination.
	RewardToken common.Address
	// StakingPoolID identifies this pool in the staking registry.
	StakingPoolID common.Hash

	// OracleContract is the on-chain price oracle adapter.
	OracleContract common.Address
	// StakingContract is the staking registry adapter.
	StakingContract common.Address
	// LiquidityContract is the liquidity position manager adapter.
	LiquidityContract common.Address
	// DerivativeContract is the derivative venue adapter.
	DerivativeContract common.Address
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	PoolAddress, err = getEnvAsAddress("XNAV_POOL_ADDRESS")
	if err != nil {
		return err
	}

	BaseToken, err = getEnvAsAddress("XNAV_BASE_TOKEN")
	if err != nil {
		return err
	}

	PoolDecimals, err = getEnvAsUint8("XNAV_POOL_DECIMALS")
	if err != nil {
		return err
	}

	ChainID, err = getEnvAsUint64("XNAV_CHAIN_ID")
	if err != nil {
		return err
	}

	RelayEndpoint, err = getEnvAsAddress("XNAV_RELAY_ENDPOINT")
	if err != nil {
		return err
	}

	NavToleranceBps, err = getEnvAsUint64("XNAV_NAV_TOLERANCE_BPS")
	if err != nil {
		return err
	}

	AppBitmap, err = getEnvAsUint32("XNAV_APP_BITMAP")
	if err != nil {
		return err
	}

	WrappedNative, err = getEnvAsAddress("XNAV_WRAPPED_NATIVE")
	if err != nil {
		return err
	}

	RewardToken, err = getEnvAsAddress("XNAV_REWARD_TOKEN")
	if err != nil {
		return err
	}

	stakingPoolID, err := getEnv("XNAV_STAKING_POOL_ID")
	if err != nil {
		return err
	}
	StakingPoolID = common.HexToHash(stakingPoolID)

	OracleContract, err = getEnvAsAddress("XNAV_ORACLE_CONTRACT")
	if err != nil {
		return err
	}

	StakingContract, err = getEnvAsAddress("XNAV_STAKING_CONTRACT")
	if err != nil {
		return err
	}

	LiquidityContract, err = getEnvAsAddress("XNAV_LIQUIDITY_CONTRACT")
	if err != nil {
		return err
	}

	DerivativeContract, err = getEnvAsAddress("XNAV_DERIVATIVE_CONTRACT")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("PoolAddress", PoolAddress.Hex()).
		Uint64("ChainID", ChainID).
		Str("RelayEndpoint", RelayEndpoint.Hex()).
		Uint64("NavToleranceBps", NavToleranceBps).
		Uint32("AppBitmap", AppBitmap).
		Msg("Application configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsUint32 retrieves an environment variable as a uint32. Returns error if not set or invalid.
func getEnvAsUint32(key string) (uint32, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 32)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint32, got: " + valueStr)
	}
	return uint32(value), nil
}

// getEnvAsUint8 retrieves an environment variable as a uint8. Returns error if not set or invalid.
func getEnvAsUint8(key string) (uint8, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 8)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint8, got: " + valueStr)
	}
	return uint8(value), nil
}

// getEnvAsAddress retrieves an environment variable as an EVM address. Returns error if not set or invalid.
func getEnvAsAddress(key string) (common.Address, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(valueStr) {
		return common.Address{}, errors.New("environment variable " + key + " must be a valid hex address, got: " + valueStr)
	}
	return common.HexToAddress(valueStr), nil
}
