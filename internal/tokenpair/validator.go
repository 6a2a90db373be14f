package tokenpair

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omnipool-labs/xnav/internal/types"
)

// decimalGap is the scaling factor between the 18-decimal stablecoin
// stand-ins on BSC and their 6-decimal representation everywhere else.
var decimalGap = sdkmath.NewIntWithDecimal(1, 12)

// ValidateBridgeableTokenPair checks that (inputToken on srcChain,
// outputToken on dstChain) form an allowed bridgeable pair: the input must
// classify into a known family and the output must be that same family's
// canonical token on the destination chain.
func ValidateBridgeableTokenPair(srcChain, dstChain types.ChainID, inputToken, outputToken common.Address) error {
	family, ok := FamilyOf(srcChain, inputToken)
	if !ok {
		return fmt.Errorf("%w: %s on chain %d", types.ErrUnsupportedCrossChainToken, inputToken.Hex(), srcChain)
	}
	canonical, ok := CanonicalToken(dstChain, family)
	if !ok || canonical != outputToken {
		return fmt.Errorf("%w: %s is not the %s token on chain %d", types.ErrWrongDestinationToken, outputToken.Hex(), family, dstChain)
	}
	return nil
}

// ApplyDecimalConversion rescales an amount crossing the 18-vs-6-decimal
// stablecoin boundary: /1e12 when leaving the 18-decimal representation,
// *1e12 when entering it, identity otherwise. Both transfer legs apply this
// so the same economic amount is recorded on each side. The 18->6 direction
// truncates any residue in the low 12 digits.
func ApplyDecimalConversion(srcChain, dstChain types.ChainID, inputToken, outputToken common.Address, amount sdkmath.Int) (sdkmath.Int, error) {
	family, ok := FamilyOf(srcChain, inputToken)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s on chain %d", types.ErrUnsupportedCrossChainToken, inputToken.Hex(), srcChain)
	}
	if !family.Stable() || srcChain == dstChain {
		return amount, nil
	}
	switch {
	case srcChain == types.ChainBSC && dstChain != types.ChainBSC:
		return amount.Quo(decimalGap), nil
	case srcChain != types.ChainBSC && dstChain == types.ChainBSC:
		return amount.Mul(decimalGap), nil
	default:
		return amount, nil
	}
}
