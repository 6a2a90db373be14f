/*

Price oracle boundary. The engine consumes prices only through this
interface; implementations must be read-only and side-effect-free so a
failure can always be treated as a degraded input rather than a fault that
leaves partial state behind.

*/

package oracle

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// PriceOracle converts token amounts into a target token's terms.
type PriceOracle interface {
	// HasPriceFeed reports whether the token has a valid price feed.
	HasPriceFeed(ctx context.Context, token common.Address) (bool, error)

	// ConvertTokenAmount converts a signed amount of token into target
	// token terms.
	ConvertTokenAmount(ctx context.Context, token common.Address, amount sdkmath.Int, target common.Address) (sdkmath.Int, error)

	// ConvertBatchTokenAmounts converts a batch of signed amounts into
	// target token terms and returns the sum. May fail as a whole; callers
	// must treat failure as "NAV unavailable", never guess.
	ConvertBatchTokenAmounts(ctx context.Context, tokens []common.Address, amounts []sdkmath.Int, target common.Address) (sdkmath.Int, error)

	// Twap returns the time-weighted average price tick for a token.
	Twap(ctx context.Context, token common.Address) (int64, error)
}
