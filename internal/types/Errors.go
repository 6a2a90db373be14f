/*

Shared error values for the xnav core. Input rejections and economic-safety
rejections are sentinel errors so callers and the message handler can
classify failures without string matching.

*/

package types

import "errors"

var (
	// Input rejections. Always returned before any state mutation.
	ErrUnsupportedCrossChainToken = errors.New("token is not bridgeable on this chain")
	ErrWrongDestinationToken      = errors.New("destination token is not in the same family as the input token")
	ErrZeroAmount                 = errors.New("amount must be positive")

	// Economic-safety rejections.
	ErrNavImpactTooHigh      = errors.New("transfer nav impact exceeds tolerance")
	ErrEffectiveSupplyTooLow = errors.New("effective supply would fall below the supply floor")
	ErrNavManipulation       = errors.New("local nav deviates from source nav beyond tolerance")

	// Authorization rejections.
	ErrUnauthorizedCaller = errors.New("caller is not the recognized bridge relay")
	ErrChainsNotSynced    = errors.New("no nav spread recorded for remote chain")
	ErrMessageReplayed    = errors.New("bridge message already processed")

	// Ledger/state constraints.
	ErrTooManyActiveTokens = errors.New("active token set is full")
	ErrNoPriceFeed         = errors.New("token has no price feed")
	ErrNegativeSupply      = errors.New("total supply cannot be negative")
)
