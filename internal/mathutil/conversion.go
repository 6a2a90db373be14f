/*

This file contains common utility functions for converting between different
numeric representations, particularly for SDK math operations and tick-based
price handling.

*/

package mathutil

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	sdkmath "cosmossdk.io/math"
)

// Tick bounds of the concentrated-liquidity price space.
const (
	MinTick = -887272
	MaxTick = 887272
)

var (
	ErrNotFinite      = errors.New("value is not finite")
	ErrTickOutOfRange = errors.New("tick is out of range")
	ErrDivisionByZero = errors.New("division by zero")
)

// DecFromFloat converts a float64 to a LegacyDec through a fixed-precision
// string so binary-float drift never reaches the accounting path.
func DecFromFloat(f float64) (sdkmath.LegacyDec, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %f", ErrNotFinite, f)
	}
	s := strconv.FormatFloat(f, 'f', 18, 64)
	dec, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("failed to convert %f to decimal: %w", f, err)
	}
	return dec, nil
}

// SqrtRatioFromTicks derives the synthetic execution sqrt price implied by
// the twap ticks of a token pair: sqrt(1.0001^(tick1 - tick0)).
func SqrtRatioFromTicks(tick0, tick1 int64) (sdkmath.LegacyDec, error) {
	diff := tick1 - tick0
	if diff < MinTick || diff > MaxTick {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %d", ErrTickOutOfRange, diff)
	}
	return SqrtRatioAtTick(diff)
}

// SqrtRatioAtTick returns sqrt(1.0001^tick).
func SqrtRatioAtTick(tick int64) (sdkmath.LegacyDec, error) {
	if tick < MinTick || tick > MaxTick {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %d", ErrTickOutOfRange, tick)
	}
	return DecFromFloat(math.Pow(1.0001, float64(tick)/2))
}

// QuoRoundAway divides a by b rounding the quotient away from zero. Used
// when converting negative USD quantities to token units so losses are never
// under-charged by truncation.
func QuoRoundAway(a, b sdkmath.Int) (sdkmath.Int, error) {
	if b.IsZero() {
		return sdkmath.Int{}, ErrDivisionByZero
	}
	quo := a.Quo(b)
	if a.Mod(b).IsZero() {
		return quo, nil
	}
	if a.IsNegative() != b.IsNegative() {
		return quo.Sub(sdkmath.OneInt()), nil
	}
	return quo.Add(sdkmath.OneInt()), nil
}
