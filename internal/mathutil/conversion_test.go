package mathutil

import (
	"math"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestDecFromFloat(t *testing.T) {
	dec, err := DecFromFloat(1.5)
	require.NoError(t, err)
	require.Equal(t, "1.500000000000000000", dec.String())

	_, err = DecFromFloat(math.NaN())
	require.ErrorIs(t, err, ErrNotFinite)
	_, err = DecFromFloat(math.Inf(1))
	require.ErrorIs(t, err, ErrNotFinite)
}

func TestSqrtRatioAtTick(t *testing.T) {
	one, err := SqrtRatioAtTick(0)
	require.NoError(t, err)
	require.True(t, one.Equal(sdkmath.LegacyOneDec()))

	up, err := SqrtRatioAtTick(2)
	require.NoError(t, err)
	down, err := SqrtRatioAtTick(-2)
	require.NoError(t, err)
	require.True(t, up.GT(sdkmath.LegacyOneDec()))
	require.True(t, down.LT(sdkmath.LegacyOneDec()))

	// Reciprocal within float precision.
	product := up.Mul(down)
	diff := product.Sub(sdkmath.LegacyOneDec()).Abs()
	require.True(t, diff.LT(sdkmath.LegacyNewDecWithPrec(1, 12)), "got %s", product)

	_, err = SqrtRatioAtTick(MaxTick + 1)
	require.ErrorIs(t, err, ErrTickOutOfRange)
	_, err = SqrtRatioAtTick(MinTick - 1)
	require.ErrorIs(t, err, ErrTickOutOfRange)
}

func TestSqrtRatioFromTicks(t *testing.T) {
	// Only the tick difference matters.
	a, err := SqrtRatioFromTicks(100, 700)
	require.NoError(t, err)
	b, err := SqrtRatioFromTicks(-300, 300)
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestQuoRoundAway(t *testing.T) {
	cases := []struct {
		a, b int64
		want string
	}{
		{6, 2, "3"},
		{7, 2, "4"},
		{-6, 2, "-3"},
		{-7, 2, "-4"},
		{7, -2, "-4"},
		{-7, -2, "4"},
		{0, 5, "0"},
	}
	for _, tc := range cases {
		got, err := QuoRoundAway(sdkmath.NewInt(tc.a), sdkmath.NewInt(tc.b))
		require.NoError(t, err)
		require.Equal(t, tc.want, got.String(), "%d / %d", tc.a, tc.b)
	}

	_, err := QuoRoundAway(sdkmath.OneInt(), sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrDivisionByZero)
}
