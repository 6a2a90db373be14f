package state

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omnipool-labs/xnav/internal/types"
)

func addr(i int) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", i+1))
}

func TestTokenSetAddRemove(t *testing.T) {
	s := NewTokenSet()

	require.NoError(t, s.Add(addr(0)))
	require.NoError(t, s.Add(addr(1)))
	require.NoError(t, s.Add(addr(2)))
	require.Equal(t, 3, s.Len())
	require.True(t, s.Contains(addr(1)))

	// Adding a live token is a no-op.
	require.NoError(t, s.Add(addr(1)))
	require.Equal(t, 3, s.Len())

	// Removal swaps the last live entry into the freed slot.
	s.Remove(addr(0))
	require.Equal(t, 2, s.Len())
	require.False(t, s.Contains(addr(0)))
	require.Equal(t, []common.Address{addr(2), addr(1)}, s.Tokens())

	// The removed token is still distinguishable from a never-inserted one.
	require.True(t, s.WasTracked(addr(0)))
	require.False(t, s.WasTracked(addr(9)))

	// Removing an absent token is a no-op.
	s.Remove(addr(9))
	require.Equal(t, 2, s.Len())
}

func TestTokenSetReinsertAfterRemoval(t *testing.T) {
	s := NewTokenSet()
	require.NoError(t, s.Add(addr(0)))
	require.NoError(t, s.Add(addr(1)))
	s.Remove(addr(0))
	require.False(t, s.Contains(addr(0)))

	require.NoError(t, s.Add(addr(0)))
	require.True(t, s.Contains(addr(0)))
	require.Equal(t, 2, s.Len())
	require.Equal(t, []common.Address{addr(1), addr(0)}, s.Tokens())
}

func TestTokenSetRemoveLastSlot(t *testing.T) {
	s := NewTokenSet()
	require.NoError(t, s.Add(addr(0)))
	s.Remove(addr(0))
	require.Equal(t, 0, s.Len())
	require.True(t, s.WasTracked(addr(0)))
	require.NoError(t, s.Add(addr(0)))
	require.True(t, s.Contains(addr(0)))
}

func TestTokenSetCap(t *testing.T) {
	s := NewTokenSet()
	for i := 0; i < MaxActiveTokens; i++ {
		require.NoError(t, s.Add(addr(i)))
	}
	require.Equal(t, MaxActiveTokens, s.Len())
	require.ErrorIs(t, s.Add(addr(MaxActiveTokens)), types.ErrTooManyActiveTokens)

	// Freeing a slot makes room again.
	s.Remove(addr(7))
	require.NoError(t, s.Add(addr(MaxActiveTokens)))
	require.Equal(t, MaxActiveTokens, s.Len())
}

func TestTokenSetClone(t *testing.T) {
	s := NewTokenSet()
	require.NoError(t, s.Add(addr(0)))
	c := s.Clone()
	require.NoError(t, c.Add(addr(1)))
	require.True(t, c.Contains(addr(1)))
	require.False(t, s.Contains(addr(1)))
}
