package state

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/omnipool-labs/xnav/internal/types"
)

// MaxActiveTokens caps the active token set so NAV computation iterates a
// bounded list.
const MaxActiveTokens = 255

type slotState uint8

const (
	slotLive slotState = iota + 1
	slotRemoved
)

type tokenSlot struct {
	token common.Address
	state slotState
}

// TokenSet is a bounded enumerable set of token addresses. Live entries
// occupy a compact arena prefix; removal swaps the last live entry into the
// freed slot and marks the vacated slot with a removed sentinel, which is
// distinct from never-inserted so re-insertion can tell the two apart.
type TokenSet struct {
	arena []tokenSlot
	index map[common.Address]int
	live  int
}

// NewTokenSet returns an empty set.
func NewTokenSet() *TokenSet {
	return &TokenSet{index: make(map[common.Address]int)}
}

// Len returns the number of live entries.
func (s *TokenSet) Len() int {
	return s.live
}

// Contains reports whether the token is currently live.
func (s *TokenSet) Contains(token common.Address) bool {
	i, ok := s.index[token]
	return ok && i < len(s.arena) && s.arena[i].state == slotLive && s.arena[i].token == token
}

// WasTracked reports whether the token was ever inserted, live or removed.
func (s *TokenSet) WasTracked(token common.Address) bool {
	_, ok := s.index[token]
	return ok
}

// Add inserts a token. Adding a live token is a no-op; re-adding a removed
// token is allowed and occupies a fresh live slot.
func (s *TokenSet) Add(token common.Address) error {
	if s.Contains(token) {
		return nil
	}
	if s.live >= MaxActiveTokens {
		return types.ErrTooManyActiveTokens
	}
	slot := tokenSlot{token: token, state: slotLive}
	if s.live < len(s.arena) {
		s.arena[s.live] = slot
	} else {
		s.arena = append(s.arena, slot)
	}
	s.index[token] = s.live
	s.live++
	return nil
}

// Remove deletes a token from the live prefix. Removing an absent token is a
// no-op. The freed tail slot keeps the removed token under the sentinel
// state rather than reverting to never-inserted.
func (s *TokenSet) Remove(token common.Address) {
	i, ok := s.index[token]
	if !ok || i >= len(s.arena) || s.arena[i].state != slotLive || s.arena[i].token != token {
		return
	}
	last := s.live - 1
	if i != last {
		moved := s.arena[last]
		s.arena[i] = moved
		s.index[moved.token] = i
	}
	s.arena[last] = tokenSlot{token: token, state: slotRemoved}
	s.index[token] = last
	s.live--
}

// Tokens returns the live tokens in arena order.
func (s *TokenSet) Tokens() []common.Address {
	out := make([]common.Address, s.live)
	for i := 0; i < s.live; i++ {
		out[i] = s.arena[i].token
	}
	return out
}

// Clone returns a deep copy.
func (s *TokenSet) Clone() *TokenSet {
	c := &TokenSet{
		arena: append([]tokenSlot(nil), s.arena...),
		index: make(map[common.Address]int, len(s.index)),
		live:  s.live,
	}
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}
