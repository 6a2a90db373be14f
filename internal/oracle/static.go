package oracle

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omnipool-labs/xnav/internal/types"
)

// Static is a fixture PriceOracle backed by an in-memory rate table. Rates
// express the value of one raw unit of a token in raw units of a common
// reference, so converting between any two listed tokens is a ratio. Used by
// tests and local simulation runs.
type Static struct {
	mu        sync.RWMutex
	rates     map[common.Address]sdkmath.LegacyDec
	ticks     map[common.Address]int64
	failBatch bool
}

// NewStatic returns an empty static oracle.
func NewStatic() *Static {
	return &Static{
		rates: make(map[common.Address]sdkmath.LegacyDec),
		ticks: make(map[common.Address]int64),
	}
}

// SetRate registers the reference-unit value of one raw token unit.
func (s *Static) SetRate(token common.Address, rate sdkmath.LegacyDec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[token] = rate
}

// SetTick registers the twap tick for a token.
func (s *Static) SetTick(token common.Address, tick int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks[token] = tick
}

// FailBatch makes every batch conversion fail, simulating an oracle outage.
func (s *Static) FailBatch(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failBatch = fail
}

func (s *Static) HasPriceFeed(_ context.Context, token common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rates[token]
	return ok, nil
}

func (s *Static) convert(token common.Address, amount sdkmath.Int, target common.Address) (sdkmath.Int, error) {
	if token == target {
		return amount, nil
	}
	from, ok := s.rates[token]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", types.ErrNoPriceFeed, token.Hex())
	}
	to, ok := s.rates[target]
	if !ok || to.IsZero() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", types.ErrNoPriceFeed, target.Hex())
	}
	return from.MulInt(amount).Quo(to).TruncateInt(), nil
}

func (s *Static) ConvertTokenAmount(_ context.Context, token common.Address, amount sdkmath.Int, target common.Address) (sdkmath.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.convert(token, amount, target)
}

func (s *Static) ConvertBatchTokenAmounts(_ context.Context, tokens []common.Address, amounts []sdkmath.Int, target common.Address) (sdkmath.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failBatch {
		return sdkmath.Int{}, fmt.Errorf("batch conversion unavailable")
	}
	if len(tokens) != len(amounts) {
		return sdkmath.Int{}, fmt.Errorf("token/amount length mismatch: %d != %d", len(tokens), len(amounts))
	}
	total := sdkmath.ZeroInt()
	for i, token := range tokens {
		v, err := s.convert(token, amounts[i], target)
		if err != nil {
			return sdkmath.Int{}, err
		}
		total = total.Add(v)
	}
	return total, nil
}

func (s *Static) Twap(_ context.Context, token common.Address) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tick, ok := s.ticks[token]
	if !ok {
		return 0, fmt.Errorf("%w: no twap for %s", types.ErrNoPriceFeed, token.Hex())
	}
	return tick, nil
}
