package state

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omnipool-labs/xnav/internal/types"
)

// Memory is the in-process Store implementation. It backs tests and serves
// as the working set when no database is configured.
type Memory struct {
	mu        sync.RWMutex
	pool      types.PoolState
	poolInit  bool
	fields    map[string]sdkmath.Int
	versions  map[string]uint64
	tokens    *TokenSet
	audit     []types.AuditEvent
	processed map[string]struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		fields:    make(map[string]sdkmath.Int),
		versions:  make(map[string]uint64),
		tokens:    NewTokenSet(),
		processed: make(map[string]struct{}),
	}
}

func (m *Memory) getField(field string) sdkmath.Int {
	if v, ok := m.fields[field]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}

func (m *Memory) setField(field string, v sdkmath.Int) {
	m.fields[field] = v
	m.versions[field]++
}

// InitPool seeds the singleton pool record. Calling it twice is an error.
func (m *Memory) InitPool(p types.PoolState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poolInit {
		return fmt.Errorf("pool already initialized")
	}
	if p.TotalSupply.IsNil() {
		p.TotalSupply = sdkmath.ZeroInt()
	}
	if p.TotalSupply.IsNegative() {
		return types.ErrNegativeSupply
	}
	if p.UnitaryValue.IsNil() {
		p.UnitaryValue = sdkmath.ZeroInt()
	}
	m.pool = types.PoolState{Address: p.Address, BaseToken: p.BaseToken, Decimals: p.Decimals}
	m.setField(FieldTotalSupply, p.TotalSupply)
	m.setField(FieldUnitaryValue, p.UnitaryValue)
	m.poolInit = true
	return nil
}

func (m *Memory) Pool() (types.PoolState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.poolInit {
		return types.PoolState{}, fmt.Errorf("pool not initialized")
	}
	p := m.pool
	p.TotalSupply = m.getField(FieldTotalSupply)
	p.UnitaryValue = m.getField(FieldUnitaryValue)
	return p, nil
}

func (m *Memory) SetUnitaryValue(v sdkmath.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setField(FieldUnitaryValue, v)
	return nil
}

func (m *Memory) SetTotalSupply(v sdkmath.Int) error {
	if v.IsNegative() {
		return types.ErrNegativeSupply
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setField(FieldTotalSupply, v)
	return nil
}

func (m *Memory) VirtualBalance(token common.Address) (sdkmath.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getField(VirtualBalanceField(token)), nil
}

func (m *Memory) SetVirtualBalance(token common.Address, v sdkmath.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setField(VirtualBalanceField(token), v)
	return nil
}

func (m *Memory) VirtualSupply() (sdkmath.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getField(FieldVirtualSupply), nil
}

func (m *Memory) SetVirtualSupply(v sdkmath.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setField(FieldVirtualSupply, v)
	return nil
}

func (m *Memory) ChainNavSpread(chain types.ChainID) (sdkmath.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getField(ChainNavSpreadField(chain)), nil
}

func (m *Memory) SetChainNavSpread(chain types.ChainID, v sdkmath.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setField(ChainNavSpreadField(chain), v)
	return nil
}

func (m *Memory) ClearChainNavSpread(chain types.ChainID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	field := ChainNavSpreadField(chain)
	delete(m.fields, field)
	m.versions[field]++
	return nil
}

func (m *Memory) ActiveTokens() ([]common.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens.Tokens(), nil
}

func (m *Memory) AddActiveToken(token common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.Add(token)
}

func (m *Memory) RemoveActiveToken(token common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens.Remove(token)
	return nil
}

func (m *Memory) FieldVersion(field string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.versions[field], nil
}

func (m *Memory) AppendAuditEvent(ev types.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, ev)
	return nil
}

// AuditEvents returns a copy of the recorded audit trail.
func (m *Memory) AuditEvents() []types.AuditEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.AuditEvent(nil), m.audit...)
}

func (m *Memory) IsMessageProcessed(id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.processed[id]
	return ok, nil
}

func (m *Memory) MarkMessageProcessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[id] = struct{}{}
	return nil
}

func (m *Memory) clone() *Memory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := NewMemory()
	c.pool = m.pool
	c.poolInit = m.poolInit
	for k, v := range m.fields {
		c.fields[k] = v
	}
	for k, v := range m.versions {
		c.versions[k] = v
	}
	c.tokens = m.tokens.Clone()
	c.audit = append([]types.AuditEvent(nil), m.audit...)
	for k := range m.processed {
		c.processed[k] = struct{}{}
	}
	return c
}

// WithTransaction runs fn against a cloned store and swaps the clone in
// atomically on success, so a failed message leaves no partial state.
func (m *Memory) WithTransaction(fn func(Store) error) error {
	c := m.clone()
	if err := fn(c); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pool = c.pool
	m.poolInit = c.poolInit
	m.fields = c.fields
	m.versions = c.versions
	m.tokens = c.tokens
	m.audit = c.audit
	m.processed = c.processed
	return nil
}
