package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// AuditEventKind labels ledger adjustments for off-chain reconciliation.
type AuditEventKind string

const (
	EventVirtualBalanceAdjust AuditEventKind = "virtual_balance_adjust"
	EventVirtualSupplyAdjust  AuditEventKind = "virtual_supply_adjust"
)

// AuditEvent records one signed ledger adjustment and the resulting value.
// Token is nil for supply adjustments.
type AuditEvent struct {
	Kind      AuditEventKind  `json:"kind"`
	Token     *common.Address `json:"token,omitempty"`
	Delta     sdkmath.Int     `json:"delta"`
	Resulting sdkmath.Int     `json:"resulting"`
	Timestamp time.Time       `json:"timestamp"`
}
