/*

Prometheus collectors for the bridge and NAV engine. Exposed on the web
surface at /metrics.

*/

package metrics

import (
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed counts bridge messages by type and outcome.
	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xnav",
		Subsystem: "bridge",
		Name:      "messages_total",
		Help:      "Bridge messages processed, labeled by message type and outcome.",
	}, []string{"type", "outcome"})

	// NavRefreshes counts state-mutating NAV recomputations.
	NavRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "xnav",
		Subsystem: "nav",
		Name:      "refreshes_total",
		Help:      "State-mutating NAV recomputations.",
	})

	// NavDegraded counts NAV reads that completed with a degraded input
	// (oracle outage, position reader failure).
	NavDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "xnav",
		Subsystem: "nav",
		Name:      "degraded_reads_total",
		Help:      "NAV reads that fell back to a conservative valuation.",
	})

	// UnitaryValue tracks the last computed per-share value, scaled to a
	// whole share unit.
	UnitaryValue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "xnav",
		Subsystem: "nav",
		Name:      "unitary_value",
		Help:      "Last computed per-share value in base token units.",
	})

	// AuditEvents counts ledger adjustments by kind.
	AuditEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xnav",
		Subsystem: "ledger",
		Name:      "audit_events_total",
		Help:      "Ledger adjustments recorded, labeled by kind.",
	}, []string{"kind"})
)

// ObserveUnitaryValue publishes a unitary value scaled down by the pool's
// share decimals. Precision loss is acceptable here; the gauge is for
// dashboards, not accounting.
func ObserveUnitaryValue(v sdkmath.Int, decimals uint8) {
	f := new(big.Float).SetInt(v.BigInt())
	scale := new(big.Float).SetInt(sdkmath.NewIntWithDecimal(1, int(decimals)).BigInt())
	out, _ := new(big.Float).Quo(f, scale).Float64()
	UnitaryValue.Set(out)
}
