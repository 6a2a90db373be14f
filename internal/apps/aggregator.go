/*

Valuation aggregator over the pool's active external applications. The
bitmap decides which applications are consulted; a failing application is
logged and skipped so NAV stays available in degraded form instead of
becoming unreadable whenever one venue misbehaves.

*/

package apps

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/metrics"
	"github.com/omnipool-labs/xnav/internal/types"
)

// App is one bitmap slot's valuation source.
type App interface {
	Balances(ctx context.Context, pool common.Address) ([]types.AppBalance, error)
}

// Aggregator fans a valuation pass out to the active applications.
type Aggregator struct {
	bitmap types.AppBitmap
	apps   map[types.AppType]App
	log    zerolog.Logger
}

// NewAggregator builds an aggregator for the given bitmap. Apps whose bit is
// unset are never consulted even when registered.
func NewAggregator(bitmap types.AppBitmap) *Aggregator {
	return &Aggregator{
		bitmap: bitmap,
		apps:   make(map[types.AppType]App),
		log:    logger.GetForComponent("apps"),
	}
}

// Register binds an application to its bitmap slot.
func (a *Aggregator) Register(app types.AppType, impl App) {
	a.apps[app] = impl
}

// AppBalances returns the per-application balance groups for the pool,
// together with whether any active application failed and was skipped.
func (a *Aggregator) AppBalances(ctx context.Context, pool common.Address) ([]types.AppBalances, bool) {
	var (
		out      []types.AppBalances
		degraded bool
	)
	for app := types.AppStaking; app < 31; app++ {
		if !a.bitmap.Active(app) {
			continue
		}
		impl, ok := a.apps[app]
		if !ok {
			a.log.Warn().Str("app", app.String()).Msg("Active application has no registered reader")
			degraded = true
			continue
		}
		balances, err := impl.Balances(ctx, pool)
		if err != nil {
			a.log.Warn().Err(err).Str("app", app.String()).Msg("Application valuation failed, skipping")
			metrics.NavDegraded.Inc()
			degraded = true
			continue
		}
		out = append(out, types.AppBalances{App: app, Balances: balances})
	}
	return out, degraded
}

// AggregateBalances flattens the per-application groups into one merged
// token delta list.
func (a *Aggregator) AggregateBalances(ctx context.Context, pool common.Address) ([]types.AppBalance, bool) {
	groups, degraded := a.AppBalances(ctx, pool)
	var flat []types.AppBalance
	for _, group := range groups {
		flat = append(flat, group.Balances...)
	}
	return types.MergeAppBalances(flat), degraded
}
