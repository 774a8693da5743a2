package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/fuel-canary-watchtower/watchtower/config"
	"github.com/fuel-canary-watchtower/watchtower/internal/actions"
	"github.com/fuel-canary-watchtower/watchtower/internal/alerts"
	"github.com/fuel-canary-watchtower/watchtower/internal/chain/l1"
	"github.com/fuel-canary-watchtower/watchtower/internal/metrics"
	"github.com/fuel-canary-watchtower/watchtower/internal/status"
)

// L2PollInterval is the sleep between inner iterations of the L2 loop.
const L2PollInterval = 4 * time.Second

// L2LogSkip is the number of inner iterations between heartbeat log lines.
const L2LogSkip = 75

// FuelChain is the subset of internal/chain/l2.Client the L2 watcher
// needs.
type FuelChain interface {
	CheckConnection(ctx context.Context) error
	LatestBlockNumber(ctx context.Context) (uint64, error)
	SecondsSinceLastBlock(ctx context.Context) (uint32, error)
	BaseAssetAmountWithdrawn(ctx context.Context, timeFrame uint32) (uint64, error)
}

// FungibleTokenReader is the subset of
// internal/contracts.FungibleTokenContract the L2 watcher needs.
type FungibleTokenReader interface {
	AmountWithdrawn(ctx context.Context, timeFrame uint32, assetID string) (*uint256.Int, error)
}

// L2 runs the Fuel-side polling loop: connection, block production, and
// withdrawal-threshold checks.
type L2 struct {
	chain    FuelChain
	fungible FungibleTokenReader
	cfg      config.FuelClientWatcher
	alerts   *alerts.Producer
	actions  *actions.Producer
	status   *status.Tracker
	metrics  *metrics.Registry
}

// WithStatus attaches a status.Tracker the watcher updates as it runs. A nil
// or omitted tracker is a valid no-op.
func (w *L2) WithStatus(t *status.Tracker) *L2 {
	w.status = t
	return w
}

// WithMetrics attaches a metrics.Registry the watcher reports staleness and
// poll-timestamp gauges into. A nil or omitted registry is a valid no-op.
func (w *L2) WithMetrics(r *metrics.Registry) *L2 {
	w.metrics = r
	return w
}

// NewL2 builds the L2 watcher.
func NewL2(chain FuelChain, fungible FungibleTokenReader, cfg config.FuelClientWatcher, alertProducer *alerts.Producer, actionProducer *actions.Producer) *L2 {
	return &L2{chain: chain, fungible: fungible, cfg: cfg, alerts: alertProducer, actions: actionProducer}
}

// Run loops forever, never returning under normal operation.
func (w *L2) Run(ctx context.Context) error {
	for {
		w.alerts.Emit("Watching fuel chain.", alerts.LevelInfo)
		for i := 0; i < L2LogSkip; i++ {
			var latestBlock *uint64
			w.checkConnection(ctx)
			w.checkBlockProduction(ctx)
			w.checkPortalWithdrawals(ctx, &latestBlock)
			w.checkGatewayWithdrawals(ctx, &latestBlock)
			w.metrics.MarkL2Poll()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(L2PollInterval):
			}
		}
	}
}

func (w *L2) report(rule config.AlertRule, format string, args ...any) {
	if rule.AlertLevel == alerts.LevelNone {
		return
	}
	w.alerts.Emit(fmt.Sprintf(format, args...), rule.AlertLevel)
	w.actions.Submit(rule.AlertAction, rule.AlertLevel)
}

func (w *L2) checkConnection(ctx context.Context) {
	rule := w.cfg.ConnectionAlert
	if rule.AlertLevel == alerts.LevelNone {
		return
	}
	err := w.chain.CheckConnection(ctx)
	w.status.SetL2Connected(err == nil)
	if err != nil {
		w.report(rule, "Failed to check fuel connection: %s", err)
	}
}

func (w *L2) checkBlockProduction(ctx context.Context) {
	rule := w.cfg.BlockProductionAlert
	if rule.AlertLevel == alerts.LevelNone {
		return
	}
	seconds, err := w.chain.SecondsSinceLastBlock(ctx)
	if err != nil {
		w.report(w.cfg.ConnectionAlert, "Failed to check fuel block production: %s", err)
		return
	}
	w.metrics.SetL2SecondsSinceLastBlock(float64(seconds))
	if seconds > rule.MaxBlockTime {
		w.report(rule.AlertRule, "Next fuel block is taking longer than %d seconds. Last block was %d seconds ago.", rule.MaxBlockTime, seconds)
	}
}

// lazyLatestBlock fetches the latest L2 block number at most once per
// inner iteration, regardless of how many rules end up needing it.
func (w *L2) lazyLatestBlock(ctx context.Context, cache **uint64, rule config.AlertRule, failMsg string) (uint64, bool) {
	if *cache != nil {
		return **cache, true
	}
	num, err := w.chain.LatestBlockNumber(ctx)
	if err != nil {
		w.report(rule, failMsg, err)
		return 0, false
	}
	*cache = &num
	w.status.SetL2Block(num)
	return num, true
}

func (w *L2) checkPortalWithdrawals(ctx context.Context, latestBlock **uint64) {
	for _, rule := range w.cfg.PortalWithdrawAlerts {
		if rule.AlertLevel == alerts.LevelNone {
			continue
		}
		if _, ok := w.lazyLatestBlock(ctx, latestBlock, rule.AlertRule, "Failed to check base asset withdrawals: %s"); !ok {
			continue
		}
		amount, err := w.chain.BaseAssetAmountWithdrawn(ctx, rule.TimeFrame)
		if err != nil {
			w.report(rule.AlertRule, "Failed to check base asset withdrawals: %s", err)
			continue
		}
		threshold := l1.Scale(rule.Amount, 9)
		if amount >= threshold.Uint64() {
			w.report(rule.AlertRule, "Base asset withdraw threshold of %d over %d seconds has been reached. Amount withdrawn: %d", threshold.Uint64(), rule.TimeFrame, amount)
		}
	}
}

func (w *L2) checkGatewayWithdrawals(ctx context.Context, latestBlock **uint64) {
	for _, rule := range w.cfg.GatewayWithdrawAlerts {
		if rule.AlertLevel == alerts.LevelNone {
			continue
		}
		if _, ok := w.lazyLatestBlock(ctx, latestBlock, rule.AlertRule, "Failed to check base asset withdrawals: %s"); !ok {
			continue
		}
		amount, err := w.fungible.AmountWithdrawn(ctx, rule.TimeFrame, rule.TokenAddress)
		if err != nil {
			w.report(rule.AlertRule, "Failed to check ERC20 withdrawals: %s", err)
			continue
		}
		threshold := l1.Scale(rule.Amount, rule.TokenDecimals)
		if amount.Cmp(threshold) >= 0 {
			w.report(rule.AlertRule, "ERC20 withdraw threshold of %s%s over %d seconds has been reached. Amount withdrawn: %s%s", threshold.String(), rule.TokenName, rule.TimeFrame, amount.String(), rule.TokenName)
		}
	}
}
