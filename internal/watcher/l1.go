// Package watcher implements the two polling loops: L1 against the
// Ethereum-compatible chain, L2 against Fuel. Both share the same shape
// (heartbeat, fixed inner iteration count, per-rule evaluation, sleep) but
// different rule sets and timing constants, matching the original Rust
// ethereum_watcher/fuel_watcher modules.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fuel-canary-watchtower/watchtower/config"
	"github.com/fuel-canary-watchtower/watchtower/internal/actions"
	"github.com/fuel-canary-watchtower/watchtower/internal/alerts"
	"github.com/fuel-canary-watchtower/watchtower/internal/chain/l1"
	"github.com/fuel-canary-watchtower/watchtower/internal/metrics"
	"github.com/fuel-canary-watchtower/watchtower/internal/status"
)

// L1PollInterval is the sleep between inner iterations of the L1 loop.
const L1PollInterval = 6 * time.Second

// L1LogSkip is the number of inner iterations between heartbeat log lines.
const L1LogSkip = 50

// CommitCheckStartingOffset is how far back (in seconds) the L1 watcher
// seeds its commit-check window on startup: 24 hours.
const CommitCheckStartingOffset = 24 * 60 * 60

// EthereumChain is the subset of internal/chain/l1.Client the L1 watcher
// needs. Watchers depend on this interface, not the concrete client, so
// tests can stub chain behavior without a live RPC endpoint.
type EthereumChain interface {
	CheckConnection(ctx context.Context) error
	LatestBlockNumber(ctx context.Context) (uint64, error)
	SecondsSinceLastBlock(ctx context.Context) (uint32, error)
	AccountBalance(ctx context.Context, addr common.Address) (*uint256.Int, error)
}

// CommitVerifier is the subset of internal/chain/l2.Client the L1 watcher
// needs to validate L1 state commits against L2.
type CommitVerifier interface {
	VerifyBlockCommit(ctx context.Context, blockHash string) (bool, error)
}

// StateReader is the subset of internal/contracts.StateContract the L1
// watcher needs.
type StateReader interface {
	LatestCommits(ctx context.Context, fromBlock uint64) ([]common.Hash, error)
}

// GatewayReader is the subset of internal/contracts.GatewayContract the L1
// watcher needs.
type GatewayReader interface {
	AmountDeposited(ctx context.Context, timeFrame uint32, token common.Address, latestBlock uint64) (*uint256.Int, error)
}

// PortalReader is the subset of internal/contracts.PortalContract the L1
// watcher needs.
type PortalReader interface {
	AmountDeposited(ctx context.Context, timeFrame uint32, latestBlock uint64) (*uint256.Int, error)
}

// L1 runs the Ethereum-side polling loop: connection, block production,
// account funds, state-commit validity, and deposit-threshold checks.
type L1 struct {
	chain   EthereumChain
	fuel    CommitVerifier
	state   StateReader
	gateway GatewayReader
	portal  PortalReader
	cfg     config.EthereumClientWatcher
	account *common.Address
	alerts  *alerts.Producer
	actions *actions.Producer
	status  *status.Tracker
	metrics *metrics.Registry

	lastCommitCheckBlock uint64
}

// WithStatus attaches a status.Tracker the watcher updates as it runs. A nil
// or omitted tracker is a valid no-op - tests and minimal callers need not
// set one.
func (w *L1) WithStatus(t *status.Tracker) *L1 {
	w.status = t
	return w
}

// WithMetrics attaches a metrics.Registry the watcher reports staleness and
// poll-timestamp gauges into. A nil or omitted registry is a valid no-op.
func (w *L1) WithMetrics(r *metrics.Registry) *L1 {
	w.metrics = r
	return w
}

// NewL1 builds the L1 watcher. account is nil when no wallet key is
// configured, disabling the account-funds rule regardless of its level.
func NewL1(
	chain EthereumChain,
	fuel CommitVerifier,
	state StateReader,
	gateway GatewayReader,
	portal PortalReader,
	cfg config.EthereumClientWatcher,
	account *common.Address,
	alertProducer *alerts.Producer,
	actionProducer *actions.Producer,
) (*L1, error) {
	ctx := context.Background()
	latest, err := chain.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed commit check block: %w", err)
	}
	offset := uint64(CommitCheckStartingOffset) / l1.BlockTime
	seed := latest
	if offset > seed {
		seed = offset
	}
	seed -= offset

	return &L1{
		chain: chain, fuel: fuel, state: state, gateway: gateway, portal: portal,
		cfg: cfg, account: account, alerts: alertProducer, actions: actionProducer,
		lastCommitCheckBlock: seed,
	}, nil
}

// Run loops forever, never returning under normal operation.
func (w *L1) Run(ctx context.Context) error {
	for {
		w.alerts.Emit("Watching ethereum chain.", alerts.LevelInfo)
		for i := 0; i < L1LogSkip; i++ {
			w.checkConnection(ctx)
			w.checkBlockProduction(ctx)
			w.checkAccountFunds(ctx)
			w.checkInvalidCommits(ctx)
			w.checkPortalDeposits(ctx)
			w.checkGatewayDeposits(ctx)
			w.metrics.MarkL1Poll()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(L1PollInterval):
			}
		}
	}
}

func (w *L1) report(rule config.AlertRule, format string, args ...any) {
	if rule.AlertLevel == alerts.LevelNone {
		return
	}
	w.alerts.Emit(fmt.Sprintf(format, args...), rule.AlertLevel)
	w.actions.Submit(rule.AlertAction, rule.AlertLevel)
}

func (w *L1) checkConnection(ctx context.Context) {
	rule := w.cfg.ConnectionAlert
	if rule.AlertLevel == alerts.LevelNone {
		return
	}
	err := w.chain.CheckConnection(ctx)
	w.status.SetL1Connected(err == nil)
	if err != nil {
		w.report(rule, "Failed to check ethereum connection: %s", err)
	}
}

func (w *L1) checkBlockProduction(ctx context.Context) {
	rule := w.cfg.BlockProductionAlert
	if rule.AlertLevel == alerts.LevelNone {
		return
	}
	seconds, err := w.chain.SecondsSinceLastBlock(ctx)
	if err != nil {
		// Re-use the connection rule's level: a single mis-tuned RPC
		// should not spam high-severity alerts from unrelated rules.
		w.report(w.cfg.ConnectionAlert, "Failed to check ethereum block production: %s", err)
		return
	}
	w.metrics.SetL1SecondsSinceLastBlock(float64(seconds))
	if seconds > rule.MaxBlockTime {
		w.report(rule.AlertRule, "Next ethereum block is taking longer than %d seconds. Last block was %d seconds ago.", rule.MaxBlockTime, seconds)
	}
}

func (w *L1) checkAccountFunds(ctx context.Context) {
	rule := w.cfg.AccountFundsAlert
	if w.account == nil || rule.AlertLevel == alerts.LevelNone {
		return
	}
	balance, err := w.chain.AccountBalance(ctx, *w.account)
	if err != nil {
		w.report(rule.AlertRule, "Failed to check ethereum account funds: %s", err)
		return
	}
	minBalance := l1.Scale(rule.MinBalance, 18)
	if balance.Lt(minBalance) {
		w.report(rule.AlertRule, "Ethereum account (%s) is low on funds. Current balance: %s", w.account.Hex(), balance.String())
	}
}

func (w *L1) checkInvalidCommits(ctx context.Context) {
	rule := w.cfg.InvalidStateCommitAlert
	if rule.AlertLevel == alerts.LevelNone {
		return
	}
	hashes, err := w.state.LatestCommits(ctx, w.lastCommitCheckBlock)
	if err != nil {
		w.report(rule, "Failed to check state contract commits: %s", err)
	} else {
		for _, hash := range hashes {
			valid, err := w.fuel.VerifyBlockCommit(ctx, hash.Hex())
			if err != nil {
				w.report(rule, "Failed to check state contract commits: %s", err)
				continue
			}
			if !valid {
				w.report(rule, "An invalid commit was made on the state contract. Hash: %s", hash.Hex())
			}
		}
	}

	// Advance the watermark to the current head only when the head can be
	// fetched; on error the previous watermark is kept. The watermark
	// advances even when the commit query above failed.
	if latest, err := w.chain.LatestBlockNumber(ctx); err == nil {
		w.lastCommitCheckBlock = latest
		w.status.SetL1Block(latest)
	}
	w.status.SetCommitCheckBlock(w.lastCommitCheckBlock)
}

func (w *L1) checkPortalDeposits(ctx context.Context) {
	for _, rule := range w.cfg.PortalDepositAlerts {
		if rule.AlertLevel == alerts.LevelNone {
			continue
		}
		amount, err := w.portal.AmountDeposited(ctx, rule.TimeFrame, w.lastCommitCheckBlock)
		if err != nil {
			w.report(rule.AlertRule, "Failed to check base asset deposits: %s", err)
			continue
		}
		threshold := l1.Scale(rule.Amount, 18)
		if amount.Cmp(threshold) >= 0 {
			w.report(rule.AlertRule, "Base asset deposit threshold of %s over %d seconds has been reached. Amount deposited: %s", threshold.String(), rule.TimeFrame, amount.String())
		}
	}
}

func (w *L1) checkGatewayDeposits(ctx context.Context) {
	for _, rule := range w.cfg.GatewayDepositAlerts {
		if rule.AlertLevel == alerts.LevelNone {
			continue
		}
		token := common.HexToAddress(rule.TokenAddress)
		amount, err := w.gateway.AmountDeposited(ctx, rule.TimeFrame, token, w.lastCommitCheckBlock)
		if err != nil {
			w.report(rule.AlertRule, "Failed to check ERC20 deposits: %s", err)
			continue
		}
		threshold := l1.Scale(rule.Amount, rule.TokenDecimals)
		if amount.Cmp(threshold) >= 0 {
			w.report(rule.AlertRule, "ERC20 deposit threshold of %s%s over %d seconds has been reached. Amount deposited: %s%s", threshold.String(), rule.TokenName, rule.TimeFrame, amount.String(), rule.TokenName)
		}
	}
}
