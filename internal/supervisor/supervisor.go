// Package supervisor wires the alert bus, action executor, and the two
// watcher loops together and runs them to completion (which, absent a
// fatal error, is never).
package supervisor

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/fuel-canary-watchtower/watchtower/config"
	"github.com/fuel-canary-watchtower/watchtower/internal/actions"
	"github.com/fuel-canary-watchtower/watchtower/internal/alerts"
	"github.com/fuel-canary-watchtower/watchtower/internal/chain/l1"
	"github.com/fuel-canary-watchtower/watchtower/internal/chain/l2"
	"github.com/fuel-canary-watchtower/watchtower/internal/contracts"
	"github.com/fuel-canary-watchtower/watchtower/internal/metrics"
	"github.com/fuel-canary-watchtower/watchtower/internal/status"
	"github.com/fuel-canary-watchtower/watchtower/internal/watcher"
)

// Supervisor owns the long-lived pieces of the running watchtower.
type Supervisor struct {
	Alerts  *alerts.Bus
	Actions *actions.Executor
	Status  *status.Tracker
	L1      *watcher.L1
	L2      *watcher.L2
}

// New constructs the alert bus, action executor, and both watcher loops in
// that order, returning a contextualized error from whichever step fails
// first. reg may be nil, in which case no metric is ever recorded.
func New(ctx context.Context, cfg *config.Config, reg *metrics.Registry) (*Supervisor, error) {
	forward := func(p alerts.Params) error {
		reg.ObserveAlert(p.Level)
		return nil
	}
	bus := alerts.New(alerts.WithForward(forward))

	l1Client, err := l1.Dial(ctx, cfg.EthereumRPC)
	if err != nil {
		return nil, fmt.Errorf("failed to start ethereum watcher: %w", err)
	}
	l2Client, err := l2.Dial(ctx, cfg.FuelGraphQL)
	if err != nil {
		return nil, fmt.Errorf("failed to start ethereum watcher: %w", err)
	}

	stateContract, err := contracts.NewStateContract(ctx, l1Client, cfg.EthereumWalletKey, common.HexToAddress(cfg.StateContractAddress))
	if err != nil {
		return nil, fmt.Errorf("failed to start ethereum watcher: %w", err)
	}
	gatewayContract, err := contracts.NewGatewayContract(ctx, l1Client, cfg.EthereumWalletKey, common.HexToAddress(cfg.GatewayContractAddress))
	if err != nil {
		return nil, fmt.Errorf("failed to start ethereum watcher: %w", err)
	}
	portalContract, err := contracts.NewPortalContract(ctx, l1Client, cfg.EthereumWalletKey, common.HexToAddress(cfg.PortalContractAddress))
	if err != nil {
		return nil, fmt.Errorf("failed to start ethereum watcher: %w", err)
	}

	// The Action Executor owns the only signing instances of the three L1
	// contract adapters; watcher loops read through the same three
	// instances because construction (and its paused() probe) is
	// expensive to repeat.
	executor := actions.New(stateContract, gatewayContract, portalContract, bus.NewProducer(), actions.WithObserve(reg.ObserveAction))

	var account *common.Address
	if cfg.EthereumWalletKey != "" {
		addr, err := l1.PublicAddress(cfg.EthereumWalletKey)
		if err != nil {
			return nil, fmt.Errorf("failed to start ethereum watcher: %w", err)
		}
		account = &addr
	}

	tracker := status.New()

	l1Watcher, err := watcher.NewL1(l1Client, l2Client, stateContract, gatewayContract, portalContract, cfg.EthereumClientWatcher, account, bus.NewProducer(), executor.NewProducer())
	if err != nil {
		return nil, fmt.Errorf("failed to start ethereum watcher: %w", err)
	}
	l1Watcher.WithStatus(tracker).WithMetrics(reg)

	fungibleToken := contracts.NewFungibleTokenContract(l2Client)
	l2Watcher := watcher.NewL2(l2Client, fungibleToken, cfg.FuelClientWatcher, bus.NewProducer(), executor.NewProducer())
	l2Watcher.WithStatus(tracker).WithMetrics(reg)

	return &Supervisor{Alerts: bus, Actions: executor, Status: tracker, L1: l1Watcher, L2: l2Watcher}, nil
}

// Run awaits both watcher loops. If either terminates, an Error alert is
// emitted and a fatal error is returned; neither loop is expected to
// return under normal operation.
func (s *Supervisor) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.L1.Run(ctx) })
	group.Go(func() error { return s.L2.Run(ctx) })

	err := group.Wait()
	if err != nil {
		producer := s.Alerts.NewProducer()
		producer.Emit(fmt.Sprintf("Watchtower loop terminated unexpectedly: %s", err), alerts.LevelError)
		producer.Close()
	}
	return err
}
