// Command watchtower runs the cross-chain safety monitor: it polls the L1
// Ethereum-compatible chain and the Fuel L2 chain, evaluates the configured
// alert rules against each, and can pause the bridge contracts when a rule's
// action says to.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"

	"github.com/fuel-canary-watchtower/watchtower/config"
	"github.com/fuel-canary-watchtower/watchtower/internal/metrics"
	"github.com/fuel-canary-watchtower/watchtower/internal/statusapi"
	"github.com/fuel-canary-watchtower/watchtower/internal/supervisor"
	"github.com/fuel-canary-watchtower/watchtower/logging"
)

// loggingConfigPath, metricsAddr, and lockFilePath are fixed rather than
// flag-driven: the entry binary accepts only the one positional config
// argument spec.md §6 names, no flags, no subcommands, no env vars beyond
// those logging_config.yaml itself consumes.
const (
	loggingConfigPath = "logging_config.yaml"
	metricsAddr       = ":9090"
	lockFilePath      = "watchtower.lock"
)

func main() {
	app := &cli.App{
		Name:   "watchtower",
		Usage:  "cross-chain safety monitor for the Fuel bridge",
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	if err := logging.Setup(loggingConfigPath); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	configPath := config.ResolvePath(cliCtx.Args().First())

	lock := flock.New(lockFilePath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock file: %w", err)
	}
	if !locked {
		return fmt.Errorf("another watchtower instance already holds %s", lockFilePath)
	}
	defer lock.Unlock()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config %q: %w", configPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	sup, err := supervisor.New(ctx, cfg, reg)
	if err != nil {
		return err
	}

	printRuleTable(cfg)

	go reg.SampleProcess(ctx, 15*time.Second)
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.Handle("/status", statusapi.Handler(sup.Status))
	go func() {
		log.Info("Serving metrics and status API", "addr", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server stopped", "error", err)
		}
	}()

	return sup.Run(ctx)
}

func printRuleTable(cfg *config.Config) {
	useColor := isatty.IsTerminal(os.Stdout.Fd())
	bold := color.New(color.Bold).SprintFunc()
	if !useColor {
		bold = fmt.Sprint
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Chain", "Rule", "Level", "Action"})

	addEthereumRows(table, cfg)
	addFuelRows(table, cfg)

	fmt.Println(bold("Watchtower alert rules"))
	table.Render()
}

func addEthereumRows(table *tablewriter.Table, cfg *config.Config) {
	w := cfg.EthereumClientWatcher
	table.Append([]string{"ethereum", "connection", w.ConnectionAlert.AlertLevel.String(), w.ConnectionAlert.AlertAction.String()})
	table.Append([]string{"ethereum", "block production", w.BlockProductionAlert.AlertLevel.String(), w.BlockProductionAlert.AlertAction.String()})
	table.Append([]string{"ethereum", "account funds", w.AccountFundsAlert.AlertLevel.String(), w.AccountFundsAlert.AlertAction.String()})
	table.Append([]string{"ethereum", "invalid state commit", w.InvalidStateCommitAlert.AlertLevel.String(), w.InvalidStateCommitAlert.AlertAction.String()})
	for _, r := range w.PortalDepositAlerts {
		table.Append([]string{"ethereum", "portal deposit", r.AlertLevel.String(), r.AlertAction.String()})
	}
	for _, r := range w.GatewayDepositAlerts {
		table.Append([]string{"ethereum", fmt.Sprintf("gateway deposit (%s)", r.TokenName), r.AlertLevel.String(), r.AlertAction.String()})
	}
}

func addFuelRows(table *tablewriter.Table, cfg *config.Config) {
	w := cfg.FuelClientWatcher
	table.Append([]string{"fuel", "connection", w.ConnectionAlert.AlertLevel.String(), w.ConnectionAlert.AlertAction.String()})
	table.Append([]string{"fuel", "block production", w.BlockProductionAlert.AlertLevel.String(), w.BlockProductionAlert.AlertAction.String()})
	for _, r := range w.PortalWithdrawAlerts {
		table.Append([]string{"fuel", "portal withdraw", r.AlertLevel.String(), r.AlertAction.String()})
	}
	for _, r := range w.GatewayWithdrawAlerts {
		table.Append([]string{"fuel", fmt.Sprintf("gateway withdraw (%s)", r.TokenName), r.AlertLevel.String(), r.AlertAction.String()})
	}
}
