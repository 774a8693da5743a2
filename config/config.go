// Package config loads the watchtower's JSON configuration file. There is
// no schema validation pass; this is a thin encoding/json decode into the
// typed schema the rest of the watchtower consumes.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fuel-canary-watchtower/watchtower/internal/actions"
	"github.com/fuel-canary-watchtower/watchtower/internal/alerts"
)

// DefaultPath is used when the CLI is invoked with no config argument, or
// with an argument not ending in ".json".
const DefaultPath = "watchtower_config.json"

// AlertRule is the shape shared by every "*_alert" entry in the schema:
// a severity and the action to take when the rule fires.
type AlertRule struct {
	AlertLevel  alerts.Level   `json:"alert_level"`
	AlertAction actions.Action `json:"alert_action"`
}

// BlockProductionAlert additionally bounds the acceptable gap since the
// last observed block.
type BlockProductionAlert struct {
	AlertRule
	MaxBlockTime uint32 `json:"max_block_time"`
}

// AccountFundsAlert fires when the configured wallet's balance drops below
// MinBalance ETH (18 decimals).
type AccountFundsAlert struct {
	AlertRule
	MinBalance float64 `json:"min_balance"`
}

// PortalAmountAlert covers both portal deposit and portal withdraw rules:
// a base-asset amount threshold over a trailing time window.
type PortalAmountAlert struct {
	AlertRule
	Amount    float64 `json:"amount"`
	TimeFrame uint32  `json:"time_frame"`
}

// GatewayAmountAlert covers both gateway deposit and gateway withdraw
// rules: an ERC20-denominated amount threshold over a trailing window.
type GatewayAmountAlert struct {
	AlertRule
	Amount        float64 `json:"amount"`
	TimeFrame     uint32  `json:"time_frame"`
	TokenAddress  string  `json:"token_address"`
	TokenDecimals uint8   `json:"token_decimals"`
	TokenName     string  `json:"token_name"`
}

// EthereumClientWatcher is the L1 watcher's policy configuration.
type EthereumClientWatcher struct {
	ConnectionAlert         AlertRule            `json:"connection_alert"`
	BlockProductionAlert    BlockProductionAlert `json:"block_production_alert"`
	AccountFundsAlert       AccountFundsAlert    `json:"account_funds_alert"`
	InvalidStateCommitAlert AlertRule            `json:"invalid_state_commit_alert"`
	PortalDepositAlerts     []PortalAmountAlert  `json:"portal_deposit_alerts"`
	GatewayDepositAlerts    []GatewayAmountAlert `json:"gateway_deposit_alerts"`
}

// FuelClientWatcher is the L2 watcher's policy configuration.
type FuelClientWatcher struct {
	ConnectionAlert      AlertRule            `json:"connection_alert"`
	BlockProductionAlert BlockProductionAlert `json:"block_production_alert"`
	PortalWithdrawAlerts []PortalAmountAlert  `json:"portal_withdraw_alerts"`
	GatewayWithdrawAlerts []GatewayAmountAlert `json:"gateway_withdraw_alerts"`
}

// Config is the watchtower's root configuration document.
type Config struct {
	EthereumRPC           string `json:"ethereum_rpc"`
	FuelGraphQL           string `json:"fuel_graphql"`
	EthereumWalletKey     string `json:"ethereum_wallet_key,omitempty"`
	StateContractAddress  string `json:"state_contract_address"`
	GatewayContractAddress string `json:"gateway_contract_address"`
	PortalContractAddress string `json:"portal_contract_address"`

	EthereumClientWatcher EthereumClientWatcher `json:"ethereum_client_watcher"`
	FuelClientWatcher     FuelClientWatcher     `json:"fuel_client_watcher"`
}

// Load reads and decodes the config document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return &cfg, nil
}

// ResolvePath treats arg as a config path only when it looks like one
// (ends in ".json"); otherwise it falls back to DefaultPath, so the CLI's
// optional positional argument can be omitted entirely.
func ResolvePath(arg string) string {
	if len(arg) > len(".json") && arg[len(arg)-len(".json"):] == ".json" {
		return arg
	}
	return DefaultPath
}
