package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuel-canary-watchtower/watchtower/internal/actions"
	"github.com/fuel-canary-watchtower/watchtower/internal/alerts"
)

const sampleConfig = `{
	"ethereum_rpc": "https://example.invalid/rpc",
	"fuel_graphql": "https://example.invalid/graphql",
	"state_contract_address": "0x1111111111111111111111111111111111111111",
	"gateway_contract_address": "0x2222222222222222222222222222222222222222",
	"portal_contract_address": "0x3333333333333333333333333333333333333333",
	"ethereum_client_watcher": {
		"connection_alert": {"alert_level": "Error", "alert_action": "None"},
		"block_production_alert": {"alert_level": "Warn", "alert_action": "None", "max_block_time": 120},
		"account_funds_alert": {"alert_level": "Warn", "alert_action": "None", "min_balance": 0.5},
		"invalid_state_commit_alert": {"alert_level": "Error", "alert_action": "PauseAll"},
		"portal_deposit_alerts": [
			{"alert_level": "Warn", "alert_action": "PausePortal", "amount": 100.0, "time_frame": 3600}
		],
		"gateway_deposit_alerts": [
			{"alert_level": "Warn", "alert_action": "PauseGateway", "amount": 100.0, "time_frame": 3600, "token_address": "0x4444444444444444444444444444444444444444", "token_decimals": 6, "token_name": "USDC"}
		]
	},
	"fuel_client_watcher": {
		"connection_alert": {"alert_level": "Error", "alert_action": "None"},
		"block_production_alert": {"alert_level": "Warn", "alert_action": "None", "max_block_time": 60},
		"portal_withdraw_alerts": [],
		"gateway_withdraw_alerts": []
	}
}`

func TestLoadParsesFullSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watchtower_config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://example.invalid/rpc", cfg.EthereumRPC)
	require.Equal(t, alerts.LevelError, cfg.EthereumClientWatcher.ConnectionAlert.AlertLevel)
	require.Equal(t, actions.ActionPauseAll, cfg.EthereumClientWatcher.InvalidStateCommitAlert.AlertAction)
	require.Equal(t, uint32(120), cfg.EthereumClientWatcher.BlockProductionAlert.MaxBlockTime)
	require.Len(t, cfg.EthereumClientWatcher.PortalDepositAlerts, 1)
	require.Equal(t, "USDC", cfg.EthereumClientWatcher.GatewayDepositAlerts[0].TokenName)
	require.Empty(t, cfg.FuelClientWatcher.PortalWithdrawAlerts)
}

func TestResolvePathDefaultsWhenNotJSON(t *testing.T) {
	require.Equal(t, DefaultPath, ResolvePath(""))
	require.Equal(t, DefaultPath, ResolvePath("notjson"))
	require.Equal(t, "custom.json", ResolvePath("custom.json"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
