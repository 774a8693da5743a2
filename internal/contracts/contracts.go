// Package contracts adapts the L1 bridge contracts (state, gateway,
// portal) and the L2 fungible token contract to the watcher and action
// packages. Every L1 adapter shares one construction template: sign with
// the configured wallet key, or fall back to a well-known throwaway key
// that marks the adapter read-only; probe the contract by calling
// paused(); fail construction if the probe fails.
package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/fuel-canary-watchtower/watchtower/internal/chain/l1"
	"github.com/fuel-canary-watchtower/watchtower/internal/contracts/binding"
)

// ReadOnlyKey is the well-known throwaway private key used when no real
// Ethereum wallet key is configured. It never holds funds; its only
// purpose is to let every adapter build a valid *bind.TransactOpts even in
// read-only mode, so every adapter is constructed the same way; in that
// mode pause() returns an error before building or sending any transaction.
const ReadOnlyKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// signer bundles together the parts shared by every L1 adapter.
type signer struct {
	client   *l1.Client
	opts     *bind.TransactOpts
	readOnly bool
}

func newSigner(ctx context.Context, client *l1.Client, walletKey string) (*signer, error) {
	readOnly := walletKey == ""
	keyStr := walletKey
	if readOnly {
		keyStr = ReadOnlyKey
	}

	key, err := crypto.HexToECDSA(trim0x(keyStr))
	if err != nil {
		return nil, fmt.Errorf("invalid ethereum wallet key: %w", err)
	}
	chainID, err := client.Raw().ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("invalid ethereum wallet key: %w", err)
	}

	return &signer{client: client, opts: opts, readOnly: readOnly}, nil
}

func (s *signer) pause(ctx context.Context, name string, p *binding.Pausable) error {
	if s.readOnly {
		return fmt.Errorf("Ethereum account not configured.")
	}
	if _, err := p.Pause(ctx, s.opts); err != nil {
		return fmt.Errorf("failed to pause %s contract: %w", name, err)
	}
	return nil
}

func trim0x(s string) string {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func probe(ctx context.Context, name string, p *binding.Pausable) error {
	if _, err := p.Paused(ctx); err != nil {
		return fmt.Errorf("Invalid %s contract.", name)
	}
	return nil
}

func sumLogWords(logs []types.Log, lo, hi int) *uint256.Int {
	total := uint256.NewInt(0)
	for _, lg := range logs {
		if len(lg.Data) < hi {
			continue
		}
		word := new(big.Int).SetBytes(lg.Data[lo:hi])
		v, overflow := uint256.FromBig(word)
		if overflow {
			continue
		}
		total = total.Add(total, v)
	}
	return total
}

// startBlock mirrors every adapter's max(latest, offset) - offset window
// computation, floored at block zero rather than underflowing.
func startBlock(latest, offset uint64) uint64 {
	base := latest
	if offset > base {
		base = offset
	}
	return base - offset
}

func blockOffset(timeFrameSeconds uint32, blockTime uint64) uint64 {
	return uint64(timeFrameSeconds) / blockTime
}

func filterLogs(ctx context.Context, client *l1.Client, address common.Address, topic0 common.Hash, topic2 *common.Hash, fromBlock uint64) ([]types.Log, error) {
	topics := [][]common.Hash{{topic0}}
	if topic2 != nil {
		topics = append(topics, nil, []common.Hash{*topic2})
	}
	query := ethereum.FilterQuery{
		Addresses: []common.Address{address},
		Topics:    topics,
		FromBlock: new(big.Int).SetUint64(fromBlock),
	}
	return client.GetLogs(ctx, query)
}
