package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fuel-canary-watchtower/watchtower/internal/chain/l1"
	"github.com/fuel-canary-watchtower/watchtower/internal/contracts/binding"
)

var (
	messageSentTopic    = binding.EventTopic("MessageSent(bytes32,bytes32,uint256,uint64,bytes)")
	messageRelayedTopic = binding.EventTopic("MessageRelayed(bytes32,bytes32,bytes32,uint64)")
)

// gweiToWei scales a portal contract's u64 gwei amount up to wei.
const gweiToWei = 1_000_000_000

// PortalContract adapts the L1 message portal bridge contract.
type PortalContract struct {
	client  *l1.Client
	signer  *signer
	address common.Address
	bound   *binding.Pausable
}

// NewPortalContract binds address on client, probing it with paused().
func NewPortalContract(ctx context.Context, client *l1.Client, walletKey string, address common.Address) (*PortalContract, error) {
	s, err := newSigner(ctx, client, walletKey)
	if err != nil {
		return nil, err
	}
	bound := binding.NewPausable(address, client.Raw())
	if err := probe(ctx, "portal", bound); err != nil {
		return nil, err
	}
	return &PortalContract{client: client, signer: s, address: address, bound: bound}, nil
}

// AmountDeposited sums MessageSent(...) amounts over the trailing
// timeFrame seconds ending at latestBlock. The amount is the first data
// word, bytes [0:32), and is a u64 gwei value that must be scaled to wei.
func (p *PortalContract) AmountDeposited(ctx context.Context, timeFrame uint32, latestBlock uint64) (*uint256.Int, error) {
	return p.sumMessageLogs(ctx, messageSentTopic, timeFrame, latestBlock)
}

// AmountWithdrawn sums MessageRelayed(...) amounts the same way
// AmountDeposited sums MessageSent amounts.
func (p *PortalContract) AmountWithdrawn(ctx context.Context, timeFrame uint32, latestBlock uint64) (*uint256.Int, error) {
	return p.sumMessageLogs(ctx, messageRelayedTopic, timeFrame, latestBlock)
}

func (p *PortalContract) sumMessageLogs(ctx context.Context, topic0 common.Hash, timeFrame uint32, latestBlock uint64) (*uint256.Int, error) {
	from := startBlock(latestBlock, blockOffset(timeFrame, l1.BlockTime))
	logs, err := filterLogs(ctx, p.client, p.address, topic0, nil, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query portal logs: %w", err)
	}
	total := sumLogWords(logs, 0, 32)
	return total.Mul(total, uint256.NewInt(gweiToWei)), nil
}

// Pause submits pause() against the portal contract.
func (p *PortalContract) Pause(ctx context.Context) error {
	return p.signer.pause(ctx, "portal", p.bound)
}
