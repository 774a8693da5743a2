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
	depositTopic    = binding.EventTopic("Deposit(bytes32,address,bytes32,uint256)")
	withdrawalTopic = binding.EventTopic("Withdrawal(bytes32,address,bytes32,uint256)")
)

// GatewayContract adapts the L1 ERC20 gateway bridge contract.
type GatewayContract struct {
	client  *l1.Client
	signer  *signer
	address common.Address
	bound   *binding.Pausable
}

// NewGatewayContract binds address on client, probing it with paused().
func NewGatewayContract(ctx context.Context, client *l1.Client, walletKey string, address common.Address) (*GatewayContract, error) {
	s, err := newSigner(ctx, client, walletKey)
	if err != nil {
		return nil, err
	}
	bound := binding.NewPausable(address, client.Raw())
	if err := probe(ctx, "gateway", bound); err != nil {
		return nil, err
	}
	return &GatewayContract{client: client, signer: s, address: address, bound: bound}, nil
}

// AmountDeposited sums Deposit(bytes32,address indexed tokenId,bytes32,uint256)
// logs for token over the trailing timeFrame seconds, ending at
// latestBlock. The amount is the second data word, bytes [32:64).
func (g *GatewayContract) AmountDeposited(ctx context.Context, timeFrame uint32, token common.Address, latestBlock uint64) (*uint256.Int, error) {
	return g.sumTokenLogs(ctx, depositTopic, timeFrame, token, latestBlock)
}

// AmountWithdrawn sums Withdrawal logs the same way AmountDeposited sums
// Deposit logs.
func (g *GatewayContract) AmountWithdrawn(ctx context.Context, timeFrame uint32, token common.Address, latestBlock uint64) (*uint256.Int, error) {
	return g.sumTokenLogs(ctx, withdrawalTopic, timeFrame, token, latestBlock)
}

func (g *GatewayContract) sumTokenLogs(ctx context.Context, topic0 common.Hash, timeFrame uint32, token common.Address, latestBlock uint64) (*uint256.Int, error) {
	from := startBlock(latestBlock, blockOffset(timeFrame, l1.BlockTime))
	tokenTopic := common.BytesToHash(token.Bytes())
	logs, err := filterLogs(ctx, g.client, g.address, topic0, &tokenTopic, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query gateway logs: %w", err)
	}
	return sumLogWords(logs, 32, 64), nil
}

// Pause submits pause() against the gateway contract.
func (g *GatewayContract) Pause(ctx context.Context) error {
	return g.signer.pause(ctx, "gateway", g.bound)
}
