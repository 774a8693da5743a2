package contracts

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fuel-canary-watchtower/watchtower/internal/chain/l1"
	"github.com/fuel-canary-watchtower/watchtower/internal/contracts/binding"
)

var commitSubmittedTopic = binding.EventTopic("CommitSubmitted(uint256,bytes32)")

// StateContract adapts the L1 state/consensus commitment contract - a
// single adapter, since there is exactly one state contract address to
// configure and nothing distinguishes a separate "consensus" binding from
// it.
type StateContract struct {
	client  *l1.Client
	signer  *signer
	address common.Address
	bound   *binding.Pausable
}

// NewStateContract binds address on client, probing it with paused().
func NewStateContract(ctx context.Context, client *l1.Client, walletKey string, address common.Address) (*StateContract, error) {
	s, err := newSigner(ctx, client, walletKey)
	if err != nil {
		return nil, err
	}
	bound := binding.NewPausable(address, client.Raw())
	if err := probe(ctx, "state", bound); err != nil {
		return nil, err
	}
	return &StateContract{client: client, signer: s, address: address, bound: bound}, nil
}

// LatestCommits returns the block hashes committed since fromBlock, read
// from CommitSubmitted(uint256 commitHeight, bytes32 blockHash) logs. The
// height is indexed; the hash is the sole data word.
func (s *StateContract) LatestCommits(ctx context.Context, fromBlock uint64) ([]common.Hash, error) {
	logs, err := filterLogs(ctx, s.client, s.address, commitSubmittedTopic, nil, fromBlock)
	if err != nil {
		return nil, err
	}
	hashes := make([]common.Hash, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Data) < 32 {
			continue
		}
		hashes = append(hashes, common.BytesToHash(lg.Data[0:32]))
	}
	return hashes, nil
}

// Pause submits pause() against the state contract.
func (s *StateContract) Pause(ctx context.Context) error {
	return s.signer.pause(ctx, "state", s.bound)
}
