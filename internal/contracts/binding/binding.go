// Package binding provides the minimal abigen-shaped contract bindings the
// watchtower needs: every bridge contract's "paused()" and "pause()"
// methods, nothing else. Real abigen output is much larger; hand-writing
// just these two methods against the same accounts/abi/bind primitives
// abigen itself targets keeps the watchtower's contract surface honest
// about how little of each contract it actually touches - event log scans
// go straight through the chain client's FilterLogs, exactly as the
// original Rust adapters do.
package binding

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const pausableABIJSON = `[
	{"constant":true,"inputs":[],"name":"paused","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[],"name":"pause","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var pausableABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(pausableABIJSON))
	if err != nil {
		panic(err)
	}
	pausableABI = parsed
}

// Pausable wraps the paused()/pause() pair shared by every bridge contract
// the watchtower can act on.
type Pausable struct {
	contract *bind.BoundContract
	address  common.Address
}

// NewPausable binds address against backend using the shared pausable ABI.
func NewPausable(address common.Address, backend bind.ContractBackend) *Pausable {
	return &Pausable{
		contract: bind.NewBoundContract(address, pausableABI, backend, backend, backend),
		address:  address,
	}
}

// Address returns the bound contract address.
func (p *Pausable) Address() common.Address { return p.address }

// Paused calls the read-only paused() accessor.
func (p *Pausable) Paused(ctx context.Context) (bool, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := p.contract.Call(opts, &out, "paused"); err != nil {
		return false, err
	}
	if len(out) == 0 {
		return false, nil
	}
	paused, _ := out[0].(bool)
	return paused, nil
}

// Pause submits the pause() state-changing call using signer as both the
// transaction signer and nonce/gas source.
func (p *Pausable) Pause(ctx context.Context, signer *bind.TransactOpts) (*types.Transaction, error) {
	opts := *signer
	opts.Context = ctx
	return p.contract.Transact(&opts, "pause")
}

// EventTopic returns the keccak256 topic0 for a Solidity event signature,
// e.g. "CommitSubmitted(uint256,bytes32)" - the same string form the
// original adapters pass to their provider's .event(...) filter builder.
func EventTopic(signature string) common.Hash {
	return crypto.Keccak256Hash([]byte(signature))
}

// BigFromLogWord reads a big-endian uint256 from a 32-byte log data word.
func BigFromLogWord(word []byte) *big.Int {
	return new(big.Int).SetBytes(word)
}
