// Package l1 wraps the L1 (Ethereum-compatible) JSON-RPC endpoint: chain
// id, latest block, block timestamps, balances, and log queries, each
// retried a bounded number of times with no backoff delay.
package l1

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
)

// Retries is the number of additional attempts made after an RPC
// operation's first failure, before it surfaces a string-formatted error.
// No delay is inserted between attempts.
const Retries = 2

// BlockTime is the expected L1 block interval, used to translate a time
// window into a block-count offset for log queries.
const BlockTime = 12 // seconds

// Client wraps ethclient.Client with the watchtower's retry and decimal
// scaling conventions.
type Client struct {
	eth *ethclient.Client
}

// Dial connects to rpcURL and verifies it immediately by fetching the
// chain id, rather than deferring the first failure to whatever call
// happens to run first.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ethereum RPC: %w", err)
	}
	if _, err := eth.ChainID(ctx); err != nil {
		return nil, fmt.Errorf("invalid ethereum RPC: %w", err)
	}
	return &Client{eth: eth}, nil
}

// Raw exposes the underlying ethclient.Client for contract adapters that
// need to bind against it directly.
func (c *Client) Raw() *ethclient.Client { return c.eth }

func retry[T any](fn func() (T, error)) (T, error) {
	var (
		val T
		err error
	)
	for i := 0; i <= Retries; i++ {
		val, err = fn()
		if err == nil {
			return val, nil
		}
	}
	var zero T
	return zero, err
}

// CheckConnection verifies the RPC endpoint is reachable.
func (c *Client) CheckConnection(ctx context.Context) error {
	_, err := retry(func() (*big.Int, error) {
		return c.eth.ChainID(ctx)
	})
	return err
}

// LatestBlockNumber returns the current chain head height.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return retry(func() (uint64, error) {
		return c.eth.BlockNumber(ctx)
	})
}

// SecondsSinceLastBlock returns how long ago the latest block landed. It
// returns 0, rather than a negative value, when the header timestamp is
// ahead of wall-clock (clock skew) - this is treated as healthy, not as an
// alertable condition.
func (c *Client) SecondsSinceLastBlock(ctx context.Context) (uint32, error) {
	num, err := c.LatestBlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	header, err := retry(func() (*types.Header, error) {
		return c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(num))
	})
	if err != nil {
		return 0, err
	}
	now := time.Now().Unix()
	blockTime := int64(header.Time)
	if now < blockTime {
		return 0, nil
	}
	return uint32(now - blockTime), nil
}

// AccountBalance returns the wei balance of addr.
func (c *Client) AccountBalance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	balance, err := retry(func() (*big.Int, error) {
		return c.eth.BalanceAt(ctx, addr, nil)
	})
	if err != nil {
		return nil, err
	}
	v, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, fmt.Errorf("balance overflows 256 bits")
	}
	return v, nil
}

// GetLogs retrieves logs matching query, retrying transient RPC errors.
func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return retry(func() ([]types.Log, error) {
		return c.eth.FilterLogs(ctx, query)
	})
}

// PublicAddress derives the checksummed address for a hex-encoded ECDSA
// private key, the same operation the Rust source's
// EthereumChain::get_public_address performs for the configured wallet key.
func PublicAddress(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(trim0x(hexKey))
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func trim0x(s string) string {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Scale converts a decimal float, expressed to at most 9 fractional
// digits, into its exact base-unit integer representation with the given
// number of on-chain decimals. float64 loses precision past ~15 significant
// digits, so the exponent is split into two multiplications
// (min(decimals, decimals-9) and the remainder) applied in sequence: the
// first on the float (where the precision loss is bounded because the
// input itself has at most 9 fractional digits), the second as an exact
// integer multiplication.
func Scale(value float64, decimals uint8) *uint256.Int {
	decimalsP1 := decimals
	if decimals >= 9 {
		decimalsP1 = decimals - 9
	}
	decimalsP2 := decimals - decimalsP1

	scaled := value * pow10(decimalsP1)
	result := uint256.NewInt(uint64(math.Round(scaled)))
	result = result.Mul(result, uint256.NewInt(pow10Uint(decimalsP2)))
	return result
}

func pow10(n uint8) float64 {
	r := 1.0
	for i := uint8(0); i < n; i++ {
		r *= 10
	}
	return r
}

func pow10Uint(n uint8) uint64 {
	r := uint64(1)
	for i := uint8(0); i < n; i++ {
		r *= 10
	}
	return r
}
