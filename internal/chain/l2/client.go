// Package l2 wraps the Fuel L2 GraphQL endpoint. No example repository in
// the retrieved pack imports a GraphQL *client* - every pack dependency on
// graph-gophers/graphql-go serves a schema, it never consumes one - so this
// is the one piece of the watchtower built directly on net/http +
// encoding/json rather than a pack-grounded third-party client (see
// DESIGN.md).
package l2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Retries is the number of additional attempts made after a GraphQL
// operation's first failure, before it surfaces an error.
const Retries = 2

// BlockTime is the expected L2 block interval, used to translate a time
// window into a block-count offset.
const BlockTime = 1 // second

// Client wraps a Fuel GraphQL endpoint.
type Client struct {
	url string
	hc  *http.Client
}

// Dial connects to graphqlURL and verifies it by fetching chain info, the
// same dial-then-probe shape internal/chain/l1.Dial uses for the L1 RPC.
func Dial(ctx context.Context, graphqlURL string) (*Client, error) {
	c := &Client{url: graphqlURL, hc: &http.Client{Timeout: 10 * time.Second}}
	if _, err := c.chainInfo(ctx); err != nil {
		return nil, fmt.Errorf("invalid fuel graphql endpoint: %w", err)
	}
	return c, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}

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

type chainInfoResponse struct {
	ChainInfo struct {
		LatestBlock struct {
			Header struct {
				Height string `json:"height"`
				Time   string `json:"time"`
			} `json:"header"`
		} `json:"latestBlock"`
	} `json:"chainInfo"`
}

const chainInfoQuery = `query { chainInfo { latestBlock { header { height time } } } }`

func (c *Client) chainInfo(ctx context.Context) (chainInfoResponse, error) {
	var resp chainInfoResponse
	err := c.do(ctx, chainInfoQuery, nil, &resp)
	return resp, err
}

// CheckConnection verifies the GraphQL endpoint is reachable.
func (c *Client) CheckConnection(ctx context.Context) error {
	_, err := retry(func() (chainInfoResponse, error) {
		return c.chainInfo(ctx)
	})
	return err
}

// LatestBlockNumber returns the current chain head height.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	resp, err := retry(func() (chainInfoResponse, error) {
		return c.chainInfo(ctx)
	})
	if err != nil {
		return 0, err
	}
	return parseTaiHeight(resp.ChainInfo.LatestBlock.Header.Height)
}

// SecondsSinceLastBlock returns how long ago the latest L2 block landed. L2
// is stricter than L1: a header timestamp ahead of wall-clock is treated as
// a corrupted endpoint and returned as an error, not clamped to zero.
func (c *Client) SecondsSinceLastBlock(ctx context.Context) (uint32, error) {
	resp, err := retry(func() (chainInfoResponse, error) {
		return c.chainInfo(ctx)
	})
	if err != nil {
		return 0, err
	}
	blockTime, err := parseFuelTime(resp.ChainInfo.LatestBlock.Header.Time)
	if err != nil {
		return 0, err
	}
	now := time.Now().Unix()
	if now < blockTime {
		return 0, fmt.Errorf("block time is ahead of current time")
	}
	return uint32(now - blockTime), nil
}

// Transaction is the subset of a Fuel transaction's receipts the
// watchtower needs to total bridge withdrawals.
type Transaction struct {
	ID       string
	Receipts []Receipt
}

// Receipt is a single Fuel transaction receipt entry relevant to bridge
// message/withdrawal accounting.
type Receipt struct {
	ReceiptType string `json:"receiptType"`
	Amount      string `json:"amount"`
	RecipientID string `json:"recipient"`
	AssetID     string `json:"assetId"`
}

type blocksResponse struct {
	Blocks struct {
		Nodes []struct {
			Transactions []struct {
				ID string `json:"id"`
			} `json:"transactions"`
		} `json:"nodes"`
	} `json:"blocks"`
}

const blocksQuery = `query($last: Int!) { blocks(last: $last) { nodes { transactions { id } } } }`

// GetBlocks returns the ids of every transaction in the last count blocks,
// newest first - the Go equivalent of the Rust client's
// get_blocks(count, PageDirection::Backward).
func (c *Client) GetBlocks(ctx context.Context, count uint64) ([]string, error) {
	resp, err := retry(func() (blocksResponse, error) {
		var r blocksResponse
		err := c.do(ctx, blocksQuery, map[string]any{"last": count}, &r)
		return r, err
	})
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, block := range resp.Blocks.Nodes {
		for _, tx := range block.Transactions {
			ids = append(ids, tx.ID)
		}
	}
	return ids, nil
}

type transactionResponse struct {
	Transaction *struct {
		ID       string `json:"id"`
		Receipts []struct {
			ReceiptType string `json:"receiptType"`
			Amount      string `json:"amount"`
			Recipient   string `json:"recipient"`
			AssetID     string `json:"assetId"`
		} `json:"receipts"`
	} `json:"transaction"`
}

const transactionQuery = `query($id: TransactionId!) { transaction(id: $id) { id receipts { receiptType amount recipient assetId } } }`

// GetTransaction fetches a transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	resp, err := retry(func() (transactionResponse, error) {
		var r transactionResponse
		err := c.do(ctx, transactionQuery, map[string]any{"id": id}, &r)
		return r, err
	})
	if err != nil {
		return nil, err
	}
	if resp.Transaction == nil {
		return nil, fmt.Errorf("failed to find details for transaction: %s", id)
	}
	tx := &Transaction{ID: resp.Transaction.ID}
	for _, r := range resp.Transaction.Receipts {
		tx.Receipts = append(tx.Receipts, Receipt{
			ReceiptType: r.ReceiptType,
			Amount:      r.Amount,
			RecipientID: r.Recipient,
			AssetID:     r.AssetID,
		})
	}
	return tx, nil
}

// baseAssetID is Fuel's zero asset id, representing the chain's base asset
// (the bridged ETH leg) rather than a specific ERC20-backed asset.
const baseAssetID = "0x0000000000000000000000000000000000000000000000000000000000000000"

// BaseAssetAmountWithdrawn sums base-asset MessageOut receipts across the
// trailing timeFrame seconds worth of blocks, ending at the chain head. This
// is the L2 counterpart of the portal contract's withdrawal query; unlike
// the ERC20 path it needs no token address filter.
func (c *Client) BaseAssetAmountWithdrawn(ctx context.Context, timeFrame uint32) (uint64, error) {
	blockCount := uint64(timeFrame) / BlockTime
	if blockCount == 0 {
		blockCount = 1
	}
	txIDs, err := c.GetBlocks(ctx, blockCount)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, id := range txIDs {
		tx, err := c.GetTransaction(ctx, id)
		if err != nil {
			return 0, err
		}
		for _, r := range tx.Receipts {
			if r.ReceiptType != "MessageOut" || r.AssetID != baseAssetID {
				continue
			}
			amount, err := strconv.ParseUint(r.Amount, 10, 64)
			if err != nil {
				continue
			}
			total += amount
		}
	}
	return total, nil
}

type blockByHashResponse struct {
	Block *struct {
		ID string `json:"id"`
	} `json:"block"`
}

const blockByHashQuery = `query($id: BlockId!) { block(id: $id) { id } }`

// VerifyBlockCommit reports whether blockHash corresponds to a real L2
// block. This is an existence check only: no epoch-boundary modulus is
// configurable anywhere in the watchtower's config schema, so there is
// nothing further to validate against.
func (c *Client) VerifyBlockCommit(ctx context.Context, blockHash string) (bool, error) {
	resp, err := retry(func() (blockByHashResponse, error) {
		var r blockByHashResponse
		err := c.do(ctx, blockByHashQuery, map[string]any{"id": blockHash}, &r)
		return r, err
	})
	if err != nil {
		return false, err
	}
	return resp.Block != nil, nil
}
