package contracts

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/fuel-canary-watchtower/watchtower/internal/chain/l2"
)

// fuelWithdrawalReceipt is the receipt type Fuel assigns to a message
// emitted from a withdraw_to call, used to distinguish bridge withdrawals
// from unrelated transaction receipts.
const fuelWithdrawalReceipt = "MessageOut"

// FungibleTokenContract adapts the L2 side of a bridged asset. The Rust
// original stubs get_amount_withdrawn out entirely (`// TODO`); this scans
// the trailing window's blocks for matching withdrawal receipts, the same
// shape the L1 gateway/portal adapters use for their own log sums.
type FungibleTokenContract struct {
	client *l2.Client
}

// NewFungibleTokenContract wraps client; there is nothing to probe on L2,
// matching the Rust original's no-op constructor.
func NewFungibleTokenContract(client *l2.Client) *FungibleTokenContract {
	return &FungibleTokenContract{client: client}
}

// AmountWithdrawn sums withdrawal receipts for assetID across the trailing
// timeFrame seconds worth of L2 blocks.
func (f *FungibleTokenContract) AmountWithdrawn(ctx context.Context, timeFrame uint32, assetID string) (*uint256.Int, error) {
	blockCount := uint64(timeFrame) / l2.BlockTime
	if blockCount == 0 {
		blockCount = 1
	}

	txIDs, err := f.client.GetBlocks(ctx, blockCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query fuel blocks: %w", err)
	}

	total := uint256.NewInt(0)
	for _, id := range txIDs {
		tx, err := f.client.GetTransaction(ctx, id)
		if err != nil {
			continue
		}
		for _, r := range tx.Receipts {
			if r.ReceiptType != fuelWithdrawalReceipt || r.AssetID != assetID {
				continue
			}
			amount, err := parseHexOrDecimal(r.Amount)
			if err != nil {
				continue
			}
			total = total.Add(total, amount)
		}
	}
	return total, nil
}

func parseHexOrDecimal(s string) (*uint256.Int, error) {
	v := new(uint256.Int)
	if err := v.SetFromDecimal(s); err == nil {
		return v, nil
	}
	return v, v.SetFromHex(s)
}
