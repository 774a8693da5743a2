package contracts

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestStartBlockClampsAtZero(t *testing.T) {
	require.Equal(t, uint64(0), startBlock(5, 100))
	require.Equal(t, uint64(90), startBlock(100, 10))
}

func TestBlockOffset(t *testing.T) {
	require.Equal(t, uint64(2), blockOffset(24, 12))
	require.Equal(t, uint64(0), blockOffset(1, 12))
}

func TestSumLogWords(t *testing.T) {
	word1 := make([]byte, 64)
	word1[63] = 5 // low byte of the second word = 5
	word2 := make([]byte, 64)
	word2[63] = 7

	logs := []types.Log{{Data: word1}, {Data: word2}}
	total := sumLogWords(logs, 32, 64)
	require.Equal(t, uint64(12), total.Uint64())
}

func TestSumLogWordsSkipsShortData(t *testing.T) {
	logs := []types.Log{{Data: []byte{1, 2, 3}}}
	total := sumLogWords(logs, 32, 64)
	require.Equal(t, uint64(0), total.Uint64())
}

// TestSignerPauseReadOnly exercises signer.pause's read-only short circuit
// without a live chain client.
func TestSignerPauseReadOnly(t *testing.T) {
	s := &signer{readOnly: true}
	err := s.pause(context.Background(), "state", nil)
	require.EqualError(t, err, "Ethereum account not configured.")
}
