package l2

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// roundTripFunc adapts a function to http.RoundTripper, the same fake
// transport shape used throughout the pack to stub outbound HTTP calls
// without a real listener.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

// TestRetrySucceedsOnFinalAttempt covers the RPC retry scenario against the
// GraphQL client: a provider that fails on every attempt but the last still
// yields the eventual success value, with no error.
func TestRetrySucceedsOnFinalAttempt(t *testing.T) {
	var calls int
	client := &Client{
		url: "http://fake.local/graphql",
		hc: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			if calls <= Retries {
				return nil, io.ErrUnexpectedEOF
			}
			return jsonResponse(`{"data":{"chainInfo":{"latestBlock":{"header":{"height":"99","time":"0x0"}}}}}`), nil
		})},
	}

	got, err := client.LatestBlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(99), got)
	require.Equal(t, Retries+1, calls)
}

func TestParseTaiHeight(t *testing.T) {
	got, err := parseTaiHeight("1234")
	require.NoError(t, err)
	require.Equal(t, uint64(1234), got)
}

func TestParseFuelTimeRoundTrip(t *testing.T) {
	// 2^62 + 1000 encoded as hex is a TAI64 timestamp 1000 seconds after
	// the Unix epoch.
	const tai64Offset = uint64(1) << 62
	raw := tai64Offset + 1000
	hex := "0x" + uintToHex(raw)

	got, err := parseFuelTime(hex)
	require.NoError(t, err)
	require.Equal(t, int64(1000), got)
}

func TestParseFuelTimeBelowEpoch(t *testing.T) {
	_, err := parseFuelTime("0x1")
	require.Error(t, err)
}

func uintToHex(v uint64) string {
	const hexDigits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = hexDigits[v%16]
		v /= 16
	}
	return string(buf[i:])
}
