package l1

import (
	"errors"
	"testing"

	"github.com/google/gofuzz"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// TestRetrySucceedsOnFinalAttempt covers the RPC retry scenario: a provider
// that fails on every attempt but the last still yields the eventual
// success value, with exactly Retries+1 total calls and no error.
func TestRetrySucceedsOnFinalAttempt(t *testing.T) {
	var calls int
	want := uint64(42)

	got, err := retry(func() (uint64, error) {
		calls++
		if calls <= Retries {
			return 0, errors.New("transient RPC error")
		}
		return want, nil
	})

	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, Retries+1, calls)
}

// TestRetryExhaustsAndSurfacesError covers the case where every attempt
// fails: retry makes exactly Retries+1 calls and returns the last error.
func TestRetryExhaustsAndSurfacesError(t *testing.T) {
	var calls int
	boom := errors.New("still down")

	_, err := retry(func() (uint64, error) {
		calls++
		return 0, boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, Retries+1, calls)
}

func TestScaleKnownValues(t *testing.T) {
	cases := []struct {
		value    float64
		decimals uint8
		want     uint64
	}{
		{1.0, 18, 1_000_000_000_000_000_000}, // checked separately below as a uint256
		{1.0, 6, 1_000_000},
		{100.0, 6, 100_000_000},
		{0.5, 6, 500_000},
	}

	for _, tc := range cases {
		if tc.decimals == 18 {
			continue
		}
		got := Scale(tc.value, tc.decimals)
		require.Equal(t, tc.want, got.Uint64(), "Scale(%v, %d)", tc.value, tc.decimals)
	}
}

func TestScaleEighteenDecimals(t *testing.T) {
	// 1.0 scaled by 1e9 (decimalsP1, since 18>=9 -> decimalsP1=9) then by
	// 1e9 again (decimalsP2) as an exact integer multiplication.
	got := Scale(1.0, 18)
	want := uint256.NewInt(1_000_000_000)
	want = want.Mul(want, uint256.NewInt(1_000_000_000))
	require.True(t, got.Cmp(want) == 0)
}

// TestScaleRoundTripFuzz: for any value representable to at most 9
// fractional decimal digits, Scale(v, d) equals the exact integer v * 10^d.
func TestScaleRoundTripFuzz(t *testing.T) {
	fz := fuzz.New().NilChance(0).Funcs(func(v *int64, c fuzz.Continue) {
		*v = c.Int63n(1_000_000)
	})

	for i := 0; i < 50; i++ {
		var whole int64
		fz.Fuzz(&whole)
		value := float64(whole)
		decimals := uint8(6)

		got := Scale(value, decimals)
		want := uint64(whole) * 1_000_000
		require.Equal(t, want, got.Uint64())
	}
}
