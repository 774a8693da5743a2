package alerts

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestForwardsAfterGracePeriod: once the startup grace window has elapsed,
// a Warn alert is handed to forward (its log line is not asserted - we
// can't easily capture go-ethereum's global logger here).
func TestForwardsAfterGracePeriod(t *testing.T) {
	var mu sync.Mutex
	var forwarded []Params

	b := New(WithForward(func(p Params) error {
		mu.Lock()
		forwarded = append(forwarded, p)
		mu.Unlock()
		return nil
	}))
	// Force start into the past so the grace window has already elapsed,
	// rather than sleeping an hour in a unit test.
	b.start = time.Now().Add(-2 * MinGrace)

	p := b.NewProducer()
	p.Emit("disk usage high", LevelWarn)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, forwarded, 1)
	require.Equal(t, "disk usage high", forwarded[0].Text)
}

func TestGracePeriodBlocksDuringColdStart(t *testing.T) {
	var mu sync.Mutex
	var forwarded []Params

	b := New(WithForward(func(p Params) error {
		mu.Lock()
		forwarded = append(forwarded, p)
		mu.Unlock()
		return nil
	}))
	// b.start is time.Now() by construction: still inside the grace window.

	p := b.NewProducer()
	p.Emit("disk usage high", LevelError)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, forwarded)
}

// TestDedupSuppressesRepeatedText asserts an identical alert text is only
// forwarded once within a grace-period window.
func TestDedupSuppressesRepeatedText(t *testing.T) {
	var mu sync.Mutex
	var forwarded []Params

	b := New(WithForward(func(p Params) error {
		mu.Lock()
		forwarded = append(forwarded, p)
		mu.Unlock()
		return nil
	}))
	b.start = time.Now().Add(-2 * MinGrace)

	p := b.NewProducer()
	p.Emit("repeated alert", LevelWarn)
	p.Emit("repeated alert", LevelWarn)
	p.Emit("repeated alert", LevelWarn)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, forwarded, 1)
}

// TestRateLimitDropsExcessForwards asserts distinct alert texts beyond the
// configured burst are dropped, not queued.
func TestRateLimitDropsExcessForwards(t *testing.T) {
	var mu sync.Mutex
	var forwarded []Params

	b := New(
		WithForward(func(p Params) error {
			mu.Lock()
			forwarded = append(forwarded, p)
			mu.Unlock()
			return nil
		}),
		WithRateLimit(0, 2),
	)
	b.start = time.Now().Add(-2 * MinGrace)

	p := b.NewProducer()
	p.Emit("alert one", LevelWarn)
	p.Emit("alert two", LevelWarn)
	p.Emit("alert three", LevelWarn)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, forwarded, 2)
}

// TestDisconnectionIsFatal: once every Producer handle for a Bus is closed,
// the channel closes and the consumer invokes the fatal hook exactly once.
func TestDisconnectionIsFatal(t *testing.T) {
	fatalCh := make(chan string, 1)

	b := New(WithFatal(func(msg string) { fatalCh <- msg }))

	p1 := b.NewProducer()
	p2 := b.NewProducer()
	p1.Close()
	select {
	case <-fatalCh:
		t.Fatal("fatal hook fired before last producer closed")
	case <-time.After(20 * time.Millisecond):
	}

	p2.Close()
	select {
	case msg := <-fatalCh:
		require.Equal(t, ThreadDisconnectedErr, msg)
	case <-time.After(time.Second):
		t.Fatal("fatal hook never fired")
	}
	b.Wait()
}

func TestLevelNoneIsNoOp(t *testing.T) {
	b := New(WithFatal(func(string) {}))
	p := b.NewProducer()
	p.Emit("should never appear", LevelNone)
	// Close and wait: if the None alert had reached the channel, it would
	// still drain harmlessly, so this mainly documents intended behavior.
	p.Close()
	b.Wait()
}

func TestLevelUnmarshalJSON(t *testing.T) {
	cases := map[string]Level{
		`"None"`:    LevelNone,
		`"Info"`:    LevelInfo,
		`"Warn"`:    LevelWarn,
		`"Error"`:   LevelError,
		`"Bogus"`:   LevelNone,
	}
	for in, want := range cases {
		var l Level
		require.NoError(t, l.UnmarshalJSON([]byte(in)))
		require.Equal(t, want, l)
	}
}
