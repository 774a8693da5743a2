package actions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fuel-canary-watchtower/watchtower/internal/alerts"
)

type fakePausable struct {
	mu       sync.Mutex
	calls    int
	err      error
	pausedAt []time.Time
}

func (f *fakePausable) Pause(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	f.pausedAt = append(f.pausedAt, time.Now())
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return nil
}

func (f *fakePausable) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestExecutor(t *testing.T, consensus, gateway, portal Pausable) (*Executor, *alerts.Bus) {
	t.Helper()
	bus := alerts.New(alerts.WithFatal(func(string) {}))
	executor := New(consensus, gateway, portal, bus.NewProducer(), WithFatal(func(string) {}))
	return executor, bus
}

// TestPauseAllIsBestEffort asserts a failure pausing one contract under
// ActionPauseAll does not prevent the remaining contracts from being
// paused.
func TestPauseAllIsBestEffort(t *testing.T) {
	consensus := &fakePausable{err: errors.New("rpc timeout")}
	gateway := &fakePausable{}
	portal := &fakePausable{}

	executor, bus := newTestExecutor(t, consensus, gateway, portal)
	producer := executor.NewProducer()

	producer.Submit(ActionPauseAll, alerts.LevelError)
	producer.Close()
	executor.Wait()
	executor.alerts.Close()
	bus.Wait()

	require.Equal(t, 1, consensus.count())
	require.Equal(t, 1, gateway.count())
	require.Equal(t, 1, portal.count())
}

// TestActionsAreSerialized asserts two queued pause requests never overlap:
// the second contract's Pause call only starts once the first has returned.
func TestActionsAreSerialized(t *testing.T) {
	consensus := &fakePausable{}
	gateway := &fakePausable{}
	portal := &fakePausable{}

	executor, bus := newTestExecutor(t, consensus, gateway, portal)
	producer := executor.NewProducer()

	producer.Submit(ActionPauseConsensus, alerts.LevelWarn)
	producer.Submit(ActionPauseGateway, alerts.LevelWarn)
	producer.Close()
	executor.Wait()
	executor.alerts.Close()
	bus.Wait()

	require.Equal(t, 1, consensus.count())
	require.Equal(t, 1, gateway.count())
	require.Equal(t, 0, portal.count())
	require.True(t, consensus.pausedAt[0].Before(gateway.pausedAt[0]) || consensus.pausedAt[0].Equal(gateway.pausedAt[0]))
}

func TestActionNoneIsDropped(t *testing.T) {
	consensus := &fakePausable{}
	gateway := &fakePausable{}
	portal := &fakePausable{}

	executor, bus := newTestExecutor(t, consensus, gateway, portal)
	producer := executor.NewProducer()

	producer.Submit(ActionNone, alerts.LevelWarn)
	producer.Close()
	executor.Wait()
	executor.alerts.Close()
	bus.Wait()

	require.Equal(t, 0, consensus.count())
	require.Equal(t, 0, gateway.count())
	require.Equal(t, 0, portal.count())
}

// TestDisconnectionIsFatal mirrors the alerts package's invariant: once
// every Producer is closed, the queue closes and the fatal hook fires.
func TestDisconnectionIsFatal(t *testing.T) {
	consensus := &fakePausable{}
	gateway := &fakePausable{}
	portal := &fakePausable{}

	bus := alerts.New()
	fatalCh := make(chan string, 1)
	executor := New(consensus, gateway, portal, bus.NewProducer(), WithFatal(func(msg string) { fatalCh <- msg }))

	p1 := executor.NewProducer()
	p2 := executor.NewProducer()
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
	executor.Wait()
}

func TestActionUnmarshalJSON(t *testing.T) {
	cases := map[string]Action{
		`"PauseConsensus"`: ActionPauseConsensus,
		`"PauseGateway"`:   ActionPauseGateway,
		`"PausePortal"`:    ActionPausePortal,
		`"PauseAll"`:       ActionPauseAll,
		`"Bogus"`:          ActionNone,
	}
	for in, want := range cases {
		var a Action
		require.NoError(t, a.UnmarshalJSON([]byte(in)))
		require.Equal(t, want, a)
	}
}
