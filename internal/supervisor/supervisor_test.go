package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestRunReturnsFirstLoopError exercises the errgroup wiring in isolation
// from real chain clients: the first loop to fail determines Run's error
// and cancels the group context for the other loop.
func TestRunReturnsFirstLoopError(t *testing.T) {
	boom := errors.New("loop failed")

	group, ctx := errgroup.WithContext(context.Background())
	group.Go(func() error { return boom })
	group.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := group.Wait()
	require.ErrorIs(t, err, boom)
}

func TestRunContextCancellation(t *testing.T) {
	group, ctx := errgroup.WithContext(context.Background())
	done := make(chan struct{})
	group.Go(func() error {
		select {
		case <-ctx.Done():
			close(done)
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	group.Go(func() error { return errors.New("other loop down") })

	_ = group.Wait()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sibling goroutine was never cancelled")
	}
}
