// Package status holds the small set of watcher-loop facts the read-only
// status API reports: connectivity and the most recently observed block
// numbers. A Tracker is safe for concurrent use - the watcher loops write
// it, the status API goroutine reads it - and a nil *Tracker is a valid
// no-op receiver so callers that don't care about status reporting can
// simply omit one.
package status

import (
	"sync/atomic"
	"time"
)

// Tracker holds atomically-updated watcher facts.
type Tracker struct {
	start time.Time

	l1Connected atomic.Bool
	l2Connected atomic.Bool
	l1Block     atomic.Uint64
	l2Block     atomic.Uint64
	commitBlock atomic.Uint64
}

// New returns a Tracker whose uptime clock starts now.
func New() *Tracker {
	return &Tracker{start: time.Now()}
}

// SetL1Connected records the outcome of the most recent L1 connection check.
func (t *Tracker) SetL1Connected(ok bool) {
	if t == nil {
		return
	}
	t.l1Connected.Store(ok)
}

// SetL2Connected records the outcome of the most recent L2 connection check.
func (t *Tracker) SetL2Connected(ok bool) {
	if t == nil {
		return
	}
	t.l2Connected.Store(ok)
}

// SetL1Block records the most recently observed L1 block number.
func (t *Tracker) SetL1Block(n uint64) {
	if t == nil {
		return
	}
	t.l1Block.Store(n)
}

// SetL2Block records the most recently observed L2 block number.
func (t *Tracker) SetL2Block(n uint64) {
	if t == nil {
		return
	}
	t.l2Block.Store(n)
}

// SetCommitCheckBlock records the L1 watcher's commit-check watermark.
func (t *Tracker) SetCommitCheckBlock(n uint64) {
	if t == nil {
		return
	}
	t.commitBlock.Store(n)
}

// Snapshot is an immutable view of a Tracker suitable for serialization.
type Snapshot struct {
	L1Connected         bool
	L2Connected         bool
	LastL1Block         uint64
	LastL2Block         uint64
	LastCommitCheckBlock uint64
	UptimeSeconds       float64
}

// Snapshot reads a consistent-enough view of the tracker. A nil Tracker
// yields a zero Snapshot with a zero uptime.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	return Snapshot{
		L1Connected:          t.l1Connected.Load(),
		L2Connected:          t.l2Connected.Load(),
		LastL1Block:          t.l1Block.Load(),
		LastL2Block:          t.l2Block.Load(),
		LastCommitCheckBlock: t.commitBlock.Load(),
		UptimeSeconds:        time.Since(t.start).Seconds(),
	}
}
