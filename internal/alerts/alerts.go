// Package alerts implements the watchtower's single-consumer alert fan-in:
// many components hold a cheap Producer handle, one background goroutine
// logs and optionally forwards every message.
package alerts

import (
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"
)

// Level is an ordered alert severity. None is a sentinel meaning "the rule
// that would have produced this alert is disabled" and is always a no-op.
type Level int

const (
	LevelNone Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "None"
	case LevelInfo:
		return "Info"
	case LevelWarn:
		return "Warn"
	case LevelError:
		return "Error"
	default:
		return "Unknown"
	}
}

// UnmarshalJSON accepts the string names used by the config schema.
func (l *Level) UnmarshalJSON(data []byte) error {
	s := trimQuotes(string(data))
	switch s {
	case "None":
		*l = LevelNone
	case "Info":
		*l = LevelInfo
	case "Warn":
		*l = LevelWarn
	case "Error":
		*l = LevelError
	default:
		*l = LevelNone
	}
	return nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// MinGrace is the startup window during which Warn/Error alerts are logged
// but never forwarded. Cold-start dependencies (RPC nodes, contract state)
// are frequently inconsistent for a few minutes; this prevents paging
// storms during boot and short network blips.
const MinGrace = time.Hour

// ThreadDisconnectedErr is logged and is fatal if every Producer for a Bus
// is released while the consumer is still alive - that can only happen
// because of a code bug, never a runtime condition.
const ThreadDisconnectedErr = "Connections to the alerts thread have all closed."

// Params is a single alert message travelling through the bus.
type Params struct {
	Text  string
	Level Level
}

// ForwardFunc delivers a Warn/Error alert to an outbound channel (chat,
// webhook, ...). It is an external collaborator; a nil ForwardFunc means
// "log only, never forward" which is a valid and common deployment.
type ForwardFunc func(Params) error

// FatalFunc is invoked when the bus detects that every producer has been
// released. Defaults to log.Crit, which terminates the process; tests
// substitute a non-exiting hook.
type FatalFunc func(msg string)

// Bus owns the single alert consumer goroutine.
type Bus struct {
	ch      chan Params
	refs    *refCounter
	start   time.Time
	forward ForwardFunc
	fatal   FatalFunc
	limiter *rate.Limiter
	seen    mapset.Set[string]
	done    chan struct{}
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithForward installs the outbound alert delivery channel.
func WithForward(f ForwardFunc) Option {
	return func(b *Bus) { b.forward = f }
}

// WithFatal overrides the hook invoked on channel disconnection (tests only).
func WithFatal(f FatalFunc) Option {
	return func(b *Bus) { b.fatal = f }
}

// WithRateLimit overrides the outbound rate limiter. The default allows one
// forwarded alert per second with a burst of five, which is generous enough
// never to drop a genuine incident but blunt enough to survive a burst of
// distinct alerts firing from the same watcher iteration.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(b *Bus) { b.limiter = rate.NewLimiter(r, burst) }
}

// New starts the alert bus consumer and returns the Bus. The caller owns the
// Bus and must mint a Producer (via NewProducer) for every component that
// needs to emit alerts.
func New(opts ...Option) *Bus {
	b := &Bus{
		ch:    make(chan Params, 256),
		refs:  newRefCounter(),
		start: time.Now(),
		fatal: log.Crit,
		seen:  mapset.NewSet[string](),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.limiter == nil {
		b.limiter = rate.NewLimiter(1, 5)
	}

	go b.run()
	return b
}

// NewProducer hands out a cheap, clonable producer handle. Every call to
// NewProducer must be balanced by exactly one Close for the disconnection
// invariant to be meaningful; components that live for the process lifetime
// simply never close their handle.
func (b *Bus) NewProducer() *Producer {
	b.refs.acquire()
	return &Producer{bus: b}
}

func (b *Bus) run() {
	defer close(b.done)
	windowStart := time.Now()
	for {
		params, ok := <-b.ch
		if !ok {
			b.fatal(ThreadDisconnectedErr)
			return
		}

		if time.Since(windowStart) > MinGrace {
			b.seen.Clear()
			windowStart = time.Now()
		}

		switch params.Level {
		case LevelNone:
			// A None-level alert is a contradiction in terms (rules with
			// level None never submit one) but is discarded defensively.
		case LevelInfo:
			log.Info(params.Text)
		case LevelWarn:
			log.Warn(params.Text)
			b.maybeForward(params)
		case LevelError:
			log.Error(params.Text)
			b.maybeForward(params)
		}
	}
}

func (b *Bus) maybeForward(params Params) {
	if time.Since(b.start) <= MinGrace {
		return
	}
	if b.forward == nil {
		return
	}
	if b.seen.Contains(params.Text) {
		return
	}
	if !b.limiter.Allow() {
		return
	}
	b.seen.Add(params.Text)
	if err := b.forward(params); err != nil {
		log.Error("Failed to forward alert", "error", err)
	}
}

// Wait blocks until the consumer goroutine has exited (test helper).
func (b *Bus) Wait() {
	<-b.done
}

// Producer is a cheap, clonable handle producers use to emit alerts.
type Producer struct {
	bus    *Bus
	closed bool
}

// Emit submits an alert. None levels are dropped without reaching the bus -
// a rule with level None is defined to be a complete no-op.
func (p *Producer) Emit(text string, level Level) {
	if level == LevelNone {
		return
	}
	p.bus.ch <- Params{Text: text, Level: level}
}

// Close releases this handle's reference. Once every Producer minted from a
// Bus has been closed, the bus channel is closed and the consumer treats
// that as a fatal, unrecoverable invariant violation.
func (p *Producer) Close() {
	if p.closed {
		return
	}
	p.closed = true
	if p.bus.refs.release() {
		close(p.bus.ch)
	}
}

// refCounter tracks outstanding Producer handles.
type refCounter struct {
	mu sync.Mutex
	c  int
}

func newRefCounter() *refCounter {
	return &refCounter{}
}

func (r *refCounter) acquire() {
	r.mu.Lock()
	r.c++
	r.mu.Unlock()
}

// release returns true when the count has dropped to zero.
func (r *refCounter) release() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.c--
	return r.c <= 0
}
