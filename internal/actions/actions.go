// Package actions implements the serialized on-chain action executor: a
// single consumer goroutine drains a many-producer queue of pause requests,
// guaranteeing at most one pause transaction is ever in flight.
package actions

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/fuel-canary-watchtower/watchtower/internal/alerts"
)

// Action selects which bridge contract(s) a triggering rule wants paused.
type Action int

const (
	ActionNone Action = iota
	ActionPauseConsensus
	ActionPauseGateway
	ActionPausePortal
	ActionPauseAll
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionPauseConsensus:
		return "PauseConsensus"
	case ActionPauseGateway:
		return "PauseGateway"
	case ActionPausePortal:
		return "PausePortal"
	case ActionPauseAll:
		return "PauseAll"
	default:
		return "Unknown"
	}
}

// UnmarshalJSON accepts the string names used by the config schema.
func (a *Action) UnmarshalJSON(data []byte) error {
	s := trimQuotes(string(data))
	switch s {
	case "PauseConsensus":
		*a = ActionPauseConsensus
	case "PauseGateway":
		*a = ActionPauseGateway
	case "PausePortal":
		*a = ActionPausePortal
	case "PauseAll":
		*a = ActionPauseAll
	default:
		*a = ActionNone
	}
	return nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ThreadDisconnectedErr mirrors alerts.ThreadDisconnectedErr for the action
// queue: it can only be hit by a code bug, never a runtime condition.
const ThreadDisconnectedErr = "Connections to the ethereum actions thread have all closed."

// Pausable is the surface the executor needs from each L1 contract adapter.
// The contracts package provides the concrete implementations; the
// executor only ever depends on this interface so it can be tested with
// fakes.
type Pausable interface {
	Pause(ctx context.Context) error
}

// Params is a single action request travelling through the executor queue.
type Params struct {
	Action     Action
	AlertLevel alerts.Level
}

// FatalFunc mirrors alerts.FatalFunc.
type FatalFunc func(msg string)

// ObserveFunc reports the outcome of a single contract pause attempt.
// outcome is "success" or "failure". A nil ObserveFunc is a valid
// no-observability deployment.
type ObserveFunc func(action Action, outcome string)

// Executor owns the three L1 contract adapters and the single goroutine
// that serializes every pause call against them.
type Executor struct {
	ch        chan Params
	refs      *refCounter
	consensus Pausable
	gateway   Pausable
	portal    Pausable
	alerts    *alerts.Producer
	fatal     FatalFunc
	observe   ObserveFunc
	done      chan struct{}
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithFatal overrides the hook invoked on channel disconnection (tests only).
func WithFatal(f FatalFunc) Option {
	return func(e *Executor) { e.fatal = f }
}

// WithObserve installs a hook called once per pause attempt with its
// contract action and outcome, e.g. to feed a metrics registry.
func WithObserve(f ObserveFunc) Option {
	return func(e *Executor) { e.observe = f }
}

// New starts the action executor consumer and returns the Executor.
func New(consensus, gateway, portal Pausable, alertProducer *alerts.Producer, opts ...Option) *Executor {
	e := &Executor{
		ch:        make(chan Params, 64),
		refs:      newRefCounter(),
		consensus: consensus,
		gateway:   gateway,
		portal:    portal,
		alerts:    alertProducer,
		fatal:     log.Crit,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.run()
	return e
}

// NewProducer hands out a cheap, clonable producer handle.
func (e *Executor) NewProducer() *Producer {
	e.refs.acquire()
	return &Producer{executor: e}
}

func (e *Executor) run() {
	defer close(e.done)
	ctx := context.Background()
	for {
		params, ok := <-e.ch
		if !ok {
			e.alerts.Emit(ThreadDisconnectedErr, alerts.LevelError)
			e.fatal(ThreadDisconnectedErr)
			return
		}
		e.dispatch(ctx, params)
	}
}

func (e *Executor) dispatch(ctx context.Context, params Params) {
	switch params.Action {
	case ActionNone:
	case ActionPauseConsensus:
		e.pauseOne(ctx, ActionPauseConsensus, "consensus", e.consensus, params.AlertLevel)
	case ActionPauseGateway:
		e.pauseOne(ctx, ActionPauseGateway, "gateway", e.gateway, params.AlertLevel)
	case ActionPausePortal:
		e.pauseOne(ctx, ActionPausePortal, "portal", e.portal, params.AlertLevel)
	case ActionPauseAll:
		// Each sub-step runs independently: a failure pausing one contract
		// must not skip the remaining contracts. Operators want best-effort
		// halt-everything semantics, not all-or-nothing.
		e.pauseOne(ctx, ActionPauseConsensus, "consensus", e.consensus, params.AlertLevel)
		e.pauseOne(ctx, ActionPauseGateway, "gateway", e.gateway, params.AlertLevel)
		e.pauseOne(ctx, ActionPausePortal, "portal", e.portal, params.AlertLevel)
	}
}

func (e *Executor) pauseOne(ctx context.Context, action Action, name string, contract Pausable, level alerts.Level) {
	id := uuid.New().String()
	e.alerts.Emit("Pausing "+name+" contract. ("+id+")", alerts.LevelInfo)
	if err := contract.Pause(ctx); err != nil {
		e.alerts.Emit(err.Error()+" ("+id+")", level)
		if e.observe != nil {
			e.observe(action, "failure")
		}
		return
	}
	e.alerts.Emit("Successfully paused "+name+" contract. ("+id+")", alerts.LevelInfo)
	if e.observe != nil {
		e.observe(action, "success")
	}
}

// Wait blocks until the consumer goroutine has exited (test helper).
func (e *Executor) Wait() {
	<-e.done
}

// Producer is a cheap, clonable handle watchers use to submit actions.
type Producer struct {
	executor *Executor
	closed   bool
}

// Submit queues an action. alertLevel is the severity of the rule that
// triggered this action; if the pause itself fails, the failure is reported
// at that same severity so a high-severity observation doesn't get buried
// behind a low-severity pause-failure log line.
func (p *Producer) Submit(action Action, alertLevel alerts.Level) {
	if action == ActionNone {
		return
	}
	p.executor.ch <- Params{Action: action, AlertLevel: alertLevel}
}

// Close releases this handle's reference; see alerts.Producer.Close.
func (p *Producer) Close() {
	if p.closed {
		return
	}
	p.closed = true
	if p.executor.refs.release() {
		close(p.executor.ch)
	}
}

type refCounter struct {
	mu sync.Mutex
	c  int
}

func newRefCounter() *refCounter { return &refCounter{} }

func (r *refCounter) acquire() {
	r.mu.Lock()
	r.c++
	r.mu.Unlock()
}

func (r *refCounter) release() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.c--
	return r.c <= 0
}
