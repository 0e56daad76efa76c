package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/sitescan/internal/classifier"
	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/transport"
)

// Sender issues one scan request. *transport.Client implements it.
type Sender interface {
	Send(ctx context.Context, id model.ScanIdentifier) transport.RawOutcome
}

// Controller drives the scans of one session.
type Controller struct {
	sender    Sender
	logger    *slog.Logger
	now       func() time.Time
	onSettled func(State)

	mu          sync.Mutex
	state       State
	seq         uint64
	cancel      context.CancelFunc
	waiters     map[uint64]chan State
	subscribers map[int]chan State
	nextSubID   int
	closed      bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnSettled registers a hook called with every applied outcome.
// It runs on the scan goroutine, outside the controller lock.
func WithOnSettled(fn func(State)) Option {
	return func(c *Controller) {
		c.onSettled = fn
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates an Idle controller that sends scans through sender.
func NewController(sender Sender, opts ...Option) *Controller {
	c := &Controller{
		sender:      sender,
		logger:      slog.Default(),
		now:         time.Now,
		waiters:     make(map[uint64]chan State),
		subscribers: make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit normalizes raw and starts a scan in the background.
//
// An invalid target returns a *model.ValidationError and leaves the state
// untouched. A submission while InFlight returns ErrBusy. ctx bounds the
// outbound request; it must outlive the call when the scan should keep
// running after Submit returns.
func (c *Controller) Submit(ctx context.Context, raw string) error {
	_, _, err := c.submit(ctx, raw)
	return err
}

// Scan submits raw and waits for that submission to settle.
func (c *Controller) Scan(ctx context.Context, raw string) (State, error) {
	_, done, err := c.submit(ctx, raw)
	if err != nil {
		return State{}, err
	}

	select {
	case st, ok := <-done:
		if !ok {
			return State{}, ErrSuperseded
		}
		return st, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (c *Controller) submit(ctx context.Context, raw string) (uint64, <-chan State, error) {
	id, err := model.NormalizeIdentifier(raw)
	if err != nil {
		return 0, nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, nil, ErrClosed
	}
	if c.state.Kind == StateInFlight {
		c.mu.Unlock()
		return 0, nil, ErrBusy
	}

	c.seq++
	seq := c.seq
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = State{
		Kind:       StateInFlight,
		Target:     raw,
		Identifier: id,
		Sequence:   seq,
		StartedAt:  c.now(),
	}
	done := make(chan State, 1)
	c.waiters[seq] = done
	c.broadcastLocked(c.state)
	c.mu.Unlock()

	c.logger.Debug("scan submitted", "target", id.String(), "sequence", seq)

	go c.run(reqCtx, cancel, seq, id)
	return seq, done, nil
}

// run performs the request and applies its outcome.
func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, seq uint64, id model.ScanIdentifier) {
	defer cancel()

	raw := c.sender.Send(ctx, id)
	outcome := classifier.Classify(raw)
	c.complete(seq, outcome)
}

// complete applies outcome if seq is still the submission being waited for.
func (c *Controller) complete(seq uint64, outcome model.Outcome) {
	c.mu.Lock()
	waiter, hasWaiter := c.waiters[seq]
	delete(c.waiters, seq)

	if seq != c.seq || c.state.Kind != StateInFlight || c.state.Sequence != seq {
		latest := c.seq
		c.mu.Unlock()
		if hasWaiter {
			close(waiter)
		}
		c.logger.Debug("discarding stale scan outcome", "sequence", seq, "latest", latest, "kind", outcome.Kind().String())
		return
	}

	settled := c.state
	settled.Kind = StateSettled
	settled.SettledAt = c.now()
	settled.Outcome = outcome
	c.state = settled
	c.cancel = nil
	c.broadcastLocked(settled)
	hook := c.onSettled
	c.mu.Unlock()

	c.logger.Debug("scan settled", "target", settled.Identifier.String(), "sequence", seq, "kind", outcome.Kind().String())

	if hook != nil {
		hook(settled)
	}
	if hasWaiter {
		waiter <- settled
	}
}

// Reset returns the session to Idle. A pending request is cancelled and its
// outcome will be discarded; a Scan waiting for it returns ErrSuperseded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if waiter, ok := c.waiters[c.state.Sequence]; ok {
		delete(c.waiters, c.state.Sequence)
		close(waiter)
	}
	if c.state.Kind == StateIdle {
		return
	}
	c.state = State{Kind: StateIdle}
	c.broadcastLocked(c.state)
}

// Subscribe returns a channel that first receives the current state and then
// every transition. When the buffer is full the oldest queued state is
// dropped, so the latest state is always delivered. Call the returned
// function to unsubscribe.
func (c *Controller) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	ch <- c.state
	if c.closed {
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	c.subscribers[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

func (c *Controller) broadcastLocked(s State) {
	for _, ch := range c.subscribers {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Close resets the session, closes every subscription and rejects further
// submissions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.resetLocked()
	c.closed = true
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
}
