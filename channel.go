package rendezvous

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
)

// getOutcome is the result of a completed get: Val is meaningless
// unless OK is true. OK false means the closed-sentinel was
// delivered.
type getOutcome struct {
	val any
	ok  bool
}

type putEntry struct {
	h handler
	v any
}

// dispatchItem defers delivering a handler's outcome until after the
// owning channel's lock has been released, so a caller-supplied
// callback or a blocked send on a result channel never runs while we
// hold the mutex.
type dispatchItem struct {
	fn  func(any)
	val any
}

// Chan is a rendezvous point between producers and consumers, with an
// optional buffer, built as a mutex-guarded put/get state machine with
// queues of parked operations. A zero Chan is not usable; construct
// one with NewChan.
type Chan struct {
	name  string
	instr *Instrumentation

	mu        sync.Mutex
	buf       buffer
	puts      []putEntry
	gets      []handler
	closed    bool
	closedCh  chan struct{}
	dirtyPuts int
	dirtyGets int
}

type chanConfig struct {
	variant Variant
	cap     int
	name    string
	instr   *Instrumentation
}

// ChanOption configures a Chan at construction time.
type ChanOption func(*chanConfig)

// WithBuffer selects one of the four buffer overflow policies and its
// capacity. Without this option the channel is unbuffered (a pure
// rendezvous point).
func WithBuffer(variant Variant, capacity int) ChanOption {
	return func(c *chanConfig) {
		c.variant = variant
		c.cap = capacity
	}
}

// WithName sets the channel's debug/log name. If omitted, a random
// name is generated.
func WithName(name string) ChanOption {
	return func(c *chanConfig) { c.name = name }
}

// WithInstrumentation attaches prometheus counters to the channel's
// lifecycle events. Safe to omit; a nil *Instrumentation is a no-op.
func WithInstrumentation(instr *Instrumentation) ChanOption {
	return func(c *chanConfig) { c.instr = instr }
}

// NewChan constructs a channel. With no options it is unbuffered.
func NewChan(opts ...ChanOption) *Chan {
	cfg := chanConfig{variant: Unbuffered}
	for _, opt := range opts {
		opt(&cfg)
	}
	name := cfg.name
	if name == "" {
		name = uuid.NewString()
	}
	var buf buffer
	if cfg.variant != Unbuffered {
		buf = newBuffer(cfg.variant, cfg.cap)
	}
	return &Chan{
		name:     name,
		instr:    cfg.instr,
		buf:      buf,
		closedCh: make(chan struct{}),
	}
}

func (c *Chan) String() string {
	return fmt.Sprintf("Chan<%s>", c.name)
}

// Name returns the channel's debug/log name.
func (c *Chan) Name() string { return c.name }

// Done returns a channel closed exactly once, when Close is first
// called; it gives callers an event to select on without parking a
// get.
func (c *Chan) Done() <-chan struct{} { return c.closedCh }

// Closed reports whether Close has been called.
func (c *Chan) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Chan) runDispatches(items []dispatchItem) {
	for _, it := range items {
		it.fn(it.val)
	}
}

func (c *Chan) compactPutsLocked() {
	kept := c.puts[:0]
	for _, p := range c.puts {
		if p.h.Active() {
			kept = append(kept, p)
		}
	}
	c.puts = kept
	c.dirtyPuts = 0
	c.instr.incCompactions()
}

func (c *Chan) compactGetsLocked() {
	kept := c.gets[:0]
	for _, g := range c.gets {
		if g.Active() {
			kept = append(kept, g)
		}
	}
	c.gets = kept
	c.dirtyGets = 0
	c.instr.incCompactions()
}

// tryPut attempts to put v using handler h. completed=true means the
// operation finished synchronously with value outcome and h will
// never be delivered to asynchronously; completed=false means h was
// parked (or refused to park) and its result, if any, arrives via its
// own delivery mechanism later.
func (c *Chan) tryPut(v any, h handler) (outcome bool, completed bool) {
	var dispatches []dispatchItem
	c.mu.Lock()

	if c.closed || !h.Active() {
		wasClosed := c.closed
		c.mu.Unlock()
		return !wasClosed, true
	}

	if c.buf != nil && c.buf.CanAdd() {
		h.Commit()
		c.buf.Add(v)
		for c.buf.CanTake() && len(c.gets) > 0 {
			g := c.gets[0]
			c.gets = c.gets[1:]
			if !g.Active() {
				c.dirtyGets--
				continue
			}
			deliver, ok := g.Commit()
			if !ok {
				c.dirtyGets--
				continue
			}
			val := c.buf.Take()
			if deliver != nil {
				dispatches = append(dispatches, dispatchItem{deliver, getOutcome{val: val, ok: true}})
			}
		}
		c.mu.Unlock()
		c.runDispatches(dispatches)
		return true, true
	}

	for {
		if len(c.gets) == 0 {
			c.dirtyGets = 0
			break
		}
		g := c.gets[0]
		c.gets = c.gets[1:]
		if !g.Active() {
			c.dirtyGets--
			continue
		}
		deliverGetter, ok := g.Commit()
		if !ok {
			c.dirtyGets--
			continue
		}
		h.Commit()
		c.mu.Unlock()
		if deliverGetter != nil {
			deliverGetter(getOutcome{val: v, ok: true})
		}
		return true, true
	}

	if h.Blockable() {
		if c.dirtyPuts >= MaxDirtySize {
			c.compactPutsLocked()
		}
		if len(c.puts) >= MaxOpQueueSize {
			c.mu.Unlock()
			panic(errQueueOverflow("puts", c.name))
		}
		h.Queue(c, true)
		c.puts = append(c.puts, putEntry{h: h, v: v})
		c.instr.incParkedPuts()
		c.mu.Unlock()
		return false, false
	}
	c.mu.Unlock()
	return false, false
}

// tryGet mirrors tryPut for the receive side.
func (c *Chan) tryGet(h handler) (result getOutcome, completed bool) {
	var dispatches []dispatchItem
	c.mu.Lock()

	if !h.Active() {
		c.mu.Unlock()
		return getOutcome{}, false
	}

	if c.buf != nil && c.buf.CanTake() {
		h.Commit()
		val := c.buf.Take()
		for c.buf.CanAdd() {
			if len(c.puts) == 0 {
				c.dirtyPuts = 0
				break
			}
			p := c.puts[0]
			c.puts = c.puts[1:]
			if !p.h.Active() {
				c.dirtyPuts--
				continue
			}
			deliverPutter, ok := p.h.Commit()
			if !ok {
				c.dirtyPuts--
				continue
			}
			c.buf.Add(p.v)
			if deliverPutter != nil {
				dispatches = append(dispatches, dispatchItem{deliverPutter, true})
			}
		}
		c.mu.Unlock()
		c.runDispatches(dispatches)
		return getOutcome{val: val, ok: true}, true
	}

	for {
		if len(c.puts) == 0 {
			c.dirtyPuts = 0
			break
		}
		p := c.puts[0]
		c.puts = c.puts[1:]
		if !p.h.Active() {
			continue
		}
		deliverPutter, ok := p.h.Commit()
		if !ok {
			continue
		}
		h.Commit()
		c.mu.Unlock()
		if deliverPutter != nil {
			deliverPutter(true)
		}
		return getOutcome{val: p.v, ok: true}, true
	}

	if c.closed {
		_, ok := h.Commit()
		c.mu.Unlock()
		if ok {
			return getOutcome{val: nil, ok: false}, true
		}
		return getOutcome{}, false
	}

	if h.Blockable() {
		if c.dirtyGets >= MaxDirtySize {
			c.compactGetsLocked()
		}
		if len(c.gets) >= MaxOpQueueSize {
			c.mu.Unlock()
			panic(errQueueOverflow("gets", c.name))
		}
		h.Queue(c, false)
		c.gets = append(c.gets, h)
		c.instr.incParkedGets()
		c.mu.Unlock()
		return getOutcome{}, false
	}
	c.mu.Unlock()
	return getOutcome{}, false
}

// deactivatePut marks h inactive if it is still active, returning
// true if this call is the one that deactivated it (meaning no
// delivery will ever arrive) and false if it was already committed by
// a matching operation (meaning a delivery is already in flight and
// the caller must still wait for it).
func (c *Chan) deactivatePut(h *fnHandler) (selfCancelled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.active {
		h.active = false
		c.dirtyPuts++
		return true
	}
	return false
}

func (c *Chan) deactivateGet(h *fnHandler) (selfCancelled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.active {
		h.active = false
		c.dirtyGets++
		return true
	}
	return false
}

// Put blocks until v is accepted by the channel (synchronously,
// through its buffer, or by a parked getter), the channel closes, or
// ctx is done. The returned bool is false exactly when the channel
// was or became closed before the put could complete.
func (c *Chan) Put(ctx context.Context, v any) (bool, error) {
	if v == nil {
		return false, errBadValue()
	}
	resultCh := make(chan bool, 1)
	h := &fnHandler{
		active:    true,
		blockable: true,
		deliver:   func(val any) { resultCh <- val.(bool) },
	}
	if outcome, completed := c.tryPut(v, h); completed {
		return outcome, nil
	}
	select {
	case r := <-resultCh:
		return r, nil
	case <-ctx.Done():
		if c.deactivatePut(h) {
			return false, trace.Wrap(ctx.Err())
		}
		return <-resultCh, nil
	}
}

// Get blocks until a value is available (from the buffer, a parked
// putter, or because the channel closes) or ctx is done. ok is false
// when the closed-sentinel was delivered; err is non-nil only on
// context cancellation.
func (c *Chan) Get(ctx context.Context) (value any, ok bool, err error) {
	resultCh := make(chan getOutcome, 1)
	h := &fnHandler{
		active:    true,
		blockable: true,
		deliver:   func(val any) { resultCh <- val.(getOutcome) },
	}
	if result, completed := c.tryGet(h); completed {
		return result.val, result.ok, nil
	}
	select {
	case r := <-resultCh:
		return r.val, r.ok, nil
	case <-ctx.Done():
		if c.deactivateGet(h) {
			return nil, false, trace.Wrap(ctx.Err())
		}
		r := <-resultCh
		return r.val, r.ok, nil
	}
}

// PutNowait attempts a put without blocking the caller's goroutine.
// If immediateOnly is true the operation never parks: completed is
// false when the put cannot finish immediately, and cb is not used.
// Otherwise the put is queued if it
// cannot finish immediately (completed=false) and cb, if non-nil, is
// invoked later from a new goroutine with the eventual outcome.
func (c *Chan) PutNowait(v any, cb func(ok bool), immediateOnly bool) (outcome bool, completed bool, err error) {
	if v == nil {
		return false, false, errBadValue()
	}
	if immediateOnly {
		h := &fnHandler{active: true, blockable: false}
		outcome, completed = c.tryPut(v, h)
		return outcome, completed, nil
	}
	var deliver func(any)
	if cb != nil {
		deliver = func(val any) { go cb(val.(bool)) }
	}
	h := &fnHandler{active: true, blockable: true, deliver: deliver}
	outcome, completed = c.tryPut(v, h)
	if completed && cb != nil {
		go cb(outcome)
	}
	return outcome, completed, nil
}

// GetNowait is the receive-side analogue of PutNowait.
func (c *Chan) GetNowait(cb func(val any, ok bool), immediateOnly bool) (value any, ok bool, completed bool, err error) {
	if immediateOnly {
		h := &fnHandler{active: true, blockable: false}
		result, completed := c.tryGet(h)
		return result.val, result.ok, completed, nil
	}
	var deliver func(any)
	if cb != nil {
		deliver = func(val any) {
			o := val.(getOutcome)
			go cb(o.val, o.ok)
		}
	}
	h := &fnHandler{active: true, blockable: true, deliver: deliver}
	result, completed := c.tryGet(h)
	if completed && cb != nil {
		go cb(result.val, result.ok)
	}
	return result.val, result.ok, completed, nil
}

// Close is idempotent. Parked gets are resolved with any remaining
// buffered value, or the closed-sentinel if the buffer is empty.
// Parked puts are resolved with false rather than left dangling
// forever.
func (c *Chan) Close() {
	var dispatches []dispatchItem
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	for {
		if len(c.gets) == 0 {
			c.dirtyGets = 0
			break
		}
		g := c.gets[0]
		c.gets = c.gets[1:]
		if !g.Active() {
			continue
		}
		deliver, ok := g.Commit()
		if !ok {
			continue
		}
		var val getOutcome
		if c.buf != nil && c.buf.CanTake() {
			val = getOutcome{val: c.buf.Take(), ok: true}
		} else {
			val = getOutcome{val: nil, ok: false}
		}
		if deliver != nil {
			dispatches = append(dispatches, dispatchItem{deliver, val})
		}
	}

	for {
		if len(c.puts) == 0 {
			c.dirtyPuts = 0
			break
		}
		p := c.puts[0]
		c.puts = c.puts[1:]
		if !p.h.Active() {
			continue
		}
		deliver, ok := p.h.Commit()
		if !ok {
			continue
		}
		if deliver != nil {
			dispatches = append(dispatches, dispatchItem{deliver, false})
		}
	}

	c.closed = true
	close(c.closedCh)
	c.mu.Unlock()
	c.runDispatches(dispatches)
}
