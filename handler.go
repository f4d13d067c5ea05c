package rendezvous

import "go.uber.org/atomic"

// handler is a one-shot commit token shared by a single operation
// across the channel(s) it is attached to. Active is true until the
// operation commits (or is cancelled); Commit may only be called
// while Active, and atomically deactivates the handler, returning the
// continuation to invoke with the operation's result. Queue is called
// once, when the operation parks, for bookkeeping.
//
// Every method here that touches shared state is only ever called
// while the owning Chan's mutex is held (for fnHandler) or is
// lock-free by construction (selectHandler's atomic flag), so Chan's
// mutex discipline is sufficient; handler implementations need no
// locking of their own.
type handler interface {
	Active() bool
	Blockable() bool
	Commit() (deliver func(any), ok bool)
	Queue(ch *Chan, isPut bool)
}

// fnHandler is a plain, non-shared commit token used by Put, Get, and
// their *Nowait variants. deliver, if non-nil, is called exactly once
// with the operation's outcome after it has been committed by some
// channel; it is never called for a handler that completed
// synchronously on the same call stack that created it.
type fnHandler struct {
	active    bool
	blockable bool
	deliver   func(any)
}

func (h *fnHandler) Active() bool    { return h.active }
func (h *fnHandler) Blockable() bool { return h.blockable }

func (h *fnHandler) Commit() (func(any), bool) {
	if !h.active {
		return nil, false
	}
	h.active = false
	return h.deliver, true
}

func (h *fnHandler) Queue(*Chan, bool) {}

// selectFlag is the single shared commit bit for all handlers
// attached by one Select call. The first sibling to flip it wins;
// every other sibling then observes Active()==false, including those
// parked in other channels' queues guarded by entirely different
// mutexes — CompareAndSwap is what makes that cross-lock coordination
// safe.
type selectFlag struct {
	active atomic.Bool
}

func newSelectFlag() *selectFlag {
	f := &selectFlag{}
	f.active.Store(true)
	return f
}

func (f *selectFlag) Active() bool { return f.active.Load() }

// commit is the only way to flip the flag off; it reports whether
// this call was the one that did so.
func (f *selectFlag) commit() bool { return f.active.CompareAndSwap(true, false) }

// selectHandler is the Handler variant Select attaches to each of its
// candidate operations. Every selectHandler created by one Select call
// shares the same *selectFlag.
type selectHandler struct {
	flag      *selectFlag
	blockable bool
	deliver   func(any)
}

func (h *selectHandler) Active() bool    { return h.flag.Active() }
func (h *selectHandler) Blockable() bool { return h.blockable }

func (h *selectHandler) Commit() (func(any), bool) {
	if !h.flag.commit() {
		return nil, false
	}
	return h.deliver, true
}

func (h *selectHandler) Queue(*Chan, bool) {}
