package rendezvous

import (
	"context"
	"math/rand"

	"github.com/gravitational/trace"
)

// SelectCase is one operation offered to Select: either a get (built
// with GetCase) or a put of a specific value (built with PutCase).
type SelectCase struct {
	ch    *Chan
	val   any
	isPut bool
}

// GetCase offers a get on ch as one of Select's candidate operations.
func GetCase(ch *Chan) SelectCase {
	return SelectCase{ch: ch}
}

// PutCase offers a put of v on ch as one of Select's candidate
// operations.
func PutCase(ch *Chan, v any) SelectCase {
	return SelectCase{ch: ch, val: v, isPut: true}
}

type selectConfig struct {
	priority     bool
	hasDefault   bool
	defaultValue any
}

// SelectOption configures a Select call.
type SelectOption func(*selectConfig)

// WithPriority tries candidate operations in the order given instead
// of a random permutation, giving a deterministic preference among
// simultaneously-ready operations.
func WithPriority() SelectOption {
	return func(c *selectConfig) { c.priority = true }
}

// WithDefault makes Select return immediately with value v, rather
// than parking, when no candidate operation can complete
// synchronously.
func WithDefault(v any) SelectOption {
	return func(c *selectConfig) {
		c.hasDefault = true
		c.defaultValue = v
	}
}

// SelectResult reports which candidate operation committed. For a
// winning get, Value is the received value and Closed is true iff it
// is the closed-sentinel. For a winning put, Value is unused and
// Closed is true iff the put failed because the channel was or became
// closed. Index is -1 and Chan is nil when WithDefault supplied the
// result.
type SelectResult struct {
	Index  int
	Chan   *Chan
	Value  any
	Closed bool
	IsPut  bool
}

// Select atomically commits at most one of cases: the first one that
// can complete synchronously wins outright; otherwise, whichever
// parked case is matched first by some other goroutine's put/get
// wins. Every case shares one selectFlag, so a commit on any one of
// them makes every sibling handler observe Active()==false, including
// those parked in entirely different channels guarded by different
// mutexes.
func Select(ctx context.Context, cases []SelectCase, opts ...SelectOption) (SelectResult, error) {
	cfg := selectConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	order := make([]int, len(cases))
	for i := range order {
		order[i] = i
	}
	if !cfg.priority {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	flag := newSelectFlag()
	resultCh := make(chan SelectResult, 1)

	deliverFor := func(idx int, isPut bool) func(any) {
		return func(val any) {
			if isPut {
				ok := val.(bool)
				resultCh <- SelectResult{Index: idx, Chan: cases[idx].ch, Closed: !ok, IsPut: true}
				return
			}
			o := val.(getOutcome)
			resultCh <- SelectResult{Index: idx, Chan: cases[idx].ch, Value: o.val, Closed: !o.ok}
		}
	}

	var won *SelectResult
	for _, idx := range order {
		cs := cases[idx]
		h := &selectHandler{flag: flag, blockable: true, deliver: deliverFor(idx, cs.isPut)}
		if cs.isPut {
			outcome, completed := cs.ch.tryPut(cs.val, h)
			if completed {
				won = &SelectResult{Index: idx, Chan: cs.ch, Closed: !outcome, IsPut: true}
				break
			}
			continue
		}
		result, completed := cs.ch.tryGet(h)
		if completed {
			won = &SelectResult{Index: idx, Chan: cs.ch, Value: result.val, Closed: !result.ok}
			break
		}
	}

	if won != nil {
		won.Chan.instr.incSelects()
		return *won, nil
	}

	if cfg.hasDefault && flag.commit() {
		return SelectResult{Index: -1, Value: cfg.defaultValue}, nil
	}

	select {
	case r := <-resultCh:
		r.Chan.instr.incSelects()
		return r, nil
	case <-ctx.Done():
		if flag.commit() {
			return SelectResult{Index: -1}, trace.Wrap(ctx.Err())
		}
		r := <-resultCh
		r.Chan.instr.incSelects()
		return r, nil
	}
}
