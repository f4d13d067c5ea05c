package rendezvous

import (
	"context"
	"sync"
)

// Duplicator broadcasts every value read from an input channel to a
// dynamic set of taps, applying slowest-tap backpressure: the next
// input value isn't read until every tap from the current round has
// either accepted this one or been dropped.
type Duplicator struct {
	in      *Chan
	closeCh *Chan

	mu   sync.Mutex
	outs map[*Chan]bool // tap -> close tap when input closes
}

// NewDuplicator starts broadcasting values from in to whatever taps
// are attached via Tap. The broadcast goroutine exits when in closes,
// ctx is done, or Close is called.
func NewDuplicator(ctx context.Context, in *Chan) *Duplicator {
	d := &Duplicator{
		in:      in,
		closeCh: NewChan(),
		outs:    make(map[*Chan]bool),
	}
	go d.run(ctx)
	return d
}

// Input returns the channel being duplicated.
func (d *Duplicator) Input() *Chan { return d.in }

// Tap attaches chs as broadcast targets. closeOnDone controls whether
// each is closed when the input channel closes.
func (d *Duplicator) Tap(closeOnDone bool, chs ...*Chan) *Duplicator {
	d.mu.Lock()
	for _, c := range chs {
		d.outs[c] = closeOnDone
	}
	d.mu.Unlock()
	return d
}

// Untap detaches chs; they receive no further broadcast values.
func (d *Duplicator) Untap(chs ...*Chan) *Duplicator {
	d.mu.Lock()
	for _, c := range chs {
		delete(d.outs, c)
	}
	d.mu.Unlock()
	return d
}

// Close stops the broadcast goroutine. It does not close the input or
// any tap.
func (d *Duplicator) Close() {
	d.closeCh.Close()
}

func (d *Duplicator) snapshotTaps() []*Chan {
	d.mu.Lock()
	defer d.mu.Unlock()
	taps := make([]*Chan, 0, len(d.outs))
	for tap := range d.outs {
		taps = append(taps, tap)
	}
	return taps
}

func (d *Duplicator) run(ctx context.Context) {
	gate := NewChan(WithBuffer(Fixed, 1))

	for {
		res, err := Select(ctx, []SelectCase{GetCase(d.closeCh), GetCase(d.in)}, WithPriority())
		if err != nil {
			return
		}
		if res.Chan == d.closeCh {
			return
		}
		if res.Closed {
			d.mu.Lock()
			outs := d.outs
			d.outs = make(map[*Chan]bool)
			d.mu.Unlock()
			for tap, closeOnDone := range outs {
				if closeOnDone {
					tap.Close()
				}
			}
			return
		}

		taps := d.snapshotTaps()
		if len(taps) == 0 {
			continue
		}

		var remainingMu sync.Mutex
		remaining := len(taps)
		done := func(bool) {
			remainingMu.Lock()
			remaining--
			fire := remaining == 0
			remainingMu.Unlock()
			if fire {
				gate.PutNowait(true, nil, false)
			}
		}

		for _, tap := range taps {
			outcome, completed, _ := tap.PutNowait(res.Value, done, false)
			if completed && !outcome {
				// tap reports already closed: drop it now rather
				// than waiting for a future put to discover it.
				d.Untap(tap)
			}
		}

		if _, _, err := gate.Get(ctx); err != nil {
			return
		}
	}
}
