package rendezvous

import (
	"context"
	"sync"

	"github.com/gravitational/trace"
)

// SoloMode controls how Mux treats a non-empty set of solo channels.
type SoloMode int

const (
	// ModeMute (the default): a non-empty solo set restricts which
	// read channels are *forwarded*, but every non-paused channel is
	// still read.
	ModeMute SoloMode = iota
	// ModePause: a non-empty solo set restricts which channels are
	// *read* at all; non-solo channels are not even selected on.
	ModePause
)

// MixAttrs are the per-channel attributes Mux.Mix accepts.
type MixAttrs struct {
	Solo  bool
	Mute  bool
	Pause bool
}

// Mux is a multiplexer: it reads from a dynamic set of input channels
// and forwards to a single output, with solo/mute/pause routing
// controls reminiscent of an audio mixing console (hence the name).
type Mux struct {
	out      *Chan
	changeCh *Chan

	mu       sync.Mutex
	chans    map[*Chan]MixAttrs
	soloMode SoloMode
}

// NewMux starts a multiplexer forwarding into out. If out is nil, a
// fresh unbuffered channel is created.
func NewMux(ctx context.Context, out *Chan) *Mux {
	if out == nil {
		out = NewChan()
	}
	m := &Mux{
		out:      out,
		changeCh: NewChan(WithBuffer(Dropping, 1)),
		chans:    make(map[*Chan]MixAttrs),
	}
	go m.run(ctx)
	return m
}

// Out returns the multiplexer's output channel.
func (m *Mux) Out() *Chan { return m.out }

// Mix attaches chans to the mix with the given attributes, replacing
// any attributes previously set for channels already present.
func (m *Mux) Mix(attrs MixAttrs, chans ...*Chan) *Mux {
	m.mu.Lock()
	for _, c := range chans {
		m.chans[c] = attrs
	}
	m.mu.Unlock()
	m.changed()
	return m
}

// Unmix removes chans from the mix.
func (m *Mux) Unmix(chans ...*Chan) *Mux {
	m.mu.Lock()
	for _, c := range chans {
		delete(m.chans, c)
	}
	m.mu.Unlock()
	m.changed()
	return m
}

// UnmixAll clears the entire mix.
func (m *Mux) UnmixAll() *Mux {
	m.mu.Lock()
	m.chans = make(map[*Chan]MixAttrs)
	m.mu.Unlock()
	m.changed()
	return m
}

// SoloMode sets how a non-empty solo set affects routing. mode must
// be ModeMute or ModePause; any other value is rejected.
func (m *Mux) SoloMode(mode SoloMode) error {
	if mode != ModeMute && mode != ModePause {
		return trace.BadParameter("solo mode must be ModeMute or ModePause, got %v", mode)
	}
	m.mu.Lock()
	m.soloMode = mode
	m.mu.Unlock()
	m.changed()
	return nil
}

// Close stops the multiplexer's worker goroutine. It does not close
// the output or any mixed channel.
func (m *Mux) Close() { m.changeCh.Close() }

// changed wakes the worker to recompute which channels are read and
// how they route. The dropping buffer coalesces bursts of changes
// into a single wakeup.
func (m *Mux) changed() {
	m.changeCh.PutNowait(true, nil, false)
}

func (m *Mux) run(ctx context.Context) {
	for {
		m.mu.Lock()
		anySolo := false
		for _, attrs := range m.chans {
			if attrs.Solo {
				anySolo = true
				break
			}
		}
		var reads []*Chan
		if m.soloMode == ModePause && anySolo {
			for c, attrs := range m.chans {
				if attrs.Solo {
					reads = append(reads, c)
				}
			}
		} else {
			for c, attrs := range m.chans {
				if !attrs.Pause {
					reads = append(reads, c)
				}
			}
		}
		m.mu.Unlock()

		cases := make([]SelectCase, 0, len(reads)+1)
		cases = append(cases, GetCase(m.changeCh))
		for _, c := range reads {
			cases = append(cases, GetCase(c))
		}

		res, err := Select(ctx, cases)
		if err != nil {
			return
		}
		if res.Chan == m.changeCh {
			if res.Closed {
				return
			}
			continue
		}
		if res.Closed {
			m.mu.Lock()
			delete(m.chans, res.Chan)
			m.mu.Unlock()
			continue
		}

		m.mu.Lock()
		attrs, ok := m.chans[res.Chan]
		anySoloNow := false
		for _, a := range m.chans {
			if a.Solo {
				anySoloNow = true
				break
			}
		}
		m.mu.Unlock()

		forward := ok && (anySoloNow && attrs.Solo || (!anySoloNow && !attrs.Mute))
		if !forward {
			continue
		}
		if delivered, err := m.out.Put(ctx, res.Value); err != nil || !delivered {
			return
		}
	}
}
