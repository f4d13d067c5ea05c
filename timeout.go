package rendezvous

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Timeout returns a channel that delivers each value in seed, in
// order, then either closes (closeAfter true) or blocks forever
// (closeAfter false) once d has elapsed since Timeout was called. With
// no seed values, it behaves like a pure deadline: silent until d
// elapses, then closes or goes quiet.
//
// clock is accepted explicitly (rather than reaching for time.After)
// so tests can substitute clockwork.NewFakeClock and advance it
// deterministically instead of racing real wall-clock time.
func Timeout(clock clockwork.Clock, d time.Duration, seed []any, closeAfter bool) *Chan {
	out := NewChan(WithBuffer(Fixed, len(seed)))
	go func() {
		<-clock.After(d)
		for _, v := range seed {
			out.PutNowait(v, nil, true)
		}
		if closeAfter {
			out.Close()
		}
	}()
	return out
}
