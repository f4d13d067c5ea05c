package rendezvous

import "github.com/gravitational/trace"

// MaxOpQueueSize bounds the number of parked puts or gets a single
// channel may hold. Exceeding it is a programmer error: an unbounded
// producer/consumer asymmetry, not a runtime condition to recover from.
const MaxOpQueueSize = 1024

// MaxDirtySize is the number of inactive (cancelled) queue entries a
// channel tolerates before compacting puts/gets to drop them.
const MaxDirtySize = 256

// errBadValue reports an attempt to put the closed-sentinel as a value.
func errBadValue() error {
	return trace.BadParameter("cannot put the closed-sentinel (nil interface) onto a channel")
}

// errQueueOverflow reports that a channel's parked puts or gets queue
// grew past MaxOpQueueSize, a fail-fast programmer error per spec.
func errQueueOverflow(kind string, name string) error {
	return trace.LimitExceeded("no more than %d pending %s are allowed on channel %q; consider a windowed buffer",
		MaxOpQueueSize, kind, name)
}
