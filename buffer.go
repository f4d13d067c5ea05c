package rendezvous

// Variant selects a buffer's overflow policy at channel construction.
type Variant int

const (
	// Unbuffered means the channel has no buffer at all: every put
	// must rendezvous directly with a parked get (or park itself).
	Unbuffered Variant = iota
	// Fixed refuses new values once it holds Capacity of them.
	Fixed
	// Dropping silently discards new values once full; existing
	// content is untouched.
	Dropping
	// Sliding evicts the oldest value to make room for a new one
	// once full.
	Sliding
	// Promise latches the first value added and ignores every
	// subsequent add; Take always returns the latched value and
	// never empties.
	Promise
)

// buffer is a finite, non-blocking value store. Add never blocks; it
// either enqueues (possibly evicting or discarding per variant) or is
// a no-op. CanTake is equivalent to "queue non-empty" for every
// variant except Promise, which reports CanTake forever after the
// first Add.
type buffer interface {
	CanAdd() bool
	CanTake() bool
	Add(v any)
	Take() any
	Len() int
}

// newBuffer constructs the buffer for variant with the given capacity.
// Unbuffered channels pass a nil buffer, not one built by this
// function.
func newBuffer(v Variant, capacity int) buffer {
	switch v {
	case Fixed:
		return &fixedBuffer{cap: capacity}
	case Dropping:
		return &droppingBuffer{cap: capacity}
	case Sliding:
		return &slidingBuffer{cap: capacity}
	case Promise:
		return &promiseBuffer{}
	default:
		panic("rendezvous: unknown buffer variant")
	}
}

type fixedBuffer struct {
	cap   int
	items []any
}

func (b *fixedBuffer) CanAdd() bool  { return len(b.items) < b.cap }
func (b *fixedBuffer) CanTake() bool { return len(b.items) > 0 }
func (b *fixedBuffer) Len() int      { return len(b.items) }

func (b *fixedBuffer) Add(v any) {
	if len(b.items) >= b.cap {
		return
	}
	b.items = append(b.items, v)
}

func (b *fixedBuffer) Take() any {
	if len(b.items) == 0 {
		return nil
	}
	v := b.items[0]
	b.items = b.items[1:]
	return v
}

// droppingBuffer always reports CanAdd; once full, Add is a silent
// no-op, discarding the incoming value.
type droppingBuffer struct {
	cap   int
	items []any
}

func (b *droppingBuffer) CanAdd() bool  { return true }
func (b *droppingBuffer) CanTake() bool { return len(b.items) > 0 }
func (b *droppingBuffer) Len() int      { return len(b.items) }

func (b *droppingBuffer) Add(v any) {
	if len(b.items) >= b.cap {
		return
	}
	b.items = append(b.items, v)
}

func (b *droppingBuffer) Take() any {
	if len(b.items) == 0 {
		return nil
	}
	v := b.items[0]
	b.items = b.items[1:]
	return v
}

// slidingBuffer always reports CanAdd; once full, Add evicts the
// oldest entry to make room.
type slidingBuffer struct {
	cap   int
	items []any
}

func (b *slidingBuffer) CanAdd() bool  { return true }
func (b *slidingBuffer) CanTake() bool { return len(b.items) > 0 }
func (b *slidingBuffer) Len() int      { return len(b.items) }

func (b *slidingBuffer) Add(v any) {
	if len(b.items) >= b.cap && b.cap > 0 {
		b.items = b.items[1:]
	}
	b.items = append(b.items, v)
}

func (b *slidingBuffer) Take() any {
	if len(b.items) == 0 {
		return nil
	}
	v := b.items[0]
	b.items = b.items[1:]
	return v
}

// promiseBuffer latches its first value forever; CanAdd is false
// after the first Add, CanTake is true forever after it.
type promiseBuffer struct {
	latched bool
	value   any
}

func (b *promiseBuffer) CanAdd() bool  { return !b.latched }
func (b *promiseBuffer) CanTake() bool { return b.latched }

func (b *promiseBuffer) Len() int {
	if b.latched {
		return 1
	}
	return 0
}

func (b *promiseBuffer) Add(v any) {
	if b.latched {
		return
	}
	b.latched = true
	b.value = v
}

func (b *promiseBuffer) Take() any {
	return b.value
}
