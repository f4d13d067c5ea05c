package rendezvous

import (
	"context"
	"iter"
)

// Pipe copies every value from c into out until c closes or a put to
// out reports out is closed, then closes out. It returns out for
// chaining.
func (c *Chan) Pipe(ctx context.Context, out *Chan) *Chan {
	go func() {
		defer out.Close()
		for {
			val, ok, err := c.Get(ctx)
			if err != nil || !ok {
				return
			}
			if delivered, err := out.Put(ctx, val); err != nil || !delivered {
				return
			}
		}
	}()
	return out
}

// All returns a range-over-func iterator yielding every value received
// from c until the channel closes or ctx is done, giving callers a
// for-range syntax over the channel's values:
//
//	for v := range c.All(ctx) {
//		...
//	}
func (c *Chan) All(ctx context.Context) iter.Seq[any] {
	return func(yield func(any) bool) {
		for {
			val, ok, err := c.Get(ctx)
			if err != nil || !ok {
				return
			}
			if !yield(val) {
				return
			}
		}
	}
}
