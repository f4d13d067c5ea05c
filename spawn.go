package rendezvous

import "context"

// Go runs fn in a new goroutine and returns a channel that receives
// its result once, then closes. If fn returns nil, the channel closes
// immediately without delivering a value, matching the convention used
// throughout this package that nil is not a valid channel value.
func Go(ctx context.Context, fn func() any) *Chan {
	out := NewChan()
	go func() {
		defer out.Close()
		val := fn()
		if val == nil {
			return
		}
		out.Put(ctx, val)
	}()
	return out
}
