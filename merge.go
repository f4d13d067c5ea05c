package rendezvous

import "context"

// Merge fans values from every channel in chans into one output
// channel. A channel is dropped from the live set the moment it
// delivers the closed-sentinel; the output channel is closed once the
// live set is empty. If a put to the output channel reports the
// output is closed, the merge halts immediately without draining the
// remaining inputs.
func Merge(ctx context.Context, chans []*Chan, opts ...ChanOption) *Chan {
	out := NewChan(opts...)
	live := make([]*Chan, len(chans))
	copy(live, chans)

	go func() {
		defer out.Close()
		for len(live) > 0 {
			cases := make([]SelectCase, len(live))
			for i, ch := range live {
				cases[i] = GetCase(ch)
			}
			res, err := Select(ctx, cases)
			if err != nil {
				return
			}
			if res.Closed {
				live = removeChan(live, res.Chan)
				continue
			}
			ok, err := out.Put(ctx, res.Value)
			if err != nil || !ok {
				return
			}
		}
	}()

	return out
}

func removeChan(chans []*Chan, target *Chan) []*Chan {
	kept := chans[:0]
	for _, c := range chans {
		if c != target {
			kept = append(kept, c)
		}
	}
	return kept
}
