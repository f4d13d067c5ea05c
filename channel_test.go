package rendezvous

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnbufferedRendezvous(t *testing.T) {
	ctx := context.Background()
	ch := NewChan()

	done := make(chan struct{})
	go func() {
		defer close(done)
		val, ok, err := ch.Get(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "hi", val)
	}()

	delivered, err := ch.Put(ctx, "hi")
	require.NoError(t, err)
	require.True(t, delivered)
	<-done
}

func TestFixedBufferChannel(t *testing.T) {
	ctx := context.Background()
	ch := NewChan(WithBuffer(Fixed, 2))

	ok, err := ch.Put(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ch.Put(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)

	val, ok, err := ch.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, val)
}

func TestPutNilIsRejected(t *testing.T) {
	ch := NewChan()
	_, err := ch.Put(context.Background(), nil)
	require.Error(t, err)
}

func TestCloseResolvesParkedGets(t *testing.T) {
	ctx := context.Background()
	ch := NewChan()

	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok, err := ch.Get(ctx)
			require.NoError(t, err)
			results[i] = ok
		}(i)
	}

	// give goroutines a chance to park.
	time.Sleep(20 * time.Millisecond)
	ch.Close()
	wg.Wait()

	for _, ok := range results {
		require.False(t, ok, "closed channel delivers the closed-sentinel to every parked get")
	}
}

func TestCloseResolvesParkedPuts(t *testing.T) {
	ctx := context.Background()
	ch := NewChan()

	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := ch.Put(ctx, i)
			require.NoError(t, err)
			results[i] = ok
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	ch.Close()
	wg.Wait()

	for _, ok := range results {
		require.False(t, ok, "parked puts must be resolved, not left dangling forever, when the channel closes")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ch := NewChan()
	ch.Close()
	require.NotPanics(t, func() { ch.Close() })
	require.True(t, ch.Closed())
}

func TestPutNowaitImmediateOnly(t *testing.T) {
	ch := NewChan()
	outcome, completed, err := ch.PutNowait(1, nil, true)
	require.NoError(t, err)
	require.False(t, completed)
	require.False(t, outcome, "nothing was waiting to receive, so an immediate-only put fails to complete")
}

func TestPutNowaitQueuesAndDelivers(t *testing.T) {
	ctx := context.Background()
	ch := NewChan()

	cbCh := make(chan bool, 1)
	outcome, completed, err := ch.PutNowait("queued", func(ok bool) { cbCh <- ok }, false)
	require.NoError(t, err)
	require.False(t, completed)
	require.False(t, outcome)

	val, ok, err := ch.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "queued", val)
	require.True(t, <-cbCh)
}

func TestGetCancelledByContext(t *testing.T) {
	ch := NewChan()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := ch.Get(ctx)
	require.Error(t, err)
}

func TestGetCancellationRacingConcurrentPutIsConsistent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := NewChan()

	resultCh := make(chan struct {
		val any
		ok  bool
		err error
	}, 1)
	go func() {
		val, ok, err := ch.Get(ctx)
		resultCh <- struct {
			val any
			ok  bool
			err error
		}{val, ok, err}
	}()

	// give the getter time to park, then race a put against cancellation.
	time.Sleep(20 * time.Millisecond)
	go ch.Put(context.Background(), "delivered")
	cancel()

	r := <-resultCh
	// whichever of the two raced first, the getter must observe a
	// consistent outcome: either the value or the cancellation, never
	// a value alongside a cancellation error.
	if r.err != nil {
		require.False(t, r.ok)
	} else {
		require.True(t, r.ok)
		require.Equal(t, "delivered", r.val)
	}
}

func TestQueueOverflowPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := NewChan()

	for i := 0; i < MaxOpQueueSize; i++ {
		go ch.Get(ctx)
	}
	time.Sleep(50 * time.Millisecond)

	require.Panics(t, func() {
		ch.Get(ctx)
	})
}
