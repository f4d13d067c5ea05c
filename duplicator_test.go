package rendezvous

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDuplicatorBroadcastsToAllTaps(t *testing.T) {
	ctx := context.Background()
	in := NewChan()
	dup := NewDuplicator(ctx, in)

	t1 := NewChan(WithBuffer(Fixed, 1))
	t2 := NewChan(WithBuffer(Fixed, 1))
	dup.Tap(true, t1, t2)

	ok, err := in.Put(ctx, "broadcast")
	require.NoError(t, err)
	require.True(t, ok)

	v1, ok, err := t1.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "broadcast", v1)

	v2, ok, err := t2.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "broadcast", v2)
}

func TestDuplicatorClosesTapsOnInputClose(t *testing.T) {
	ctx := context.Background()
	in := NewChan()
	dup := NewDuplicator(ctx, in)

	tap := NewChan()
	dup.Tap(true, tap)

	in.Close()

	_, ok, err := tap.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDuplicatorUntapStopsDelivery(t *testing.T) {
	ctx := context.Background()
	in := NewChan()
	dup := NewDuplicator(ctx, in)

	tap := NewChan(WithBuffer(Fixed, 1))
	dup.Tap(false, tap)
	dup.Untap(tap)

	ok, err := in.Put(ctx, "missed")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(10 * time.Millisecond)
	require.Equal(t, 0, len(dup.snapshotTaps()))
}

func TestDuplicatorWaitsForSlowestTap(t *testing.T) {
	ctx := context.Background()
	in := NewChan()
	dup := NewDuplicator(ctx, in)

	slow := NewChan() // unbuffered: nobody reads it yet
	fast := NewChan(WithBuffer(Fixed, 4))
	dup.Tap(false, slow, fast)

	go in.Put(ctx, "one")
	time.Sleep(20 * time.Millisecond)

	_, ok, completed, err := fast.GetNowait(nil, true)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, completed)

	// second value must not reach fast until slow accepts the first.
	go in.Put(ctx, "two")
	time.Sleep(20 * time.Millisecond)
	_, _, completed, err = fast.GetNowait(nil, true)
	require.NoError(t, err)
	require.False(t, completed, "duplicator must not advance past a tap that hasn't accepted yet")

	_, ok, err = slow.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}
