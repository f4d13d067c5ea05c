package rendezvous

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMuxForwardsFromAnyMixedChannel(t *testing.T) {
	ctx := context.Background()
	mux := NewMux(ctx, nil)
	defer mux.Close()

	a := NewChan()
	b := NewChan()
	mux.Mix(MixAttrs{}, a, b)

	go a.Put(ctx, "from-a")
	v, ok, err := mux.Out().Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "from-a", v)
}

func TestMuxMuteModeRestrictsForwarding(t *testing.T) {
	ctx := context.Background()
	mux := NewMux(ctx, nil)
	defer mux.Close()

	solo := NewChan()
	muted := NewChan(WithBuffer(Fixed, 1))
	mux.Mix(MixAttrs{Solo: true}, solo)
	mux.Mix(MixAttrs{}, muted)

	muted.PutNowait("should-not-forward", nil, false)

	go solo.Put(ctx, "solo-value")
	v, ok, err := mux.Out().Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "solo-value", v)
}

func TestMuxUnmixStopsForwarding(t *testing.T) {
	ctx := context.Background()
	mux := NewMux(ctx, nil)
	defer mux.Close()

	a := NewChan(WithBuffer(Fixed, 1))
	mux.Mix(MixAttrs{}, a)
	mux.Unmix(a)

	ok, err := a.Put(ctx, "ignored")
	require.NoError(t, err)
	require.True(t, ok, "put still succeeds into the buffer even though nobody reads it via the mux")
}

func TestSoloModeRejectsInvalidValue(t *testing.T) {
	ctx := context.Background()
	mux := NewMux(ctx, nil)
	defer mux.Close()

	err := mux.SoloMode(SoloMode(99))
	require.Error(t, err, "only ModeMute and ModePause are valid solo modes")
}

func TestSoloModeAcceptsValidValues(t *testing.T) {
	ctx := context.Background()
	mux := NewMux(ctx, nil)
	defer mux.Close()

	require.NoError(t, mux.SoloMode(ModeMute))
	require.NoError(t, mux.SoloMode(ModePause))
}
