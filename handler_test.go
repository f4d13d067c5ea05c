package rendezvous

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFnHandlerCommitOnce(t *testing.T) {
	var got any
	h := &fnHandler{active: true, blockable: true, deliver: func(v any) { got = v }}

	require.True(t, h.Active())
	deliver, ok := h.Commit()
	require.True(t, ok)
	require.False(t, h.Active())

	deliver("hello")
	require.Equal(t, "hello", got)

	_, ok = h.Commit()
	require.False(t, ok, "a handler can only be committed once")
}

func TestSelectFlagSharedAcrossHandlers(t *testing.T) {
	flag := newSelectFlag()
	a := &selectHandler{flag: flag, blockable: true}
	b := &selectHandler{flag: flag, blockable: true}

	require.True(t, a.Active())
	require.True(t, b.Active())

	_, ok := a.Commit()
	require.True(t, ok)
	require.False(t, a.Active())
	require.False(t, b.Active(), "committing one sibling deactivates every sibling")

	_, ok = b.Commit()
	require.False(t, ok)
}
