package mesh

import (
	"testing"

	"github.com/matheus3301/meshchat/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOneEntryPerPeer(t *testing.T) {
	r := NewRegistry()
	first := newFakeChannel("B")
	second := newFakeChannel("B")

	r.Register("B", first)
	r.Register("B", second)

	require.Equal(t, 1, r.Len())
	got, ok := r.Get("B")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, transport.Open, first.State(), "replacing must not close the old channel")
}

func TestRegistryUnregisterChannelIgnoresReplaced(t *testing.T) {
	r := NewRegistry()
	old := newFakeChannel("B")
	cur := newFakeChannel("B")
	r.Register("B", old)
	r.Register("B", cur)

	assert.False(t, r.UnregisterChannel("B", old))
	assert.True(t, r.Has("B"))
	assert.True(t, r.UnregisterChannel("B", cur))
	assert.False(t, r.Has("B"))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("B", newFakeChannel("B"))

	assert.True(t, r.Unregister("B"))
	assert.False(t, r.Unregister("B"))
	assert.Zero(t, r.Len())
}

func TestRegistryActiveSkipsNonOpen(t *testing.T) {
	r := NewRegistry()
	closed := newFakeChannel("A")
	closed.state = transport.Closed
	opening := newFakeChannel("D")
	opening.state = transport.Opening
	r.Register("C", newFakeChannel("C"))
	r.Register("A", closed)
	r.Register("B", newFakeChannel("B"))
	r.Register("D", opening)

	assert.Equal(t, []string{"B", "C"}, r.Peers())
	assert.True(t, r.Has("D"))
	_, ok := r.Get("A")
	assert.False(t, ok)
	assert.Equal(t, 4, r.Len())
}

func TestRegistryActiveIsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register("B", newFakeChannel("B"))
	links := r.Active()
	r.Register("C", newFakeChannel("C"))

	require.Len(t, links, 1)
	assert.Equal(t, "B", links[0].Peer)
}
