package mesh

import (
	"testing"
	"time"

	"github.com/matheus3301/meshchat/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRelay(t *testing.T, self string, seen *SeenCache, peers ...string) (*Relay, *recordSink, map[string]*fakeChannel) {
	t.Helper()
	reg := NewRegistry()
	chans := make(map[string]*fakeChannel, len(peers))
	for _, p := range peers {
		ch := newFakeChannel(p)
		chans[p] = ch
		reg.Register(p, ch)
	}
	sink := newRecordSink()
	return NewRelay(self, reg, sink, seen, zaptest.NewLogger(t)), sink, chans
}

func TestRelayForwardsToOtherLinks(t *testing.T) {
	relay, sink, chans := newTestRelay(t, "C", nil, "A", "B")
	payload := encode(t, "A", "hello", 1700000000000)

	out := relay.Handle("A", payload)

	assert.True(t, out.Delivered)
	assert.Equal(t, []string{"B"}, out.Forwarded)
	require.Len(t, sink.Entries(), 1)
	assert.Equal(t, OriginPartner, sink.Entries()[0].Origin)
	assert.Equal(t, "A", sink.Entries()[0].Message.Sender)
	assert.Empty(t, chans["A"].Sent())
	require.Len(t, chans["B"].Sent(), 1)
	assert.Equal(t, payload, chans["B"].Sent()[0], "forwarded bytes must be unchanged")
}

func TestRelayExcludesHopAndAuthor(t *testing.T) {
	relay, _, chans := newTestRelay(t, "C", nil, "A", "B", "D")

	out := relay.Handle("B", encode(t, "A", "via b", 1))

	assert.Equal(t, []string{"D"}, out.Forwarded)
	assert.Empty(t, chans["A"].Sent())
	assert.Empty(t, chans["B"].Sent())
	assert.Len(t, chans["D"].Sent(), 1)
}

func TestRelayDropsOwnMessage(t *testing.T) {
	relay, sink, chans := newTestRelay(t, "A", nil, "B", "C")

	out := relay.Handle("B", encode(t, "A", "mine", 1))

	assert.Equal(t, DropOwn, out.Dropped)
	assert.False(t, out.Delivered)
	assert.Empty(t, sink.Entries())
	assert.Empty(t, chans["C"].Sent())
}

func TestRelayMalformedPayload(t *testing.T) {
	relay, sink, chans := newTestRelay(t, "C", nil, "A", "B")

	out := relay.Handle("B", []byte("{not json"))

	assert.Equal(t, DropMalformed, out.Dropped)
	assert.Empty(t, sink.Entries())
	assert.Equal(t, []string{"[B sent unreadable data]"}, sink.Notices())
	assert.Empty(t, chans["A"].Sent())
}

func TestRelayWithoutSeenCacheRepeats(t *testing.T) {
	relay, sink, chans := newTestRelay(t, "C", nil, "A", "B", "D")
	payload := encode(t, "A", "twice", 5)

	relay.Handle("A", payload)
	relay.Handle("B", payload)

	assert.Len(t, sink.Entries(), 2)
	assert.Len(t, chans["D"].Sent(), 2)
}

func TestRelayWithSeenCacheDropsDuplicate(t *testing.T) {
	relay, sink, chans := newTestRelay(t, "C", NewSeenCache(time.Minute, 16), "A", "B", "D")
	payload := encode(t, "A", "once", 5)

	first := relay.Handle("A", payload)
	second := relay.Handle("B", payload)

	assert.True(t, first.Delivered)
	assert.Equal(t, DropDuplicate, second.Dropped)
	assert.Len(t, sink.Entries(), 1)
	assert.Len(t, chans["D"].Sent(), 1)
}

func TestRelaySkipsFailingLink(t *testing.T) {
	relay, sink, chans := newTestRelay(t, "C", nil, "A", "B", "D")
	chans["B"].sendErr = transport.ErrQueueFull

	out := relay.Handle("A", encode(t, "A", "hi", 1))

	assert.Len(t, sink.Entries(), 1)
	assert.Equal(t, []string{"B"}, out.Failed)
	assert.Equal(t, []string{"D"}, out.Forwarded)
}
