package mesh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/meshchat/internal/transport"
	"github.com/matheus3301/meshchat/internal/wire"
	"github.com/stretchr/testify/require"
)

// fakeChannel records frames written to it.
type fakeChannel struct {
	peer    string
	state   transport.State
	sendErr error

	mu   sync.Mutex
	sent [][]byte
}

func newFakeChannel(peer string) *fakeChannel {
	return &fakeChannel{peer: peer, state: transport.Open}
}

func (c *fakeChannel) Peer() string           { return c.peer }
func (c *fakeChannel) State() transport.State { return c.state }

func (c *fakeChannel) Send(payload []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), payload...))
	return nil
}

func (c *fakeChannel) Close() error {
	c.state = transport.Closed
	return nil
}

func (c *fakeChannel) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

// recordSink collects everything presented locally.
type recordSink struct {
	mu      sync.Mutex
	entries []Entry
	notices []string
	signal  chan struct{}
}

func newRecordSink() *recordSink {
	return &recordSink{signal: make(chan struct{}, 1024)}
}

func (s *recordSink) Deliver(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	s.signal <- struct{}{}
}

func (s *recordSink) Notice(text string) {
	s.mu.Lock()
	s.notices = append(s.notices, text)
	s.mu.Unlock()
	s.signal <- struct{}{}
}

func (s *recordSink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

func (s *recordSink) Notices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notices...)
}

// texts returns the text of every delivered entry with the given origin.
func (s *recordSink) texts(origin Origin) []string {
	var out []string
	for _, e := range s.Entries() {
		if e.Origin == origin {
			out = append(out, e.Message.Text)
		}
	}
	return out
}

// memStore is an in-memory GroupStore.
type memStore struct {
	mu    sync.Mutex
	name  string
	ids   []string
	saves int
	err   error
}

func (m *memStore) SaveGroup(name string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.name = name
	m.ids = append([]string(nil), ids...)
	return nil
}

var errDisk = errors.New("disk full")

func encode(t *testing.T, sender, text string, ts int64) []byte {
	t.Helper()
	b, err := wire.Encode(wire.Message{Sender: sender, Text: text, Timestamp: ts})
	require.NoError(t, err)
	return b
}

// eventually polls cond for up to two seconds.
func eventually(t *testing.T, cond func() bool, msgAndArgs ...any) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msgAndArgs...)
}

// scriptedTransport hands the node whatever events the test pushes.
type scriptedTransport struct {
	id     string
	events chan transport.Event

	mu     sync.Mutex
	opened []string
}

func newScriptedTransport(id string) *scriptedTransport {
	return &scriptedTransport{id: id, events: make(chan transport.Event, 16)}
}

func (s *scriptedTransport) LocalID() string                { return s.id }
func (s *scriptedTransport) Start(context.Context) error    { return nil }
func (s *scriptedTransport) Events() <-chan transport.Event { return s.events }
func (s *scriptedTransport) Close() error                   { return nil }

func (s *scriptedTransport) Open(_ context.Context, peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, peer)
}

func (s *scriptedTransport) Opened() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}
