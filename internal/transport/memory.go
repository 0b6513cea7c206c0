package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Network is an in-process switchboard connecting Memory transports. Each test
// builds its own Network, so there is no shared registry between tests.
type Network struct {
	mu    sync.Mutex
	nodes map[string]*Memory
}

// NewNetwork creates an empty in-memory network.
func NewNetwork() *Network {
	return &Network{nodes: make(map[string]*Memory)}
}

// Join attaches a new endpoint with the given id.
func (n *Network) Join(id string) *Memory {
	m := &Memory{
		id:     id,
		net:    n,
		events: make(chan Event, 1024),
		done:   make(chan struct{}),
	}
	n.mu.Lock()
	n.nodes[id] = m
	n.mu.Unlock()
	return m
}

func (n *Network) lookup(id string) (*Memory, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	m, ok := n.nodes[id]
	return m, ok
}

func (n *Network) leave(id string) {
	n.mu.Lock()
	delete(n.nodes, id)
	n.mu.Unlock()
}

// Memory implements Transport inside one process.
type Memory struct {
	id     string
	net    *Network
	events chan Event
	done   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	channels []*memChannel
}

func (m *Memory) LocalID() string { return m.id }

func (m *Memory) Events() <-chan Event { return m.events }

func (m *Memory) Start(context.Context) error { return nil }

// Open wires a channel pair between m and peer. The remote side sees
// ChannelOpened before the local side so it is ready for the first frame.
func (m *Memory) Open(_ context.Context, peer string) {
	remote, ok := m.net.lookup(peer)
	if !ok || peer == m.id {
		err := fmt.Errorf("%w: %s", ErrUnknownPeer, peer)
		if peer == m.id {
			err = ErrSelfConnect
		}
		go m.emit(Event{Kind: OpenFailed, Peer: peer, Err: err})
		return
	}

	local := &memChannel{owner: m, peer: peer}
	far := &memChannel{owner: remote, peer: m.id}
	local.other, far.other = far, local
	local.state.Store(int32(Open))
	far.state.Store(int32(Open))
	m.track(local)
	remote.track(far)

	go func() {
		remote.emit(Event{Kind: ChannelOpened, Peer: m.id, Channel: far})
		m.emit(Event{Kind: ChannelOpened, Peer: peer, Channel: local})
	}()
}

func (m *Memory) emit(evt Event) bool {
	select {
	case m.events <- evt:
		return true
	case <-m.done:
		return false
	}
}

func (m *Memory) track(ch *memChannel) {
	m.mu.Lock()
	m.channels = append(m.channels, ch)
	m.mu.Unlock()
}

func (m *Memory) Close() error {
	m.once.Do(func() {
		m.net.leave(m.id)
		m.mu.Lock()
		chans := m.channels
		m.channels = nil
		m.mu.Unlock()
		for _, ch := range chans {
			_ = ch.Close()
		}
		close(m.done)
	})
	return nil
}

// memChannel is one end of an in-memory channel pair.
type memChannel struct {
	owner *Memory
	peer  string
	other *memChannel
	state atomic.Int32

	mu   sync.Mutex
	sent [][]byte
}

func (c *memChannel) Peer() string { return c.peer }

func (c *memChannel) State() State { return State(c.state.Load()) }

// Send delivers payload to the other end without blocking.
func (c *memChannel) Send(payload []byte) error {
	if c.State() != Open {
		return ErrChannelClosed
	}
	frame := append([]byte(nil), payload...)
	select {
	case c.other.owner.events <- Event{Kind: DataReceived, Peer: c.other.peer, Channel: c.other, Payload: frame}:
	default:
		return ErrQueueFull
	}
	c.mu.Lock()
	c.sent = append(c.sent, frame)
	c.mu.Unlock()
	return nil
}

// Sent returns a copy of every frame written on this end.
func (c *memChannel) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

// Close closes both ends and reports ChannelClosed on each side.
func (c *memChannel) Close() error {
	if !c.state.CompareAndSwap(int32(Open), int32(Closed)) {
		return nil
	}
	c.other.state.Store(int32(Closed))
	go func() {
		c.owner.emit(Event{Kind: ChannelClosed, Peer: c.peer, Channel: c})
		c.other.owner.emit(Event{Kind: ChannelClosed, Peer: c.other.peer, Channel: c.other})
	}()
	return nil
}
