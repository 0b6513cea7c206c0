// Package transport defines the point-to-point channel capability the mesh
// runs on and provides TCP, QUIC and in-memory implementations.
//
// A transport opens channels to named peers and reports everything that
// happens on them as Events on a single stream, so the consumer can process
// them one at a time.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrChannelClosed is returned when writing to a channel that is not open.
	ErrChannelClosed = errors.New("channel closed")
	// ErrQueueFull is returned when a channel's write queue has no room left.
	ErrQueueFull = errors.New("channel write queue full")
	// ErrUnknownPeer is returned when a peer id cannot be resolved to an address.
	ErrUnknownPeer = errors.New("unknown peer")
	// ErrSelfConnect is reported when a dial ends up at the local endpoint.
	ErrSelfConnect = errors.New("connected to self")
)

// State is the lifecycle state of a channel.
type State int32

const (
	Opening State = iota
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Channel is a live bidirectional message channel to exactly one remote peer.
type Channel interface {
	// Peer returns the remote peer id.
	Peer() string
	State() State
	// Send queues one frame for delivery. It never blocks.
	Send(payload []byte) error
	Close() error
}

// EventKind distinguishes transport events.
type EventKind int

const (
	ChannelOpened EventKind = iota
	DataReceived
	ChannelClosed
	OpenFailed
)

func (k EventKind) String() string {
	switch k {
	case ChannelOpened:
		return "channel_opened"
	case DataReceived:
		return "data_received"
	case ChannelClosed:
		return "channel_closed"
	case OpenFailed:
		return "open_failed"
	default:
		return "unknown"
	}
}

// Event is something that happened on the transport.
//
// Peer is the id the event concerns. For outcomes of Open (ChannelOpened from
// a dial, OpenFailed) it is the id that was requested, which may differ from
// Channel.Peer() when the remote introduces itself under another id.
type Event struct {
	Kind    EventKind
	Peer    string
	Channel Channel
	Payload []byte
	Err     error
}

// Transport is the capability the mesh node consumes.
type Transport interface {
	// LocalID returns the id this endpoint introduces itself with.
	LocalID() string
	// Start begins accepting inbound channels.
	Start(ctx context.Context) error
	// Open asynchronously opens a channel to peer. The result is reported as
	// a ChannelOpened or OpenFailed event.
	Open(ctx context.Context, peer string)
	Events() <-chan Event
	Close() error
}
