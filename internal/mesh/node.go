package mesh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/meshchat/internal/bus"
	"github.com/matheus3301/meshchat/internal/status"
	"github.com/matheus3301/meshchat/internal/transport"
	"github.com/matheus3301/meshchat/internal/wire"
	"go.uber.org/zap"
)

// Event kinds published by the node.
const (
	EventPeerConnected    = "peer.connected"
	EventPeerDisconnected = "peer.disconnected"
	EventRosterChanged    = "roster.changed"
)

// PeerChange is the payload of peer.* events.
type PeerChange struct {
	Peer string
	Err  error
}

// Options configures a Node.
type Options struct {
	Transport transport.Transport
	Sink      Sink
	Store     GroupStore
	Bus       *bus.Bus
	Logger    *zap.Logger

	// Dedup enables the seen-message cache. Without it a message that
	// reaches the node over two paths is shown and forwarded twice.
	Dedup   bool
	SeenTTL time.Duration
	SeenMax int

	// GroupName and Members restore a persisted roster.
	GroupName string
	Members   []string
}

// ConnectRequest asks the node to open a channel. Verify, when set, is the id
// typed by the user in manual mode and takes precedence over Target.
type ConnectRequest struct {
	Target string
	Verify string
}

// Status is a point-in-time view of the node.
type Status struct {
	Self  string
	State status.State
	Group Group
	Peers []string
}

// Node is one participant of the mesh. All mutations run on the goroutine
// executing Run; other goroutines talk to it through the command mailbox.
type Node struct {
	self      string
	transport transport.Transport
	sink      Sink
	bus       *bus.Bus
	logger    *zap.Logger

	registry   *Registry
	roster     *Roster
	seen       *SeenCache
	relay      *Relay
	dispatcher *Dispatcher
	machine    *status.Machine

	pending  map[string]struct{}
	cmds     chan func(ctx context.Context)
	restored bool

	runOnce sync.Once
	done    chan struct{}
}

// NewNode wires a node around the given transport.
func NewNode(opts Options) *Node {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	self := opts.Transport.LocalID()

	var seen *SeenCache
	if opts.Dedup {
		seen = NewSeenCache(opts.SeenTTL, opts.SeenMax)
	}

	registry := NewRegistry()
	roster := NewRoster(self, opts.Store)
	restored := opts.GroupName != "" || len(opts.Members) > 0
	if restored {
		roster.Restore(opts.GroupName, opts.Members)
	}

	return &Node{
		self:       self,
		transport:  opts.Transport,
		sink:       opts.Sink,
		bus:        opts.Bus,
		logger:     logger,
		registry:   registry,
		roster:     roster,
		seen:       seen,
		relay:      NewRelay(self, registry, opts.Sink, seen, logger.Named("relay")),
		dispatcher: NewDispatcher(self, registry, opts.Sink, seen, logger.Named("dispatch")),
		machine:    status.NewMachine(opts.Bus),
		pending:    make(map[string]struct{}),
		cmds:       make(chan func(ctx context.Context)),
		restored:   restored,
		done:       make(chan struct{}),
	}
}

// Self returns the local peer id.
func (n *Node) Self() string { return n.self }

// Status returns a snapshot safe to call from any goroutine.
func (n *Node) Status() Status {
	return Status{
		Self:  n.self,
		State: n.machine.Current(),
		Group: n.roster.Group(),
		Peers: n.registry.Peers(),
	}
}

// Run starts the transport and processes events and commands until ctx is
// cancelled or the transport event stream ends.
func (n *Node) Run(ctx context.Context) error {
	started := false
	n.runOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("node already run")
	}
	defer close(n.done)

	if err := n.transport.Start(ctx); err != nil {
		_ = n.machine.Transition(status.Error)
		return fmt.Errorf("start transport: %w", err)
	}
	_ = n.machine.Transition(status.Offline)
	n.logger.Info("node running", zap.String("peer_id", n.self))
	if n.restored {
		n.sink.Notice("local group loaded, please reconnect to your peers")
	}

	events := n.transport.Events()
	for {
		select {
		case <-ctx.Done():
			n.stop()
			return nil
		case evt, ok := <-events:
			if !ok {
				n.stop()
				return nil
			}
			n.handleEvent(ctx, evt)
		case cmd := <-n.cmds:
			cmd(ctx)
		}
	}
}

func (n *Node) stop() {
	_ = n.machine.Transition(status.Stopping)
	if err := n.transport.Close(); err != nil {
		n.logger.Warn("close transport", zap.Error(err))
	}
	n.logger.Info("node stopped")
}

// do runs fn on the event loop and waits for it to finish.
func (n *Node) do(ctx context.Context, fn func(ctx context.Context) error) error {
	errc := make(chan error, 1)
	cmd := func(loopCtx context.Context) { errc <- fn(loopCtx) }
	select {
	case n.cmds <- cmd:
	case <-n.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send authors a message and pushes it to every open link.
func (n *Node) Send(ctx context.Context, text string) (wire.Message, error) {
	var msg wire.Message
	err := n.do(ctx, func(context.Context) error {
		var err error
		msg, _, err = n.dispatcher.Send(text)
		return err
	})
	return msg, err
}

// Connect asks the transport to open a channel to a peer.
func (n *Node) Connect(ctx context.Context, req ConnectRequest) error {
	target := NormalizeID(req.Target)
	if v := NormalizeID(req.Verify); v != "" {
		target = v
	}
	return n.do(ctx, func(loopCtx context.Context) error {
		switch {
		case target == "":
			return ErrEmptyTarget
		case target == NormalizeID(n.self):
			return ErrConnectSelf
		case n.registry.Has(target):
			return fmt.Errorf("%w: %s", ErrAlreadyConnected, target)
		}
		if _, ok := n.pending[target]; ok {
			return fmt.Errorf("%w: %s", ErrAlreadyConnected, target)
		}
		n.pending[target] = struct{}{}
		n.sink.Notice(fmt.Sprintf("connecting to %s...", target))
		n.transport.Open(loopCtx, target)
		return nil
	})
}

// Disconnect closes the channel to peer. Bookkeeping follows from the close
// event.
func (n *Node) Disconnect(ctx context.Context, peer string) error {
	peer = NormalizeID(peer)
	return n.do(ctx, func(context.Context) error {
		ch, ok := n.registry.Get(peer)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotConnected, peer)
		}
		return ch.Close()
	})
}

// AddMember adds a peer to the roster and returns its normalized id.
func (n *Node) AddMember(ctx context.Context, id string) (string, error) {
	var added string
	err := n.do(ctx, func(context.Context) error {
		var err error
		added, err = n.roster.AddMember(id)
		if err != nil {
			return err
		}
		n.roster.MarkConnected(added, n.registry.Has(added))
		n.sink.Notice(fmt.Sprintf("member %s added", added))
		n.publish(EventRosterChanged, n.roster.Group())
		return nil
	})
	return added, err
}

// SetGroup renames the group and returns the stored name.
func (n *Node) SetGroup(ctx context.Context, name string) (string, error) {
	var set string
	err := n.do(ctx, func(context.Context) error {
		var err error
		set, err = n.roster.SetGroup(name)
		if err != nil {
			return err
		}
		n.sink.Notice(fmt.Sprintf("group name set to %s", set))
		n.publish(EventRosterChanged, n.roster.Group())
		return nil
	})
	return set, err
}

func (n *Node) handleEvent(ctx context.Context, evt transport.Event) {
	switch evt.Kind {
	case transport.ChannelOpened:
		n.onOpened(evt)
	case transport.DataReceived:
		n.relay.Handle(evt.Channel.Peer(), evt.Payload)
	case transport.ChannelClosed:
		n.onClosed(evt)
	case transport.OpenFailed:
		n.onOpenFailed(evt)
	default:
		n.logger.Warn("unknown transport event", zap.Stringer("kind", evt.Kind))
	}
}

func (n *Node) onOpened(evt transport.Event) {
	peer := evt.Channel.Peer()
	delete(n.pending, evt.Peer)
	delete(n.pending, peer)

	n.registry.Register(peer, evt.Channel)
	n.roster.MarkConnected(peer, true)
	n.logger.Info("connection established", zap.String("peer", peer))
	n.sink.Notice(fmt.Sprintf("connection to %s established", peer))
	n.publish(EventPeerConnected, PeerChange{Peer: peer})
	n.updateState()
}

func (n *Node) onClosed(evt transport.Event) {
	peer := evt.Channel.Peer()
	if !n.registry.UnregisterChannel(peer, evt.Channel) {
		n.logger.Debug("close of replaced channel", zap.String("peer", peer))
		return
	}
	n.roster.MarkConnected(peer, false)
	n.logger.Info("connection closed", zap.String("peer", peer), zap.Error(evt.Err))
	n.sink.Notice(fmt.Sprintf("connection to %s closed", peer))
	n.publish(EventPeerDisconnected, PeerChange{Peer: peer, Err: evt.Err})
	n.updateState()
}

func (n *Node) onOpenFailed(evt transport.Event) {
	delete(n.pending, evt.Peer)
	// A failed dial never registered anything; an inbound channel from the
	// same peer may still be live.
	n.roster.MarkConnected(evt.Peer, n.registry.Has(evt.Peer))
	n.logger.Warn("connection failed", zap.String("peer", evt.Peer), zap.Error(evt.Err))
	n.sink.Notice(fmt.Sprintf("failed to connect to %s: %v", evt.Peer, evt.Err))
	n.updateState()
}

// updateState moves between OFFLINE and ONLINE as links come and go.
func (n *Node) updateState() {
	want := status.Offline
	if len(n.registry.Active()) > 0 {
		want = status.Online
	}
	if n.machine.Current() == want {
		return
	}
	if err := n.machine.Transition(want); err != nil {
		n.logger.Warn("status transition", zap.Error(err))
	}
}

func (n *Node) publish(kind string, payload any) {
	if n.bus == nil {
		return
	}
	n.bus.Publish(bus.NewEvent(kind, payload))
}
