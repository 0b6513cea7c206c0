package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options configures the network transports.
type Options struct {
	ListenAddr       string
	DialTimeout      time.Duration
	HandshakeTimeout time.Duration
	QueueSize        int
}

// TCP implements Transport over plain TCP connections.
type TCP struct {
	*hub
	opts     Options
	book     *AddressBook
	listener net.Listener
	wg       sync.WaitGroup
}

// NewTCP creates a TCP transport that introduces itself as self.
func NewTCP(self string, opts Options, book *AddressBook, logger *zap.Logger) *TCP {
	return &TCP{
		hub:  newHub(self, opts.QueueSize, opts.HandshakeTimeout, logger.Named("tcp")),
		opts: opts,
		book: book,
	}
}

func (t *TCP) LocalID() string { return t.self }

func (t *TCP) Events() <-chan Event { return t.events }

// Addr returns the bound listen address. Valid after Start.
func (t *TCP) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *TCP) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", t.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", t.opts.ListenAddr, err)
	}
	t.listener = ln
	t.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	t.wg.Add(1)
	go t.acceptLoop()
	return nil
}

func (t *TCP) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			t.logger.Warn("accept error", zap.Error(err))
			return
		}
		go t.serve(conn, "")
	}
}

func (t *TCP) Open(ctx context.Context, peer string) {
	addr, err := t.book.Resolve(peer)
	if err != nil {
		go t.emit(Event{Kind: OpenFailed, Peer: peer, Err: err})
		return
	}
	go func() {
		dctx, cancel := dialWithTimeout(ctx, t.opts.DialTimeout)
		defer cancel()
		var d net.Dialer
		conn, err := d.DialContext(dctx, "tcp", addr)
		if err != nil {
			t.emit(Event{Kind: OpenFailed, Peer: peer, Err: fmt.Errorf("dial %s: %w", addr, err)})
			return
		}
		t.serve(conn, peer)
	}()
}

func (t *TCP) Close() error {
	t.closeAll()
	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	t.wg.Wait()
	return err
}
