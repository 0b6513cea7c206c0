package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	helloPrefix = "HELLO "
	// maxFrameSize bounds a single newline-delimited frame.
	maxFrameSize = 1 << 20
	// defaultHandshakeTimeout applies when Options leave HandshakeTimeout unset.
	defaultHandshakeTimeout = 10 * time.Second
)

type deadliner interface {
	SetDeadline(t time.Time) error
}

// streamChannel is a Channel over a byte stream. Frames are newline-delimited;
// writes go through a bounded queue drained by a single writer goroutine.
type streamChannel struct {
	peer  string
	rwc   io.ReadWriteCloser
	state atomic.Int32
	queue chan []byte
	done  chan struct{}
	once  sync.Once
	err   error
}

func newStreamChannel(peer string, rwc io.ReadWriteCloser, queueSize int) *streamChannel {
	c := &streamChannel{
		peer:  peer,
		rwc:   rwc,
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
	c.state.Store(int32(Open))
	return c
}

func (c *streamChannel) Peer() string { return c.peer }

func (c *streamChannel) State() State { return State(c.state.Load()) }

func (c *streamChannel) Send(payload []byte) error {
	if c.State() != Open {
		return ErrChannelClosed
	}
	frame := make([]byte, len(payload), len(payload)+1)
	copy(frame, payload)
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	select {
	case c.queue <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *streamChannel) Close() error {
	c.shutdown(nil)
	return nil
}

// shutdown closes the channel once, recording the first cause.
func (c *streamChannel) shutdown(cause error) {
	c.once.Do(func() {
		c.err = cause
		c.state.Store(int32(Closed))
		close(c.done)
		_ = c.rwc.Close()
	})
}

func (c *streamChannel) writeLoop() {
	for {
		select {
		case frame := <-c.queue:
			if _, err := c.rwc.Write(append(frame, '\n')); err != nil {
				c.shutdown(fmt.Errorf("write: %w", err))
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop reads frames until the stream ends and hands each to emit. A
// frame longer than maxFrameSize is discarded whole and reported to
// oversized with its length; the stream stays open.
func (c *streamChannel) readLoop(r *bufio.Reader, emit func([]byte), oversized func(int)) error {
	var (
		line []byte
		size int
	)
	flush := func() {
		if size > maxFrameSize {
			oversized(size)
		} else if frame := bytes.TrimRight(line, "\r"); len(frame) > 0 {
			emit(bytes.Clone(frame))
		}
		line, size = line[:0], 0
	}
	for {
		chunk, err := r.ReadSlice('\n')
		chunk = bytes.TrimSuffix(chunk, []byte{'\n'})
		size += len(chunk)
		if size <= maxFrameSize {
			line = append(line, chunk...)
		}
		switch {
		case err == nil:
			flush()
		case errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF):
			flush()
			return nil
		default:
			return err
		}
	}
}

// handshake exchanges HELLO lines on a fresh stream and returns the remote id.
func handshake(rw io.ReadWriter, self string, timeout time.Duration) (string, *bufio.Reader, error) {
	if d, ok := rw.(deadliner); ok {
		_ = d.SetDeadline(time.Now().Add(timeout))
		defer func() { _ = d.SetDeadline(time.Time{}) }()
	}
	if _, err := io.WriteString(rw, helloPrefix+self+"\n"); err != nil {
		return "", nil, fmt.Errorf("send hello: %w", err)
	}
	r := bufio.NewReader(rw)
	line, err := r.ReadString('\n')
	if err != nil {
		return "", nil, fmt.Errorf("read hello: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	remote, ok := strings.CutPrefix(line, helloPrefix)
	if !ok || strings.TrimSpace(remote) == "" {
		return "", nil, fmt.Errorf("invalid hello %q", line)
	}
	return strings.TrimSpace(remote), r, nil
}

// hub holds the state shared by the stream-based transports: the local id,
// the event stream and the set of live channels.
type hub struct {
	self             string
	events           chan Event
	queueSize        int
	handshakeTimeout time.Duration
	logger           *zap.Logger

	mu       sync.Mutex
	channels map[*streamChannel]struct{}
	closed   bool
	done     chan struct{}
}

func newHub(self string, queueSize int, handshakeTimeout time.Duration, logger *zap.Logger) *hub {
	if queueSize <= 0 {
		queueSize = 64
	}
	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}
	return &hub{
		self:             self,
		events:           make(chan Event, 256),
		queueSize:        queueSize,
		handshakeTimeout: handshakeTimeout,
		logger:           logger,
		channels:         make(map[*streamChannel]struct{}),
		done:             make(chan struct{}),
	}
}

func (h *hub) emit(evt Event) {
	select {
	case h.events <- evt:
	case <-h.done:
	}
}

// serve runs one stream from handshake to close. requested is the peer id the
// stream was dialled for, empty for inbound streams.
func (h *hub) serve(rwc io.ReadWriteCloser, requested string) {
	remote, r, err := handshake(rwc, h.self, h.handshakeTimeout)
	if err == nil && remote == h.self {
		err = ErrSelfConnect
	}
	if err != nil {
		_ = rwc.Close()
		if requested != "" {
			h.emit(Event{Kind: OpenFailed, Peer: requested, Err: err})
		} else {
			h.logger.Warn("inbound handshake failed", zap.Error(err))
		}
		return
	}
	if requested != "" && !strings.EqualFold(remote, requested) && !strings.Contains(requested, ":") {
		h.logger.Warn("peer introduced itself under another id",
			zap.String("requested", requested), zap.String("remote", remote))
	}

	ch := newStreamChannel(remote, rwc, h.queueSize)
	if !h.track(ch) {
		ch.shutdown(ErrChannelClosed)
		return
	}
	defer h.untrack(ch)

	peer := requested
	if peer == "" {
		peer = remote
	}
	h.emit(Event{Kind: ChannelOpened, Peer: peer, Channel: ch})
	h.logger.Debug("channel open", zap.String("peer", remote))

	go ch.writeLoop()
	readErr := ch.readLoop(r, func(frame []byte) {
		h.emit(Event{Kind: DataReceived, Peer: remote, Channel: ch, Payload: frame})
	}, func(size int) {
		h.logger.Warn("oversized frame dropped", zap.String("peer", remote), zap.Int("size", size))
	})
	if readErr == nil {
		readErr = io.EOF
	}
	ch.shutdown(readErr)
	closeErr := ch.err
	if errors.Is(closeErr, io.EOF) {
		closeErr = nil
	}
	h.emit(Event{Kind: ChannelClosed, Peer: remote, Channel: ch, Err: closeErr})
}

func (h *hub) track(ch *streamChannel) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.channels[ch] = struct{}{}
	return true
}

func (h *hub) untrack(ch *streamChannel) {
	h.mu.Lock()
	delete(h.channels, ch)
	h.mu.Unlock()
}

// closeAll shuts every live channel and stops event delivery.
func (h *hub) closeAll() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	chans := make([]*streamChannel, 0, len(h.channels))
	for ch := range h.channels {
		chans = append(chans, ch)
	}
	h.mu.Unlock()

	for _, ch := range chans {
		ch.shutdown(ErrChannelClosed)
	}
	close(h.done)
}

// dialWithTimeout bounds ctx by timeout when one is configured.
func dialWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
