package transport

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// tcpPair returns both ends of a loopback TCP connection. net.Pipe is
// unbuffered, so both sides writing their hello first would deadlock on it.
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()
	left, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	right, ok := <-accepted
	require.True(t, ok)
	return left, right
}

func TestHandshakeExchangesIDs(t *testing.T) {
	left, right := tcpPair(t)
	defer func() { _ = left.Close() }()
	defer func() { _ = right.Close() }()

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, _, err := handshake(right, "RIGHT", time.Second)
		done <- result{id, err}
	}()

	id, _, err := handshake(left, "LEFT", time.Second)
	require.NoError(t, err)
	require.Equal(t, "RIGHT", id)

	r := <-done
	require.NoError(t, r.err)
	require.Equal(t, "LEFT", r.id)
}

func TestHandshakeRejectsGarbage(t *testing.T) {
	left, right := tcpPair(t)
	defer func() { _ = left.Close() }()
	defer func() { _ = right.Close() }()

	go func() {
		buf := make([]byte, 64)
		_, _ = right.Read(buf)
		_, _ = right.Write([]byte("{\"sender\":\"x\"}\n"))
	}()

	_, _, err := handshake(left, "LEFT", time.Second)
	require.Error(t, err)
}

func TestStreamChannelQueueFull(t *testing.T) {
	left, right := net.Pipe()
	defer func() { _ = right.Close() }()

	ch := newStreamChannel("RIGHT", left, 1)
	// No writer goroutine: the first frame fills the queue.
	require.NoError(t, ch.Send([]byte("one")))
	require.ErrorIs(t, ch.Send([]byte("two")), ErrQueueFull)

	require.NoError(t, ch.Close())
	require.Equal(t, Closed, ch.State())
	require.ErrorIs(t, ch.Send([]byte("three")), ErrChannelClosed)
}

func TestReadLoopSkipsOversizedFrame(t *testing.T) {
	left, right := net.Pipe()
	defer func() { _ = right.Close() }()

	go func() {
		_, _ = right.Write([]byte("first\n"))
		_, _ = right.Write([]byte(strings.Repeat("x", maxFrameSize+10) + "\n"))
		_, _ = right.Write([]byte("second\r\n\n"))
		_ = right.Close()
	}()

	ch := newStreamChannel("RIGHT", left, 1)
	var frames []string
	var dropped []int
	err := ch.readLoop(bufio.NewReader(left), func(frame []byte) {
		frames = append(frames, string(frame))
	}, func(size int) {
		dropped = append(dropped, size)
	})

	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, frames)
	require.Equal(t, []int{maxFrameSize + 10}, dropped)
}

func TestReadLoopKeepsFrameAtLimit(t *testing.T) {
	left, right := net.Pipe()
	defer func() { _ = right.Close() }()

	frame := strings.Repeat("y", maxFrameSize)
	go func() {
		_, _ = right.Write([]byte(frame + "\ntail"))
		_ = right.Close()
	}()

	ch := newStreamChannel("RIGHT", left, 1)
	var frames []string
	err := ch.readLoop(bufio.NewReader(left), func(f []byte) {
		frames = append(frames, string(f))
	}, func(size int) {
		t.Errorf("frame of %d bytes dropped", size)
	})

	require.NoError(t, err)
	require.Equal(t, []string{frame, "tail"}, frames)
}
