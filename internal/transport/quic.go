package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"

	quic "github.com/quic-go/quic-go"
	"go.uber.org/zap"
)

const alpn = "meshchat"

// QUIC implements Transport over quic-go, one bidirectional stream per channel.
// Certificates are ephemeral and self-signed; peers do not authenticate each
// other.
type QUIC struct {
	*hub
	opts     Options
	book     *AddressBook
	listener *quic.Listener
	tlsConf  *tls.Config
	wg       sync.WaitGroup
}

// NewQUIC creates a QUIC transport that introduces itself as self.
func NewQUIC(self string, opts Options, book *AddressBook, logger *zap.Logger) (*QUIC, error) {
	cert, err := selfSignedCert()
	if err != nil {
		return nil, fmt.Errorf("generate certificate: %w", err)
	}
	return &QUIC{
		hub:  newHub(self, opts.QueueSize, opts.HandshakeTimeout, logger.Named("quic")),
		opts: opts,
		book: book,
		tlsConf: &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{alpn},
		},
	}, nil
}

func selfSignedCert() (tls.Certificate, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, pub, priv)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}

func (q *QUIC) clientTLS() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{alpn},
	}
}

func (q *QUIC) LocalID() string { return q.self }

func (q *QUIC) Events() <-chan Event { return q.events }

// Addr returns the bound listen address. Valid after Start.
func (q *QUIC) Addr() net.Addr {
	if q.listener == nil {
		return nil
	}
	return q.listener.Addr()
}

func (q *QUIC) Start(ctx context.Context) error {
	ln, err := quic.ListenAddr(q.opts.ListenAddr, q.tlsConf, nil)
	if err != nil {
		return fmt.Errorf("quic listen %s: %w", q.opts.ListenAddr, err)
	}
	q.listener = ln
	q.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	q.wg.Add(1)
	go q.acceptLoop(ctx)
	return nil
}

func (q *QUIC) acceptLoop(ctx context.Context) {
	defer q.wg.Done()
	for {
		conn, err := q.listener.Accept(ctx)
		if err != nil {
			select {
			case <-q.done:
			default:
				q.logger.Warn("quic accept error", zap.Error(err))
			}
			return
		}
		go func(c *quic.Conn) {
			actx, cancel := dialWithTimeout(ctx, q.opts.HandshakeTimeout)
			stream, err := c.AcceptStream(actx)
			cancel()
			if err != nil {
				q.logger.Warn("quic accept stream error", zap.Error(err))
				_ = c.CloseWithError(0, "no stream")
				return
			}
			q.serve(&quicStream{Stream: stream, conn: c}, "")
		}(conn)
	}
}

func (q *QUIC) Open(ctx context.Context, peer string) {
	addr, err := q.book.Resolve(peer)
	if err != nil {
		go q.emit(Event{Kind: OpenFailed, Peer: peer, Err: err})
		return
	}
	go func() {
		dctx, cancel := dialWithTimeout(ctx, q.opts.DialTimeout)
		defer cancel()
		conn, err := quic.DialAddr(dctx, addr, q.clientTLS(), nil)
		if err != nil {
			q.emit(Event{Kind: OpenFailed, Peer: peer, Err: fmt.Errorf("quic dial %s: %w", addr, err)})
			return
		}
		stream, err := conn.OpenStreamSync(dctx)
		if err != nil {
			_ = conn.CloseWithError(0, "open stream failed")
			q.emit(Event{Kind: OpenFailed, Peer: peer, Err: fmt.Errorf("open stream: %w", err)})
			return
		}
		q.serve(&quicStream{Stream: stream, conn: conn}, peer)
	}()
}

func (q *QUIC) Close() error {
	q.closeAll()
	var err error
	if q.listener != nil {
		err = q.listener.Close()
	}
	q.wg.Wait()
	return err
}

// quicStream closes the whole connection along with its only stream.
type quicStream struct {
	*quic.Stream
	conn *quic.Conn
}

func (s *quicStream) Close() error {
	_ = s.Stream.Close()
	return s.conn.CloseWithError(0, "channel closed")
}
