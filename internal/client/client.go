package client

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/meshchat/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps the gRPC connection to a node daemon.
type Client struct {
	conn *grpc.ClientConn
	Mesh *api.MeshClient
}

// New dials the daemon's Unix domain socket and returns a typed client.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn: conn,
		Mesh: api.NewMeshClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Probe checks if a daemon is running and responsive on the socket.
func Probe(socketPath string) bool {
	c, err := New(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Mesh.GetStatus(ctx)
	return err == nil
}

// WaitFor polls the daemon with a real gRPC call until it answers or timeout
// passes.
func WaitFor(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if Probe(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
