package daemon

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/meshchat/internal/api"
	"github.com/matheus3301/meshchat/internal/client"
	"github.com/matheus3301/meshchat/internal/config"
	"github.com/matheus3301/meshchat/internal/lock"
	"github.com/matheus3301/meshchat/internal/profile"
	"github.com/matheus3301/meshchat/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// testHome points the profile tree at a short temporary directory to stay
// under the Unix socket path limit.
func testHome(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "mesh-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv("MESHCHAT_HOME", dir)
	t.Setenv("MESH_LISTEN", "127.0.0.1:0")
	return dir
}

func startDaemon(t *testing.T, sock string) (*fxtest.App, *client.Client) {
	t.Helper()
	app := fxtest.New(t, Module(Params{ProfileName: "test", SocketPath: sock}))
	app.RequireStart()

	c, err := client.New(sock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return app, c
}

func TestDaemonLifecycle(t *testing.T) {
	home := testHome(t)
	sock := filepath.Join(home, "d.sock")
	app, c := startDaemon(t, sock)
	defer app.RequireStop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var view *api.StatusView
	require.Eventually(t, func() bool {
		var err error
		view, err = c.Mesh.GetStatus(ctx)
		return err == nil && view.State == "OFFLINE"
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "test", view.Profile)
	assert.Regexp(t, `^P2P_USER_[0-9A-F]{4}$`, view.PeerID)

	// The generated id was written back to node.toml.
	cfg, created, err := config.LoadNode(profile.NodeConfigPath("test"), "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, view.PeerID, cfg.PeerID)

	// The profile is locked while the daemon runs.
	_, err = lock.Acquire(profile.Dir("test"), "")
	var held *lock.LockHeldError
	require.True(t, errors.As(err, &held), "err = %v", err)
	assert.Equal(t, view.PeerID, held.PeerID)

	_, err = c.Mesh.Send(ctx, "nobody listening")
	st, _ := grpcstatus.FromError(err)
	assert.Equal(t, codes.FailedPrecondition, st.Code())

	id, err := c.Mesh.AddMember(ctx, "p2p_user_beef")
	require.NoError(t, err)
	assert.Equal(t, "P2P_USER_BEEF", id)

	history, err := c.Mesh.ListHistory(ctx, api.HistoryParams{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, "member P2P_USER_BEEF added", history[len(history)-1].Text)
}

func TestDaemonRestoresState(t *testing.T) {
	home := testHome(t)
	sock := filepath.Join(home, "d.sock")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	app, c := startDaemon(t, sock)
	first, err := c.Mesh.GetStatus(ctx)
	require.NoError(t, err)
	_, err = c.Mesh.AddMember(ctx, "P2P_USER_CAFE")
	require.NoError(t, err)
	_, err = c.Mesh.SetGroup(ctx, "lab")
	require.NoError(t, err)
	app.RequireStop()

	_, err = os.Stat(sock)
	assert.True(t, os.IsNotExist(err), "socket removed on stop")

	app, c = startDaemon(t, sock)
	defer app.RequireStop()

	second, err := c.Mesh.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.PeerID, second.PeerID)
	assert.Equal(t, "lab", second.Group)
	assert.Equal(t, []api.MemberView{{ID: "P2P_USER_CAFE"}}, second.Members)

	require.Eventually(t, func() bool {
		history, err := c.Mesh.ListHistory(ctx, api.HistoryParams{Limit: 1})
		return err == nil && len(history) == 1 &&
			history[0].Text == "local group loaded, please reconnect to your peers"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestTransportGivesUpOnSilentPeer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				_ = c.Close()
			}
		}()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()

	cfg := config.DefaultNode()
	cfg.PeerID = "P2P_USER_AAAA"
	cfg.Listen = "127.0.0.1:0"
	cfg.DialTimeout = 500 * time.Millisecond
	cfg.HandshakeTimeout = 500 * time.Millisecond
	cfg.Addresses = map[string]string{"P2P_USER_MUTE": ln.Addr().String()}

	tr, err := provideTransport(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(func() { _ = tr.Close() })

	tr.Open(context.Background(), "P2P_USER_MUTE")

	select {
	case evt := <-tr.Events():
		assert.Equal(t, transport.OpenFailed, evt.Kind)
		assert.Equal(t, "P2P_USER_MUTE", evt.Peer)
	case <-time.After(3 * time.Second):
		t.Fatal("dial to a silent peer never finished")
	}
}
