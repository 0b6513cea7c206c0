package config

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the given variables for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var envKeys = []string{
	"MESH_PEER_ID", "MESH_LISTEN", "MESH_TRANSPORT", "MESH_DIAL_TIMEOUT",
	"MESH_QUEUE_SIZE", "MESH_LOG_LEVEL", "MESH_RELAY_DEDUP", "MESH_RELAY_SEEN_TTL",
	"MESH_RELAY_SEEN_MAX", "MESH_ADDRESSES", "MESH_HANDSHAKE_TIMEOUT",
}

func TestNewPeerID(t *testing.T) {
	re := regexp.MustCompile(`^P2P_USER_[0-9A-F]{4}$`)
	for range 20 {
		assert.Regexp(t, re, NewPeerID())
	}
}

func TestLoadNodeMissingUsesDefaults(t *testing.T) {
	clearEnv(t, envKeys...)
	dir := t.TempDir()

	cfg, created, err := LoadNode(filepath.Join(dir, "node.toml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)

	assert.True(t, created)
	assert.Regexp(t, `^P2P_USER_`, cfg.PeerID)
	assert.Equal(t, "tcp", cfg.Transport)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, 10*time.Second, cfg.HandshakeTimeout)
	assert.True(t, cfg.Relay.Dedup)
	assert.Equal(t, 10*time.Minute, cfg.Relay.SeenTTL)
}

func TestNodeRoundTrip(t *testing.T) {
	clearEnv(t, envKeys...)
	path := filepath.Join(t.TempDir(), "node.toml")

	want := DefaultNode()
	want.PeerID = "P2P_USER_BEEF"
	want.Transport = "quic"
	want.Relay.Dedup = false
	want.Addresses = map[string]string{"P2P_USER_CAFE": "10.0.0.2:7420"}
	require.NoError(t, SaveNode(path, want))

	got, created, err := LoadNode(path, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, want, got)
}

func TestLoadNodeNormalizes(t *testing.T) {
	clearEnv(t, envKeys...)
	path := filepath.Join(t.TempDir(), "node.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
peer_id = "p2p_user_ab12"
transport = "TCP"

[addresses]
p2p_user_cd34 = "127.0.0.1:7421"
`), 0600))

	cfg, _, err := LoadNode(path, "")
	require.NoError(t, err)
	assert.Equal(t, "P2P_USER_AB12", cfg.PeerID)
	assert.Equal(t, "tcp", cfg.Transport)
	assert.Equal(t, map[string]string{"P2P_USER_CD34": "127.0.0.1:7421"}, cfg.Addresses)
}

func TestLoadNodeEnvironmentOverrides(t *testing.T) {
	clearEnv(t, envKeys...)
	dir := t.TempDir()
	path := filepath.Join(dir, "node.toml")
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, SaveNode(path, Node{
		PeerID: "P2P_USER_0001", Listen: "127.0.0.1:7000", Transport: "tcp",
		DialTimeout: time.Second, QueueSize: 8, LogLevel: "info",
	}))
	require.NoError(t, os.WriteFile(envFile, []byte("MESH_QUEUE_SIZE=32\nMESH_LISTEN=127.0.0.1:9000\n"), 0600))
	t.Setenv("MESH_LISTEN", "127.0.0.1:0")
	t.Setenv("MESH_RELAY_SEEN_TTL", "30s")

	cfg, _, err := LoadNode(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.QueueSize, "dotenv applies when unset")
	assert.Equal(t, "127.0.0.1:0", cfg.Listen, "real environment wins over dotenv")
	assert.Equal(t, 30*time.Second, cfg.Relay.SeenTTL)
	assert.Equal(t, time.Second, cfg.HandshakeTimeout, "unset handshake timeout follows dial_timeout")
}

func TestLoadNodeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"transport", `transport = "udp"`},
		{"queue size", `queue_size = 0`},
		{"log level", `log_level = "loud"`},
		{"listen", `listen = "nowhere"`},
		{"peer id", `peer_id = "has space"`},
		{"address", "[addresses]\nP2P_USER_X = \"bad\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, envKeys...)
			path := filepath.Join(t.TempDir(), "node.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body+"\n"), 0600))

			_, _, err := LoadNode(path, "")
			require.Error(t, err)
		})
	}
}

func TestLoadNodeBadTOML(t *testing.T) {
	clearEnv(t, envKeys...)
	path := filepath.Join(t.TempDir(), "node.toml")
	require.NoError(t, os.WriteFile(path, []byte("peer_id = \n"), 0600))

	_, _, err := LoadNode(path, "")
	require.Error(t, err)
}
