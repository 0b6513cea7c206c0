package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFiltersByLevel(t *testing.T) {
	var file, console bytes.Buffer
	logger, err := build(&file, &console, "main", "P2P_USER_AAAA", "warn")
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(file.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "loud", rec["msg"])
	assert.Equal(t, "main", rec["profile"])
	assert.Equal(t, "P2P_USER_AAAA", rec["peer_id"])
	assert.Contains(t, console.String(), "loud")
	assert.NotContains(t, console.String(), "quiet")
}

func TestBuildRejectsUnknownLevel(t *testing.T) {
	_, err := build(&bytes.Buffer{}, &bytes.Buffer{}, "main", "", "chatty")
	require.Error(t, err)
}

func TestNewCreatesLogDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "meshd.log")
	logger, err := New(path, "main", "P2P_USER_AAAA", "info")
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	_, err = os.Stat(path)
	require.NoError(t, err)
}
