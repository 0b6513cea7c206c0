package client

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProbeWithoutDaemon(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "daemon.sock")
	assert.False(t, Probe(sock))
}

func TestWaitForTimesOut(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "daemon.sock")
	start := time.Now()
	assert.False(t, WaitFor(sock, 200*time.Millisecond))
	assert.Less(t, time.Since(start), 5*time.Second)
}
