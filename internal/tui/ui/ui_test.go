package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashModelExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	assert.Nil(t, f.GetMessage())

	f.Err(errors.New("boom"))
	msg := f.GetMessage()
	require.NotNil(t, msg)
	assert.Equal(t, "boom", msg.Text)
	assert.Equal(t, FlashErr, msg.Level)

	now = now.Add(11 * time.Second)
	assert.Nil(t, f.GetMessage())

	f.Info("ok")
	now = now.Add(4 * time.Second)
	assert.NotNil(t, f.GetMessage())
	now = now.Add(2 * time.Second)
	assert.Nil(t, f.GetMessage())
}

func TestPagesStack(t *testing.T) {
	p := NewPages()
	var trail []string
	p.SetOnChange(func(stack []string) { trail = stack })

	p.Reset("Chat")
	p.Push("Help")
	assert.Equal(t, "Help", p.Current())
	assert.Equal(t, 2, p.Depth())
	assert.Equal(t, []string{"Chat", "Help"}, trail)

	assert.Equal(t, "Help", p.Pop())
	assert.Equal(t, "Chat", p.Current())
	assert.Equal(t, []string{"Chat"}, trail)

	// The root page stays.
	assert.Empty(t, p.Pop())
	assert.Equal(t, 1, p.Depth())
}

func TestComplete(t *testing.T) {
	assert.Equal(t, []string{"connect "}, Complete("con"))
	assert.Equal(t, []string{"disconnect "}, Complete("DIS"))
	assert.Nil(t, Complete(""))
	assert.Nil(t, Complete("connect P2P"))
}

func TestRenderQR(t *testing.T) {
	art, err := RenderQR("P2P_USER_BEEF", false)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(art, "\n"), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, art, "█")
	// The quiet zone is light, so the first line is blank.
	assert.Empty(t, strings.TrimSpace(lines[0]))

	inverted, err := RenderQR("P2P_USER_BEEF", true)
	require.NoError(t, err)
	invLines := strings.Split(strings.TrimRight(inverted, "\n"), "\n")
	require.Len(t, invLines, len(lines))
	assert.Equal(t, "  "+strings.Repeat("█", len([]rune(lines[0]))-2), invLines[0])
}
