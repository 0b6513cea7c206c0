package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// FlashLevel represents the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

// flashTTL is how long each level stays on screen.
var flashTTL = map[FlashLevel]time.Duration{
	FlashInfo: 5 * time.Second,
	FlashWarn: 8 * time.Second,
	FlashErr:  10 * time.Second,
}

// FlashMessage is a flash notification with a level and expiry.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
}

// FlashModel holds the current transient notification. It is written from
// worker goroutines and read on the UI goroutine.
type FlashModel struct {
	mu      sync.RWMutex
	current FlashMessage
	now     func() time.Time
}

// NewFlashModel creates a new flash model.
func NewFlashModel() *FlashModel {
	return &FlashModel{now: time.Now}
}

// Info sets an info-level flash message.
func (f *FlashModel) Info(msg string) { f.set(msg, FlashInfo) }

// Warn sets a warn-level flash message.
func (f *FlashModel) Warn(msg string) { f.set(msg, FlashWarn) }

// Err sets an error-level flash message.
func (f *FlashModel) Err(err error) { f.set(err.Error(), FlashErr) }

func (f *FlashModel) set(msg string, level FlashLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = FlashMessage{
		Text:    msg,
		Level:   level,
		Expires: f.now().Add(flashTTL[level]),
	}
}

// GetMessage returns the current flash message, or nil if expired.
func (f *FlashModel) GetMessage() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || f.now().After(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// FlashBar is the UI component that displays flash notifications.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates a new flash notification bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders a flash message on the bar; nil clears it.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}

	color := fb.theme.FlashInfoColor
	switch msg.Level {
	case FlashWarn:
		color = fb.theme.FlashWarnColor
	case FlashErr:
		color = fb.theme.FlashErrColor
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", Tag(color), tview.Escape(msg.Text))
}
