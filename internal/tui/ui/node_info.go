package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// NodeData holds node information for display.
type NodeData struct {
	Profile string
	PeerID  string
	State   string
	Group   string
	Links   int
	Members int
	Uptime  time.Duration
}

// NodeInfo displays node metadata in the header.
type NodeInfo struct {
	*tview.TextView
	theme *Theme
}

// NewNodeInfo creates a new node info panel.
func NewNodeInfo(theme *Theme) *NodeInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &NodeInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the node info.
func (ni *NodeInfo) Update(data *NodeData) {
	ni.Clear()
	if data == nil {
		return
	}

	fgColor := Tag(ni.theme.FgColor)
	counterColor := Tag(ni.theme.CounterColor)

	group := data.Group
	if group == "" {
		group = "-"
	}

	text := fmt.Sprintf(
		"[%s::b]Profile:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Peer:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]State:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Group:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Links:[-:-:-]   [%s]%d/%d[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fgColor, counterColor, data.Profile,
		fgColor, counterColor, data.PeerID,
		fgColor, counterColor, data.State,
		fgColor, counterColor, tview.Escape(group),
		fgColor, counterColor, data.Links, data.Members,
		fgColor, counterColor, formatDuration(data.Uptime),
	)

	_, _ = fmt.Fprint(ni, text)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
