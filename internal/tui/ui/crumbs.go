package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumbs shows the profile followed by the page stack.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the trail; the last element is highlighted.
func (c *Crumbs) Update(trail []string) {
	c.Clear()
	if len(trail) == 0 {
		return
	}

	parts := make([]string, len(trail))
	for i, name := range trail {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(trail)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts[i] = fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", Tag(fg), Tag(bg), attr, tview.Escape(name))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}
