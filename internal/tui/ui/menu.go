package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// menuRows is how many hints go in one column.
const menuRows = 6

// Menu displays keyboard shortcut hints in columns.
type Menu struct {
	*tview.Table
	theme *Theme
}

// NewMenu creates a new menu hint panel.
func NewMenu(theme *Theme) *Menu {
	t := tview.NewTable().SetBorders(false)
	t.SetBackgroundColor(theme.BgColor)
	t.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		Table: t,
		theme: theme,
	}
}

// Update lays hints out top to bottom, then left to right.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()

	for i, h := range hints {
		kc := m.theme.MenuKeyColor
		if h.Numeric {
			kc = m.theme.TitleColor
		}
		text := fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", Tag(kc), tview.Escape(h.Key), h.Description)
		m.SetCell(i%menuRows, i/menuRows, tview.NewTableCell(text).
			SetTextColor(m.theme.FgColor).
			SetExpansion(1))
	}
}
