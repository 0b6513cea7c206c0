package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/meshchat/internal/api"
	"github.com/matheus3301/meshchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// MemberList shows the group roster with a link flag per member.
type MemberList struct {
	*tview.Table
	theme   *ui.Theme
	members []api.MemberView
	filter  string
}

// NewMemberList creates a new member table.
func NewMemberList(theme *ui.Theme) *MemberList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Members ")
	table.SetTitleColor(theme.TitleColor)

	return &MemberList{
		Table: table,
		theme: theme,
	}
}

// Name implements Component.
func (ml *MemberList) Name() string { return "Members" }

// Hints implements Component.
func (ml *MemberList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "c", Description: "Connect"},
		{Key: "d", Description: "Disconnect"},
		{Key: "/", Description: "Filter"},
		{Key: "Tab", Description: "Chat"},
		{Key: "0", Description: "Clear filter", Numeric: true},
	}
}

// Update refreshes the table with new data.
func (ml *MemberList) Update(members []api.MemberView) {
	ml.members = members
	ml.render()
}

// SetFilter sets the active filter text and re-renders.
func (ml *MemberList) SetFilter(filter string) {
	ml.filter = filter
	ml.render()
}

// ClearFilter clears the active filter.
func (ml *MemberList) ClearFilter() {
	ml.filter = ""
	ml.render()
}

func (ml *MemberList) visible() []api.MemberView {
	if ml.filter == "" {
		return ml.members
	}
	var out []api.MemberView
	for _, m := range ml.members {
		if strings.Contains(strings.ToLower(m.ID), strings.ToLower(ml.filter)) {
			out = append(out, m)
		}
	}
	return out
}

func (ml *MemberList) render() {
	ml.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" PEER", 1},
		{" LINK", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(ml.theme.TableHeaderFg).
			SetBackgroundColor(ml.theme.BgColor).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		ml.SetCell(0, col, cell)
	}

	rows := ml.visible()
	for i, m := range rows {
		link, color := "down", ml.theme.LinkDownColor
		if m.Connected {
			link, color = "up", ml.theme.LinkUpColor
		}
		ml.SetCell(i+1, 0, tview.NewTableCell(" "+tview.Escape(m.ID)).SetExpansion(1).SetTextColor(ml.theme.FgColor))
		ml.SetCell(i+1, 1, tview.NewTableCell(" "+link).SetExpansion(0).SetTextColor(color).SetAlign(tview.AlignRight))
	}

	if ml.filter != "" {
		ml.SetTitle(fmt.Sprintf(" Members (%d/%d) filter: %s ", len(rows), len(ml.members), tview.Escape(ml.filter)))
	} else {
		ml.SetTitle(fmt.Sprintf(" Members (%d) ", len(ml.members)))
	}
}

// SelectedMember returns the id of the selected member, or empty.
func (ml *MemberList) SelectedMember() string {
	row, _ := ml.GetSelection()
	idx := row - 1 // header
	rows := ml.visible()
	if idx < 0 || idx >= len(rows) {
		return ""
	}
	return rows[idx].ID
}
