package views

import (
	"fmt"

	"github.com/matheus3301/meshchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := ui.Tag(hv.theme.MenuKeyColor)

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  [%s]:[-:-:-]    Command mode        [%s]Esc[-:-:-]    Cancel / Go back
  [%s]?[-:-:-]    Help                [%s]w[-:-:-]      Show own peer id
  [%s]q[-:-:-]    Quit                [%s]Ctrl-C[-:-:-] Quit immediately

  [::b]Chat[-:-:-]

  [%s]i[-:-:-]    Focus input         [%s]Enter[-:-:-]  Send message (in input)
  [%s]Tab[-:-:-]  Switch to members   [%s]Esc[-:-:-]    Leave input

  [::b]Members[-:-:-]

  [%s]c[-:-:-]    Connect to member   [%s]d[-:-:-]      Disconnect member
  [%s]/[-:-:-]    Filter              [%s]0[-:-:-]      Clear filter

  [::b]Commands (in input, or without / in : mode)[-:-:-]

  [%s]/add <id>[-:-:-]                Add a group member
  [%s]/group <name>[-:-:-]            Set the group name
  [%s]/connect <id> [verify][-:-:-]   Open a channel (verify id wins when given)
  [%s]/disconnect <id>[-:-:-]         Close a channel
  [%s]/help[-:-:-]                    Show this help
  [%s]/quit[-:-:-]                    Quit application
`,
		kc, kc, kc, kc, kc, kc,
		kc, kc, kc, kc,
		kc, kc, kc, kc,
		kc, kc, kc, kc, kc, kc,
	)

	_, _ = fmt.Fprint(hv, help)
}
