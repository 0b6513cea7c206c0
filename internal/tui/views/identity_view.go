package views

import (
	"fmt"

	"github.com/matheus3301/meshchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// IdentityView shows the own peer id as text and QR code so another user can
// add it to their roster.
type IdentityView struct {
	*tview.TextView
}

// NewIdentityView creates a new identity view.
func NewIdentityView(theme *ui.Theme) *IdentityView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Who am I ")
	tv.SetTitleColor(theme.TitleColor)

	return &IdentityView{TextView: tv}
}

// Name implements Component.
func (iv *IdentityView) Name() string { return "Identity" }

// Hints implements Component.
func (iv *IdentityView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Show renders the peer id and its QR code.
func (iv *IdentityView) Show(peerID string) {
	iv.Clear()
	if peerID == "" {
		_, _ = fmt.Fprint(iv, "\n\n[::d]Peer id not known yet[-:-:-]")
		return
	}
	art, err := ui.RenderQR(peerID, true)
	if err != nil {
		art = "  (QR generation failed: " + err.Error() + ")\n"
	}
	_, _ = fmt.Fprintf(iv, "\n  Your peer id is [::b]%s[-:-:-]\n\n%s\n  [::d]Share it with the other members of your group[-:-:-]",
		tview.Escape(peerID), art)
}
