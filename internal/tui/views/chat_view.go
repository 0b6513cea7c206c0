package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/meshchat/internal/api"
	"github.com/matheus3301/meshchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatView displays the message log and the input line.
type ChatView struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	onSubmit func(text string)
}

// NewChatView creates a new chat view.
func NewChatView(theme *ui.Theme) *ChatView {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Chat ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Message or /command (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, false).
		AddItem(composer, 3, 0, true)

	cv := &ChatView{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && cv.onSubmit != nil {
			text := composer.GetText()
			if text != "" {
				cv.onSubmit(text)
				composer.SetText("")
			}
		}
	})

	return cv
}

// Name implements Component.
func (cv *ChatView) Name() string { return "Chat" }

// Hints implements Component.
func (cv *ChatView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "Tab", Description: "Members"},
		{Key: "w", Description: "Who am I"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
	}
}

// SetGroup shows the group name as the chat title.
func (cv *ChatView) SetGroup(name string) {
	if name == "" {
		cv.messages.SetTitle(" Chat ")
		return
	}
	cv.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(name)))
}

// SetOnSubmit sets the callback for a submitted input line.
func (cv *ChatView) SetOnSubmit(fn func(text string)) {
	cv.onSubmit = fn
}

// Update re-renders the message log. Entries are in display order.
func (cv *ChatView) Update(entries []api.EntryView) {
	cv.messages.Clear()

	for _, e := range entries {
		_, _ = fmt.Fprint(cv.messages, cv.formatEntry(e))
	}

	cv.messages.ScrollToEnd()
}

func (cv *ChatView) formatEntry(e api.EntryView) string {
	ts := formatTimestamp(e.Timestamp)
	text := tview.Escape(sanitizeForTerminal(e.Text))
	switch e.Origin {
	case "system":
		return fmt.Sprintf("[%s]%s * %s[-]\n", ui.Tag(cv.theme.NoticeColor), ts, text)
	case "own":
		return fmt.Sprintf("[::d]%s[-:-:-] [%s::b]You[-:-:-]: %s\n",
			ts, ui.Tag(cv.theme.OwnColor), text)
	default:
		return fmt.Sprintf("[::d]%s[-:-:-] [%s::b]%s[-:-:-]: %s\n",
			ts, ui.Tag(cv.theme.PartnerColor), tview.Escape(sanitizeForTerminal(e.Sender)), text)
	}
}

// Messages returns the message log (for focus management).
func (cv *ChatView) Messages() *tview.TextView {
	return cv.messages
}

// Composer returns the input field (for focus management).
func (cv *ChatView) Composer() *tview.InputField {
	return cv.composer
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return "--:--"
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02 15:04")
}
