package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode indicates what a prompt line is used for.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

// Commands lists the command names offered for completion in command mode.
var Commands = []string{"add", "group", "connect", "disconnect", "help", "quit"}

// Prompt is the ':' command and '/' filter input line.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	onSubmit func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates a new prompt input line.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{InputField: input}

	input.SetAutocompleteFunc(func(text string) []string {
		if p.mode != PromptCommand {
			return nil
		}
		return Complete(text)
	})
	input.SetDoneFunc(func(key tcell.Key) {
		text := strings.TrimSpace(p.GetText())
		p.SetText("")
		switch key {
		case tcell.KeyEnter:
			if text == "" {
				if p.onCancel != nil {
					p.onCancel()
				}
				return
			}
			if p.onSubmit != nil {
				p.onSubmit(p.mode, text)
			}
		case tcell.KeyEscape:
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})

	return p
}

// Complete returns the command names starting with the first word of text,
// while that word is still being typed.
func Complete(text string) []string {
	if text == "" || strings.Contains(text, " ") {
		return nil
	}
	var out []string
	for _, c := range Commands {
		if strings.HasPrefix(c, strings.ToLower(text)) {
			out = append(out, c+" ")
		}
	}
	return out
}

// SetOnSubmit sets the callback for a submitted non-empty line.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback for Esc or an empty line.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// Activate prepares the prompt for the given mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.SetText("")
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter members ")
	}
}
