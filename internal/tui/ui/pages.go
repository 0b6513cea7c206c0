package ui

import "github.com/rivo/tview"

// Pages is a stack of named pages over tview.Pages. Only the top page is
// visible.
type Pages struct {
	*tview.Pages
	stack    []string
	onChange func(stack []string)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{
		Pages: tview.NewPages(),
	}
}

// SetOnChange sets a callback that receives the stack after every change.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push shows name on top of the stack.
func (p *Pages) Push(name string) {
	if top := p.Current(); top != "" {
		p.HidePage(top)
	}
	p.stack = append(p.stack, name)
	p.show(name)
}

// Pop removes the top page unless it is the last one. It returns the removed
// page name, or empty.
func (p *Pages) Pop() string {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.HidePage(top)
	p.stack = p.stack[:len(p.stack)-1]
	p.show(p.stack[len(p.stack)-1])
	return top
}

// Current returns the name of the top page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Depth returns the current stack depth.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Reset clears the stack and shows only name.
func (p *Pages) Reset(name string) {
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{name}
	p.show(name)
}

func (p *Pages) show(name string) {
	p.ShowPage(name)
	p.SendToFront(name)
	if p.onChange != nil {
		p.onChange(append([]string(nil), p.stack...))
	}
}
