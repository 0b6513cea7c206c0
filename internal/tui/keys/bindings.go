// Package keys maps key presses to UI actions, per page.
package keys

import (
	"github.com/gdamore/tcell/v2"
	"github.com/samber/lo"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

type binding struct {
	name   string
	action *Action
}

// Registry holds keybindings organized by scope. Bindings keep their
// registration order; registering a name again replaces the earlier action.
type Registry struct {
	global []binding
	views  map[string][]binding
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]binding)}
}

func upsert(list []binding, name string, action *Action) []binding {
	if _, i, ok := lo.FindIndexOf(list, func(b binding) bool { return b.name == name }); ok {
		list[i].action = action
		return list
	}
	return append(list, binding{name: name, action: action})
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global = upsert(r.global, name, action)
}

// AddView registers a binding active on one page only.
func (r *Registry) AddView(view, name string, action *Action) {
	r.views[view] = upsert(r.views[view], name, action)
}

// Hints returns visible keybinding descriptions for a page, page bindings
// first.
func (r *Registry) Hints(view string) []string {
	all := append(append([]binding(nil), r.views[view]...), r.global...)
	visible := lo.Filter(all, func(b binding, _ int) bool { return b.action.Visible })
	return lo.Map(visible, func(b binding, _ int) string { return b.action.Description })
}

// HandleEvent dispatches a key event to the first matching action of the
// page, then of the global scope. Returns true if a handler ran.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, scope := range [][]binding{r.views[view], r.global} {
		if b, ok := lo.Find(scope, func(b binding) bool { return b.action.Matches(ev) }); ok {
			b.action.Handler()
			return true
		}
	}
	return false
}
