package ui

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // digit shortcuts, drawn in the title color
}

// Component is a page or panel that can advertise its key hints.
type Component interface {
	Name() string
	Hints() []MenuHint
}
