package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings handled by the app shell itself; everything
// else is forwarded to the focused page.
type KeyMap struct {
	ToggleFocus key.Binding
	Quit        key.Binding
}

var GlobalKeys = KeyMap{
	ToggleFocus: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "toggle focus"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
