package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the practice screen.
type KeyMap struct {
	Reset key.Binding
	Retry key.Binding
	Quit  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "try again"),
		),
		Retry: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "retry camera"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
