package prompt

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the prompt's keyboard shortcuts.
type KeyMap struct {
	Accept key.Binding
	Later  key.Binding
	Close  key.Binding
}

// DefaultKeyMap returns the default prompt bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Accept: key.NewBinding(
			key.WithKeys("enter", "u"),
			key.WithHelp("enter/u", "update now"),
		),
		Later: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "later"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc", "q", "ctrl+c"),
			key.WithHelp("esc/q", "close"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Accept, k.Later, k.Close}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
