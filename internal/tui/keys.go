package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings outside the file picker.
type KeyMap struct {
	Again key.Binding
	Quit  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Again: key.NewBinding(
			key.WithKeys("enter", "a"),
			key.WithHelp("enter", "choose another file"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// PickerHelpText returns help text for the Startup screen.
func (k KeyMap) PickerHelpText() string {
	return "↑/↓ navigate • → open dir • ← back • enter select • q quit"
}

// ResultsHelpText returns help text for the Results screen.
func (k KeyMap) ResultsHelpText() string {
	return k.Again.Help().Key + " " + k.Again.Help().Desc + " • " + k.Quit.Help().Key + " " + k.Quit.Help().Desc
}
