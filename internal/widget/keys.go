package widget

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Restore key.Binding
	Check   key.Binding
	Toggle  key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Next:    key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n", "next")),
		Prev:    key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p", "prev")),
		Restore: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restore")),
		Check:   key.NewBinding(key.WithKeys("c", "f5"), key.WithHelp("c", "check")),
		Toggle:  key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "show/hide")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Restore, k.Check, k.Toggle, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
