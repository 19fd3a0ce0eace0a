package switcher

import "github.com/charmbracelet/bubbles/key"

// Key is a decoded key symbol using bubbletea's names ("j", "down", "enter").
type Key string

func (k Key) String() string { return string(k) }

// KeyMap defines the keybindings of the switcher.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Fetch   key.Binding
	Refresh key.Binding
	Dismiss key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "checkout"),
		),
		Fetch: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fetch"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the listing footer.
func (km KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Down, km.Up, km.Enter, km.Fetch, km.Refresh, km.Quit}
}

// CommandFor maps a key to its command. Unbound keys map to nothing.
func (km KeyMap) CommandFor(k Key) (Event, bool) {
	switch {
	case key.Matches(k, km.Down):
		return MoveMsg{Dir: Down}, true
	case key.Matches(k, km.Up):
		return MoveMsg{Dir: Up}, true
	case key.Matches(k, km.Enter):
		return EnterMsg{}, true
	case key.Matches(k, km.Fetch):
		return FetchMsg{}, true
	case key.Matches(k, km.Refresh):
		return RefreshMsg{}, true
	case key.Matches(k, km.Dismiss):
		return DismissMsg{}, true
	case key.Matches(k, km.Quit):
		return ShutdownMsg{}, true
	}
	return nil, false
}
