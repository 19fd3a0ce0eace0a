package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Johannes-Berggren/goblinswitch/internal/switcher"
)

// Screen is the bubbletea model hosting the switcher. It only forwards keys
// and shows the latest frame; all state lives in the reactor.
type Screen struct {
	keys   *Keys
	frame  frameMsg
	width  int
	height int
	done   bool
}

func NewScreen(keys *Keys) *Screen {
	return &Screen{keys: keys}
}

func (s *Screen) Init() tea.Cmd {
	return nil
}

func (s *Screen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height

	case tea.KeyMsg:
		s.keys.push(switcher.Key(msg.String()))

	case frameMsg:
		s.frame = msg

	case clearMsg:
		s.frame = nil
		s.done = true
		s.keys.Close()
		return s, tea.Quit
	}
	return s, nil
}

func (s *Screen) View() string {
	if s.frame == nil {
		if s.done {
			return ""
		}
		return "Loading branches..."
	}

	out := s.frame(s.width)
	if s.width > 0 && s.height > 0 {
		return lipgloss.Place(s.width, s.height, lipgloss.Left, lipgloss.Top, out)
	}
	return out
}
