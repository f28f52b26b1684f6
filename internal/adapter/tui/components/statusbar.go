package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"oxylog/internal/adapter/tui/theme"
)

// KeyHint is a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Tab"
	Desc string // e.g. "Switch"
}

// StatusBarModel renders the bottom status bar: keybinding hints on the
// left, device and sync info on the right.
type StatusBarModel struct {
	Hints  []KeyHint
	Device string // target device address or name prefix
	Extra  string // transient status text (e.g. "Syncing...")
	width  int
}

func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	hints := make([]string, 0, len(m.Hints))
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var right string
	if m.Device != "" {
		right = theme.TextMuted.Render(m.Device)
	}
	if m.Extra != "" {
		if right != "" {
			right += "  "
		}
		right += theme.TextInfo.Render(m.Extra)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	bar := left + strings.Repeat(" ", gap) + right
	return theme.StatusBar.Width(m.width).Render(bar)
}
