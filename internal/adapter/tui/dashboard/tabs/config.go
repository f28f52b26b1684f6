package tabs

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"oxylog/internal/adapter/tui/theme"
)

// ConfigModel displays the effective configuration as read-only YAML.
type ConfigModel struct {
	Viewport viewport.Model
	content  string
	ready    bool
}

func NewConfig() ConfigModel {
	return ConfigModel{}
}

// SetSize sets dimensions.
func (m *ConfigModel) SetSize(w, h int) {
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	if m.content != "" {
		m.Viewport.SetContent(m.content)
	}
}

// SetContent sets the rendered YAML config string.
func (m *ConfigModel) SetContent(yaml string) {
	m.content = yaml
	if m.ready {
		m.Viewport.SetContent(m.content)
	}
}

// Update handles viewport scrolling.
func (m ConfigModel) Update(msg tea.Msg) (ConfigModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View renders the config tab.
func (m ConfigModel) View() string {
	if !m.ready {
		return ""
	}
	header := theme.TextMuted.Render("  Effective configuration (read-only)")
	return header + "\n" + m.Viewport.View()
}
