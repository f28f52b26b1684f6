// Package components provides reusable Bubble Tea sub-models for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"oxylog/internal/adapter/tui/theme"
)

// Tab is a single tab entry.
type Tab struct {
	ID    string
	Label string
}

// TabBarModel is a horizontal tab bar. Navigation keys are routed by the
// parent model; this model only tracks and renders the active tab.
type TabBarModel struct {
	Tabs      []Tab
	Active    int
	width     int
	collapsed bool
}

// NewTabBar creates a tab bar with the given tabs. The first tab is active.
func NewTabBar(tabs []Tab) TabBarModel {
	return TabBarModel{Tabs: tabs}
}

// SetWidth updates the available width; narrow terminals collapse to a
// single-tab display.
func (m *TabBarModel) SetWidth(w int) {
	m.width = w
	m.collapsed = w < theme.MinTabWidth
}

// Next advances to the next tab, wrapping around.
func (m *TabBarModel) Next() {
	if len(m.Tabs) == 0 {
		return
	}
	m.Active = (m.Active + 1) % len(m.Tabs)
}

// Prev moves to the previous tab, wrapping around.
func (m *TabBarModel) Prev() {
	if len(m.Tabs) == 0 {
		return
	}
	m.Active = (m.Active - 1 + len(m.Tabs)) % len(m.Tabs)
}

// SetActive sets the active tab by index.
func (m *TabBarModel) SetActive(i int) {
	if i >= 0 && i < len(m.Tabs) {
		m.Active = i
	}
}

// View renders the tab bar.
func (m TabBarModel) View() string {
	if len(m.Tabs) == 0 {
		return ""
	}

	if m.collapsed {
		t := m.Tabs[m.Active]
		label := theme.TabActive.Render(t.Label)
		counter := theme.Dim.Render(fmt.Sprintf("[%d/%d]", m.Active+1, len(m.Tabs)))
		return lipgloss.JoinHorizontal(lipgloss.Center, label, " ", counter)
	}

	parts := make([]string, 0, len(m.Tabs))
	for i, t := range m.Tabs {
		if i == m.Active {
			parts = append(parts, theme.TabActive.Render(t.Label))
		} else {
			parts = append(parts, theme.TabNormal.Render(t.Label))
		}
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Center, parts...)

	// Pad to full width.
	if m.width > 0 {
		bg := theme.TabNormal.Copy().UnsetPadding()
		if remaining := m.width - lipgloss.Width(bar); remaining > 0 {
			bar += bg.Render(strings.Repeat(" ", remaining))
		}
	}

	return bar
}
