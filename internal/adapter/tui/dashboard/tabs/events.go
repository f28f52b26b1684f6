package tabs

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"oxylog/internal/adapter/tui/theme"
	"oxylog/internal/domain"
)

// maxEventLines bounds memory for long-running watch sessions.
const maxEventLines = 200

// EventsModel is a scrolling stream of bus events.
type EventsModel struct {
	Viewport viewport.Model
	lines    []string
	ready    bool
}

func NewEvents() EventsModel {
	return EventsModel{}
}

// SetSize sets dimensions.
func (m *EventsModel) SetSize(w, h int) {
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	m.refresh()
}

// AddEvent appends an event line and follows the tail.
func (m *EventsModel) AddEvent(event domain.Event) {
	m.lines = append(m.lines, formatEvent(event))
	if len(m.lines) > maxEventLines {
		m.lines = m.lines[len(m.lines)-maxEventLines:]
	}
	m.refresh()
}

// Update handles viewport scrolling.
func (m EventsModel) Update(msg tea.Msg) (EventsModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View renders the event stream.
func (m EventsModel) View() string {
	if !m.ready {
		return ""
	}
	return m.Viewport.View()
}

func (m *EventsModel) refresh() {
	if !m.ready {
		return
	}
	if len(m.lines) == 0 {
		m.Viewport.SetContent(theme.TextMuted.Render("  Waiting for events..."))
		return
	}
	m.Viewport.SetContent(strings.Join(m.lines, "\n"))
	m.Viewport.GotoBottom()
}

func formatEvent(e domain.Event) string {
	symbol := theme.SymbolInfo
	style := theme.TextInfo
	switch e.Type {
	case domain.EventSyncCompleted, domain.EventMeasurementStored:
		symbol = theme.SymbolSuccess
		style = theme.TextSuccess
	case domain.EventSyncFailed, domain.EventMeasurementRejected:
		symbol = theme.SymbolError
		style = theme.TextError
	}

	line := fmt.Sprintf("  %s %s %s",
		theme.Timestamp.Render(e.Timestamp.Format("15:04:05")),
		style.Render(symbol),
		string(e.Type))
	if e.Device != "" {
		line += " " + theme.TextMuted.Render(e.Device)
	}
	return line
}
