// Package tabs holds the sub-models for each dashboard tab.
package tabs

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"oxylog/internal/adapter/tui/theme"
	"oxylog/internal/domain"
)

// spo2WarnBelow marks readings that deserve attention in the list.
const spo2WarnBelow = 90

// ReadingsModel shows stored measurements: stat cards on top, the
// newest-first history below.
type ReadingsModel struct {
	Viewport     viewport.Model
	measurements []domain.Measurement
	limit        int
	ready        bool
	width        int
	height       int
}

// NewReadings creates the readings tab. limit caps the history length.
func NewReadings(limit int) ReadingsModel {
	if limit <= 0 {
		limit = 50
	}
	return ReadingsModel{limit: limit}
}

// SetSize sets dimensions, reserving three lines for the stat card row.
func (m *ReadingsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	listH := h - 3
	if listH < 1 {
		listH = 1
	}
	if !m.ready {
		m.Viewport = viewport.New(w, listH)
		m.Viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = listH
	}
	m.refresh()
}

// SetMeasurements replaces the history (initial load from the store).
func (m *ReadingsModel) SetMeasurements(ms []domain.Measurement) {
	if len(ms) > m.limit {
		ms = ms[:m.limit]
	}
	m.measurements = append([]domain.Measurement(nil), ms...)
	m.refresh()
}

// AddMeasurement prepends a freshly stored measurement.
func (m *ReadingsModel) AddMeasurement(meas domain.Measurement) {
	m.measurements = append([]domain.Measurement{meas}, m.measurements...)
	if len(m.measurements) > m.limit {
		m.measurements = m.measurements[:m.limit]
	}
	m.refresh()
}

// Update handles viewport scrolling.
func (m ReadingsModel) Update(msg tea.Msg) (ReadingsModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View renders stat cards plus the measurement list.
func (m ReadingsModel) View() string {
	if !m.ready {
		return ""
	}
	return m.statCards() + "\n" + m.Viewport.View()
}

func (m *ReadingsModel) refresh() {
	if !m.ready {
		return
	}

	if len(m.measurements) == 0 {
		m.Viewport.SetContent(theme.TextMuted.Render("  No measurements yet. Press s to sync."))
		return
	}

	var b strings.Builder
	for _, meas := range m.measurements {
		b.WriteString("  ")
		b.WriteString(theme.Timestamp.Render(meas.FinishedAt.Format("2006-01-02 15:04:05")))
		b.WriteString("  ")

		spo2 := fmt.Sprintf("SpO2 %d%% (%d-%d)", meas.SpO2.Avg, meas.SpO2.Min, meas.SpO2.Max)
		if meas.SpO2.Avg < spo2WarnBelow {
			b.WriteString(theme.TextWarning.Render(spo2))
		} else {
			b.WriteString(theme.TextSuccess.Render(spo2))
		}

		b.WriteString("  ")
		if meas.PulseRate != nil {
			b.WriteString(theme.TextInfo.Render(fmt.Sprintf("%s %d bpm (%d-%d)",
				theme.SymbolHeart, meas.PulseRate.Avg, meas.PulseRate.Min, meas.PulseRate.Max)))
		} else {
			b.WriteString(theme.TextMuted.Render("pulse n/a"))
		}
		b.WriteString("\n")
	}
	m.Viewport.SetContent(b.String())
}

func (m ReadingsModel) statCards() string {
	count := fmt.Sprintf("%d", len(m.measurements))
	spo2, pulse, last := "--", "--", "--"
	if len(m.measurements) > 0 {
		latest := m.measurements[0]
		spo2 = fmt.Sprintf("%d%%", latest.SpO2.Avg)
		if latest.PulseRate != nil {
			pulse = fmt.Sprintf("%d bpm", latest.PulseRate.Avg)
		}
		last = latest.FinishedAt.Format("15:04")
	}

	cards := []string{
		theme.StatCard.Render(theme.StatLabel.Render("readings ") + theme.StatValue.Render(count)),
		theme.StatCard.Render(theme.StatLabel.Render("SpO2 ") + theme.StatValue.Render(spo2)),
		theme.StatCard.Render(theme.StatLabel.Render("pulse ") + theme.StatValue.Render(pulse)),
		theme.StatCard.Render(theme.StatLabel.Render("last ") + theme.StatValue.Render(last)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}
