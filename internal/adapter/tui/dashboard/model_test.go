package dashboard

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oxylog/internal/domain"
)

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newSizedModel() *Model {
	m := New(Deps{Device: "AA:BB:CC:DD:EE:FF", HistoryLimit: 10})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestModel_TabSwitching(t *testing.T) {
	m := newSizedModel()

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabEvents, m.activeTab)

	m.Update(keyRune('3'))
	assert.Equal(t, TabConfig, m.activeTab)

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, TabEvents, m.activeTab)
}

func TestModel_QuitKeys(t *testing.T) {
	m := newSizedModel()
	_, cmd := m.Update(keyRune('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_StoredEventUpdatesReadings(t *testing.T) {
	m := newSizedModel()

	meas := domain.Measurement{
		DeviceAddress: "AA:BB:CC:DD:EE:FF",
		Seq:           1,
		FinishedAt:    time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
		SpO2:          domain.TriValue{Max: 98, Min: 94, Avg: 96},
	}
	m.Update(EventBusMsg{Event: domain.NewEvent(domain.EventMeasurementStored, meas.DeviceAddress, meas)})

	assert.Contains(t, m.View(), "96%")

	m.Update(keyRune('2'))
	assert.Contains(t, m.View(), "measurement.stored")
}

func TestModel_HistoryLoaded(t *testing.T) {
	m := newSizedModel()
	m.Update(HistoryLoadedMsg{Measurements: []domain.Measurement{
		{FinishedAt: time.Now(), SpO2: domain.TriValue{Max: 99, Min: 95, Avg: 97}},
	}})
	assert.Contains(t, m.View(), "97%")
}

func TestModel_ViewBeforeSize(t *testing.T) {
	m := New(Deps{})
	assert.Contains(t, m.View(), "Initializing")
}
