package dashboard

import (
	"context"
	"encoding/json"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"oxylog/internal/adapter/tui/components"
	"oxylog/internal/adapter/tui/dashboard/tabs"
	"oxylog/internal/domain"
)

var _ tea.Model = (*Model)(nil)

// Tab identifies which dashboard tab is active.
type Tab int

const (
	TabReadings Tab = iota
	TabEvents
	TabConfig
)

// Deps are the dashboard's dependencies.
type Deps struct {
	Bus   domain.EventBus
	Store domain.MeasurementStore
	// Sync triggers a manual sync. Nil hides the shortcut.
	Sync func(context.Context) error
	// Config is the effective configuration rendered as YAML.
	Config string
	// Device is shown in the status bar.
	Device       string
	HistoryLimit int
}

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	deps Deps

	activeTab Tab
	tabBar    components.TabBarModel

	readings tabs.ReadingsModel
	events   tabs.EventsModel
	config   tabs.ConfigModel

	width   int
	height  int
	syncing bool
	lastErr string

	programSend func(tea.Msg)
	unsubscribe func()
}

// New creates the dashboard model.
func New(deps Deps) *Model {
	m := &Model{
		deps: deps,
		tabBar: components.NewTabBar([]components.Tab{
			{ID: "readings", Label: "Readings"},
			{ID: "events", Label: "Events"},
			{ID: "config", Label: "Config"},
		}),
		readings: tabs.NewReadings(deps.HistoryLimit),
		events:   tabs.NewEvents(),
		config:   tabs.NewConfig(),
	}

	if deps.Config != "" {
		m.config.SetContent(deps.Config)
	}
	return m
}

// SetProgramSender sets the function used to inject messages from the
// EventBus. Must be called before the program runs.
func (m *Model) SetProgramSender(send func(tea.Msg)) {
	m.programSend = send
}

// Init subscribes to the EventBus and loads the stored history.
func (m *Model) Init() tea.Cmd {
	if m.deps.Bus != nil && m.programSend != nil {
		m.unsubscribe = m.deps.Bus.SubscribeAll(func(_ context.Context, event domain.Event) {
			m.programSend(EventBusMsg{Event: event})
		})
	}
	if m.deps.Store != nil {
		return loadHistoryCmd(m.deps.Store, "", m.deps.HistoryLimit)
	}
	return nil
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m.quit()
		case tea.KeyTab:
			m.tabBar.Next()
			m.activeTab = Tab(m.tabBar.Active)
			return m, nil
		case tea.KeyShiftTab:
			m.tabBar.Prev()
			m.activeTab = Tab(m.tabBar.Active)
			return m, nil
		}

		if msg.Type == tea.KeyRunes {
			switch string(msg.Runes) {
			case "1":
				m.setTab(TabReadings)
				return m, nil
			case "2":
				m.setTab(TabEvents)
				return m, nil
			case "3":
				m.setTab(TabConfig)
				return m, nil
			case "s":
				if m.deps.Sync != nil && !m.syncing {
					m.syncing = true
					m.lastErr = ""
					return m, syncCmd(m.deps.Sync)
				}
				return m, nil
			case "q":
				return m.quit()
			}
		}

	case EventBusMsg:
		return m.handleEvent(msg.Event)

	case HistoryLoadedMsg:
		if msg.Err != nil {
			m.lastErr = msg.Err.Error()
		} else {
			m.readings.SetMeasurements(msg.Measurements)
		}
		return m, nil

	case SyncDoneMsg:
		m.syncing = false
		if msg.Err != nil {
			m.lastErr = msg.Err.Error()
		}
		return m, nil
	}

	// Delegate to the active tab.
	var cmd tea.Cmd
	switch m.activeTab {
	case TabReadings:
		m.readings, cmd = m.readings.Update(msg)
	case TabEvents:
		m.events, cmd = m.events.Update(msg)
	case TabConfig:
		m.config, cmd = m.config.Update(msg)
	}
	return m, cmd
}

// View renders the dashboard.
func (m *Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	var content string
	switch m.activeTab {
	case TabReadings:
		content = m.readings.View()
	case TabEvents:
		content = m.events.View()
	case TabConfig:
		content = m.config.View()
	}

	hints := []components.KeyHint{
		{Key: "Tab", Desc: "Switch"},
		{Key: "1-3", Desc: "Jump"},
		{Key: "j/k", Desc: "Scroll"},
	}
	if m.deps.Sync != nil {
		hints = append(hints, components.KeyHint{Key: "s", Desc: "Sync"})
	}
	hints = append(hints, components.KeyHint{Key: "q", Desc: "Quit"})

	sb := components.NewStatusBar()
	sb.Hints = hints
	sb.Device = m.deps.Device
	switch {
	case m.syncing:
		sb.Extra = "Syncing..."
	case m.lastErr != "":
		sb.Extra = m.lastErr
	}
	sb.SetWidth(m.width)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.tabBar.View(),
		content,
		sb.View(),
	)
}

func (m *Model) setTab(tab Tab) {
	m.activeTab = tab
	m.tabBar.SetActive(int(tab))
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return m, tea.Quit
}

func (m *Model) layout() {
	contentH := m.height - 2 // tab bar + status bar
	if contentH < 5 {
		contentH = 5
	}

	m.tabBar.SetWidth(m.width)
	m.readings.SetSize(m.width, contentH)
	m.events.SetSize(m.width, contentH)
	m.config.SetSize(m.width, contentH)
}

func (m *Model) handleEvent(event domain.Event) (tea.Model, tea.Cmd) {
	m.events.AddEvent(event)

	if event.Type == domain.EventMeasurementStored && len(event.Payload) > 0 {
		var meas domain.Measurement
		if err := json.Unmarshal(event.Payload, &meas); err == nil {
			m.readings.AddMeasurement(meas)
		}
	}
	return m, nil
}
