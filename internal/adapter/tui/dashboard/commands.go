package dashboard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"oxylog/internal/domain"
)

// loadHistoryCmd fetches the stored history for the readings tab.
func loadHistoryCmd(store domain.MeasurementStore, device string, limit int) tea.Cmd {
	return func() tea.Msg {
		ms, err := store.List(context.Background(), device, limit)
		return HistoryLoadedMsg{Measurements: ms, Err: err}
	}
}

// syncCmd runs one sync in the background. Progress arrives via bus events;
// the message only reports completion.
func syncCmd(sync func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return SyncDoneMsg{Err: sync(context.Background())}
	}
}
