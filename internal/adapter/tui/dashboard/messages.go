// Package dashboard implements the Bubble Tea monitoring dashboard.
package dashboard

import "oxylog/internal/domain"

// EventBusMsg wraps a domain.Event from the EventBus subscription.
type EventBusMsg struct {
	Event domain.Event
}

// HistoryLoadedMsg carries the initial measurement history from the store.
type HistoryLoadedMsg struct {
	Measurements []domain.Measurement
	Err          error
}

// SyncDoneMsg signals that a manually triggered sync finished.
type SyncDoneMsg struct {
	Err error
}
