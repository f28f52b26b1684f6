package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventDeviceDiscovered    EventType = "device.discovered"
	EventDeviceConnected     EventType = "device.connected"
	EventDeviceDisconnected  EventType = "device.disconnected"
	EventFrameReceived       EventType = "frame.received"
	EventMeasurementParsed   EventType = "measurement.parsed"
	EventMeasurementStored   EventType = "measurement.stored"
	EventMeasurementRejected EventType = "measurement.rejected"
	EventSyncStarted         EventType = "sync.started"
	EventSyncCompleted       EventType = "sync.completed"
	EventSyncFailed          EventType = "sync.failed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Device    string          `json:"device,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with the current timestamp. payload is marshaled
// to JSON; a nil payload leaves the field empty.
func NewEvent(t EventType, device string, payload any) Event {
	e := Event{Type: t, Timestamp: time.Now(), Device: device}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			e.Payload = raw
		}
	}
	return e
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close prevents new publishes and waits for in-flight handlers.
	Close()
}
