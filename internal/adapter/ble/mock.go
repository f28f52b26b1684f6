package ble

import (
	"context"
	"sync"
	"time"

	"oxylog/internal/domain"
)

// MockBackend is an in-memory Backend for tests and the no-BLE build.
// Tests seed it with peripherals and use OnWrite plus PushNotification to
// script the device side of a sync conversation.
type MockBackend struct {
	mu          sync.Mutex
	peripherals []domain.Peripheral
	connected   string
	handler     func([]byte)
	writes      [][]byte

	// OnWrite, when set, is invoked synchronously with every written
	// command. Use it to push the device's reply frames.
	OnWrite func(data []byte)

	// Error hooks. When set, the corresponding call fails with the error.
	EnableErr  error
	ConnectErr error
	WriteErr   error
}

func NewMockBackend(peripherals ...domain.Peripheral) *MockBackend {
	return &MockBackend{peripherals: peripherals}
}

func (m *MockBackend) Enable() error { return m.EnableErr }

func (m *MockBackend) Discover(ctx context.Context, timeout time.Duration, found func(domain.Peripheral)) error {
	m.mu.Lock()
	peripherals := append([]domain.Peripheral(nil), m.peripherals...)
	m.mu.Unlock()

	for _, p := range peripherals {
		if ctx.Err() != nil {
			return nil
		}
		found(p)
	}
	return nil
}

func (m *MockBackend) Connect(ctx context.Context, address string) error {
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected != "" {
		return domain.NewDomainError("ble.connect", domain.ErrAlreadyConnected, m.connected)
	}
	m.connected = address
	return nil
}

func (m *MockBackend) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = ""
	m.handler = nil
	return nil
}

func (m *MockBackend) Write(ctx context.Context, data []byte) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	if m.connected == "" {
		m.mu.Unlock()
		return domain.NewDomainError("ble.write", domain.ErrNotConnected, "")
	}
	m.writes = append(m.writes, append([]byte(nil), data...))
	hook := m.OnWrite
	m.mu.Unlock()

	if hook != nil {
		hook(data)
	}
	return nil
}

func (m *MockBackend) Subscribe(handler func(data []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected == "" {
		return domain.NewDomainError("ble.subscribe", domain.ErrNotConnected, "")
	}
	m.handler = handler
	return nil
}

// PushNotification simulates the device sending a notification frame.
func (m *MockBackend) PushNotification(data []byte) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	if handler != nil {
		handler(data)
	}
}

// Writes returns a copy of every command written so far.
func (m *MockBackend) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// ConnectedTo reports the address of the current connection, if any.
func (m *MockBackend) ConnectedTo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}
