// Package ble abstracts the Bluetooth stack behind a Backend interface so
// the reader runs unchanged against the real adapter (build tag "ble") or
// the in-memory mock used by tests and BLE-less builds.
package ble

import (
	"context"
	"strings"
	"time"

	"oxylog/internal/domain"
)

// Backend is the minimal GATT surface the oximeter protocol needs.
type Backend interface {
	// Enable powers on the adapter. Must be called before anything else.
	Enable() error

	// Discover scans for peripherals until ctx is done or timeout elapses,
	// invoking found for every advertisement seen.
	Discover(ctx context.Context, timeout time.Duration, found func(domain.Peripheral)) error

	// Connect establishes a connection to the peripheral with the given
	// address and resolves the command and notification characteristics.
	Connect(ctx context.Context, address string) error

	Disconnect() error

	// Write sends data to the command characteristic.
	Write(ctx context.Context, data []byte) error

	// Subscribe registers handler for notification frames. Must be called
	// after Connect and before the first Write.
	Subscribe(handler func(data []byte)) error
}

// Filter selects a peripheral during discovery. Address wins over
// NamePrefix when both are set.
type Filter struct {
	Address    string
	NamePrefix string
}

func (f Filter) Match(p domain.Peripheral) bool {
	if f.Address != "" {
		return strings.EqualFold(p.Address, f.Address)
	}
	if f.NamePrefix != "" {
		return strings.HasPrefix(p.Name, f.NamePrefix)
	}
	return false
}

// Find scans until a peripheral matches the filter. Returns
// domain.ErrDeviceNotFound when the scan window closes without a match.
func Find(ctx context.Context, b Backend, f Filter, timeout time.Duration) (domain.Peripheral, error) {
	var (
		match domain.Peripheral
		hit   bool
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := b.Discover(ctx, timeout, func(p domain.Peripheral) {
		if !hit && f.Match(p) {
			match = p
			hit = true
			cancel()
		}
	})
	if hit {
		return match, nil
	}
	if err != nil && ctx.Err() == nil {
		return domain.Peripheral{}, domain.WrapOp("ble.find", err)
	}
	return domain.Peripheral{}, domain.NewDomainError("ble.find", domain.ErrDeviceNotFound,
		"no peripheral matched within scan window")
}
