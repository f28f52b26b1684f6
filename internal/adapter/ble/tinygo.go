//go:build ble

package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"oxylog/internal/domain"
	"oxylog/internal/infra/config"
)

// TinyGoBackend drives a real adapter through tinygo.org/x/bluetooth.
// One instance holds at most one connection.
type TinyGoBackend struct {
	cfg     config.DeviceConfig
	adapter *bluetooth.Adapter

	mu         sync.Mutex
	device     bluetooth.Device
	connected  bool
	writeChar  bluetooth.DeviceCharacteristic
	notifyChar bluetooth.DeviceCharacteristic
}

func NewTinyGoBackend(cfg config.DeviceConfig) *TinyGoBackend {
	return &TinyGoBackend{cfg: cfg, adapter: bluetooth.DefaultAdapter}
}

func (b *TinyGoBackend) Enable() error {
	return domain.WrapOp("ble.enable", b.adapter.Enable())
}

func (b *TinyGoBackend) Discover(ctx context.Context, timeout time.Duration, found func(domain.Peripheral)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	go func() {
		<-ctx.Done()
		b.adapter.StopScan()
	}()

	err := b.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		found(domain.Peripheral{
			Address: result.Address.String(),
			Name:    result.LocalName(),
			RSSI:    result.RSSI,
		})
	})
	if err != nil && ctx.Err() == nil {
		return domain.WrapOp("ble.scan", err)
	}
	return nil
}

// Connect scans for the peripheral, connects, and resolves the oximeter
// service's command and notification characteristics.
func (b *TinyGoBackend) Connect(ctx context.Context, address string) error {
	b.mu.Lock()
	if b.connected {
		b.mu.Unlock()
		return domain.NewDomainError("ble.connect", domain.ErrAlreadyConnected, address)
	}
	b.mu.Unlock()

	result, err := b.scanFor(ctx, address)
	if err != nil {
		return err
	}

	device, err := b.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return domain.NewDomainError("ble.connect", domain.ErrDeviceUnreachable, err.Error())
	}

	writeChar, notifyChar, err := b.resolveCharacteristics(device)
	if err != nil {
		device.Disconnect()
		return err
	}

	b.mu.Lock()
	b.device = device
	b.connected = true
	b.writeChar = writeChar
	b.notifyChar = notifyChar
	b.mu.Unlock()
	return nil
}

// scanFor finds the advertisement carrying the wanted address so Connect
// has a platform-native bluetooth.Address to dial.
func (b *TinyGoBackend) scanFor(ctx context.Context, address string) (bluetooth.ScanResult, error) {
	var (
		match bluetooth.ScanResult
		hit   bool
	)

	ctx, cancel := context.WithTimeout(ctx, b.cfg.ScanTimeout)
	defer cancel()

	go func() {
		<-ctx.Done()
		b.adapter.StopScan()
	}()

	err := b.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		if result.Address.String() == address {
			match = result
			hit = true
			adapter.StopScan()
		}
	})
	if hit {
		return match, nil
	}
	if err != nil && ctx.Err() == nil {
		return match, domain.WrapOp("ble.scan", err)
	}
	return match, domain.NewDomainError("ble.connect", domain.ErrDeviceNotFound, address)
}

func (b *TinyGoBackend) resolveCharacteristics(device bluetooth.Device) (write, notify bluetooth.DeviceCharacteristic, err error) {
	serviceUUID, err := bluetooth.ParseUUID(b.cfg.ServiceUUID)
	if err != nil {
		return write, notify, fmt.Errorf("parse service uuid: %w", err)
	}
	writeUUID, err := bluetooth.ParseUUID(b.cfg.WriteUUID)
	if err != nil {
		return write, notify, fmt.Errorf("parse write uuid: %w", err)
	}
	notifyUUID, err := bluetooth.ParseUUID(b.cfg.NotifyUUID)
	if err != nil {
		return write, notify, fmt.Errorf("parse notify uuid: %w", err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		return write, notify, domain.NewDomainError("ble.discover", domain.ErrCharNotFound,
			"service "+b.cfg.ServiceUUID)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{writeUUID, notifyUUID})
	if err != nil {
		return write, notify, domain.NewDomainError("ble.discover", domain.ErrCharNotFound, err.Error())
	}

	var haveWrite, haveNotify bool
	for _, c := range chars {
		switch c.UUID() {
		case writeUUID:
			write, haveWrite = c, true
		case notifyUUID:
			notify, haveNotify = c, true
		}
	}
	if !haveWrite || !haveNotify {
		return write, notify, domain.NewDomainError("ble.discover", domain.ErrCharNotFound,
			fmt.Sprintf("write=%v notify=%v", haveWrite, haveNotify))
	}
	return write, notify, nil
}

func (b *TinyGoBackend) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil
	}
	b.connected = false
	return domain.WrapOp("ble.disconnect", b.device.Disconnect())
}

func (b *TinyGoBackend) Write(ctx context.Context, data []byte) error {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return domain.NewDomainError("ble.write", domain.ErrNotConnected, "")
	}
	char := b.writeChar
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := char.WriteWithoutResponse(data)
	return domain.WrapOp("ble.write", err)
}

func (b *TinyGoBackend) Subscribe(handler func(data []byte)) error {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return domain.NewDomainError("ble.subscribe", domain.ErrNotConnected, "")
	}
	char := b.notifyChar
	b.mu.Unlock()

	return domain.WrapOp("ble.subscribe", char.EnableNotifications(func(buf []byte) {
		// The stack reuses its buffer between callbacks.
		frame := append([]byte(nil), buf...)
		handler(frame)
	}))
}
