// Package usecase orchestrates the oximeter sync: discovery, connection,
// the command conversation, frame assembly, and persistence.
package usecase

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"oxylog/internal/adapter/ble"
	"oxylog/internal/adapter/po60"
	"oxylog/internal/domain"
	"oxylog/internal/infra/config"
	"oxylog/internal/infra/tracer"
)

// SyncResult summarizes one completed sync.
type SyncResult struct {
	Device   domain.Peripheral   `json:"device"`
	Received int                 `json:"received"`
	Stored   int                 `json:"stored"`
	Latest   *domain.Measurement `json:"latest,omitempty"`
	Duration time.Duration       `json:"duration"`
}

// Reader pulls stored measurements off the oximeter and persists them.
//
// Connecting goes through a circuit breaker: the device is only reachable
// for the few seconds after a recording while its display is on, so a
// scheduled watch would otherwise hammer the radio with doomed connection
// attempts all day.
type Reader struct {
	backend ble.Backend
	store   domain.MeasurementStore
	bus     domain.EventBus
	cfg     config.Config
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[domain.Peripheral]
	limiter *rate.Limiter
	syncing atomic.Bool
}

// NewReader wires a Reader. Zero-valued breaker settings fall back to the
// config defaults.
func NewReader(backend ble.Backend, store domain.MeasurementStore, bus domain.EventBus, cfg config.Config, logger *slog.Logger) *Reader {
	b := cfg.Sync.Breaker
	cb := gobreaker.NewCircuitBreaker[domain.Peripheral](gobreaker.Settings{
		Name:        "ble:" + cfg.Device.NamePrefix,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    b.Interval,
		Timeout:     b.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Reader{
		backend: backend,
		store:   store,
		bus:     bus,
		cfg:     cfg,
		logger:  logger,
		breaker: cb,
		limiter: rate.NewLimiter(rate.Every(cfg.Sync.WriteInterval), 1),
	}
}

// Scan discovers nearby peripherals for the configured scan window,
// deduplicated by address.
func (r *Reader) Scan(ctx context.Context) ([]domain.Peripheral, error) {
	ctx, span := tracer.StartSpan(ctx, "reader.scan")
	defer span.End()

	seen := make(map[string]domain.Peripheral)
	err := r.backend.Discover(ctx, r.cfg.Device.ScanTimeout, func(p domain.Peripheral) {
		if _, ok := seen[p.Address]; ok {
			return
		}
		seen[p.Address] = p
		r.bus.Publish(ctx, domain.NewEvent(domain.EventDeviceDiscovered, p.Address, p))
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("reader.scan", err)
	}

	out := make([]domain.Peripheral, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })

	tracer.SetOK(span)
	span.SetAttributes(tracer.IntAttr("peripherals", len(out)))
	return out, nil
}

// Sync connects to the oximeter, requests its stored history, and persists
// every recording. Only one sync runs at a time.
func (r *Reader) Sync(ctx context.Context) (*SyncResult, error) {
	if !r.syncing.CompareAndSwap(false, true) {
		return nil, domain.NewDomainError("reader.sync", domain.ErrSyncInProgress, "")
	}
	defer r.syncing.Store(false)

	ctx, span := tracer.StartSpan(ctx, "reader.sync")
	defer span.End()

	started := time.Now()
	r.bus.Publish(ctx, domain.NewEvent(domain.EventSyncStarted, r.cfg.Device.Address, nil))

	device, err := r.breaker.Execute(func() (domain.Peripheral, error) {
		return r.connect(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("reader.sync: circuit open: %w", err)
		}
		tracer.RecordError(span, err)
		r.bus.Publish(ctx, domain.NewEvent(domain.EventSyncFailed, r.cfg.Device.Address,
			map[string]string{"error": err.Error()}))
		return nil, err
	}
	defer func() {
		if err := r.backend.Disconnect(); err != nil {
			r.logger.Warn("disconnect failed", "device", device.Address, "err", err)
		}
		r.bus.Publish(ctx, domain.NewEvent(domain.EventDeviceDisconnected, device.Address, nil))
	}()

	span.SetAttributes(tracer.StringAttr("device", device.Address))
	r.bus.Publish(ctx, domain.NewEvent(domain.EventDeviceConnected, device.Address, device))

	received, err := r.collect(ctx, device)
	if err != nil {
		tracer.RecordError(span, err)
		r.bus.Publish(ctx, domain.NewEvent(domain.EventSyncFailed, device.Address,
			map[string]string{"error": err.Error()}))
		return nil, err
	}

	stored := 0
	for _, m := range received {
		if err := r.store.Save(ctx, m); err != nil {
			r.logger.Error("save measurement", "seq", m.Seq, "err", err)
			r.bus.Publish(ctx, domain.NewEvent(domain.EventMeasurementRejected, device.Address,
				map[string]any{"seq": m.Seq, "error": err.Error()}))
			continue
		}
		stored++
		r.bus.Publish(ctx, domain.NewEvent(domain.EventMeasurementStored, device.Address, m))
	}

	result := &SyncResult{
		Device:   device,
		Received: len(received),
		Stored:   stored,
		Duration: time.Since(started),
	}
	if latest, err := r.store.Latest(ctx, device.Address); err == nil {
		result.Latest = latest
	} else if !errors.Is(err, domain.ErrNoMeasurements) {
		r.logger.Warn("load latest measurement", "err", err)
	}

	r.bus.Publish(ctx, domain.NewEvent(domain.EventSyncCompleted, device.Address, result))
	r.logger.Info("sync completed",
		"device", device.Address,
		"received", result.Received,
		"stored", result.Stored,
		"duration", result.Duration,
	)
	tracer.SetOK(span)
	span.SetAttributes(tracer.IntAttr("received", result.Received), tracer.IntAttr("stored", result.Stored))
	return result, nil
}

// Prune applies the configured retention window. A zero retention keeps
// everything.
func (r *Reader) Prune(ctx context.Context) (int64, error) {
	if r.cfg.Store.Retention <= 0 {
		return 0, nil
	}
	return r.store.DeleteOlderThan(ctx, time.Now().Add(-r.cfg.Store.Retention))
}

// connect resolves the target peripheral and establishes the connection.
// A configured address skips discovery entirely.
func (r *Reader) connect(ctx context.Context) (domain.Peripheral, error) {
	device := domain.Peripheral{Address: r.cfg.Device.Address, Name: r.cfg.Device.NamePrefix}

	if device.Address == "" {
		found, err := ble.Find(ctx, r.backend, ble.Filter{
			NamePrefix: r.cfg.Device.NamePrefix,
		}, r.cfg.Device.ScanTimeout)
		if err != nil {
			return domain.Peripheral{}, err
		}
		device = found
	}

	if err := r.backend.Connect(ctx, device.Address); err != nil {
		return domain.Peripheral{}, err
	}
	device.Connected = true
	return device, nil
}

// collect runs the command conversation and assembles the notification
// burst into measurements. The device signals nothing at end of history;
// the burst is considered complete once notifications stay quiet for the
// idle timeout.
func (r *Reader) collect(ctx context.Context, device domain.Peripheral) ([]domain.Measurement, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Device.SyncTimeout)
	defer cancel()

	session := po60.NewSession(device.Address, r.logger)
	activity := make(chan struct{}, 1)

	err := r.backend.Subscribe(func(frame []byte) {
		select {
		case activity <- struct{}{}:
		default:
		}
		r.bus.Publish(ctx, domain.NewEvent(domain.EventFrameReceived, device.Address,
			map[string]string{"frame": hex.EncodeToString(frame)}))
		if err := session.Feed(frame); err != nil {
			r.logger.Warn("frame rejected",
				"device", device.Address,
				"frame", hex.EncodeToString(frame),
				"err", err,
			)
			r.bus.Publish(ctx, domain.NewEvent(domain.EventMeasurementRejected, device.Address,
				map[string]string{"error": err.Error()}))
		}
	})
	if err != nil {
		return nil, err
	}

	for _, cmd := range []po60.Command{po60.CmdHello, po60.CmdRequestStored} {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, domain.WrapOp("reader.collect", err)
		}
		if err := r.backend.Write(ctx, cmd.Bytes()); err != nil {
			return nil, err
		}
	}

	idle := time.NewTimer(r.cfg.Device.IdleTimeout)
	defer idle.Stop()

wait:
	for {
		select {
		case <-activity:
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(r.cfg.Device.IdleTimeout)
		case <-idle.C:
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	session.Flush()

	var out []domain.Measurement
	for m := range session.Measurements() {
		r.bus.Publish(ctx, domain.NewEvent(domain.EventMeasurementParsed, device.Address, m))
		out = append(out, m)
	}
	return out, nil
}
