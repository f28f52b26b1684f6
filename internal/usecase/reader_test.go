package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oxylog/internal/adapter/ble"
	"oxylog/internal/domain"
	"oxylog/internal/infra/config"
	"oxylog/internal/usecase/eventbus"
)

// memStore is a minimal in-memory MeasurementStore for reader tests.
type memStore struct {
	mu      sync.Mutex
	rows    []domain.Measurement
	saveErr error
}

func (s *memStore) Save(ctx context.Context, m domain.Measurement) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, m)
	return nil
}

func (s *memStore) Latest(ctx context.Context, device string) (*domain.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.Measurement
	for i := range s.rows {
		if device != "" && s.rows[i].DeviceAddress != device {
			continue
		}
		if latest == nil || s.rows[i].FinishedAt.After(latest.FinishedAt) {
			latest = &s.rows[i]
		}
	}
	if latest == nil {
		return nil, domain.NewDomainError("memstore", domain.ErrNoMeasurements, device)
	}
	m := *latest
	return &m, nil
}

func (s *memStore) List(ctx context.Context, device string, limit int) ([]domain.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Measurement(nil), s.rows...), nil
}

func (s *memStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *memStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.Measurement
	var deleted int64
	for _, m := range s.rows {
		if m.FinishedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	s.rows = kept
	return deleted, nil
}

func (s *memStore) Close() error { return nil }

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Device.Address = "AA:BB:CC:DD:EE:FF"
	cfg.Device.ScanTimeout = 200 * time.Millisecond
	cfg.Device.IdleTimeout = 50 * time.Millisecond
	cfg.Device.SyncTimeout = 2 * time.Second
	cfg.Sync.WriteInterval = time.Millisecond
	return *cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// deviceFrame builds a measurement frame the way the oximeter encodes it.
func deviceFrame(seq byte, finished time.Time, spo2Max, spo2Min, spo2Avg byte) []byte {
	f := make([]byte, 23)
	f[0] = 0xE9
	f[1] = 0xE0 | seq
	start := finished.Add(-time.Minute)
	for i, ts := range []time.Time{start, finished} {
		off := 2 + i*6
		f[off] = byte(ts.Year() - 2000)
		f[off+1] = byte(ts.Month())
		f[off+2] = byte(ts.Day())
		f[off+3] = byte(ts.Hour())
		f[off+4] = byte(ts.Minute())
		f[off+5] = byte(ts.Second())
	}
	f[17], f[18], f[19] = spo2Max, spo2Min, spo2Avg
	return f
}

func TestReader_Sync(t *testing.T) {
	backend := ble.NewMockBackend()
	st := &memStore{}
	bus := eventbus.New(discardLogger())
	defer bus.Close()

	finished := time.Date(2024, 6, 1, 9, 30, 0, 0, time.Local)
	backend.OnWrite = func(data []byte) {
		if data[0] != 0x99 {
			return
		}
		backend.PushNotification(deviceFrame(1, finished, 98, 94, 96))
		backend.PushNotification([]byte{80, 62, 70})
		backend.PushNotification(deviceFrame(2, finished.Add(time.Hour), 97, 93, 95))
		backend.PushNotification([]byte{78, 61, 69})
	}

	r := NewReader(backend, st, bus, testConfig(), discardLogger())

	result, err := r.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Received)
	assert.Equal(t, 2, result.Stored)
	require.NotNil(t, result.Latest)
	assert.Equal(t, uint8(2), result.Latest.Seq, "latest is the greatest finished-at")
	require.NotNil(t, result.Latest.PulseRate)

	// hello then request, in order
	writes := backend.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, []byte{0x90, 0x05, 0x15}, writes[0])
	assert.Equal(t, []byte{0x99, 0x00, 0x19}, writes[1])

	assert.Empty(t, backend.ConnectedTo(), "disconnected after sync")
}

func TestReader_Sync_EmptyHistory(t *testing.T) {
	backend := ble.NewMockBackend()
	bus := eventbus.New(discardLogger())
	defer bus.Close()

	r := NewReader(backend, &memStore{}, bus, testConfig(), discardLogger())

	result, err := r.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Received)
	assert.Nil(t, result.Latest)
}

func TestReader_Sync_DiscoversByNamePrefix(t *testing.T) {
	backend := ble.NewMockBackend(
		domain.Peripheral{Address: "11:22:33:44:55:66", Name: "Polar H10"},
		domain.Peripheral{Address: "AA:BB:CC:DD:EE:FF", Name: "PO60 4123"},
	)
	bus := eventbus.New(discardLogger())
	defer bus.Close()

	cfg := testConfig()
	cfg.Device.Address = "" // force discovery
	r := NewReader(backend, &memStore{}, bus, cfg, discardLogger())

	result, err := r.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", result.Device.Address)
}

func TestReader_Sync_DeviceNotFound(t *testing.T) {
	backend := ble.NewMockBackend() // nothing advertising
	bus := eventbus.New(discardLogger())
	defer bus.Close()

	cfg := testConfig()
	cfg.Device.Address = ""
	r := NewReader(backend, &memStore{}, bus, cfg, discardLogger())

	_, err := r.Sync(context.Background())
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
}

func TestReader_Sync_BreakerOpens(t *testing.T) {
	backend := ble.NewMockBackend()
	backend.ConnectErr = domain.NewDomainError("ble.connect", domain.ErrDeviceUnreachable, "asleep")
	bus := eventbus.New(discardLogger())
	defer bus.Close()

	cfg := testConfig()
	cfg.Sync.Breaker.MaxFailures = 2
	r := NewReader(backend, &memStore{}, bus, cfg, discardLogger())

	for i := 0; i < 2; i++ {
		_, err := r.Sync(context.Background())
		assert.ErrorIs(t, err, domain.ErrDeviceUnreachable)
	}

	// Third attempt fails fast without touching the backend.
	_, err := r.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestReader_Sync_RejectsConcurrent(t *testing.T) {
	backend := ble.NewMockBackend()
	bus := eventbus.New(discardLogger())
	defer bus.Close()

	r := NewReader(backend, &memStore{}, bus, testConfig(), discardLogger())
	r.syncing.Store(true)

	_, err := r.Sync(context.Background())
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
}

func TestReader_Scan(t *testing.T) {
	backend := ble.NewMockBackend(
		domain.Peripheral{Address: "AA:BB:CC:DD:EE:FF", Name: "PO60 4123"},
		domain.Peripheral{Address: "AA:BB:CC:DD:EE:FF", Name: "PO60 4123"}, // duplicate advertisement
		domain.Peripheral{Address: "11:22:33:44:55:66", Name: "Polar H10"},
	)
	bus := eventbus.New(discardLogger())
	defer bus.Close()

	r := NewReader(backend, &memStore{}, bus, testConfig(), discardLogger())

	got, err := r.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "11:22:33:44:55:66", got[0].Address, "sorted by address")
}

func TestReader_Prune(t *testing.T) {
	st := &memStore{}
	old := domain.Measurement{DeviceAddress: "x", FinishedAt: time.Now().Add(-100 * 24 * time.Hour)}
	recent := domain.Measurement{DeviceAddress: "x", FinishedAt: time.Now()}
	require.NoError(t, st.Save(context.Background(), old))
	require.NoError(t, st.Save(context.Background(), recent))

	bus := eventbus.New(discardLogger())
	defer bus.Close()

	cfg := testConfig()
	cfg.Store.Retention = 30 * 24 * time.Hour
	r := NewReader(ble.NewMockBackend(), st, bus, cfg, discardLogger())

	deleted, err := r.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	cfg.Store.Retention = 0
	r = NewReader(ble.NewMockBackend(), st, bus, cfg, discardLogger())
	deleted, err = r.Prune(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted, "zero retention keeps everything")
}
