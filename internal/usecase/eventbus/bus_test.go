package eventbus

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"oxylog/internal/domain"
)

func newTestBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBus_TypedSubscriber(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var (
		mu  sync.Mutex
		got []domain.EventType
	)
	bus.Subscribe(domain.EventMeasurementStored, func(ctx context.Context, e domain.Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
	})

	bus.Publish(context.Background(), domain.NewEvent(domain.EventMeasurementStored, "dev", nil))
	bus.Publish(context.Background(), domain.NewEvent(domain.EventSyncStarted, "dev", nil))
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != domain.EventMeasurementStored {
		t.Errorf("got %v, want one measurement.stored", got)
	}
}

func TestBus_AllSubscriber(t *testing.T) {
	bus := newTestBus()

	var (
		mu    sync.Mutex
		count int
	)
	bus.SubscribeAll(func(ctx context.Context, e domain.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(context.Background(), domain.NewEvent(domain.EventSyncStarted, "", nil))
	bus.Publish(context.Background(), domain.NewEvent(domain.EventSyncCompleted, "", nil))
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus()

	var (
		mu    sync.Mutex
		count int
	)
	unsub := bus.SubscribeAll(func(ctx context.Context, e domain.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(context.Background(), domain.NewEvent(domain.EventSyncStarted, "", nil))
	// Wait for the in-flight handler before unsubscribing so the count
	// is deterministic.
	bus.wg.Wait()
	unsub()
	bus.Publish(context.Background(), domain.NewEvent(domain.EventSyncStarted, "", nil))
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestBus_PanicRecovered(t *testing.T) {
	bus := newTestBus()

	done := make(chan struct{})
	bus.SubscribeAll(func(ctx context.Context, e domain.Event) {
		close(done)
		panic("boom")
	})

	bus.Publish(context.Background(), domain.NewEvent(domain.EventSyncFailed, "", nil))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
	bus.Close() // must not hang or re-panic
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := newTestBus()
	bus.SubscribeAll(func(ctx context.Context, e domain.Event) {
		t.Error("handler invoked after close")
	})
	bus.Close()
	bus.Publish(context.Background(), domain.NewEvent(domain.EventSyncStarted, "", nil))
	bus.Close()
}
