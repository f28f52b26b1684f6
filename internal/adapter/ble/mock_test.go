package ble

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oxylog/internal/domain"
)

func TestFilter_Match(t *testing.T) {
	po60 := domain.Peripheral{Address: "AA:BB:CC:DD:EE:FF", Name: "PO60 4123"}
	other := domain.Peripheral{Address: "11:22:33:44:55:66", Name: "Polar H10"}

	tests := []struct {
		name   string
		filter Filter
		p      domain.Peripheral
		want   bool
	}{
		{"address match", Filter{Address: "aa:bb:cc:dd:ee:ff"}, po60, true},
		{"address mismatch", Filter{Address: "AA:BB:CC:DD:EE:FF"}, other, false},
		{"address wins over prefix", Filter{Address: "AA:BB:CC:DD:EE:FF", NamePrefix: "Polar"}, other, false},
		{"prefix match", Filter{NamePrefix: "PO60"}, po60, true},
		{"prefix mismatch", Filter{NamePrefix: "PO60"}, other, false},
		{"empty filter matches nothing", Filter{}, po60, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.p))
		})
	}
}

func TestFind(t *testing.T) {
	backend := NewMockBackend(
		domain.Peripheral{Address: "11:22:33:44:55:66", Name: "Polar H10"},
		domain.Peripheral{Address: "AA:BB:CC:DD:EE:FF", Name: "PO60 4123"},
	)

	p, err := Find(context.Background(), backend, Filter{NamePrefix: "PO60"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", p.Address)
}

func TestFind_NotFound(t *testing.T) {
	backend := NewMockBackend(domain.Peripheral{Address: "11:22:33:44:55:66", Name: "Polar H10"})

	_, err := Find(context.Background(), backend, Filter{NamePrefix: "PO60"}, time.Second)
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
}

func TestMockBackend_WriteRequiresConnection(t *testing.T) {
	backend := NewMockBackend()
	err := backend.Write(context.Background(), []byte{0x90, 0x05, 0x15})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestMockBackend_Conversation(t *testing.T) {
	backend := NewMockBackend()
	require.NoError(t, backend.Enable())
	require.NoError(t, backend.Connect(context.Background(), "AA:BB:CC:DD:EE:FF"))
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", backend.ConnectedTo())

	var got [][]byte
	require.NoError(t, backend.Subscribe(func(data []byte) {
		got = append(got, data)
	}))

	// Device replies to the data request with one frame.
	backend.OnWrite = func(data []byte) {
		if data[0] == 0x99 {
			backend.PushNotification([]byte{75, 60, 66})
		}
	}

	require.NoError(t, backend.Write(context.Background(), []byte{0x90, 0x05, 0x15}))
	require.NoError(t, backend.Write(context.Background(), []byte{0x99, 0x00, 0x19}))

	require.Len(t, got, 1)
	assert.Equal(t, []byte{75, 60, 66}, got[0])
	assert.Len(t, backend.Writes(), 2)

	require.NoError(t, backend.Disconnect())
	assert.Empty(t, backend.ConnectedTo())
}

func TestMockBackend_DoubleConnect(t *testing.T) {
	backend := NewMockBackend()
	require.NoError(t, backend.Connect(context.Background(), "AA:BB:CC:DD:EE:FF"))
	err := backend.Connect(context.Background(), "11:22:33:44:55:66")
	assert.ErrorIs(t, err, domain.ErrAlreadyConnected)
}
