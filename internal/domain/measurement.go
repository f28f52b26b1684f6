package domain

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// TriValue holds the maximum, minimum, and average of a measured quantity
// over one recording. The PO60 transmits each component as a 7-bit value.
type TriValue struct {
	Max uint8 `json:"max"`
	Min uint8 `json:"min"`
	Avg uint8 `json:"avg"`
}

func (v TriValue) String() string {
	return fmt.Sprintf("max %d / min %d / avg %d", v.Max, v.Min, v.Avg)
}

// Measurement is one stored recording read from the oximeter.
//
// PulseRate is nil until the pulse-rate continuation frame for the recording
// has been received; the device sends it in a separate notification after
// the measurement frame.
type Measurement struct {
	ID            string    `json:"id"`
	DeviceAddress string    `json:"device_address"`
	Seq           uint8     `json:"seq"` // packet number, 0-15
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	SpO2          TriValue  `json:"spo2"`
	PulseRate     *TriValue `json:"pulse_rate,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
	Raw           []string  `json:"raw,omitempty"` // hex-encoded source frames
}

// Summary renders the measurement the way the CLI prints it after a sync.
func (m Measurement) Summary() string {
	pr := "n/a"
	if m.PulseRate != nil {
		pr = m.PulseRate.String()
	}
	return fmt.Sprintf("#%d %s  SpO2 %s  PR %s",
		m.Seq, m.FinishedAt.Format("2006-01-02 15:04:05"), m.SpO2, pr)
}

// NewMeasurementID returns a monotonic ULID for a measurement row.
func NewMeasurementID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Peripheral describes a discovered BLE device.
type Peripheral struct {
	Address   string `json:"address"`
	Name      string `json:"name,omitempty"`
	RSSI      int16  `json:"rssi,omitempty"`
	Connected bool   `json:"connected"`
}

// MeasurementStore persists measurements.
//
// Save must be idempotent with respect to the measurement identity
// (device address, seq, finished-at): re-syncing the device must not
// produce duplicate rows.
type MeasurementStore interface {
	Save(ctx context.Context, m Measurement) error
	// Latest returns the measurement with the greatest finished-at time.
	// device narrows to one device address; empty means any.
	Latest(ctx context.Context, device string) (*Measurement, error)
	// List returns measurements ordered newest first, at most limit rows.
	List(ctx context.Context, device string, limit int) ([]Measurement, error)
	Count(ctx context.Context) (int64, error)
	// DeleteOlderThan removes measurements finished before cutoff and
	// reports how many rows were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}
