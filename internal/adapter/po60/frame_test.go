package po60

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oxylog/internal/domain"
)

// measurementFrame builds a valid 23-byte measurement frame.
func measurementFrame(seq byte, start, end time.Time, spo2 domain.TriValue) []byte {
	f := make([]byte, minMeasurementLen)
	f[0] = MeasurementHeader
	f[1] = 0xE0 | (seq & 0x0F) // high nibble is noise on the wire
	encodeTimestamp(f[2:8], start)
	encodeTimestamp(f[8:14], end)
	f[17] = spo2.Max
	f[18] = spo2.Min
	f[19] = spo2.Avg
	return f
}

func encodeTimestamp(b []byte, t time.Time) {
	b[0] = byte(t.Year() - 2000)
	b[1] = byte(t.Month())
	b[2] = byte(t.Day())
	b[3] = byte(t.Hour())
	b[4] = byte(t.Minute())
	b[5] = byte(t.Second())
}

func TestNewCommand_Checksum(t *testing.T) {
	assert.Equal(t, Command{0x90, 0x05, 0x15}, CmdHello)
	assert.Equal(t, Command{0x99, 0x00, 0x19}, CmdRequestStored)
	// Checksum wraps into 7 bits.
	assert.Equal(t, byte(0x15), NewCommand(0x90, 0x05)[2])
	assert.Equal(t, []byte{0x99, 0x00, 0x19}, CmdRequestStored.Bytes())
}

func TestParseMeasurement(t *testing.T) {
	start := time.Date(2021, 3, 4, 5, 6, 7, 0, time.Local)
	end := time.Date(2021, 3, 4, 5, 7, 18, 0, time.Local)
	frame := measurementFrame(2, start, end, domain.TriValue{Max: 98, Min: 95, Avg: 96})

	m, err := ParseMeasurement("AA:BB:CC:DD:EE:FF", frame)
	require.NoError(t, err)

	assert.Equal(t, uint8(2), m.Seq)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", m.DeviceAddress)
	assert.True(t, m.StartedAt.Equal(start), "started at %v", m.StartedAt)
	assert.True(t, m.FinishedAt.Equal(end), "finished at %v", m.FinishedAt)
	assert.Equal(t, domain.TriValue{Max: 98, Min: 95, Avg: 96}, m.SpO2)
	assert.Nil(t, m.PulseRate)
	assert.NotEmpty(t, m.ID)
	assert.Len(t, m.Raw, 1)
}

func TestParseMeasurement_HighBitMasked(t *testing.T) {
	start := time.Date(2024, 12, 31, 23, 59, 59, 0, time.Local)
	frame := measurementFrame(15, start, start, domain.TriValue{Max: 99, Min: 90, Avg: 95})
	frame[17] |= 0x80 // wire sets the top bit on some models

	m, err := ParseMeasurement("", frame)
	require.NoError(t, err)
	assert.Equal(t, uint8(99), m.SpO2.Max)
}

func TestParseMeasurement_TooShort(t *testing.T) {
	_, err := ParseMeasurement("", []byte{MeasurementHeader, 0x01})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFrameTooShort)
}

func TestParseMeasurement_WrongHeader(t *testing.T) {
	frame := make([]byte, minMeasurementLen)
	frame[0] = 0x42
	_, err := ParseMeasurement("", frame)
	assert.ErrorIs(t, err, domain.ErrFrameHeader)
}

func TestParseMeasurement_BadTimestamp(t *testing.T) {
	start := time.Date(2021, 3, 4, 5, 6, 7, 0, time.Local)
	frame := measurementFrame(1, start, start, domain.TriValue{Max: 98, Min: 95, Avg: 96})
	frame[3] = 0 // month zero

	_, err := ParseMeasurement("", frame)
	assert.ErrorIs(t, err, domain.ErrFrameTimestamp)
}

func TestParseMeasurement_ImplausibleSpO2(t *testing.T) {
	start := time.Date(2021, 3, 4, 5, 6, 7, 0, time.Local)
	for _, spo2 := range []domain.TriValue{
		{Max: 98, Min: 10, Avg: 96}, // below floor
		{Max: 120, Min: 95, Avg: 96},
	} {
		frame := measurementFrame(1, start, start, spo2)
		_, err := ParseMeasurement("", frame)
		assert.ErrorIs(t, err, domain.ErrFrameImplausible, "spo2 %v", spo2)
	}
}

func TestParsePulseRate(t *testing.T) {
	pr, err := ParsePulseRate([]byte{75, 60, 66})
	require.NoError(t, err)
	assert.Equal(t, domain.TriValue{Max: 75, Min: 60, Avg: 66}, pr)
}

func TestParsePulseRate_Masked(t *testing.T) {
	pr, err := ParsePulseRate([]byte{75 | 0x80, 60, 66})
	require.NoError(t, err)
	assert.Equal(t, uint8(75), pr.Max)
}

func TestParsePulseRate_TooShort(t *testing.T) {
	_, err := ParsePulseRate([]byte{75, 60})
	assert.ErrorIs(t, err, domain.ErrFrameTooShort)
}

func TestParsePulseRate_Implausible(t *testing.T) {
	_, err := ParsePulseRate([]byte{75, 5, 66})
	assert.ErrorIs(t, err, domain.ErrFrameImplausible)
}
