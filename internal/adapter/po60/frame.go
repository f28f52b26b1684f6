package po60

import (
	"encoding/hex"
	"fmt"
	"time"

	"oxylog/internal/domain"
)

// Plausibility bounds. Values outside these ranges mean a corrupted frame,
// not an exotic patient.
const (
	spo2Min  = 35
	spo2Max  = 100
	pulseMin = 25
)

// ParseMeasurement decodes a measurement frame into a Measurement.
// PulseRate stays nil; the device delivers it in a separate continuation
// frame (see ParsePulseRate).
//
// Layout: [0]=0xE9 header, [1] low nibble = packet seq, [2:8] start
// timestamp, [8:14] end timestamp, [17:20] SpO2 max/min/avg. Every data
// byte carries its value in the low 7 bits.
func ParseMeasurement(device string, frame []byte) (domain.Measurement, error) {
	var m domain.Measurement

	if len(frame) < minMeasurementLen {
		return m, domain.NewDomainError("po60.parse", domain.ErrFrameTooShort,
			fmt.Sprintf("got %d bytes, need %d", len(frame), minMeasurementLen))
	}
	if frame[0] != MeasurementHeader {
		return m, domain.NewDomainError("po60.parse", domain.ErrFrameHeader,
			fmt.Sprintf("got 0x%02X, want 0x%02X", frame[0], MeasurementHeader))
	}

	startedAt, err := parseTimestamp(frame[2:8])
	if err != nil {
		return m, domain.NewDomainError("po60.parse", domain.ErrFrameTimestamp, "start: "+err.Error())
	}
	finishedAt, err := parseTimestamp(frame[8:14])
	if err != nil {
		return m, domain.NewDomainError("po60.parse", domain.ErrFrameTimestamp, "end: "+err.Error())
	}

	spo2 := domain.TriValue{
		Max: frame[17] & 0x7F,
		Min: frame[18] & 0x7F,
		Avg: frame[19] & 0x7F,
	}
	for _, v := range []uint8{spo2.Max, spo2.Min, spo2.Avg} {
		if v < spo2Min || v > spo2Max {
			return m, domain.NewDomainError("po60.parse", domain.ErrFrameImplausible,
				fmt.Sprintf("spo2 %d outside %d-%d", v, spo2Min, spo2Max))
		}
	}

	m = domain.Measurement{
		ID:            domain.NewMeasurementID(),
		DeviceAddress: device,
		Seq:           frame[1] & 0x0F,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
		SpO2:          spo2,
		ReceivedAt:    time.Now(),
		Raw:           []string{hex.EncodeToString(frame)},
	}
	return m, nil
}

// ParsePulseRate decodes the pulse-rate continuation frame that follows
// a measurement frame: three 7-bit values, max/min/avg.
func ParsePulseRate(frame []byte) (domain.TriValue, error) {
	var pr domain.TriValue

	if len(frame) < minPulseLen {
		return pr, domain.NewDomainError("po60.parse", domain.ErrFrameTooShort,
			fmt.Sprintf("got %d bytes, need %d", len(frame), minPulseLen))
	}

	pr = domain.TriValue{
		Max: frame[0] & 0x7F,
		Min: frame[1] & 0x7F,
		Avg: frame[2] & 0x7F,
	}
	for _, v := range []uint8{pr.Max, pr.Min, pr.Avg} {
		if v < pulseMin {
			return domain.TriValue{}, domain.NewDomainError("po60.parse", domain.ErrFrameImplausible,
				fmt.Sprintf("pulse rate %d below %d", v, pulseMin))
		}
	}
	return pr, nil
}

// parseTimestamp decodes a 6-byte device timestamp. Years count from 2000.
// The field masks are wider than the valid ranges, so range checks stay
// necessary even after masking.
func parseTimestamp(b []byte) (time.Time, error) {
	year := 2000 + int(b[0]&0x7F)
	month := int(b[1] & 0x0F)
	day := int(b[2] & 0x1F)
	hour := int(b[3] & 0x1F)
	minute := int(b[4] & 0x3F)
	second := int(b[5] & 0x3F)

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", month)
	}
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day %d out of range", day)
	}
	if hour > 23 {
		return time.Time{}, fmt.Errorf("hour %d out of range", hour)
	}
	if minute > 59 {
		return time.Time{}, fmt.Errorf("minute %d out of range", minute)
	}
	if second > 59 {
		return time.Time{}, fmt.Errorf("second %d out of range", second)
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local), nil
}
