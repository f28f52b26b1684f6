package po60

import (
	"encoding/hex"
	"log/slog"
	"sync"

	"oxylog/internal/domain"
)

// sessionBuffer sizes the output channel. A PO60 holds at most ~100
// recordings, so a sync burst never comes close.
const sessionBuffer = 128

// Session assembles the notification stream of one sync into complete
// measurements. The device interleaves measurement frames with pulse-rate
// continuation frames; a continuation always belongs to the measurement
// frame immediately before it.
//
// Feed is called from the BLE notification callback; Measurements is
// consumed by the reader. Flush ends the session and closes the channel.
type Session struct {
	mu      sync.Mutex
	device  string
	pending *domain.Measurement
	out     chan domain.Measurement
	closed  bool
	log     *slog.Logger
}

func NewSession(device string, log *slog.Logger) *Session {
	return &Session{
		device: device,
		out:    make(chan domain.Measurement, sessionBuffer),
		log:    log,
	}
}

// Measurements returns the channel of completed measurements. It is
// closed by Flush.
func (s *Session) Measurements() <-chan domain.Measurement {
	return s.out
}

// Feed routes one notification frame. Measurement frames become pending
// until their pulse-rate continuation arrives or the next measurement
// frame starts; continuation frames complete and emit the pending
// measurement.
func (s *Session) Feed(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.NewDomainError("po60.session", domain.ErrNotConnected, "session flushed")
	}

	if len(frame) > 0 && frame[0] == MeasurementHeader {
		m, err := ParseMeasurement(s.device, frame)
		if err != nil {
			return err
		}
		// A new measurement frame before a continuation means the
		// previous recording has no pulse data on the wire.
		s.emitPending()
		s.pending = &m
		return nil
	}

	// The device pads bursts with stray empty or truncated notifications;
	// they carry nothing and must not consume the pending measurement.
	if len(frame) < minPulseLen {
		return nil
	}

	if s.pending == nil {
		return domain.NewDomainError("po60.session", domain.ErrFrameHeader,
			"continuation frame without preceding measurement")
	}

	pr, err := ParsePulseRate(frame)
	if err != nil {
		// The SpO2 part is still valid; keep it rather than drop the
		// whole recording.
		s.log.Warn("pulse rate frame rejected",
			"device", s.device, "seq", s.pending.Seq, "err", err)
		s.emitPending()
		return err
	}

	s.pending.PulseRate = &pr
	s.pending.Raw = append(s.pending.Raw, hex.EncodeToString(frame))
	s.emitPending()
	return nil
}

// Flush emits any pending measurement and closes the output channel.
// Safe to call more than once.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.emitPending()
	s.closed = true
	close(s.out)
}

func (s *Session) emitPending() {
	if s.pending == nil {
		return
	}
	select {
	case s.out <- *s.pending:
	default:
		s.log.Warn("measurement dropped, session buffer full",
			"device", s.device, "seq", s.pending.Seq)
	}
	s.pending = nil
}
