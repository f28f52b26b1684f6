// Package po60 implements the Beurer PO60 pulse-oximeter GATT protocol:
// command encoding for the write characteristic and frame decoding for
// the notify characteristic.
package po60

// Command is the 3-byte payload written to the command characteristic:
// opcode, argument, checksum.
type Command [3]byte

// NewCommand builds a command. The device expects the third byte to be
// the sum of the first two masked to 7 bits.
func NewCommand(opcode, arg byte) Command {
	return Command{opcode, arg, (opcode + arg) & 0x7F}
}

func (c Command) Bytes() []byte { return []byte{c[0], c[1], c[2]} }

var (
	// CmdHello is sent once after connecting; the device will not answer
	// data requests until it has seen it.
	CmdHello = NewCommand(0x90, 0x05)

	// CmdRequestStored asks the device to push every stored measurement
	// as a burst of notifications.
	CmdRequestStored = NewCommand(0x99, 0x00)
)

const (
	// MeasurementHeader is the first byte of a measurement frame.
	MeasurementHeader = 0xE9

	// minMeasurementLen covers header, seq, two timestamps and the
	// SpO2 triple at offsets 17-19.
	minMeasurementLen = 23

	// minPulseLen is the pulse-rate continuation frame: three 7-bit values.
	minPulseLen = 3
)
