// Package frame decodes the wire frames polled from the ECG microcontroller.
//
// Frame format:
//
//	[uint8 count][uint32 t0_ms][count * (uint16 value + uint8 dt_ms)][uint16 crc16]
//
// All multi-byte fields are little-endian. An optional leading 0x21 ('!')
// marks that the MCU sample queue overflowed since the last poll and is
// stripped before parsing. A legacy transport delivers the same bytes as
// hex-encoded ASCII text; both encodings are accepted transparently.
package frame

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// OverflowMarker prefixes a frame when the device-side sample queue
	// overflowed between polls ('!').
	OverflowMarker = 0x21

	// MaxSamples is the largest entry count a single frame can carry.
	MaxSamples = 255

	headerSize = 1 + 4 // count byte + uint32 base timestamp
	entrySize  = 3     // uint16 value + uint8 delta-ms
	crcSize    = 2

	// minFrameSize is the smallest payload worth inspecting: count byte,
	// base timestamp and CRC with no room yet for full entries.
	minFrameSize = 5
)

var (
	ErrEmpty    = errors.New("empty payload")
	ErrTooShort = errors.New("payload too short")
	ErrCount    = errors.New("invalid sample count")
	ErrLength   = errors.New("payload length mismatch")
	ErrCRC      = errors.New("crc mismatch")
)

// Frame is one validated wire frame: a base timestamp and count entries of
// (quantized value, millisecond delta).
type Frame struct {
	T0     uint32
	Values []uint16
	Deltas []uint8
}

// Count returns the number of sample entries in the frame.
func (f *Frame) Count() int {
	return len(f.Values)
}

// Samples returns the entry values widened to float64 for the filter pipeline.
func (f *Frame) Samples() []float64 {
	out := make([]float64, len(f.Values))
	for i, v := range f.Values {
		out[i] = float64(v)
	}
	return out
}

// Timestamps returns the absolute millisecond timestamp of each entry,
// obtained by cumulatively summing the deltas onto the base timestamp in
// entry order. Deltas are unsigned, so the result is monotonically
// non-decreasing by construction.
func (f *Frame) Timestamps() []int64 {
	out := make([]int64, len(f.Deltas))
	prev := int64(f.T0)
	for i, d := range f.Deltas {
		prev += int64(d)
		out[i] = prev
	}
	return out
}

// looksLikeHex reports whether the payload is plausibly the legacy hex-text
// encoding: non-empty, even length, and exclusively hexadecimal digits.
func looksLikeHex(data []byte) bool {
	if len(data) == 0 || len(data)%2 != 0 {
		return false
	}
	for _, b := range data {
		switch {
		case b >= '0' && b <= '9':
		case b >= 'a' && b <= 'f':
		case b >= 'A' && b <= 'F':
		default:
			return false
		}
	}
	return true
}

// Parse validates and decodes one wire payload. It accepts raw bytes or the
// legacy hex-text encoding, strips a leading overflow marker, and rejects
// structurally inconsistent or corrupted frames. Callers that want the
// never-fails contract should use Decode instead; Parse keeps the rejection
// reason for diagnostics.
func Parse(payload []byte) (*Frame, error) {
	if len(payload) == 0 {
		return nil, ErrEmpty
	}

	buf := payload
	if looksLikeHex(buf) {
		decoded := make([]byte, hex.DecodedLen(len(buf)))
		if _, err := hex.Decode(decoded, buf); err != nil {
			return nil, fmt.Errorf("hex decode: %w", err)
		}
		buf = decoded
	}

	if len(buf) > 1 && buf[0] == OverflowMarker {
		buf = buf[1:]
	}

	if len(buf) < minFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(buf))
	}

	count := int(buf[0])
	if count == 0 {
		return nil, fmt.Errorf("%w: 0", ErrCount)
	}

	expected := headerSize + entrySize*count + crcSize
	if len(buf) != expected {
		return nil, fmt.Errorf("%w: count %d expects %d bytes, got %d", ErrLength, count, expected, len(buf))
	}

	recv := binary.LittleEndian.Uint16(buf[len(buf)-crcSize:])
	if calc := CRC16(buf[:len(buf)-crcSize]); calc != recv {
		return nil, fmt.Errorf("%w: calculated 0x%04X, received 0x%04X", ErrCRC, calc, recv)
	}

	f := &Frame{
		T0:     binary.LittleEndian.Uint32(buf[1:5]),
		Values: make([]uint16, count),
		Deltas: make([]uint8, count),
	}
	offset := headerSize
	for i := 0; i < count; i++ {
		f.Values[i] = binary.LittleEndian.Uint16(buf[offset : offset+2])
		f.Deltas[i] = buf[offset+2]
		offset += entrySize
	}
	return f, nil
}

// Decode turns one wire payload into parallel value/timestamp slices. A
// malformed or corrupted payload yields empty slices rather than an error:
// the stream trades completeness for uninterrupted operation, and a dropped
// frame simply means no samples this poll.
func Decode(payload []byte) (values []float64, timestamps []int64) {
	f, err := Parse(payload)
	if err != nil {
		return nil, nil
	}
	return f.Samples(), f.Timestamps()
}

// Encode serializes a frame back to its wire representation, appending the
// CRC. It is the exact inverse of Parse and is used by the mock device, the
// fixture generator and round-trip tests.
func Encode(f *Frame) ([]byte, error) {
	count := len(f.Values)
	if count == 0 || count > MaxSamples {
		return nil, fmt.Errorf("%w: %d", ErrCount, count)
	}
	if len(f.Deltas) != count {
		return nil, fmt.Errorf("%w: %d values, %d deltas", ErrLength, count, len(f.Deltas))
	}

	buf := make([]byte, headerSize+entrySize*count+crcSize)
	buf[0] = uint8(count)
	binary.LittleEndian.PutUint32(buf[1:5], f.T0)
	offset := headerSize
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint16(buf[offset:offset+2], f.Values[i])
		buf[offset+2] = f.Deltas[i]
		offset += entrySize
	}
	binary.LittleEndian.PutUint16(buf[offset:], CRC16(buf[:offset]))
	return buf, nil
}
