package bridge

import (
	"encoding/hex"
	"sync"

	"github.com/banshee-data/cardio.report/internal/frame"
)

// MockDevice implements Devicer with synthesized frames, enabling full-stack
// development without hardware. Each RequestFrame returns one encoded frame
// covering the samples accumulated since the previous request.
type MockDevice struct {
	mu     sync.Mutex
	synth  *Synth
	closed bool

	// SamplesPerFrame is the number of samples returned per request.
	SamplesPerFrame int

	// EmitHex switches the payload to the legacy hex-text encoding, matching
	// firmware revisions that predate the binary bridge.
	EmitHex bool
}

// NewMockDevice creates a mock producing 75 BPM beats sampled at 200 Hz.
func NewMockDevice() *MockDevice {
	return &MockDevice{
		synth:           NewSynth(800, 5),
		SamplesPerFrame: 10,
	}
}

// RequestFrame synthesizes and encodes the next frame.
func (m *MockDevice) RequestFrame() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrDeviceClosed
	}

	values, timestamps := m.synth.Batch(m.SamplesPerFrame)

	deltas := make([]uint8, len(values))
	prev := timestamps[0]
	for i := 1; i < len(timestamps); i++ {
		deltas[i] = uint8(timestamps[i] - prev)
		prev = timestamps[i]
	}

	payload, err := frame.Encode(&frame.Frame{
		T0:     uint32(timestamps[0]),
		Values: values,
		Deltas: deltas,
	})
	if err != nil {
		return nil, err
	}

	if m.EmitHex {
		return []byte(hex.EncodeToString(payload)), nil
	}
	return payload, nil
}

// Close marks the device as closed; further requests fail.
func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
