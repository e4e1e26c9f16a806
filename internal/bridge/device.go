package bridge

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// frameCommand is the RPC endpoint name exposed by the MCU sketch. Writing
// the command as a line prompts the device to answer with one frame payload
// terminated by a newline.
const frameCommand = "ecg_get_frame"

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// SerialDevice is a Devicer backed by a line-oriented serial link. Each
// RequestFrame is a full command/response exchange; a command mutex
// serializes exchanges so concurrent callers cannot interleave a request
// with another request's reply.
type SerialDevice struct {
	commandMu sync.Mutex
	port      io.ReadWriteCloser
	reader    *bufio.Reader
}

// NewSerialDevice wraps an already-open port. Used directly by tests; real
// hardware goes through OpenSerialDevice.
func NewSerialDevice(port io.ReadWriteCloser) *SerialDevice {
	return &SerialDevice{
		port:   port,
		reader: bufio.NewReader(port),
	}
}

// OpenSerialDevice opens the serial port at the given path using the provided
// options and applies the read timeout so a silent device cannot wedge the
// poll loop.
func OpenSerialDevice(path string, opts PortOptions, readTimeout time.Duration) (*SerialDevice, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	return NewSerialDevice(port), nil
}

// RequestFrame writes the frame-request command and reads one reply line.
// The reply is returned with surrounding whitespace trimmed; an empty line
// means the device had no buffered samples.
func (d *SerialDevice) RequestFrame() ([]byte, error) {
	d.commandMu.Lock()
	defer d.commandMu.Unlock()

	command := frameCommand + "\n"
	n, err := d.port.Write([]byte(command))
	if err != nil {
		return nil, err
	}
	if n != len(command) {
		return nil, ErrWriteFailed
	}

	line, err := d.reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	return bytes.TrimSpace(line), nil
}

// Close closes the underlying serial port.
func (d *SerialDevice) Close() error {
	return d.port.Close()
}
