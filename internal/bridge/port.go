// Package bridge provides the transport link to the ECG acquisition device.
// A Devicer answers one frame per request; the Poller drives requests on a
// fixed cadence, feeds the decoded samples into the processing stream, and
// fans the resulting updates out to subscribers.
package bridge

import "fmt"

// ErrDeviceClosed is returned by RequestFrame after Close.
var ErrDeviceClosed = fmt.Errorf("device closed")

// Devicer defines the minimal interface for a frame-oriented device link.
// This abstraction enables unit testing without real serial hardware.
type Devicer interface {
	// RequestFrame asks the device for its next buffered frame and returns
	// the raw payload (binary or legacy hex text). An empty payload means
	// the device had nothing buffered.
	RequestFrame() ([]byte, error)
	// Close releases the underlying transport.
	Close() error
}
