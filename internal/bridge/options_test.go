package bridge

import (
	"testing"

	"go.bug.st/serial"
)

func TestPortOptionsNormalizeDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if opts.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", opts.BaudRate)
	}
	if opts.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", opts.DataBits)
	}
	if opts.StopBits != 1 {
		t.Errorf("StopBits = %d, want 1", opts.StopBits)
	}
	if opts.Parity != "N" {
		t.Errorf("Parity = %q, want N", opts.Parity)
	}
}

func TestPortOptionsNormalizeParityAliases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "N"},
		{"n", "N"},
		{"none", "N"},
		{"NONE", "N"},
		{"e", "E"},
		{"even", "E"},
		{"o", "O"},
		{"odd", "O"},
		{" N ", "N"},
	}

	for _, tt := range tests {
		opts, err := PortOptions{Parity: tt.in}.Normalize()
		if err != nil {
			t.Errorf("Normalize(parity=%q) error = %v", tt.in, err)
			continue
		}
		if opts.Parity != tt.want {
			t.Errorf("Normalize(parity=%q) = %q, want %q", tt.in, opts.Parity, tt.want)
		}
	}
}

func TestPortOptionsNormalizeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		opts PortOptions
	}{
		{"data bits too low", PortOptions{DataBits: 4}},
		{"data bits too high", PortOptions{DataBits: 9}},
		{"bad stop bits", PortOptions{StopBits: 3}},
		{"bad parity", PortOptions{Parity: "X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.opts.Normalize(); err == nil {
				t.Errorf("Normalize(%+v) expected error, got nil", tt.opts)
			}
		})
	}
}

func TestPortOptionsSerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 57600, StopBits: 2, Parity: "even"}.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode() error = %v", err)
	}

	if mode.BaudRate != 57600 {
		t.Errorf("BaudRate = %d, want 57600", mode.BaudRate)
	}
	if mode.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", mode.DataBits)
	}
	if mode.StopBits != serial.TwoStopBits {
		t.Errorf("StopBits = %v, want TwoStopBits", mode.StopBits)
	}
	if mode.Parity != serial.EvenParity {
		t.Errorf("Parity = %v, want EvenParity", mode.Parity)
	}

	if _, err := (PortOptions{DataBits: 3}).SerialMode(); err == nil {
		t.Error("SerialMode with invalid options expected error, got nil")
	}
}

// TestPortOptionsSerialModeOneStopBit pins the stop-bits mapping: the
// library's value for a single stop bit is not the integer 1.
func TestPortOptionsSerialModeOneStopBit(t *testing.T) {
	mode, err := PortOptions{}.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode() error = %v", err)
	}
	if mode.StopBits != serial.OneStopBit {
		t.Errorf("StopBits = %v, want OneStopBit", mode.StopBits)
	}
	if mode.StopBits == serial.OnePointFiveStopBits {
		t.Error("default stop bits mapped to OnePointFiveStopBits")
	}
}
