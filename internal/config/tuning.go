package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/filters endpoint where the fields overlap,
// so the same JSON can be used for both startup configuration and runtime
// updates. All fields are pointers: a nil field means "not specified" and
// the Get* accessors fall back to the built-in default.
type TuningConfig struct {
	// Acquisition params
	SampleRateHz *float64 `json:"sample_rate_hz,omitempty"`
	StreamLength *int     `json:"stream_length,omitempty"`
	PlotWindow   *int     `json:"plot_window,omitempty"`
	PollInterval *string  `json:"poll_interval,omitempty"` // duration string like "50ms"
	TrackerMode  *string  `json:"tracker_mode,omitempty"`  // "fast" or "scan"

	// Filter stage toggles
	Notch    *bool `json:"notch,omitempty"`
	Lowpass  *bool `json:"lowpass,omitempty"`
	Highpass *bool `json:"highpass,omitempty"`
	Adaptive *bool `json:"adaptive,omitempty"`

	// Serial params
	SerialBaud        *int    `json:"serial_baud,omitempty"`
	SerialReadTimeout *string `json:"serial_read_timeout,omitempty"` // duration string like "250ms"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a config file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SampleRateHz != nil && *c.SampleRateHz <= 0 {
		return fmt.Errorf("sample_rate_hz must be positive, got %f", *c.SampleRateHz)
	}

	if c.StreamLength != nil && *c.StreamLength <= 0 {
		return fmt.Errorf("stream_length must be positive, got %d", *c.StreamLength)
	}

	if c.PlotWindow != nil && *c.PlotWindow <= 0 {
		return fmt.Errorf("plot_window must be positive, got %d", *c.PlotWindow)
	}

	if c.PollInterval != nil && *c.PollInterval != "" {
		if _, err := time.ParseDuration(*c.PollInterval); err != nil {
			return fmt.Errorf("invalid poll_interval '%s': %w", *c.PollInterval, err)
		}
	}

	if c.SerialReadTimeout != nil && *c.SerialReadTimeout != "" {
		if _, err := time.ParseDuration(*c.SerialReadTimeout); err != nil {
			return fmt.Errorf("invalid serial_read_timeout '%s': %w", *c.SerialReadTimeout, err)
		}
	}

	if c.TrackerMode != nil {
		switch *c.TrackerMode {
		case "", "fast", "scan", "slow":
		default:
			return fmt.Errorf("tracker_mode must be fast or scan, got %q", *c.TrackerMode)
		}
	}

	if c.SerialBaud != nil && *c.SerialBaud <= 0 {
		return fmt.Errorf("serial_baud must be positive, got %d", *c.SerialBaud)
	}

	return nil
}

// GetSampleRateHz returns the sample_rate_hz value or the default.
func (c *TuningConfig) GetSampleRateHz() float64 {
	if c.SampleRateHz == nil {
		return 200 // default, matches the MCU firmware
	}
	return *c.SampleRateHz
}

// GetStreamLength returns the stream_length value or the default.
func (c *TuningConfig) GetStreamLength() int {
	if c.StreamLength == nil {
		return 4000 // default: 20s at 200 Hz
	}
	return *c.StreamLength
}

// GetPlotWindow returns the plot_window value or the default.
func (c *TuningConfig) GetPlotWindow() int {
	if c.PlotWindow == nil {
		return 800 // default: 4s at 200 Hz
	}
	return *c.PlotWindow
}

// GetPollInterval parses and returns the PollInterval as a time.Duration.
func (c *TuningConfig) GetPollInterval() time.Duration {
	if c.PollInterval == nil || *c.PollInterval == "" {
		return 50 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.PollInterval)
	if err != nil {
		return 50 * time.Millisecond // default on parse error
	}
	return d
}

// GetTrackerMode returns the tracker_mode value or the default.
func (c *TuningConfig) GetTrackerMode() string {
	if c.TrackerMode == nil {
		return "fast"
	}
	return *c.TrackerMode
}

// GetNotch returns the notch value or the default.
func (c *TuningConfig) GetNotch() bool {
	if c.Notch == nil {
		return true
	}
	return *c.Notch
}

// GetLowpass returns the lowpass value or the default.
func (c *TuningConfig) GetLowpass() bool {
	if c.Lowpass == nil {
		return true
	}
	return *c.Lowpass
}

// GetHighpass returns the highpass value or the default.
func (c *TuningConfig) GetHighpass() bool {
	if c.Highpass == nil {
		return true
	}
	return *c.Highpass
}

// GetAdaptive returns the adaptive value or the default.
func (c *TuningConfig) GetAdaptive() bool {
	if c.Adaptive == nil {
		return true
	}
	return *c.Adaptive
}

// GetSerialBaud returns the serial_baud value or the default.
func (c *TuningConfig) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200
	}
	return *c.SerialBaud
}

// GetSerialReadTimeout parses and returns the SerialReadTimeout as a time.Duration.
func (c *TuningConfig) GetSerialReadTimeout() time.Duration {
	if c.SerialReadTimeout == nil || *c.SerialReadTimeout == "" {
		return 250 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.SerialReadTimeout)
	if err != nil {
		return 250 * time.Millisecond // default on parse error
	}
	return d
}
