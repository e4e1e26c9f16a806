package ecg

import (
	"fmt"
	"math"
	"sync"
)

// TrackerMode selects the window statistics implementation for a stream.
// The two modes are reference-equivalent; the choice is made once at
// construction and never switched at runtime.
type TrackerMode int

const (
	// TrackerFast uses the monotonic-deque tracker, O(1) amortized.
	TrackerFast TrackerMode = iota
	// TrackerScan uses the brute-force circular rescan, O(W) per sample.
	TrackerScan
)

// ParseTrackerMode converts a config string to a TrackerMode.
func ParseTrackerMode(s string) (TrackerMode, error) {
	switch s {
	case "", "fast":
		return TrackerFast, nil
	case "scan", "slow":
		return TrackerScan, nil
	default:
		return TrackerFast, fmt.Errorf("unknown tracker mode %q: expected fast or scan", s)
	}
}

// FilterConfig holds the runtime enable flags for the three cascade stages
// and the adaptive-mean detection stage.
type FilterConfig struct {
	Notch    bool `json:"notch"`
	Lowpass  bool `json:"lowpass"`
	Highpass bool `json:"highpass"`
	Adaptive bool `json:"adaptive"`
}

// AllFiltersOn returns the default filter configuration.
func AllFiltersOn() FilterConfig {
	return FilterConfig{Notch: true, Lowpass: true, Highpass: true, Adaptive: true}
}

// StreamConfig configures a stream session.
type StreamConfig struct {
	// Length is the ring buffer capacity in samples.
	Length int
	// SampleRate is the device sampling rate in Hz; the smoother, refractory
	// and statistics window lengths derive from it.
	SampleRate float64
	// Mode selects the window statistics implementation.
	Mode TrackerMode
}

// DefaultStreamConfig matches the MCU firmware: 200 Hz sampling with a
// 4000-sample (20 s) retention window.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{Length: 4000, SampleRate: 200, Mode: TrackerFast}
}

// Update is the incremental payload produced by ingesting one frame: a base
// timestamp, single-byte deltas relative to the previous sample, the output
// values, and the adaptive threshold at the end of the batch. BPM events
// travel separately via TakeBeat.
type Update struct {
	T0        int64     `json:"t0"`
	Deltas    []int     `json:"dt"`
	Values    []float64 `json:"y"`
	Threshold float64   `json:"threshold"`
}

// Snapshot is the on-demand full view: a trailing window of samples with
// timestamps relative to the session start, plus the current threshold.
type Snapshot struct {
	PlotWindow int       `json:"plot_window"`
	T0         int64     `json:"t0"`
	Times      []int64   `json:"t"`
	Values     []float64 `json:"y"`
	Threshold  float64   `json:"threshold"`
}

// Stream owns the complete processing pipeline for one session: the filter
// cascade, window tracker, beat detector, smoother and ring buffer. All
// pipeline state is guarded by a single mutex so that external readers
// always observe the ring buffer, threshold and beat events from a
// consistent point in time. A batch is processed to completion atomically
// with respect to snapshot readers.
type Stream struct {
	mu sync.Mutex

	cfg      StreamConfig
	filters  FilterConfig
	cascade  *Cascade
	detector *Detector
	ring     *Ring

	// epoch is the timestamp of the first sample of the session, or -1
	// before any sample arrives.
	epoch int64
}

// NewStream creates a stream session with all filters enabled.
func NewStream(cfg StreamConfig) *Stream {
	s := &Stream{cfg: cfg, filters: AllFiltersOn()}
	s.rebuild()
	return s
}

// rebuild constructs a fresh pipeline. Callers must hold s.mu (or own the
// stream exclusively, as in NewStream).
func (s *Stream) rebuild() {
	statsWindow := int(math.Round(2 * s.cfg.SampleRate))
	smootherLen := int(math.Round(0.2 * s.cfg.SampleRate))
	inhibitLen := int(math.Round(0.05 * s.cfg.SampleRate))

	var stats WindowStats
	if s.cfg.Mode == TrackerScan {
		stats = newScanStats(statsWindow)
	} else {
		stats = newDequeStats(statsWindow)
	}

	s.cascade = NewCascade()
	s.detector = NewDetector(stats, NewSmoother(smootherLen), inhibitLen)
	s.ring = NewRing(s.cfg.Length)
	s.epoch = -1

	s.cascade.SetEnabled(s.filters.Notch, s.filters.Lowpass, s.filters.Highpass)
}

// Ingest applies one decoded frame's worth of samples to the pipeline and
// returns the incremental update for that batch. The whole batch is
// processed under the stream lock, so readers never observe a half-applied
// frame. Empty or mismatched input yields no update.
func (s *Stream) Ingest(values []float64, timestamps []int64) (Update, bool) {
	if len(values) == 0 || len(values) != len(timestamps) {
		return Update{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch < 0 {
		s.epoch = timestamps[0]
	}

	batch := make([]float64, len(values))
	copy(batch, values)
	s.cascade.Process(batch)

	for i, v := range batch {
		t := timestamps[i]
		y := v
		if s.filters.Adaptive {
			y = s.detector.Process(v, t)
		}
		s.ring.Append(y, t)
		batch[i] = y
	}

	return buildUpdate(batch, timestamps, s.detector.Threshold()), true
}

// buildUpdate compresses a batch into the delta wire form: every timestamp
// gap is clamped into a single byte (negative gaps to 0, large gaps to 255).
func buildUpdate(values []float64, timestamps []int64, threshold float64) Update {
	deltas := make([]int, len(timestamps))
	prev := timestamps[0]
	for i := 1; i < len(timestamps); i++ {
		dt := timestamps[i] - prev
		if dt < 0 {
			dt = 0
		} else if dt > 255 {
			dt = 255
		}
		deltas[i] = int(dt)
		prev = timestamps[i]
	}

	out := make([]float64, len(values))
	copy(out, values)
	return Update{
		T0:        timestamps[0],
		Deltas:    deltas,
		Values:    out,
		Threshold: threshold,
	}
}

// Snapshot returns the most recent n samples with session-relative times.
// The second return is false when no samples have been ingested yet.
func (s *Stream) Snapshot(n int) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, timestamps := s.ring.LastN(n)
	if len(values) == 0 {
		return Snapshot{}, false
	}

	epoch := s.epoch
	times := make([]int64, len(timestamps))
	for i, t := range timestamps {
		times[i] = t - epoch
	}

	return Snapshot{
		PlotWindow: n,
		T0:         epoch,
		Times:      times,
		Values:     values,
		Threshold:  s.detector.Threshold(),
	}, true
}

// TakeBeat drains the pending beat event, if any.
func (s *Stream) TakeBeat() (Beat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector.TakeBeat()
}

// Threshold returns the current adaptive detection threshold.
func (s *Stream) Threshold() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector.Threshold()
}

// SetFilters updates the runtime stage toggles. Toggling never resets
// accumulated filter, tracker or detector state.
func (s *Stream) SetFilters(f FilterConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
	s.cascade.SetEnabled(f.Notch, f.Lowpass, f.Highpass)
}

// Filters returns the current stage toggles.
func (s *Stream) Filters() FilterConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Len returns the number of samples retained in the ring buffer.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Len()
}

// Reset atomically rebuilds the entire pipeline: ring buffer, filter states,
// window tracker, detector and session epoch all restart together, so no
// stale adaptive state can bleed into the new session. Filter toggles
// survive a reset.
func (s *Stream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuild()
}
