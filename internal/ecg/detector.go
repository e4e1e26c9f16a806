package ecg

import "math"

// minPeakGapMS is the minimum spacing between accepted peaks. Candidates
// closer than this to the previous accepted peak are suppressed, modeling
// the physiological refractory period after a contraction.
const minPeakGapMS = 250

// Beat is one detected heartbeat event.
type Beat struct {
	// BPM is round(60000 / RR) for the interval between the two most recent
	// accepted peaks.
	BPM int `json:"bpm"`
	// Polarity is +1 when the beat was detected above the threshold, -1 when
	// below (lead inversion).
	Polarity int `json:"polarity"`
	// At is the millisecond timestamp of the accepted peak.
	At int64 `json:"at_ms"`
}

// Detector consumes filtered samples and emits heartbeat events using a
// polarity-aware adaptive threshold derived from sliding-window statistics.
// It runs a two-state machine: NORMAL, where the output is smoothed by the
// moving-average stage, and REFRACTORY, where smoothing is bypassed and new
// candidates are suppressed for a fixed number of samples after a peak.
type Detector struct {
	stats    WindowStats
	smoother *Smoother

	inhibitLen int // refractory length in samples
	inhibit    int // samples remaining in the current refractory window
	refractory bool

	lastPeak int64
	prevPeak int64

	polarity  int
	threshold float64

	pending    Beat
	hasPending bool
}

// NewDetector builds a detector over the given window tracker and smoother.
// inhibitLen is the refractory duration in samples.
func NewDetector(stats WindowStats, smoother *Smoother, inhibitLen int) *Detector {
	return &Detector{
		stats:      stats,
		smoother:   smoother,
		inhibitLen: inhibitLen,
		polarity:   1,
	}
}

// Process consumes one filtered sample with its millisecond timestamp and
// returns the value to store: the smoothed output in NORMAL state, or the
// raw filtered sample while refractory.
func (d *Detector) Process(sample float64, t int64) float64 {
	d.stats.Push(sample)
	mean := d.stats.Mean()
	distMax := d.stats.Max() - mean
	distMin := mean - d.stats.Min()

	var candidate bool
	if distMax >= distMin {
		d.polarity = 1
		d.threshold = mean + 0.5*distMax
		candidate = sample > d.threshold
	} else {
		d.polarity = -1
		d.threshold = mean - 0.5*distMin
		candidate = sample < d.threshold
	}

	if candidate && t-d.lastPeak > minPeakGapMS {
		d.prevPeak = d.lastPeak
		d.lastPeak = t

		// The very first peak has no partner; a zero RR interval cannot
		// produce a rate. Both suppress the event, not the peak.
		if d.prevPeak > 0 {
			if rr := d.lastPeak - d.prevPeak; rr > 0 {
				d.pending = Beat{
					BPM:      int(math.Round(60000 / float64(rr))),
					Polarity: d.polarity,
					At:       t,
				}
				d.hasPending = true
			}
		}

		d.refractory = true
		d.inhibit = d.inhibitLen
	}

	if d.refractory && d.inhibit > 0 {
		d.inhibit--
	} else {
		d.refractory = false
	}

	if d.refractory {
		return sample
	}
	return d.smoother.Apply(sample)
}

// TakeBeat returns the pending beat event and clears it. The second return
// is false when no new beat occurred since the last call: this is an event,
// not a level signal, and each beat is observable exactly once.
func (d *Detector) TakeBeat() (Beat, bool) {
	if !d.hasPending {
		return Beat{}, false
	}
	d.hasPending = false
	return d.pending, true
}

// Threshold returns the current adaptive detection threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// InRefractory reports whether the detector is currently suppressing
// candidates.
func (d *Detector) InRefractory() bool {
	return d.refractory
}
