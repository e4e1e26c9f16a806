package bridge

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Synth generates a plausible quantized ECG waveform for development without
// hardware: a baseline around the ADC midpoint, a sharp QRS-like spike at a
// fixed beat interval, and gaussian measurement noise.
type Synth struct {
	baseline   float64
	spikeAmp   float64
	beatMS     int64
	sampleMS   int64
	noise      distuv.Normal
	nextSample int64
}

// NewSynth creates a generator producing samples every sampleMS milliseconds
// with a beat every beatMS milliseconds.
func NewSynth(beatMS, sampleMS int64) *Synth {
	return &Synth{
		baseline: 512, // 10-bit ADC midpoint
		spikeAmp: 300,
		beatMS:   beatMS,
		sampleMS: sampleMS,
		noise:    distuv.Normal{Mu: 0, Sigma: 4},
	}
}

// Next returns the next quantized sample and its timestamp in milliseconds.
func (s *Synth) Next() (uint16, int64) {
	t := s.nextSample * s.sampleMS
	s.nextSample++

	v := s.baseline + s.noise.Rand()

	// A narrow triangular QRS complex centered on each beat instant.
	phase := t % s.beatMS
	const halfWidthMS = 20
	if phase < halfWidthMS {
		v += s.spikeAmp * (1 - float64(phase)/halfWidthMS)
	} else if phase > s.beatMS-halfWidthMS {
		v += s.spikeAmp * (1 - float64(s.beatMS-phase)/halfWidthMS)
	}

	if v < 0 {
		v = 0
	} else if v > 1023 {
		v = 1023
	}
	return uint16(math.Round(v)), t
}

// Batch produces n consecutive samples with their timestamps.
func (s *Synth) Batch(n int) ([]uint16, []int64) {
	values := make([]uint16, n)
	timestamps := make([]int64, n)
	for i := 0; i < n; i++ {
		values[i], timestamps[i] = s.Next()
	}
	return values, timestamps
}
