// Package ecg implements the streaming signal-processing pipeline: the IIR
// filter cascade, sliding-window statistics, adaptive beat detection, moving
// average smoothing and the circular sample history that together turn raw
// quantized readings into a cleaned waveform with heartbeat events.
package ecg

// Biquad is a second-order IIR filter section in transposed direct-form II.
// Two state accumulators persist across batches, so a single instance must
// only ever process one logical stream.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z0, z1     float64
}

// NewBiquad constructs a filter section from numerator coefficients b,
// denominator coefficients a, and the initial state zi. When a[0] is not 1
// all coefficients are rescaled by 1/a[0] so the recursion can assume a unit
// leading denominator.
func NewBiquad(b, a [3]float64, zi [2]float64) *Biquad {
	if a[0] != 1 {
		inv := 1 / a[0]
		for i := range b {
			b[i] *= inv
		}
		for i := range a {
			a[i] *= inv
		}
	}
	return &Biquad{
		b0: b[0], b1: b[1], b2: b[2],
		a1: a[1], a2: a[2],
		z0: zi[0], z1: zi[1],
	}
}

// Filter processes a single sample and advances the filter state.
func (f *Biquad) Filter(x float64) float64 {
	y := f.b0*x + f.z0
	f.z0 = f.b1*x + f.z1 - f.a1*y
	f.z1 = f.b2*x - f.a2*y
	return y
}

// Process filters a batch in place, carrying state into the next call.
func (f *Biquad) Process(batch []float64) {
	for i, x := range batch {
		batch[i] = f.Filter(x)
	}
}

// State returns the current state accumulators. Exposed for tests that check
// state is preserved while a stage is disabled.
func (f *Biquad) State() [2]float64 {
	return [2]float64{f.z0, f.z1}
}
