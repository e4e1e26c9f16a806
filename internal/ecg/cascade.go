package ecg

import "math"

// deadZone is the amplitude below which cascade output snaps to exactly
// zero, suppressing numerical noise left over from canceling recursions.
const deadZone = 0.001

// Coefficient sets below were designed for the 200 Hz MCU sampling rate.
// The initial states condition each stage's step response so the first
// samples of a session do not ring.

func newNotch() *Biquad {
	return NewBiquad(
		[3]float64{0.974482283, -1.19339661e-16, 0.974482283},
		[3]float64{1, -1.19339661e-16, 0.948964567},
		[2]float64{0.02551772, 0.02551772},
	)
}

func newLowpass() *Biquad {
	return NewBiquad(
		[3]float64{0.20657208, 0.41314417, 0.20657208},
		[3]float64{1, -0.36952738, 0.19581571},
		[2]float64{0.79342792, 0.01075637},
	)
}

func newHighpass() *Biquad {
	return NewBiquad(
		[3]float64{0.95654323, -1.91308645, 0.95654323},
		[3]float64{1, -1.91119707, 0.91497583},
		[2]float64{-0.95654323, 0.95654323},
	)
}

// Cascade chains the three filter stages in the fixed order
// notch → lowpass → highpass. Each stage can be disabled independently; a
// disabled stage passes its input through untouched and does not advance its
// state, so it stays valid if later re-enabled.
type Cascade struct {
	notch    *Biquad
	lowpass  *Biquad
	highpass *Biquad

	notchEnabled    bool
	lowpassEnabled  bool
	highpassEnabled bool
}

// NewCascade builds the default three-stage cascade with all stages enabled.
func NewCascade() *Cascade {
	return &Cascade{
		notch:           newNotch(),
		lowpass:         newLowpass(),
		highpass:        newHighpass(),
		notchEnabled:    true,
		lowpassEnabled:  true,
		highpassEnabled: true,
	}
}

// SetEnabled updates the per-stage enable flags. Filter state is never reset
// by toggling.
func (c *Cascade) SetEnabled(notch, lowpass, highpass bool) {
	c.notchEnabled = notch
	c.lowpassEnabled = lowpass
	c.highpassEnabled = highpass
}

// Enabled returns the current per-stage enable flags.
func (c *Cascade) Enabled() (notch, lowpass, highpass bool) {
	return c.notchEnabled, c.lowpassEnabled, c.highpassEnabled
}

// Process runs the enabled stages over the batch in place, then applies the
// dead-zone cleanup.
func (c *Cascade) Process(batch []float64) {
	if c.notchEnabled {
		c.notch.Process(batch)
	}
	if c.lowpassEnabled {
		c.lowpass.Process(batch)
	}
	if c.highpassEnabled {
		c.highpass.Process(batch)
	}
	for i, v := range batch {
		if math.Abs(v) < deadZone {
			batch[i] = 0
		}
	}
}
