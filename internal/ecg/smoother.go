package ecg

// Smoother is a running-sum moving average over a fixed-length circular
// buffer. The detector bypasses it during the refractory window without
// touching its state, so smoothing resumes seamlessly from its prior
// contents once the refractory period ends.
type Smoother struct {
	buf []float64
	idx int
	sum float64
}

// NewSmoother creates a smoother averaging over size samples.
func NewSmoother(size int) *Smoother {
	if size < 1 {
		size = 1
	}
	return &Smoother{buf: make([]float64, size)}
}

// Apply writes the sample into the next slot, updates the running sum, and
// returns the mean over the full window length.
func (s *Smoother) Apply(v float64) float64 {
	s.sum += v - s.buf[s.idx]
	s.buf[s.idx] = v
	s.idx = (s.idx + 1) % len(s.buf)
	return s.sum / float64(len(s.buf))
}

// Len returns the window length.
func (s *Smoother) Len() int {
	return len(s.buf)
}
