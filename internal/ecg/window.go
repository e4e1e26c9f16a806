package ecg

// WindowStats tracks the running sum, maximum and minimum over the most
// recent W samples, feeding the detector's adaptive threshold. Two
// implementations exist: the monotonic-deque tracker used in production and
// a brute-force rescan kept as an auditable reference. They are selected at
// construction and must produce identical results for identical input.
type WindowStats interface {
	// Push inserts a new sample, evicting the oldest once W samples are held.
	Push(v float64)
	// Max returns the current window maximum (0 before the first push).
	Max() float64
	// Min returns the current window minimum (0 before the first push).
	Min() float64
	// Mean returns the arithmetic mean of the current window contents.
	Mean() float64
	// Count returns the number of samples currently in the window.
	Count() int
}

// dequeStats maintains window extrema in O(1) amortized time per sample.
// Two auxiliary candidate sequences are kept monotonic (non-increasing for
// maxima, non-decreasing for minima) so their fronts are always the current
// window extremum.
type dequeStats struct {
	buf  []float64 // raw window values, circular FIFO for eviction
	head int
	size int
	sum  float64
	maxq []float64
	minq []float64
}

func newDequeStats(capacity int) *dequeStats {
	return &dequeStats{
		buf:  make([]float64, capacity),
		maxq: make([]float64, 0, capacity),
		minq: make([]float64, 0, capacity),
	}
}

func (s *dequeStats) Push(v float64) {
	if s.size == len(s.buf) {
		old := s.buf[s.head]
		s.head = (s.head + 1) % len(s.buf)
		s.size--
		s.sum -= old
		if len(s.maxq) > 0 && old == s.maxq[0] {
			s.maxq = s.maxq[1:]
		}
		if len(s.minq) > 0 && old == s.minq[0] {
			s.minq = s.minq[1:]
		}
	}

	s.buf[(s.head+s.size)%len(s.buf)] = v
	s.size++
	s.sum += v

	// Evict candidates strictly worse than v before appending, keeping each
	// sequence monotonic.
	for len(s.maxq) > 0 && s.maxq[len(s.maxq)-1] < v {
		s.maxq = s.maxq[:len(s.maxq)-1]
	}
	s.maxq = append(s.maxq, v)

	for len(s.minq) > 0 && s.minq[len(s.minq)-1] > v {
		s.minq = s.minq[:len(s.minq)-1]
	}
	s.minq = append(s.minq, v)
}

func (s *dequeStats) Max() float64 {
	if len(s.maxq) == 0 {
		return 0
	}
	return s.maxq[0]
}

func (s *dequeStats) Min() float64 {
	if len(s.minq) == 0 {
		return 0
	}
	return s.minq[0]
}

func (s *dequeStats) Mean() float64 {
	if s.size == 0 {
		return 0
	}
	return s.sum / float64(s.size)
}

func (s *dequeStats) Count() int {
	return s.size
}

// scanStats recomputes sum, max and min by scanning a plain circular buffer
// on every query: O(W) per sample, trivially correct, and cross-validated
// against dequeStats in tests.
type scanStats struct {
	buf  []float64
	idx  int
	size int
}

func newScanStats(capacity int) *scanStats {
	return &scanStats{buf: make([]float64, capacity)}
}

func (s *scanStats) Push(v float64) {
	s.buf[s.idx] = v
	s.idx = (s.idx + 1) % len(s.buf)
	if s.size < len(s.buf) {
		s.size++
	}
}

// filled returns the populated portion of the buffer. Until the buffer wraps
// the populated values occupy a prefix; afterwards every slot is live.
func (s *scanStats) filled() []float64 {
	return s.buf[:s.size]
}

func (s *scanStats) Max() float64 {
	max := 0.0
	for i, v := range s.filled() {
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}

func (s *scanStats) Min() float64 {
	min := 0.0
	for i, v := range s.filled() {
		if i == 0 || v < min {
			min = v
		}
	}
	return min
}

func (s *scanStats) Mean() float64 {
	if s.size == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.filled() {
		sum += v
	}
	return sum / float64(s.size)
}

func (s *scanStats) Count() int {
	return s.size
}
