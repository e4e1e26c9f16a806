package ecg

// Ring is a fixed-capacity circular history of (value, timestamp) pairs.
// Append always succeeds, overwriting the oldest entry once full; unbounded
// history is never retained.
type Ring struct {
	values     []float64
	timestamps []int64
	idx        int // next write position
	filled     int
}

// NewRing creates a ring buffer holding up to capacity entries.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		values:     make([]float64, capacity),
		timestamps: make([]int64, capacity),
	}
}

// Append stores one entry, overwriting the oldest once at capacity.
func (r *Ring) Append(v float64, t int64) {
	r.values[r.idx] = v
	r.timestamps[r.idx] = t
	r.idx = (r.idx + 1) % len(r.values)
	if r.filled < len(r.values) {
		r.filled++
	}
}

// Len returns the number of entries currently stored.
func (r *Ring) Len() int {
	return r.filled
}

// Capacity returns the fixed size of the backing storage.
func (r *Ring) Capacity() int {
	return len(r.values)
}

// LastN returns the most recent min(n, Len()) entries in chronological
// order, handling the wraparound split between the tail and head of the
// backing storage.
func (r *Ring) LastN(n int) (values []float64, timestamps []int64) {
	if n <= 0 || r.filled == 0 {
		return nil, nil
	}
	if n > r.filled {
		n = r.filled
	}

	values = make([]float64, n)
	timestamps = make([]int64, n)
	start := (r.idx - n + len(r.values)) % len(r.values)
	for i := 0; i < n; i++ {
		j := (start + i) % len(r.values)
		values[i] = r.values[j]
		timestamps[i] = r.timestamps[j]
	}
	return values, timestamps
}

// Clear resets the ring to empty without reallocating.
func (r *Ring) Clear() {
	r.idx = 0
	r.filled = 0
}
