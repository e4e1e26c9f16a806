package ecg

import (
	"math"
	"testing"
)

func TestSmoother_ExactWindowMean(t *testing.T) {
	s := NewSmoother(4)

	// Until the window fills, unwritten slots contribute zero by design.
	if got := s.Apply(8); got != 2 {
		t.Errorf("first sample mean = %v, want 2", got)
	}

	s.Apply(8)
	s.Apply(8)
	if got := s.Apply(8); got != 8 {
		t.Errorf("full window mean = %v, want 8", got)
	}

	// Sliding: window is now [8 8 8 4].
	if got := s.Apply(4); got != 7 {
		t.Errorf("sliding mean = %v, want 7", got)
	}
}

func TestSmoother_ConvergesToConstant(t *testing.T) {
	s := NewSmoother(40)
	var out float64
	for i := 0; i < 200; i++ {
		out = s.Apply(3.5)
	}
	if math.Abs(out-3.5) > 1e-12 {
		t.Errorf("converged mean = %v, want 3.5", out)
	}
}

func TestSmoother_MinimumLength(t *testing.T) {
	s := NewSmoother(0)
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want clamp to 1", s.Len())
	}
	if got := s.Apply(5); got != 5 {
		t.Errorf("length-1 smoother is not identity: %v", got)
	}
}
