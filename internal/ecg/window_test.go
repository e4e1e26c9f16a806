package ecg

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// TestWindowStats_FastMatchesScan cross-validates the monotonic-deque
// tracker against the brute-force rescan for every prefix of a random
// sequence longer than the window.
func TestWindowStats_FastMatchesScan(t *testing.T) {
	const capacity = 50
	const samples = 1000

	rng := rand.New(rand.NewSource(42))
	fast := newDequeStats(capacity)
	scan := newScanStats(capacity)

	for i := 0; i < samples; i++ {
		v := rng.NormFloat64() * 100
		fast.Push(v)
		scan.Push(v)

		if fast.Count() != scan.Count() {
			t.Fatalf("prefix %d: count fast %d != scan %d", i, fast.Count(), scan.Count())
		}
		if fast.Max() != scan.Max() {
			t.Fatalf("prefix %d: max fast %v != scan %v", i, fast.Max(), scan.Max())
		}
		if fast.Min() != scan.Min() {
			t.Fatalf("prefix %d: min fast %v != scan %v", i, fast.Min(), scan.Min())
		}
		if math.Abs(fast.Mean()-scan.Mean()) > 1e-9 {
			t.Fatalf("prefix %d: mean fast %v != scan %v", i, fast.Mean(), scan.Mean())
		}
	}
}

// TestWindowStats_MatchesReference checks both trackers against extrema
// computed independently over an explicitly maintained window slice.
func TestWindowStats_MatchesReference(t *testing.T) {
	const capacity = 20

	rng := rand.New(rand.NewSource(7))
	fast := newDequeStats(capacity)
	scan := newScanStats(capacity)
	var window []float64

	for i := 0; i < 500; i++ {
		v := math.Round(rng.Float64()*40) - 20 // coarse values force duplicates
		fast.Push(v)
		scan.Push(v)
		window = append(window, v)
		if len(window) > capacity {
			window = window[1:]
		}

		wantMax := floats.Max(window)
		wantMin := floats.Min(window)
		wantMean := floats.Sum(window) / float64(len(window))

		if fast.Max() != wantMax || scan.Max() != wantMax {
			t.Fatalf("prefix %d: max fast %v scan %v, want %v", i, fast.Max(), scan.Max(), wantMax)
		}
		if fast.Min() != wantMin || scan.Min() != wantMin {
			t.Fatalf("prefix %d: min fast %v scan %v, want %v", i, fast.Min(), scan.Min(), wantMin)
		}
		if math.Abs(fast.Mean()-wantMean) > 1e-9 {
			t.Fatalf("prefix %d: mean fast %v, want %v", i, fast.Mean(), wantMean)
		}
	}
}

func TestWindowStats_EmptyWindow(t *testing.T) {
	for name, stats := range map[string]WindowStats{
		"fast": newDequeStats(10),
		"scan": newScanStats(10),
	} {
		if stats.Count() != 0 {
			t.Errorf("%s: fresh tracker count = %d", name, stats.Count())
		}
		if stats.Max() != 0 || stats.Min() != 0 || stats.Mean() != 0 {
			t.Errorf("%s: fresh tracker stats not zero", name)
		}
	}
}

func TestWindowStats_EvictionOrder(t *testing.T) {
	s := newDequeStats(3)
	for _, v := range []float64{5, 1, 3} {
		s.Push(v)
	}
	if s.Max() != 5 || s.Min() != 1 {
		t.Fatalf("window [5 1 3]: max %v min %v", s.Max(), s.Min())
	}

	// 5 leaves the window; max must fall to 3.
	s.Push(2)
	if s.Max() != 3 {
		t.Errorf("after evicting 5: max %v, want 3", s.Max())
	}
	// 1 leaves; min must rise to 2.
	s.Push(2)
	if s.Min() != 2 {
		t.Errorf("after evicting 1: min %v, want 2", s.Min())
	}
}
