package ecg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRing_LastNBeforeFull(t *testing.T) {
	r := NewRing(10)
	for i := 0; i < 4; i++ {
		r.Append(float64(i), int64(i*5))
	}

	values, timestamps := r.LastN(10)
	if diff := cmp.Diff([]float64{0, 1, 2, 3}, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{0, 5, 10, 15}, timestamps); diff != "" {
		t.Errorf("timestamps mismatch (-want +got):\n%s", diff)
	}
}

// TestRing_OverwriteKeepsMostRecent inserts capacity+k entries and expects
// exactly the most recent capacity entries, in chronological order.
func TestRing_OverwriteKeepsMostRecent(t *testing.T) {
	const capacity = 10
	const extra = 7

	r := NewRing(capacity)
	for i := 0; i < capacity+extra; i++ {
		r.Append(float64(i), int64(i))
	}

	if r.Len() != capacity {
		t.Fatalf("Len = %d, want %d", r.Len(), capacity)
	}

	values, timestamps := r.LastN(capacity)
	for i := 0; i < capacity; i++ {
		want := float64(extra + i)
		if values[i] != want {
			t.Errorf("values[%d] = %v, want %v", i, values[i], want)
		}
		if timestamps[i] != int64(extra+i) {
			t.Errorf("timestamps[%d] = %d, want %d", i, timestamps[i], extra+i)
		}
	}
}

// TestRing_LastNWraparound asks for a window that spans the split between
// the tail and head of the backing storage.
func TestRing_LastNWraparound(t *testing.T) {
	r := NewRing(5)
	for i := 0; i < 8; i++ { // write index ends at position 3
		r.Append(float64(i), int64(i))
	}

	values, _ := r.LastN(4)
	if diff := cmp.Diff([]float64{4, 5, 6, 7}, values); diff != "" {
		t.Errorf("wraparound window mismatch (-want +got):\n%s", diff)
	}
}

func TestRing_LastNEdgeCases(t *testing.T) {
	r := NewRing(5)
	if v, ts := r.LastN(3); v != nil || ts != nil {
		t.Error("empty ring returned entries")
	}

	r.Append(1, 1)
	if v, _ := r.LastN(0); v != nil {
		t.Error("LastN(0) returned entries")
	}
	if v, _ := r.LastN(-1); v != nil {
		t.Error("LastN(-1) returned entries")
	}
	if v, _ := r.LastN(100); len(v) != 1 {
		t.Errorf("LastN beyond fill returned %d entries, want 1", len(v))
	}
}

func TestRing_Clear(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 6; i++ {
		r.Append(float64(i), int64(i))
	}
	r.Clear()

	if r.Len() != 0 {
		t.Errorf("Len after Clear = %d", r.Len())
	}
	if v, _ := r.LastN(4); v != nil {
		t.Error("cleared ring returned entries")
	}
}
