package ecg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// passthroughStream builds a stream with the cascade and adaptive stage
// disabled, so ingested values land in the ring buffer unchanged (apart from
// the dead-zone snap).
func passthroughStream(length int) *Stream {
	s := NewStream(StreamConfig{Length: length, SampleRate: 200, Mode: TrackerFast})
	s.SetFilters(FilterConfig{})
	return s
}

func TestStream_IngestPassthrough(t *testing.T) {
	s := passthroughStream(100)

	update, ok := s.Ingest([]float64{100, 150}, []int64{10, 15})
	if !ok {
		t.Fatal("Ingest returned no update")
	}

	want := Update{T0: 10, Deltas: []int{0, 5}, Values: []float64{100, 150}}
	if diff := cmp.Diff(want, update); diff != "" {
		t.Errorf("update mismatch (-want +got):\n%s", diff)
	}
}

func TestStream_IngestRejectsBadBatches(t *testing.T) {
	s := passthroughStream(100)

	if _, ok := s.Ingest(nil, nil); ok {
		t.Error("empty batch produced an update")
	}
	if _, ok := s.Ingest([]float64{1}, []int64{1, 2}); ok {
		t.Error("mismatched batch lengths produced an update")
	}
}

// TestStream_UpdateDeltaClamping checks the single-byte clamp on the
// outbound incremental payload: negative gaps to 0, oversized gaps to 255.
func TestStream_UpdateDeltaClamping(t *testing.T) {
	s := passthroughStream(100)

	update, ok := s.Ingest(
		[]float64{1, 2, 3, 4},
		[]int64{1000, 2000, 1990, 1995},
	)
	if !ok {
		t.Fatal("Ingest returned no update")
	}

	want := []int{0, 255, 0, 5}
	if diff := cmp.Diff(want, update.Deltas); diff != "" {
		t.Errorf("deltas mismatch (-want +got):\n%s", diff)
	}
}

func TestStream_SnapshotRelativeTimes(t *testing.T) {
	s := passthroughStream(100)
	s.Ingest([]float64{1, 2, 3}, []int64{5000, 5005, 5010})

	snap, ok := s.Snapshot(2)
	if !ok {
		t.Fatal("Snapshot returned nothing")
	}
	if snap.T0 != 5000 {
		t.Errorf("T0 = %d, want session epoch 5000", snap.T0)
	}
	if diff := cmp.Diff([]int64{5, 10}, snap.Times); diff != "" {
		t.Errorf("relative times mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{2, 3}, snap.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestStream_SnapshotEmpty(t *testing.T) {
	s := passthroughStream(100)
	if _, ok := s.Snapshot(10); ok {
		t.Error("empty stream produced a snapshot")
	}
}

// TestStream_BeatsThroughPipeline ingests a spike train through the full
// adaptive path (cascade off) and expects BPM events to surface via
// TakeBeat.
func TestStream_BeatsThroughPipeline(t *testing.T) {
	s := NewStream(StreamConfig{Length: 4000, SampleRate: 200, Mode: TrackerFast})
	s.SetFilters(FilterConfig{Adaptive: true})

	var beats []Beat
	// Frames of 10 samples at 5 ms spacing with a spike every 800 ms.
	for base := int64(0); base < 12000; base += 50 {
		values := make([]float64, 10)
		timestamps := make([]int64, 10)
		for i := range values {
			t64 := base + int64(i+1)*5
			timestamps[i] = t64
			if t64%800 == 0 {
				values[i] = 100
			}
		}
		if _, ok := s.Ingest(values, timestamps); !ok {
			t.Fatal("Ingest failed")
		}
		if b, ok := s.TakeBeat(); ok {
			beats = append(beats, b)
		}
	}

	if len(beats) == 0 {
		t.Fatal("no beats detected through the stream")
	}
	for i, b := range beats {
		if b.BPM != 75 {
			t.Errorf("beat %d BPM = %d, want 75", i, b.BPM)
		}
	}
}

// TestStream_TrackerModesAgree runs the identical sample sequence through a
// fast-mode and a scan-mode stream and requires identical ring contents and
// thresholds.
func TestStream_TrackerModesAgree(t *testing.T) {
	fast := NewStream(StreamConfig{Length: 500, SampleRate: 200, Mode: TrackerFast})
	scan := NewStream(StreamConfig{Length: 500, SampleRate: 200, Mode: TrackerScan})

	for base := int64(0); base < 4000; base += 50 {
		values := make([]float64, 10)
		timestamps := make([]int64, 10)
		for i := range values {
			t64 := base + int64(i+1)*5
			timestamps[i] = t64
			values[i] = float64((t64*31)%97) - 48
			if t64%800 == 0 {
				values[i] = 120
			}
		}
		fast.Ingest(values, timestamps)
		scan.Ingest(values, timestamps)
	}

	if ft, st := fast.Threshold(), scan.Threshold(); ft != st {
		t.Errorf("thresholds diverge: fast %v, scan %v", ft, st)
	}

	fsnap, _ := fast.Snapshot(500)
	ssnap, _ := scan.Snapshot(500)
	if diff := cmp.Diff(fsnap.Values, ssnap.Values); diff != "" {
		t.Errorf("ring contents diverge (-fast +scan):\n%s", diff)
	}
}

func TestStream_SetFiltersDoesNotResetState(t *testing.T) {
	s := NewStream(DefaultStreamConfig())

	// Accumulate some pipeline state.
	values := make([]float64, 50)
	timestamps := make([]int64, 50)
	for i := range values {
		values[i] = 512
		timestamps[i] = int64(i+1) * 5
	}
	s.Ingest(values, timestamps)
	lenBefore := s.Len()

	s.SetFilters(FilterConfig{Highpass: true})
	s.SetFilters(AllFiltersOn())

	if s.Len() != lenBefore {
		t.Errorf("toggling filters changed ring fill: %d -> %d", lenBefore, s.Len())
	}
}

// TestStream_ResetRebuildsEverything checks that reset clears the ring,
// session epoch, threshold and pending events together.
func TestStream_ResetRebuildsEverything(t *testing.T) {
	s := NewStream(StreamConfig{Length: 4000, SampleRate: 200, Mode: TrackerFast})
	s.SetFilters(FilterConfig{Adaptive: true})

	// Generate at least one beat so detector state is non-trivial.
	for base := int64(0); base < 3000; base += 50 {
		values := make([]float64, 10)
		timestamps := make([]int64, 10)
		for i := range values {
			t64 := base + int64(i+1)*5
			timestamps[i] = t64
			if t64%800 == 0 {
				values[i] = 100
			}
		}
		s.Ingest(values, timestamps)
	}

	s.Reset()

	if s.Len() != 0 {
		t.Errorf("ring not cleared: %d entries", s.Len())
	}
	if _, ok := s.Snapshot(10); ok {
		t.Error("snapshot available after reset")
	}
	if _, ok := s.TakeBeat(); ok {
		t.Error("pending beat survived reset")
	}
	if got := s.Threshold(); got != 0 {
		t.Errorf("threshold survived reset: %v", got)
	}

	// Filter toggles survive.
	want := FilterConfig{Adaptive: true}
	if got := s.Filters(); got != want {
		t.Errorf("filters after reset = %+v, want %+v", got, want)
	}
}
