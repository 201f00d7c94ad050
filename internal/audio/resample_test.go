package audio

import (
	"math"
	"testing"
)

func TestResampleNearestHalvesSampleCount(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 480, 4801} {
		src := make([]int16, n)
		for i := range src {
			src[i] = int16(i)
		}
		out := resampleNearest(src, 48000, 24000)
		if diff := len(out) - n/2; diff < -1 || diff > 1 {
			t.Fatalf("n=%d: expected about %d samples, got %d", n, n/2, len(out))
		}
	}
}

func TestResampleNearestPicksFlooredSourceIndex(t *testing.T) {
	t.Parallel()

	src := []int16{10, 20, 30, 40, 50, 60}
	out := resampleNearest(src, 48000, 24000)
	want := []int16{10, 30, 50}
	if len(out) != len(want) {
		t.Fatalf("unexpected length: %d", len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestResampleNearestUpsamplesByRepeating(t *testing.T) {
	t.Parallel()

	out := resampleNearest([]int16{1, 2}, 12000, 24000)
	want := []int16{1, 1, 2, 2}
	if len(out) != len(want) {
		t.Fatalf("unexpected length: %d", len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestResampleNearestSameRateIsIdentity(t *testing.T) {
	t.Parallel()

	src := []int16{1, 2, 3}
	out := resampleNearest(src, 24000, 24000)
	if len(out) != 3 || out[0] != 1 || out[2] != 3 {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestNeedsResample(t *testing.T) {
	t.Parallel()

	if needsResample(24000) {
		t.Fatalf("24000 should not need resampling")
	}
	if !needsResample(48000) || !needsResample(16000) {
		t.Fatalf("non-target rates should need resampling")
	}
}

func TestDownmixMonoAveragesChannels(t *testing.T) {
	t.Parallel()

	// Two stereo frames: (100, 300) and (-200, 200).
	raw := pcmBytes([]int16{100, 300, -200, 200})
	mono := downmixMono(raw, 2)
	if len(mono) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(mono))
	}
	if mono[0] != 200 || mono[1] != 0 {
		t.Fatalf("unexpected downmix: %v", mono)
	}
}

func TestDownmixMonoDropsPartialFrame(t *testing.T) {
	t.Parallel()

	raw := append(pcmBytes([]int16{1, 2}), 0x01)
	mono := downmixMono(raw, 1)
	if len(mono) != 2 {
		t.Fatalf("expected trailing byte dropped, got %d frames", len(mono))
	}
}

func TestInputLevelSilenceIsZero(t *testing.T) {
	t.Parallel()

	if got := inputLevel(make([]int16, 480)); got != 0 {
		t.Fatalf("expected 0 for silence, got %f", got)
	}
	if got := inputLevel(nil); got != 0 {
		t.Fatalf("expected 0 for empty buffer, got %f", got)
	}
}

func TestInputLevelFullScaleIsOne(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 480)
	for i := range samples {
		samples[i] = math.MaxInt16
	}
	if got := inputLevel(samples); got < 0.999 || got > 1 {
		t.Fatalf("expected full-scale level near 1, got %f", got)
	}
}

func TestInputLevelMidScaleIsBetween(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 480)
	for i := range samples {
		samples[i] = 3277 // about -20 dBFS
	}
	got := inputLevel(samples)
	if got <= 0.4 || got >= 0.8 {
		t.Fatalf("expected mid-range level, got %f", got)
	}
}

func TestPcmBytesRoundTrip(t *testing.T) {
	t.Parallel()

	src := []int16{0, 1, -1, 32767, -32768}
	mono := downmixMono(pcmBytes(src), 1)
	for i := range src {
		if mono[i] != src[i] {
			t.Fatalf("index %d: got %d, want %d", i, mono[i], src[i])
		}
	}
}
