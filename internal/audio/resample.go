package audio

import (
	"encoding/binary"
	"math"
)

// StreamSampleRate is the fixed rate audio is resampled to before streaming.
const StreamSampleRate = 24000

// levelFloorDB is the silence floor for the input level meter.
const levelFloorDB = -50.0

// needsResample reports whether the native rate is far enough from the
// streaming rate to warrant conversion.
func needsResample(inputRate int) bool {
	return math.Abs(float64(inputRate)-StreamSampleRate) > 0.5
}

// resampleNearest converts PCM between rates by picking, for each output
// index, the source sample at floor(i*inRate/outRate). It aliases compared to
// a band-limited resampler; the exact sample placement is relied upon, so do
// not swap in a nicer algorithm.
func resampleNearest(src []int16, inRate, outRate int) []int16 {
	if len(src) == 0 || inRate <= 0 || outRate <= 0 {
		return nil
	}
	if inRate == outRate {
		return src
	}

	outLen := int(int64(len(src)) * int64(outRate) / int64(inRate))
	out := make([]int16, outLen)
	for i := range out {
		idx := int(int64(i) * int64(inRate) / int64(outRate))
		if idx >= len(src) {
			idx = len(src) - 1
		}
		out[i] = src[idx]
	}
	return out
}

// downmixMono averages interleaved s16le frames across channels. Trailing
// bytes that do not fill a whole frame are dropped.
func downmixMono(raw []byte, channels int) []int16 {
	if channels <= 0 {
		channels = 1
	}
	frameBytes := 2 * channels
	frames := len(raw) / frameBytes
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var acc int
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			acc += int(int16(binary.LittleEndian.Uint16(raw[off:])))
		}
		mono[i] = int16(acc / channels)
	}
	return mono
}

// inputLevel maps the RMS of mono samples to [0,1] against the dB floor.
func inputLevel(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	db := 20 * math.Log10(math.Max(rms, 1e-7))
	level := (db - levelFloorDB) / -levelFloorDB
	return math.Min(1, math.Max(0, level))
}

// pcmBytes serializes samples back to s16le.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
