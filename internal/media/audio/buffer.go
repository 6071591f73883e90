package audio

import (
	"time"
)

// Buffer is decoded mono PCM audio with samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the exact playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// SampleOffset converts an absolute time to the nearest sample index.
func SampleOffset(t time.Duration, sampleRate int) int {
	if t <= 0 || sampleRate <= 0 {
		return 0
	}
	scaled := int64(t)*int64(sampleRate) + int64(time.Second)/2
	return int(scaled / int64(time.Second))
}

// Slice returns the samples covering [start, end), clamped to the buffer.
func (b Buffer) Slice(start, end time.Duration) []float64 {
	from := clampIndex(SampleOffset(start, b.SampleRate), len(b.Samples))
	to := clampIndex(SampleOffset(end, b.SampleRate), len(b.Samples))
	if to < from {
		to = from
	}
	return b.Samples[from:to:to]
}

func clampIndex(idx, length int) int {
	if idx < 0 {
		return 0
	}
	if idx > length {
		return length
	}
	return idx
}
