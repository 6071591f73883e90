package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidChunkSize is returned when the requested chunk size is not positive.
var ErrInvalidChunkSize = errors.New("invalid chunk size")

// Window is a half-open time range [Start, End) within a source file.
type Window struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End - w.Start
}

// Chunk is a window together with the samples it covers.
type Chunk struct {
	Window
	SampleRate int
	Samples    []float64
}

// PlanWindows splits [0, total) into contiguous windows of size. Every window
// is exactly size long except the last, which holds the remainder. No empty
// trailing window is produced.
func PlanWindows(total, size time.Duration) ([]Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidChunkSize, size)
	}
	if total <= 0 {
		return nil, nil
	}
	count := int((total + size - 1) / size)
	windows := make([]Window, 0, count)
	for i := 0; i < count; i++ {
		start := time.Duration(i) * size
		end := start + size
		if end > total {
			end = total
		}
		windows = append(windows, Window{Index: i, Start: start, End: end})
	}
	return windows, nil
}

// Segment slices buf into chunks of size. Sample offsets are derived from each
// window's absolute start so rounding never accumulates across chunks; the
// final chunk always runs to the last sample.
func Segment(buf Buffer, size time.Duration) ([]Chunk, error) {
	windows, err := PlanWindows(buf.Duration(), size)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, 0, len(windows))
	for _, w := range windows {
		samples := buf.Slice(w.Start, w.End)
		if w.Index == len(windows)-1 {
			from := clampIndex(SampleOffset(w.Start, buf.SampleRate), len(buf.Samples))
			samples = buf.Samples[from:]
		}
		chunks = append(chunks, Chunk{Window: w, SampleRate: buf.SampleRate, Samples: samples})
	}
	return chunks, nil
}
