package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"sttbench/internal/media/audio"
	"sttbench/internal/vtt"
)

// WriteTone writes a mono WAV of the given length holding a quiet sine wave.
func WriteTone(t testing.TB, path string, sampleRate int, seconds float64) {
	t.Helper()

	n := int(float64(sampleRate) * seconds)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.25 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
	}
	mkdirFor(t, path)
	if err := audio.WriteWAV(path, sampleRate, samples); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}

// WriteVTT writes cues to path as a WebVTT document.
func WriteVTT(t testing.TB, path string, cues []vtt.Cue) {
	t.Helper()

	mkdirFor(t, path)
	if err := vtt.WriteFile(path, cues); err != nil {
		t.Fatalf("write vtt %s: %v", path, err)
	}
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()

	mkdirFor(t, path)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mkdirFor(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
}
