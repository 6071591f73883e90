package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

const wavPrecisionBytes = 2

// WAVDuration reads the length of a WAV file from its header.
func WAVDuration(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open wav: %w", err)
	}
	streamer, format, err := wav.Decode(file)
	if err != nil {
		_ = file.Close()
		return 0, fmt.Errorf("decode wav %s: %w", path, err)
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}

// ReadWAV decodes a PCM WAV file, downmixing stereo to mono.
func ReadWAV(path string) (Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("open wav: %w", err)
	}
	streamer, format, err := wav.Decode(file)
	if err != nil {
		_ = file.Close()
		return Buffer{}, fmt.Errorf("decode wav %s: %w", path, err)
	}
	defer streamer.Close()

	buf := Buffer{SampleRate: int(format.SampleRate)}
	if length := streamer.Len(); length > 0 {
		buf.Samples = make([]float64, 0, length)
	}
	frame := make([][2]float64, 4096)
	for {
		n, ok := streamer.Stream(frame)
		for i := 0; i < n; i++ {
			if format.NumChannels >= 2 {
				buf.Samples = append(buf.Samples, (frame[i][0]+frame[i][1])/2)
			} else {
				buf.Samples = append(buf.Samples, frame[i][0])
			}
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return Buffer{}, fmt.Errorf("read wav samples %s: %w", path, err)
	}
	return buf, nil
}

// WriteWAV encodes mono samples as 16-bit PCM.
func WriteWAV(path string, sampleRate int, samples []float64) error {
	if sampleRate <= 0 {
		return errors.New("write wav: sample rate must be positive")
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 1,
		Precision:   wavPrecisionBytes,
	}
	if err := wav.Encode(file, &sampleStreamer{samples: samples}, format); err != nil {
		_ = file.Close()
		return fmt.Errorf("encode wav %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}

// WriteChunk writes a chunk's samples to path.
func WriteChunk(path string, chunk Chunk) error {
	return WriteWAV(path, chunk.SampleRate, chunk.Samples)
}

// sampleStreamer adapts a mono sample slice to beep.Streamer.
type sampleStreamer struct {
	samples []float64
	pos     int
}

func (s *sampleStreamer) Stream(out [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := len(out)
	if rest := len(s.samples) - s.pos; rest < n {
		n = rest
	}
	for i := 0; i < n; i++ {
		v := s.samples[s.pos+i]
		out[i] = [2]float64{v, v}
	}
	s.pos += n
	return n, true
}

func (s *sampleStreamer) Err() error {
	return nil
}
