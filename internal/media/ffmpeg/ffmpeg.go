// Package ffmpeg wraps the ffmpeg invocations the dataset commands need:
// decoding any media file to mono PCM WAV and mixing a looped noise bed under
// speech. The signal processing itself is left entirely to ffmpeg.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// DecodeArgs builds the argument list converting input to a mono 16-bit WAV at
// sampleRate.
func DecodeArgs(input, output string, sampleRate int) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		output,
	}
}

// MixRequest describes one noise overlay.
type MixRequest struct {
	Speech       string
	Noise        string
	Output       string
	LevelPercent int
	SampleRate   int
	// Bitrate applies to compressed outputs such as .mp3 only.
	Bitrate string
}

// Weight returns the amix weight applied to the noise input.
func (r MixRequest) Weight() string {
	return strconv.FormatFloat(float64(r.LevelPercent)/100, 'f', -1, 64)
}

// MixArgs builds the argument list for req. A zero level, or a request
// without a noise track, reduces to a plain decode.
func MixArgs(req MixRequest) []string {
	if req.LevelPercent <= 0 || strings.TrimSpace(req.Noise) == "" {
		args := DecodeArgs(req.Speech, req.Output, req.SampleRate)
		return append(args[:len(args)-3], outputCodec(req)...)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", req.Speech,
		"-stream_loop", "-1",
		"-i", req.Noise,
		"-filter_complex", fmt.Sprintf("[0:a][1:a]amix=inputs=2:duration=first:dropout_transition=0:weights=1 %s[mix]", req.Weight()),
		"-map", "[mix]",
		"-ac", "1",
		"-ar", strconv.Itoa(req.SampleRate),
	}
	return append(args, outputCodec(req)...)
}

func outputCodec(req MixRequest) []string {
	if strings.EqualFold(filepath.Ext(req.Output), ".mp3") {
		bitrate := strings.TrimSpace(req.Bitrate)
		if bitrate == "" {
			bitrate = "192k"
		}
		return []string{"-c:a", "libmp3lame", "-b:a", bitrate, req.Output}
	}
	return []string{"-c:a", "pcm_s16le", req.Output}
}

// Decode converts input to a mono WAV at sampleRate.
func Decode(ctx context.Context, binary, input, output string, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("ffmpeg decode: invalid sample rate %d", sampleRate)
	}
	return run(ctx, binary, output, func(tmp string) []string {
		return DecodeArgs(input, tmp, sampleRate)
	})
}

// MixNoise overlays the looped noise track on speech and trims the result to
// the speech duration.
func MixNoise(ctx context.Context, binary string, req MixRequest) error {
	if req.SampleRate <= 0 {
		return fmt.Errorf("ffmpeg mix: invalid sample rate %d", req.SampleRate)
	}
	if req.LevelPercent > 0 && strings.TrimSpace(req.Noise) == "" {
		return errors.New("ffmpeg mix: noise track required for non-zero level")
	}
	return run(ctx, binary, req.Output, func(tmp string) []string {
		r := req
		r.Output = tmp
		return MixArgs(r)
	})
}

// run writes to a temporary sibling of output and renames it into place so a
// cancelled run never leaves a truncated file that later runs would skip.
func run(ctx context.Context, binary, output string, build func(tmp string) []string) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("ffmpeg: create output dir: %w", err)
	}
	ext := filepath.Ext(output)
	tmp := strings.TrimSuffix(output, ext) + ".partial" + ext
	cmd := commandContext(ctx, binary, build(tmp)...) //nolint:gosec
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ffmpeg %s: %w: %s", filepath.Base(output), err, strings.TrimSpace(string(out)))
	}
	if err := os.Rename(tmp, output); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ffmpeg: finalize %s: %w", output, err)
	}
	return nil
}
