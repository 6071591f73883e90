// Package chunking cuts every noisy recording into fixed-length chunks and
// writes each chunk's aligned transcript beside it:
//
//	chunked/<video_id>/chunk_<S>/<variant>/audio_<i>.wav
//	chunked/<video_id>/chunk_<S>/<variant>/audio_<i>.vtt
//
// Chunk indices start at 0. Files already present are left untouched so an
// interrupted run can be resumed.
package chunking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"sttbench/internal/align"
	"sttbench/internal/batch"
	"sttbench/internal/config"
	"sttbench/internal/fileutil"
	"sttbench/internal/logging"
	"sttbench/internal/media/audio"
	"sttbench/internal/vtt"
)

// ErrNoTranscript marks a recording whose dataset directory has no transcript.
var ErrNoTranscript = errors.New("no transcript found")

// Source is one noisy recording paired with its ground-truth transcript.
type Source struct {
	VideoID    string
	Variant    string
	Audio      string
	Transcript string
}

// SizeLabel formats a chunk size in seconds the way directory names use it.
func SizeLabel(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// CategoryDir returns the chunk_<S> directory name for a size.
func CategoryDir(seconds float64) string {
	return "chunk_" + SizeLabel(seconds)
}

// ChunkStem returns the file stem of the chunk at index.
func ChunkStem(index int) string {
	return "audio_" + strconv.Itoa(index)
}

// Discover pairs each noisy/<video>/<variant>.wav with the preferred
// transcript in dataset/<video>/. Recordings without a transcript are returned
// as failures.
func Discover(noisyDir, datasetDir string, suffixes []string) ([]Source, []batch.Failure, error) {
	videos, err := os.ReadDir(noisyDir)
	if err != nil {
		return nil, nil, fmt.Errorf("read noisy dir: %w", err)
	}
	var (
		sources  []Source
		failures []batch.Failure
	)
	for _, video := range videos {
		if !video.IsDir() || strings.HasPrefix(video.Name(), ".") {
			continue
		}
		videoID := video.Name()
		variants, err := os.ReadDir(filepath.Join(noisyDir, videoID))
		if err != nil {
			failures = append(failures, batch.Failure{File: filepath.Join(noisyDir, videoID), Reason: err.Error()})
			continue
		}
		var transcript string
		var transcriptErr error
		resolved := false
		for _, variant := range variants {
			name := variant.Name()
			if variant.IsDir() || !strings.EqualFold(filepath.Ext(name), ".wav") || strings.Contains(name, ".partial.") {
				continue
			}
			audioPath := filepath.Join(noisyDir, videoID, name)
			if !resolved {
				transcript, transcriptErr = FindTranscript(filepath.Join(datasetDir, videoID), suffixes)
				resolved = true
			}
			if transcriptErr != nil {
				failures = append(failures, batch.Failure{File: audioPath, Reason: transcriptErr.Error()})
				continue
			}
			sources = append(sources, Source{
				VideoID:    videoID,
				Variant:    strings.TrimSuffix(name, filepath.Ext(name)),
				Audio:      audioPath,
				Transcript: transcript,
			})
		}
	}
	return sources, failures, nil
}

// FindTranscript returns the file in dir matching the earliest suffix in
// preference order. Ties within a suffix resolve by name.
func FindTranscript(dir string, suffixes []string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w in %s", ErrNoTranscript, dir)
		}
		return "", fmt.Errorf("read transcript dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	for _, suffix := range suffixes {
		for _, name := range names {
			if strings.HasSuffix(strings.ToLower(name), strings.ToLower(suffix)) {
				return filepath.Join(dir, name), nil
			}
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoTranscript, dir)
}

// Runner chunks sources into OutputDir.
type Runner struct {
	OutputDir string
	// Sizes are chunk lengths in seconds.
	Sizes   []float64
	Workers int
	Logger  *slog.Logger
}

// NewRunner builds a runner from configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		OutputDir: cfg.Paths.ChunkedDir,
		Sizes:     slices.Clone(cfg.Chunking.ChunkSizesSeconds),
		Workers:   cfg.Chunking.Workers,
		Logger:    logging.NewComponentLogger(logger, "chunking"),
	}
}

// Run chunks every source. Files are processed concurrently; the chunks of one
// file are written in window order.
func (r *Runner) Run(ctx context.Context, sources []Source) batch.Summary {
	return batch.ForEach(ctx, sources, batch.Options[Source]{
		Workers: r.Workers,
		Name:    func(s Source) string { return s.Audio },
		Logger:  r.Logger,
		Message: "chunking failed",
	}, r.process)
}

func (r *Runner) process(ctx context.Context, src Source) (batch.Outcome, error) {
	track, err := vtt.ParseFile(src.Transcript, r.Logger)
	if err != nil {
		return batch.Processed, err
	}
	buf, err := audio.ReadWAV(src.Audio)
	if err != nil {
		return batch.Processed, err
	}

	written := 0
	for _, seconds := range r.Sizes {
		if err := ctx.Err(); err != nil {
			return batch.Processed, err
		}
		size := time.Duration(seconds * float64(time.Second))
		chunks, err := audio.Segment(buf, size)
		if err != nil {
			return batch.Processed, fmt.Errorf("chunk size %ss: %w", SizeLabel(seconds), err)
		}
		dir := filepath.Join(r.OutputDir, src.VideoID, CategoryDir(seconds), src.Variant)
		n, err := r.writeChunks(dir, chunks, track.Cues)
		if err != nil {
			return batch.Processed, err
		}
		written += n
		r.Logger.Debug("chunks written",
			logging.String(logging.FieldFile, src.Audio),
			logging.String("size", SizeLabel(seconds)),
			logging.Int("chunks", len(chunks)),
			logging.Int("new_files", n),
		)
	}
	if written == 0 {
		return batch.Skipped, nil
	}
	return batch.Processed, nil
}

func (r *Runner) writeChunks(dir string, chunks []audio.Chunk, cues []vtt.Cue) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create chunk dir: %w", err)
	}
	written := 0
	for _, chunk := range chunks {
		stem := filepath.Join(dir, ChunkStem(chunk.Index))
		wavPath := stem + ".wav"
		if !fileutil.NonEmpty(wavPath) {
			tmp := stem + ".partial.wav"
			if err := audio.WriteChunk(tmp, chunk); err != nil {
				_ = os.Remove(tmp)
				return written, err
			}
			if err := os.Rename(tmp, wavPath); err != nil {
				_ = os.Remove(tmp)
				return written, fmt.Errorf("finalize chunk: %w", err)
			}
			written++
		}
		aligned := align.Chunk(cues, chunk.Window)
		vttPath := stem + ".vtt"
		if len(aligned) == 0 || fileutil.NonEmpty(vttPath) {
			continue
		}
		if err := vtt.WriteFile(vttPath, aligned); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
