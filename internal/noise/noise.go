// Package noise builds the noisy variants of every dataset recording. Each
// video directory contributes one source media file; for each configured level
// the master noise track is mixed under it and written as
// noisy/<video_id>/noisy_<level>.wav.
package noise

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

	"sttbench/internal/batch"
	"sttbench/internal/config"
	"sttbench/internal/fileutil"
	"sttbench/internal/logging"
	"sttbench/internal/media/ffmpeg"
	"sttbench/internal/media/ffprobe"
)

// ErrNoSource marks a video directory without a usable media file.
var ErrNoSource = errors.New("no source media")

var mediaExtensions = []string{".mp4", ".mp3", ".wav", ".m4a", ".webm"}

// Job is one (video, level) output.
type Job struct {
	VideoID string
	Source  string
	Output  string
	Level   int
}

// VariantName returns the file stem used for a noise level.
func VariantName(level int) string {
	return "noisy_" + strconv.Itoa(level)
}

// Plan lists the jobs for every video directory under datasetDir. Videos
// without source media are reported as failures rather than errors.
func Plan(datasetDir, noisyDir string, levels []int) ([]Job, []batch.Failure, error) {
	entries, err := os.ReadDir(datasetDir)
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset dir: %w", err)
	}
	var (
		jobs     []Job
		failures []batch.Failure
	)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		videoID := entry.Name()
		source, err := SourceMedia(filepath.Join(datasetDir, videoID))
		if err != nil {
			failures = append(failures, batch.Failure{File: filepath.Join(datasetDir, videoID), Reason: err.Error()})
			continue
		}
		for _, level := range levels {
			jobs = append(jobs, Job{
				VideoID: videoID,
				Source:  source,
				Output:  filepath.Join(noisyDir, videoID, VariantName(level)+".wav"),
				Level:   level,
			})
		}
	}
	return jobs, failures, nil
}

// SourceMedia returns the first media file, by name, in dir.
func SourceMedia(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read video dir: %w", err)
	}
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if slices.Contains(mediaExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoSource
	}
	slices.Sort(candidates)
	return filepath.Join(dir, candidates[0]), nil
}

// Runner executes noise jobs through ffmpeg.
type Runner struct {
	FFmpeg     string
	NoiseFile  string
	SampleRate int
	Bitrate    string
	Workers    int
	Logger     *slog.Logger
	// Probe, when set, inspects each source before mixing so files without
	// an audio stream fail fast.
	Probe   func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	FFprobe string
}

// NewRunner builds a runner from configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		FFmpeg:     cfg.FFmpegBinary(),
		NoiseFile:  cfg.Noise.MasterNoiseFile,
		SampleRate: cfg.Chunking.SampleRate,
		Bitrate:    cfg.Noise.Bitrate,
		Workers:    cfg.Chunking.Workers,
		Logger:     logging.NewComponentLogger(logger, "noise"),
		Probe:      ffprobe.Inspect,
		FFprobe:    cfg.FFprobeBinary(),
	}
}

// Run processes jobs, skipping outputs that already exist.
func (r *Runner) Run(ctx context.Context, jobs []Job) batch.Summary {
	return batch.ForEach(ctx, jobs, batch.Options[Job]{
		Workers: r.Workers,
		Name:    func(j Job) string { return j.Output },
		Logger:  r.Logger,
		Message: "noise mix failed",
	}, r.process)
}

func (r *Runner) process(ctx context.Context, job Job) (batch.Outcome, error) {
	if fileutil.NonEmpty(job.Output) {
		return batch.Skipped, nil
	}
	if job.Level > 0 && strings.TrimSpace(r.NoiseFile) == "" {
		return batch.Processed, errors.New("master noise file not configured")
	}
	if r.Probe != nil {
		probe, err := r.Probe(ctx, r.FFprobe, job.Source)
		if err != nil {
			return batch.Processed, err
		}
		if _, err := probe.PrimaryAudio(); err != nil {
			return batch.Processed, fmt.Errorf("%s: %w", filepath.Base(job.Source), err)
		}
		r.Logger.Debug("source inspected",
			logging.String(logging.FieldFile, job.Source),
			logging.Duration("duration", probe.Duration()),
		)
	}
	err := ffmpeg.MixNoise(ctx, r.FFmpeg, ffmpeg.MixRequest{
		Speech:       job.Source,
		Noise:        r.NoiseFile,
		Output:       job.Output,
		LevelPercent: job.Level,
		SampleRate:   r.SampleRate,
		Bitrate:      r.Bitrate,
	})
	if err != nil {
		return batch.Processed, err
	}
	r.Logger.Debug("noisy variant written",
		logging.String(logging.FieldFile, job.Output),
		logging.Int("level", job.Level),
	)
	return batch.Processed, nil
}
