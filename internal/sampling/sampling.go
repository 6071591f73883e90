// Package sampling draws a fixed number of chunks per chunk-size category
// from the chunked tree and copies them, with their aligned transcripts, into
// a flat review directory:
//
//	sampled/chunk_<S>/<video>_<variant>_audio_<i>.wav
//
// The draw is uniform without replacement and reproducible for a given seed.
// A manifest.yaml beside the samples records what was drawn from where.
package sampling

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sttbench/internal/batch"
	"sttbench/internal/config"
	"sttbench/internal/fileutil"
	"sttbench/internal/logging"
)

// ManifestName is the file written at the root of the sampled directory.
const ManifestName = "manifest.yaml"

// Candidate is one chunk available for sampling.
type Candidate struct {
	Category   string
	VideoID    string
	Variant    string
	Audio      string
	Transcript string
}

// SampleName returns the flattened file stem used in the sampled tree.
func (c Candidate) SampleName() string {
	stem := strings.TrimSuffix(filepath.Base(c.Audio), filepath.Ext(c.Audio))
	return c.VideoID + "_" + c.Variant + "_" + stem
}

// Discover groups every chunk under chunkedDir by its chunk_<S> category.
// Expected layout: <video>/chunk_<S>/<variant>/audio_<i>.wav.
func Discover(chunkedDir string) (map[string][]Candidate, error) {
	out := make(map[string][]Candidate)
	err := filepath.WalkDir(chunkedDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") || strings.Contains(d.Name(), ".partial.") {
			return nil
		}
		rel, err := filepath.Rel(chunkedDir, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 4 || !strings.HasPrefix(parts[1], "chunk_") {
			return nil
		}
		c := Candidate{
			Category: parts[1],
			VideoID:  parts[0],
			Variant:  parts[2],
			Audio:    path,
		}
		if transcript := strings.TrimSuffix(path, filepath.Ext(path)) + ".vtt"; fileutil.NonEmpty(transcript) {
			c.Transcript = transcript
		}
		out[c.Category] = append(out[c.Category], c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk chunked dir: %w", err)
	}
	return out, nil
}

// Draw picks up to n candidates per category. Categories are visited in
// name order and candidates sorted by path first, so the result depends only
// on the inputs and the random source.
func Draw(categories map[string][]Candidate, n int, rng *rand.Rand) map[string][]Candidate {
	out := make(map[string][]Candidate, len(categories))
	for _, name := range slices.Sorted(maps.Keys(categories)) {
		pool := slices.Clone(categories[name])
		slices.SortFunc(pool, func(a, b Candidate) int { return cmp.Compare(a.Audio, b.Audio) })
		if n < len(pool) {
			rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
			pool = pool[:n]
			slices.SortFunc(pool, func(a, b Candidate) int { return cmp.Compare(a.Audio, b.Audio) })
		}
		out[name] = pool
	}
	return out
}

// NewRand returns the random source for seed; zero seeds from the clock.
func NewRand(seed uint64) (*rand.Rand, uint64) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), seed
}

// Manifest describes one sampling run.
type Manifest struct {
	Seed        uint64             `yaml:"seed"`
	PerCategory int                `yaml:"per_category"`
	Categories  []CategoryManifest `yaml:"categories"`
}

// CategoryManifest lists the samples drawn for one category.
type CategoryManifest struct {
	Name      string  `yaml:"name"`
	Available int     `yaml:"available"`
	Samples   []Entry `yaml:"samples"`
}

// Entry maps a sampled file back to its chunk.
type Entry struct {
	Source     string `yaml:"source"`
	Audio      string `yaml:"audio"`
	Transcript string `yaml:"transcript,omitempty"`
}

// ReadManifest loads a manifest written by Sampler.Run.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Sampler copies drawn chunks into OutputDir.
type Sampler struct {
	ChunkedDir  string
	OutputDir   string
	PerCategory int
	Seed        uint64
	Workers     int
	Logger      *slog.Logger
}

// NewSampler builds a sampler from configuration.
func NewSampler(cfg *config.Config, logger *slog.Logger) *Sampler {
	return &Sampler{
		ChunkedDir:  cfg.Paths.ChunkedDir,
		OutputDir:   cfg.Paths.SampledDir,
		PerCategory: cfg.Sampling.PerCategory,
		Seed:        cfg.Sampling.Seed,
		Workers:     cfg.Chunking.Workers,
		Logger:      logging.NewComponentLogger(logger, "sampling"),
	}
}

type copyJob struct {
	candidate Candidate
	audio     string
	vtt       string
}

// Run discovers, draws, copies and writes the manifest.
func (s *Sampler) Run(ctx context.Context) (Manifest, batch.Summary, error) {
	categories, err := Discover(s.ChunkedDir)
	if err != nil {
		return Manifest{}, batch.Summary{}, err
	}
	rng, seed := NewRand(s.Seed)
	drawn := Draw(categories, s.PerCategory, rng)

	manifest := Manifest{Seed: seed, PerCategory: s.PerCategory}
	var jobs []copyJob
	for _, name := range slices.Sorted(maps.Keys(drawn)) {
		cm := CategoryManifest{Name: name, Available: len(categories[name])}
		for _, c := range drawn[name] {
			job := copyJob{candidate: c, audio: filepath.Join(s.OutputDir, name, c.SampleName()+".wav")}
			entry := Entry{Source: c.Audio, Audio: job.audio}
			if c.Transcript != "" {
				job.vtt = filepath.Join(s.OutputDir, name, c.SampleName()+".vtt")
				entry.Transcript = job.vtt
			}
			jobs = append(jobs, job)
			cm.Samples = append(cm.Samples, entry)
		}
		manifest.Categories = append(manifest.Categories, cm)
		s.Logger.Info("category sampled",
			logging.String("category", name),
			logging.Int("available", cm.Available),
			logging.Int("drawn", len(cm.Samples)),
		)
	}

	summary := batch.ForEach(ctx, jobs, batch.Options[copyJob]{
		Workers: s.Workers,
		Name:    func(j copyJob) string { return j.candidate.Audio },
		Logger:  s.Logger,
		Message: "sample copy failed",
	}, copySample)

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return manifest, summary, fmt.Errorf("encode manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(s.OutputDir, ManifestName), data); err != nil {
		return manifest, summary, fmt.Errorf("write manifest: %w", err)
	}
	return manifest, summary, nil
}

func copySample(_ context.Context, job copyJob) (batch.Outcome, error) {
	outcome := batch.Skipped
	if !fileutil.NonEmpty(job.audio) {
		if err := fileutil.CopyFileVerified(job.candidate.Audio, job.audio); err != nil {
			return batch.Processed, fmt.Errorf("copy audio: %w", err)
		}
		outcome = batch.Processed
	}
	if job.vtt != "" && !fileutil.NonEmpty(job.vtt) {
		if err := fileutil.CopyFileVerified(job.candidate.Transcript, job.vtt); err != nil {
			return batch.Processed, fmt.Errorf("copy transcript: %w", err)
		}
		outcome = batch.Processed
	}
	return outcome, nil
}
