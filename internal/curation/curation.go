// Package curation builds the categorised evaluation tree from chunked audio:
//
//	<testset>/<suite>/<LanguageFolder>[/<modifier>]/<video>_<chunk>_<variant>_audio_<i>.{wav,vtt}
//
// Each video's language and accent come from a metadata file. A chunk whose
// transcript contains a number goes to the "-Numbers" language folder,
// noise-mixed variants go to noisy_<level>, and clean chunks from speakers
// with a non-native accent go to accent_<name>. Chunks without a transcript
// are never picked.
//
// A selection.yaml in the suite folder records every pick. When it exists the
// next run copies the same chunks again instead of drawing anew, so a test set
// can be rebuilt identically on another machine.
package curation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"sttbench/internal/batch"
	"sttbench/internal/category"
	"sttbench/internal/config"
	"sttbench/internal/fileutil"
	"sttbench/internal/logging"
	"sttbench/internal/metrics"
	"sttbench/internal/sampling"
	"sttbench/internal/vtt"
)

// SelectionName is the file written in the suite folder.
const SelectionName = "selection.yaml"

// Selection describes the chunks picked for one suite.
type Selection struct {
	Suite       string              `yaml:"suite"`
	Seed        uint64              `yaml:"seed"`
	PerCategory int                 `yaml:"per_category"`
	Categories  []CategorySelection `yaml:"categories"`
}

// CategorySelection lists the picks for one category.
type CategorySelection struct {
	Name      string  `yaml:"name"`
	Available int     `yaml:"available"`
	Entries   []Entry `yaml:"entries"`
}

// Entry maps a test-set file pair back to its chunk.
type Entry struct {
	VideoID    string `yaml:"video_id"`
	Source     string `yaml:"source"`
	Transcript string `yaml:"transcript"`
	Audio      string `yaml:"audio"`
	Reference  string `yaml:"reference"`
}

// ReadSelection loads a selection written by Builder.Run.
func ReadSelection(path string) (Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Selection{}, fmt.Errorf("read selection: %w", err)
	}
	var s Selection
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Selection{}, fmt.Errorf("parse selection: %w", err)
	}
	return s, nil
}

// Builder curates one suite of the test set.
type Builder struct {
	ChunkedDir string
	TestsetDir string
	Suite      string
	Metadata   map[string]Video
	Tokenizer  *metrics.Tokenizer
	// PerCategory caps the picks per category; 0 keeps every chunk.
	PerCategory int
	Seed        uint64
	// Redraw ignores an existing selection file.
	Redraw  bool
	Workers int
	Logger  *slog.Logger
}

// NewBuilder builds a curator from configuration.
func NewBuilder(cfg *config.Config, metadata map[string]Video, logger *slog.Logger) *Builder {
	return &Builder{
		ChunkedDir:  cfg.Paths.ChunkedDir,
		TestsetDir:  cfg.Paths.TestsetDir,
		Suite:       cfg.Testset.Suite,
		Metadata:    metadata,
		Tokenizer:   metrics.NewTokenizer(cfg.Evaluation.CharacterLanguages),
		PerCategory: cfg.Testset.PerCategory,
		Seed:        cfg.Testset.Seed,
		Workers:     cfg.Chunking.Workers,
		Logger:      logging.NewComponentLogger(logger, "curation"),
	}
}

// SelectionPath returns where the selection is kept.
func (b *Builder) SelectionPath() string {
	return filepath.Join(b.TestsetDir, b.Suite, SelectionName)
}

// Run selects chunks (or reuses the stored selection), copies them into the
// suite and writes the selection. The returned flag reports reuse.
func (b *Builder) Run(ctx context.Context) (Selection, bool, batch.Summary, error) {
	path := b.SelectionPath()
	var (
		sel      Selection
		reused   bool
		failures []batch.Failure
	)
	if _, err := os.Stat(path); err == nil && !b.Redraw {
		sel, err = ReadSelection(path)
		if err != nil {
			return Selection{}, false, batch.Summary{}, err
		}
		reused = true
		b.Logger.Info("reusing stored selection", logging.String(logging.FieldFile, path))
	} else {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Selection{}, false, batch.Summary{}, fmt.Errorf("stat selection: %w", err)
		}
		sel, failures, err = b.draw(ctx)
		if err != nil {
			return Selection{}, false, batch.Summary{}, err
		}
	}

	var entries []Entry
	for _, c := range sel.Categories {
		entries = append(entries, c.Entries...)
	}
	summary := batch.ForEach(ctx, entries, batch.Options[Entry]{
		Workers: b.Workers,
		Name:    func(e Entry) string { return e.Source },
		Logger:  b.Logger,
		Message: "test-set copy failed",
	}, copyEntry)
	summary.Failures = append(failures, summary.Failures...)

	if !reused {
		data, err := yaml.Marshal(sel)
		if err != nil {
			return sel, false, summary, fmt.Errorf("encode selection: %w", err)
		}
		if err := fileutil.WriteFileAtomic(path, data); err != nil {
			return sel, false, summary, fmt.Errorf("write selection: %w", err)
		}
	}
	return sel, reused, summary, nil
}

// draw classifies every transcribed chunk and picks up to PerCategory per
// category. Unreadable transcripts are returned as failures.
func (b *Builder) draw(ctx context.Context) (Selection, []batch.Failure, error) {
	discovered, err := sampling.Discover(b.ChunkedDir)
	if err != nil {
		return Selection{}, nil, err
	}
	var candidates []sampling.Candidate
	for _, name := range slices.Sorted(maps.Keys(discovered)) {
		for _, c := range discovered[name] {
			if c.Transcript != "" {
				candidates = append(candidates, c)
			}
		}
	}

	var (
		mu         sync.Mutex
		groups     = make(map[string][]sampling.Candidate)
		keys       = make(map[string]category.Key)
		noMetadata = make(map[string]bool)
		noLanguage = make(map[string]bool)
	)
	classified := batch.ForEach(ctx, candidates, batch.Options[sampling.Candidate]{
		Workers: b.Workers,
		Name:    func(c sampling.Candidate) string { return c.Transcript },
		Logger:  b.Logger,
		Message: "chunk not classified",
	}, func(_ context.Context, c sampling.Candidate) (batch.Outcome, error) {
		video, ok := b.Metadata[c.VideoID]
		if !ok {
			mu.Lock()
			noMetadata[c.VideoID] = true
			mu.Unlock()
			return batch.Skipped, nil
		}
		lang, ok := LanguageFolder(video.Language, video.Accent)
		if !ok {
			mu.Lock()
			noLanguage[video.Language] = true
			mu.Unlock()
			return batch.Skipped, nil
		}
		track, err := vtt.ParseFile(c.Transcript, b.Logger)
		if err != nil {
			return batch.Processed, err
		}
		numbers := metrics.ExtractNumbers(vtt.PlainText(track.Cues), b.Tokenizer.ModeFor(lang))
		key, _ := Route(video, c.Variant, len(numbers) > 0)
		name := key.String()
		mu.Lock()
		groups[name] = append(groups[name], c)
		keys[name] = key
		mu.Unlock()
		return batch.Processed, nil
	})
	if err := ctx.Err(); err != nil {
		return Selection{}, nil, err
	}
	for _, id := range slices.Sorted(maps.Keys(noMetadata)) {
		b.Logger.Warn("video has no metadata; chunks skipped", logging.String("video_id", id))
	}
	for _, lang := range slices.Sorted(maps.Keys(noLanguage)) {
		b.Logger.Warn("language has no test-set folder; chunks skipped", logging.String("language", lang))
	}

	n := b.PerCategory
	if n <= 0 {
		n = math.MaxInt
	}
	rng, seed := sampling.NewRand(b.Seed)
	drawn := sampling.Draw(groups, n, rng)

	sel := Selection{Suite: b.Suite, Seed: seed, PerCategory: b.PerCategory}
	names := slices.SortedFunc(maps.Keys(drawn), func(x, y string) int { return category.Compare(keys[x], keys[y]) })
	for _, name := range names {
		key := keys[name]
		dir := filepath.Join(b.TestsetDir, b.Suite, key.LanguageFolder(), key.ModifierFolder())
		cs := CategorySelection{Name: name, Available: len(groups[name])}
		for _, c := range drawn[name] {
			stem := testsetStem(c)
			cs.Entries = append(cs.Entries, Entry{
				VideoID:    c.VideoID,
				Source:     c.Audio,
				Transcript: c.Transcript,
				Audio:      filepath.Join(dir, stem+filepath.Ext(c.Audio)),
				Reference:  filepath.Join(dir, stem+".vtt"),
			})
		}
		sel.Categories = append(sel.Categories, cs)
		b.Logger.Info("category selected",
			logging.String("category", name),
			logging.Int("available", cs.Available),
			logging.Int("selected", len(cs.Entries)),
		)
	}
	slices.SortFunc(classified.Failures, func(x, y batch.Failure) int { return cmp.Compare(x.File, y.File) })
	return sel, classified.Failures, nil
}

// testsetStem flattens a chunk path into a dot-free file stem.
func testsetStem(c sampling.Candidate) string {
	base := strings.TrimSuffix(filepath.Base(c.Audio), filepath.Ext(c.Audio))
	stem := strings.Join([]string{c.VideoID, c.Category, c.Variant, base}, "_")
	return strings.ReplaceAll(stem, ".", "-")
}

func copyEntry(_ context.Context, e Entry) (batch.Outcome, error) {
	outcome := batch.Skipped
	if !fileutil.NonEmpty(e.Audio) {
		if err := fileutil.CopyFileVerified(e.Source, e.Audio); err != nil {
			return batch.Processed, fmt.Errorf("copy audio: %w", err)
		}
		outcome = batch.Processed
	}
	if !fileutil.NonEmpty(e.Reference) {
		if err := fileutil.CopyFileVerified(e.Transcript, e.Reference); err != nil {
			return batch.Processed, fmt.Errorf("copy transcript: %w", err)
		}
		outcome = batch.Processed
	}
	return outcome, nil
}
