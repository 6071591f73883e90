// Package evaluation scores every hypothesis in a test set against its
// reference transcript and returns one metrics.Record per (item, method).
package evaluation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"sttbench/internal/batch"
	"sttbench/internal/config"
	"sttbench/internal/logging"
	"sttbench/internal/metrics"
	"sttbench/internal/testset"
	"sttbench/internal/vtt"
)

// ErrNoReference marks hypotheses without a reference transcript.
var ErrNoReference = errors.New("no reference transcript")

var bannerPrefixes = []string{"Detected language", "TRANSCRIPTION:", "UTTERANCE "}

// CleanHypothesis drops the banner lines some recognizers print around their
// output and collapses whitespace.
func CleanHypothesis(text string) string {
	var kept []string
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if slices.ContainsFunc(bannerPrefixes, func(p string) bool { return strings.HasPrefix(line, p) }) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
}

// LoadVocabulary reads a YAML (or JSON) list of terms. Terms are trimmed and
// repeated terms dropped, keeping the first occurrence. An empty path yields
// no vocabulary.
func LoadVocabulary(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var terms []string
	if err := yaml.Unmarshal(data, &terms); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out, nil
}

// LoadVocabularies loads the unnamed vocabulary file followed by the named
// ones in name order. Empty lists are dropped.
func LoadVocabularies(cfg config.Evaluation) ([]metrics.Vocabulary, error) {
	var out []metrics.Vocabulary
	terms, err := LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return nil, err
	}
	if len(terms) > 0 {
		out = append(out, metrics.Vocabulary{Terms: terms})
	}
	for _, name := range slices.Sorted(maps.Keys(cfg.Vocabularies)) {
		terms, err := LoadVocabulary(cfg.Vocabularies[name])
		if err != nil {
			return nil, fmt.Errorf("vocabulary %s: %w", name, err)
		}
		if len(terms) > 0 {
			out = append(out, metrics.Vocabulary{Name: name, Terms: terms})
		}
	}
	return out, nil
}

// Runner scores test-set items.
type Runner struct {
	Evaluator metrics.Evaluator
	// Methods restricts scoring to the named methods when non-empty.
	Methods []string
	Workers int
	Logger  *slog.Logger
}

// NewRunner builds a runner from configuration, loading the vocabulary files.
func NewRunner(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	vocabularies, err := LoadVocabularies(cfg.Evaluation)
	if err != nil {
		return nil, err
	}
	return &Runner{
		Evaluator: metrics.Evaluator{
			Tokenizer:    metrics.NewTokenizer(cfg.Evaluation.CharacterLanguages),
			Vocabularies: vocabularies,
		},
		Workers: cfg.Chunking.Workers,
		Logger:  logging.NewComponentLogger(logger, "evaluation"),
	}, nil
}

// Run scores every item. Records are ordered by sample ID then method.
// An item with a reference but no hypotheses counts as skipped.
func (r *Runner) Run(ctx context.Context, items []testset.Item) ([]metrics.Record, batch.Summary) {
	var (
		mu      sync.Mutex
		records []metrics.Record
	)
	summary := batch.ForEach(ctx, items, batch.Options[testset.Item]{
		Workers: r.Workers,
		Name:    func(i testset.Item) string { return i.ID() },
		Logger:  r.Logger,
		Message: "evaluation failed",
	}, func(_ context.Context, item testset.Item) (batch.Outcome, error) {
		scored, err := r.score(item)
		if err != nil {
			return batch.Processed, err
		}
		if len(scored) == 0 {
			return batch.Skipped, nil
		}
		mu.Lock()
		records = append(records, scored...)
		mu.Unlock()
		return batch.Processed, nil
	})

	slices.SortFunc(records, func(a, b metrics.Record) int {
		if c := cmp.Compare(a.SampleID, b.SampleID); c != 0 {
			return c
		}
		return cmp.Compare(a.Method, b.Method)
	})
	degenerate := 0
	for _, rec := range records {
		if rec.Degenerate {
			degenerate++
		}
	}
	if degenerate > 0 {
		r.Logger.Warn("references with no scorable tokens excluded",
			logging.Int("excluded", degenerate),
			logging.Int("records", len(records)),
		)
	}
	return records, summary
}

func (r *Runner) score(item testset.Item) ([]metrics.Record, error) {
	methods := item.Methods()
	if len(r.Methods) > 0 {
		methods = slices.DeleteFunc(methods, func(m string) bool { return !slices.Contains(r.Methods, m) })
	}
	if len(methods) == 0 {
		return nil, nil
	}
	if item.Reference == "" {
		return nil, ErrNoReference
	}
	track, err := vtt.ParseFile(item.Reference, r.Logger)
	if err != nil {
		return nil, err
	}
	groundTruth := vtt.PlainText(track.Cues)
	segments := vtt.Segments(track.Cues)

	out := make([]metrics.Record, 0, len(methods))
	for _, method := range methods {
		data, err := os.ReadFile(item.Hypotheses[method])
		if err != nil {
			return nil, fmt.Errorf("read hypothesis: %w", err)
		}
		rec := r.Evaluator.Evaluate(metrics.Sample{
			ID:          item.ID(),
			Method:      method,
			Key:         item.Key,
			GroundTruth: groundTruth,
			Segments:    segments,
			Hypothesis:  CleanHypothesis(string(data)),
		})
		if rec.Degenerate {
			logging.FileFailure(r.Logger, "reference has no scorable tokens", item.Reference, metrics.ErrDegenerateReference.Error(),
				logging.String("method", method))
		}
		out = append(out, rec)
	}
	return out, nil
}
