package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"sttbench/internal/batch"
	"sttbench/internal/fileutil"
	"sttbench/internal/logging"
	"sttbench/internal/testset"
)

// Latency is the measured duration of one successful call.
type Latency struct {
	File     string
	Provider string
	Duration time.Duration
}

// Transcriber writes hypotheses for test-set items.
type Transcriber struct {
	Provider Provider
	// Language maps a category language to the provider's code.
	Language      func(language string) (string, bool)
	HypothesisExt string
	Concurrency   int
	// Overwrite re-transcribes items whose hypothesis already exists.
	Overwrite bool
	// SaveRaw writes the raw response beside the hypothesis as <stem>.<method>.json.
	SaveRaw bool
	Logger  *slog.Logger
}

// Run transcribes every item that has audio. Items without audio are ignored.
func (t *Transcriber) Run(ctx context.Context, items []testset.Item) (batch.Summary, []Latency) {
	logger := logging.NewComponentLogger(t.Logger, "transcribe")
	method := MethodName(t.Provider.Name())
	ext := t.HypothesisExt
	if ext == "" {
		ext = ".txt"
	}

	var withAudio []testset.Item
	for _, item := range items {
		if item.Audio == "" {
			logger.Debug("item has no audio", logging.String(logging.FieldFile, item.ID()))
			continue
		}
		withAudio = append(withAudio, item)
	}

	var (
		mu        sync.Mutex
		latencies []Latency
	)
	summary := batch.ForEach(ctx, withAudio, batch.Options[testset.Item]{
		Workers: t.Concurrency,
		Name:    func(i testset.Item) string { return i.Audio },
		Logger:  logger,
		Message: "transcription failed",
	}, func(ctx context.Context, item testset.Item) (batch.Outcome, error) {
		out := item.HypothesisPath(method, ext)
		if !t.Overwrite && fileutil.NonEmpty(out) {
			return batch.Skipped, nil
		}
		res, err := t.Call(ctx, item)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return batch.Processed, err
			}
			// The failure is scored, so it is written as the hypothesis.
			lang, _ := t.language(item)
			if werr := fileutil.WriteFileAtomic(out, []byte(ErrorHypothesis(item.Audio, lang, err))); werr != nil {
				return batch.Processed, fmt.Errorf("%w (write hypothesis: %v)", err, werr)
			}
			return batch.Processed, err
		}
		if err := fileutil.WriteFileAtomic(out, []byte(res.Transcript)); err != nil {
			return batch.Processed, fmt.Errorf("write hypothesis: %w", err)
		}
		if t.SaveRaw && len(res.Raw) > 0 {
			raw := item.HypothesisPath(method, ".json")
			if err := fileutil.WriteFileAtomic(raw, res.Raw); err != nil {
				logger.Warn("raw response not saved",
					logging.String(logging.FieldFile, raw),
					logging.Error(err),
				)
			}
		}
		mu.Lock()
		latencies = append(latencies, Latency{File: item.Audio, Provider: method, Duration: res.Latency})
		mu.Unlock()
		logger.Debug("hypothesis written",
			logging.String(logging.FieldFile, out),
			logging.Duration("latency", res.Latency),
		)
		return batch.Processed, nil
	})
	return summary, latencies
}

// Supports reports whether the item's language maps to a provider code.
func (t *Transcriber) Supports(item testset.Item) bool {
	_, ok := t.language(item)
	return ok
}

func (t *Transcriber) language(item testset.Item) (string, bool) {
	if t.Language == nil {
		return "", false
	}
	return t.Language(item.Key.Language)
}

// Call sends one item's audio to the provider without writing anything.
func (t *Transcriber) Call(ctx context.Context, item testset.Item) (Result, error) {
	lang, ok := t.language(item)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, item.Key.Language)
	}
	audio, err := os.ReadFile(item.Audio)
	if err != nil {
		return Result{}, fmt.Errorf("read audio: %w", err)
	}
	return t.Provider.Transcribe(ctx, Request{File: item.Audio, Audio: audio, Language: lang})
}
