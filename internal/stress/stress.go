// Package stress runs stepped-concurrency load stages against a provider.
//
// Each stage keeps Concurrency callers busy for Duration. A caller always
// makes at least one call, then keeps taking the next audio item round-robin
// until the stage deadline passes. Every call is kept, failed ones included,
// so a stage can be summarised by success rate, latency and real-time factor.
package stress

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"sttbench/internal/media/audio"
	"sttbench/internal/config"
	"sttbench/internal/logging"
	"sttbench/internal/metrics"
	"sttbench/internal/provider"
	"sttbench/internal/results"
	"sttbench/internal/testset"
)

// ErrNoAudio is returned when no item has audio in a language the provider
// supports.
var ErrNoAudio = errors.New("no audio to submit")

// Stage is one load step.
type Stage struct {
	Concurrency int
	Duration    time.Duration
}

// Stages builds the configured load steps.
func Stages(cfg config.Stress) []Stage {
	duration := time.Duration(cfg.StageDurationSeconds) * time.Second
	out := make([]Stage, 0, len(cfg.Stages))
	for _, c := range cfg.Stages {
		out = append(out, Stage{Concurrency: c, Duration: duration})
	}
	return out
}

// Call is one provider call made during a stage.
type Call struct {
	Stage   int
	File    string
	Latency time.Duration
	// Audio is zero when the file's duration could not be read.
	Audio time.Duration
	Err   error
}

// Tester submits audio at increasing concurrency.
type Tester struct {
	Transcriber *provider.Transcriber
	Stages      []Stage
	// AudioDuration reads an audio file's length. Defaults to audio.WAVDuration.
	AudioDuration func(path string) (time.Duration, error)
	Logger        *slog.Logger
}

// Run executes every stage in order and returns all calls. A cancelled
// context stops the current stage after in-flight calls return; the calls
// made so far are returned with the context error.
func (t *Tester) Run(ctx context.Context, items []testset.Item) ([]Call, error) {
	logger := logging.NewComponentLogger(t.Logger, "stress")
	var pool []testset.Item
	for _, item := range items {
		if item.Audio != "" && t.Transcriber.Supports(item) {
			pool = append(pool, item)
		}
	}
	if len(pool) == 0 {
		return nil, ErrNoAudio
	}
	durations := t.durations(pool, logger)

	var calls []Call
	for _, stage := range t.Stages {
		if err := ctx.Err(); err != nil {
			return calls, err
		}
		logger.Info("stress stage started",
			logging.Int("concurrency", stage.Concurrency),
			logging.Duration("duration", stage.Duration),
		)
		stageCalls := t.runStage(ctx, stage, pool, durations)
		summary := metrics.SummarizeStage(stage.Concurrency, toStageCalls(stageCalls))
		logger.Info("stress stage finished",
			logging.Int("concurrency", stage.Concurrency),
			logging.Int("calls", summary.Calls),
			logging.Int("succeeded", summary.Succeeded),
			logging.Duration("p95_latency", summary.Latency.P95),
		)
		calls = append(calls, stageCalls...)
	}
	return calls, ctx.Err()
}

func (t *Tester) runStage(ctx context.Context, stage Stage, pool []testset.Item, durations map[string]time.Duration) []Call {
	deadline := time.Now().Add(stage.Duration)
	var (
		next  atomic.Int64
		mu    sync.Mutex
		calls []Call
		wg    sync.WaitGroup
	)
	for range max(stage.Concurrency, 1) {
		wg.Go(func() {
			for first := true; first || time.Now().Before(deadline); first = false {
				if ctx.Err() != nil {
					return
				}
				item := pool[int(next.Add(1)-1)%len(pool)]
				start := time.Now()
				res, err := t.Transcriber.Call(ctx, item)
				latency := res.Latency
				if err != nil || latency <= 0 {
					latency = time.Since(start)
				}
				if err != nil && ctx.Err() != nil {
					return
				}
				mu.Lock()
				calls = append(calls, Call{
					Stage:   stage.Concurrency,
					File:    item.Audio,
					Latency: latency,
					Audio:   durations[item.Audio],
					Err:     err,
				})
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return calls
}

func (t *Tester) durations(pool []testset.Item, logger *slog.Logger) map[string]time.Duration {
	read := t.AudioDuration
	if read == nil {
		read = audio.WAVDuration
	}
	out := make(map[string]time.Duration, len(pool))
	for _, item := range pool {
		if _, ok := out[item.Audio]; ok {
			continue
		}
		d, err := read(item.Audio)
		if err != nil {
			logger.Warn("audio duration unknown; real-time factor skipped",
				logging.String(logging.FieldFile, item.Audio),
				logging.Error(err),
			)
		}
		out[item.Audio] = d
	}
	return out
}

func toStageCalls(calls []Call) []metrics.StageCall {
	out := make([]metrics.StageCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, metrics.StageCall{Latency: c.Latency, Audio: c.Audio, Failed: c.Err != nil})
	}
	return out
}

// Samples converts calls into stored latency samples.
func Samples(providerName string, calls []Call) []results.LatencySample {
	out := make([]results.LatencySample, 0, len(calls))
	for _, c := range calls {
		sample := results.LatencySample{
			Provider: providerName,
			Stage:    c.Stage,
			File:     c.File,
			Duration: c.Latency,
			Audio:    c.Audio,
		}
		if c.Err != nil {
			sample.Err = c.Err.Error()
		}
		out = append(out, sample)
	}
	return out
}

// Summaries groups stored stress samples by provider and summarises each
// stage in ascending concurrency. Stage-0 samples are batch latencies and
// are ignored.
func Summaries(samples []results.LatencySample) map[string][]metrics.StageSummary {
	type stageKey struct {
		provider string
		stage    int
	}
	grouped := make(map[stageKey][]metrics.StageCall)
	for _, s := range samples {
		if s.Stage <= 0 {
			continue
		}
		k := stageKey{s.Provider, s.Stage}
		grouped[k] = append(grouped[k], metrics.StageCall{Latency: s.Duration, Audio: s.Audio, Failed: s.Err != ""})
	}
	out := make(map[string][]metrics.StageSummary)
	for k, calls := range grouped {
		out[k.provider] = append(out[k.provider], metrics.SummarizeStage(k.stage, calls))
	}
	for _, stages := range out {
		slices.SortFunc(stages, func(a, b metrics.StageSummary) int { return cmp.Compare(a.Concurrency, b.Concurrency) })
	}
	return out
}
