// Package batch runs per-file work with bounded concurrency. A failing file is
// logged and recorded; it never stops the other files from being processed.
package batch

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"sttbench/internal/logging"
)

// Outcome classifies a successfully handled item.
type Outcome int

const (
	// Processed means the item produced new output.
	Processed Outcome = iota
	// Skipped means the output already existed.
	Skipped
)

// Failure records one file that could not be processed.
type Failure struct {
	File   string
	Reason string
}

// Summary counts the results of a batch.
type Summary struct {
	Processed int
	Skipped   int
	Failures  []Failure
}

// Failed returns the number of failed items.
func (s Summary) Failed() int {
	return len(s.Failures)
}

// Total returns the number of items the batch saw.
func (s Summary) Total() int {
	return s.Processed + s.Skipped + len(s.Failures)
}

// Merge folds other into s.
func (s *Summary) Merge(other Summary) {
	s.Processed += other.Processed
	s.Skipped += other.Skipped
	s.Failures = append(s.Failures, other.Failures...)
	sortFailures(s.Failures)
}

// Fail appends a failure.
func (s *Summary) Fail(file, reason string) {
	s.Failures = append(s.Failures, Failure{File: file, Reason: reason})
}

// Workers resolves a configured worker count, where 0 means one per CPU.
func Workers(configured int) int {
	if configured > 0 {
		return configured
	}
	return max(1, runtime.NumCPU())
}

// Options configures ForEach.
type Options[T any] struct {
	Workers int
	// Name identifies an item in logs and failures.
	Name   func(T) string
	Logger *slog.Logger
	// Message is the warning logged for each failure.
	Message string
}

// ForEach calls fn for every item using at most opts.Workers goroutines.
// Errors become failures. Once ctx is cancelled, undispatched items are not
// started and are not counted.
func ForEach[T any](ctx context.Context, items []T, opts Options[T], fn func(context.Context, T) (Outcome, error)) Summary {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	name := opts.Name
	if name == nil {
		name = func(T) string { return "" }
	}
	message := opts.Message
	if message == "" {
		message = "item failed"
	}
	workers := min(Workers(opts.Workers), max(1, len(items)))

	var (
		mu      sync.Mutex
		summary Summary
		done    int
		wg      sync.WaitGroup
	)
	sampler := logging.NewProgressSampler(10)
	jobs := make(chan T)

	for range workers {
		wg.Go(func() {
			for item := range jobs {
				outcome, err := fn(ctx, item)
				mu.Lock()
				switch {
				case err != nil:
					reason := err.Error()
					if errors.Is(err, context.Canceled) {
						reason = "cancelled"
					}
					summary.Fail(name(item), reason)
					logging.FileFailure(logger, message, name(item), reason)
				case outcome == Skipped:
					summary.Skipped++
				default:
					summary.Processed++
				}
				done++
				if sampler.ShouldLog(done, len(items)) {
					logger.Info("batch progress",
						logging.Int("done", done),
						logging.Int("total", len(items)),
						logging.Float64("percent", logging.Percent(done, len(items))),
					)
				}
				mu.Unlock()
			}
		})
	}

dispatch:
	for _, item := range items {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()

	sortFailures(summary.Failures)
	return summary
}

func sortFailures(failures []Failure) {
	slices.SortStableFunc(failures, func(a, b Failure) int {
		return cmp.Compare(a.File, b.File)
	})
}
