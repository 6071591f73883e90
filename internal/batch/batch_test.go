package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
)

func TestForEachRecordsFailuresAndContinues(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}
	summary := ForEach(context.Background(), items, Options[int]{
		Workers: 3,
		Name:    func(i int) string { return fmt.Sprintf("file_%d", i) },
	}, func(_ context.Context, i int) (Outcome, error) {
		switch {
		case i%3 == 0:
			return Processed, fmt.Errorf("decode failed")
		case i == 1:
			return Skipped, nil
		}
		return Processed, nil
	})
	if summary.Processed != 3 || summary.Skipped != 1 || summary.Failed() != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Failures[0].File != "file_3" || summary.Failures[1].File != "file_6" {
		t.Fatalf("failures not sorted: %+v", summary.Failures)
	}
	if summary.Failures[0].Reason != "decode failed" {
		t.Fatalf("unexpected reason %q", summary.Failures[0].Reason)
	}
	if summary.Total() != len(items) {
		t.Fatalf("Total = %d", summary.Total())
	}
}

func TestForEachBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	items := make([]int, 20)
	ForEach(context.Background(), items, Options[int]{Workers: 2}, func(context.Context, int) (Outcome, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		active.Add(-1)
		return Processed, nil
	})
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d exceeds 2", peak.Load())
	}
}

func TestForEachStopsDispatchOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	items := make([]int, 50)
	summary := ForEach(ctx, items, Options[int]{Workers: 1}, func(context.Context, int) (Outcome, error) {
		if calls.Add(1) == 3 {
			cancel()
		}
		return Processed, nil
	})
	if int(calls.Load()) >= len(items) {
		t.Fatalf("expected dispatch to stop early, got %d calls", calls.Load())
	}
	if summary.Processed != int(calls.Load()) {
		t.Fatalf("processed %d, calls %d", summary.Processed, calls.Load())
	}
}

func TestForEachCancelledReason(t *testing.T) {
	summary := ForEach(context.Background(), []string{"a"}, Options[string]{Name: func(s string) string { return s }}, func(context.Context, string) (Outcome, error) {
		return Processed, fmt.Errorf("mix: %w", context.Canceled)
	})
	if summary.Failed() != 1 || summary.Failures[0].Reason != "cancelled" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSummaryMerge(t *testing.T) {
	a := Summary{Processed: 1, Failures: []Failure{{File: "z"}}}
	a.Merge(Summary{Skipped: 2, Failures: []Failure{{File: "a"}}})
	if a.Processed != 1 || a.Skipped != 2 || a.Failures[0].File != "a" {
		t.Fatalf("unexpected merge %+v", a)
	}
	if Workers(0) < 1 || Workers(3) != 3 {
		t.Fatal("unexpected Workers resolution")
	}
}
