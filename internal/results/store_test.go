package results_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"sttbench/internal/category"
	"sttbench/internal/metrics"
	"sttbench/internal/results"
	"sttbench/internal/testsupport"
)

func openStore(t *testing.T) *results.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func TestRecordsRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, results.KindEvaluate, "/testset")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	numbersKey := category.Key{Language: "English-HK", Numbers: true}
	noisyKey := category.Clean("Cantonese-HK").WithNoise(50)
	records := []metrics.Record{
		{
			SampleID:    "TC-1/English-HK-Numbers/n1",
			Method:      "google",
			Key:         numbersKey,
			Mode:        metrics.Words,
			GroundTruth: "pay HSBC 300 dollars by 5 pm",
			Hypothesis:  "pay hsbc 300 dollars by nine",
			Metrics: map[string]float64{
				metrics.MetricErrorRate:            0.25,
				metrics.MetricRecognitionRate:      0.75,
				metrics.MetricSentenceError:        1,
				metrics.MetricNumberAccuracy:       0.5,
				metrics.MetricSegmentationAccuracy: 1,
				metrics.MetricVocabularyAccuracy:   1,
				"vocabulary_accuracy:profanity":    0,
			},
			Vocabulary: map[string]metrics.VocabularyResult{
				"":          {InReference: []string{"HSBC"}, Matched: []string{"HSBC"}},
				"profanity": {InReference: []string{"dollars by"}},
			},
			GTNumbers:  []string{"300", "5"},
			HypNumbers: []string{"300"},
		},
		{
			SampleID:    "TC-7/Cantonese-HK/c1",
			Method:      "fano",
			Key:         noisyKey,
			Mode:        metrics.Characters,
			Degenerate:  true,
			GroundTruth: "。。。",
			Hypothesis:  "你好",
		},
	}
	if err := store.SaveRecords(ctx, run.ID, records); err != nil {
		t.Fatalf("SaveRecords: %v", err)
	}
	if err := store.FinishRun(ctx, run.ID, 2, 0, 1); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	loaded, err := store.Records(ctx, run.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	first := loaded[0]
	if first.Key != numbersKey || first.Mode != metrics.Words {
		t.Fatalf("unexpected key/mode %+v", first)
	}
	if v, ok := first.Metric(metrics.MetricNumberAccuracy); !ok || v != 0.5 {
		t.Fatalf("number accuracy %v %v", v, ok)
	}
	if first.GroundTruth != records[0].GroundTruth || first.Hypothesis != records[0].Hypothesis {
		t.Fatalf("texts not restored: %q / %q", first.GroundTruth, first.Hypothesis)
	}
	if !reflect.DeepEqual(first.Metrics, records[0].Metrics) {
		t.Fatalf("metrics = %v\nwant %v", first.Metrics, records[0].Metrics)
	}
	if !reflect.DeepEqual(first.Vocabulary, records[0].Vocabulary) {
		t.Fatalf("vocabulary = %+v\nwant %+v", first.Vocabulary, records[0].Vocabulary)
	}
	if len(first.GTNumbers) != 2 || first.HypNumbers[0] != "300" {
		t.Fatalf("numbers not restored: %+v", first)
	}
	second := loaded[1]
	if !second.Degenerate || second.Key != noisyKey || second.Mode != metrics.Characters || second.Metrics != nil {
		t.Fatalf("unexpected degenerate record %+v", second)
	}
	if second.GroundTruth != "。。。" || second.Hypothesis != "你好" || second.Vocabulary != nil {
		t.Fatalf("degenerate record texts = %q / %q, vocabulary %v", second.GroundTruth, second.Hypothesis, second.Vocabulary)
	}

	latest, err := store.LatestRun(ctx, results.KindEvaluate)
	if err != nil || latest == nil || latest.ID != run.ID || latest.Failed != 1 || !latest.Finished() {
		t.Fatalf("LatestRun = %+v, %v", latest, err)
	}
}

func TestLatestRunIgnoresUnfinished(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.BeginRun(ctx, results.KindEvaluate, ""); err != nil {
		t.Fatal(err)
	}
	latest, err := store.LatestRun(ctx, results.KindEvaluate)
	if err != nil || latest != nil {
		t.Fatalf("expected no finished run, got %+v, %v", latest, err)
	}
	if missing, err := store.GetRun(ctx, "nope"); err != nil || missing != nil {
		t.Fatalf("GetRun(nope) = %+v, %v", missing, err)
	}
}

func TestLatestLatenciesPerProvider(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	older, err := store.BeginRun(ctx, results.KindTranscribe, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveLatencies(ctx, older.ID, []results.LatencySample{
		{Provider: "fano", File: "a.wav", Duration: 9 * time.Second},
		{Provider: "google", File: "a.wav", Duration: time.Second},
	}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	newer, err := store.BeginRun(ctx, results.KindTranscribe, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveLatencies(ctx, newer.ID, []results.LatencySample{
		{Provider: "fano", File: "a.wav", Duration: 2 * time.Second},
		{Provider: "fano", File: "b.wav", Duration: 1500 * time.Millisecond},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := store.LatestLatencies(ctx)
	if err != nil {
		t.Fatalf("LatestLatencies: %v", err)
	}
	if len(got["fano"]) != 2 || got["fano"][0] != 2*time.Second {
		t.Fatalf("unexpected fano latencies %v", got["fano"])
	}
	if len(got["google"]) != 1 || got["google"][0] != time.Second {
		t.Fatalf("unexpected google latencies %v", got["google"])
	}
}

func TestStressCallsAreKeptApartFromBatchLatencies(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	batch, err := store.BeginRun(ctx, results.KindTranscribe, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveLatencies(ctx, batch.ID, []results.LatencySample{
		{Provider: "fano", File: "a.wav", Duration: time.Second},
	}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	stress, err := store.BeginRun(ctx, results.KindStress, "")
	if err != nil {
		t.Fatal(err)
	}
	calls := []results.LatencySample{
		{Provider: "fano", Stage: 4, File: "b.wav", Duration: 3 * time.Second, Audio: 6 * time.Second},
		{Provider: "fano", Stage: 2, File: "a.wav", Duration: 2 * time.Second, Audio: 4 * time.Second},
		{Provider: "fano", Stage: 2, File: "b.wav", Duration: 500 * time.Millisecond, Err: "provider error: status 503"},
	}
	if err := store.SaveLatencies(ctx, stress.ID, calls); err != nil {
		t.Fatal(err)
	}

	latest, err := store.LatestLatencies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest["fano"]) != 1 || latest["fano"][0] != time.Second {
		t.Fatalf("batch latencies = %v", latest["fano"])
	}

	loaded, err := store.Calls(ctx, stress.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []results.LatencySample{calls[1], calls[2], calls[0]}
	if !reflect.DeepEqual(loaded, want) {
		t.Fatalf("Calls = %+v\nwant %+v", loaded, want)
	}
}

func TestOpenRejectsOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		"CREATE TABLE schema_version (version INTEGER NOT NULL)",
		"INSERT INTO schema_version (version) VALUES (1)",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	_ = db.Close()

	store, err := results.OpenPath(path)
	if !errors.Is(err, results.ErrSchemaMismatch) {
		_ = store.Close()
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.lock")
	first, err := results.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if _, err := results.AcquireLock(path); !errors.Is(err, results.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := results.AcquireLock(path)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	_ = again.Release()
}
