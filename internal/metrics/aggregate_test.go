package metrics

import (
	"testing"
	"time"

	"sttbench/internal/category"
)

func mustKey(t *testing.T, value string) category.Key {
	t.Helper()
	key, err := category.Parse(value)
	if err != nil {
		t.Fatalf("category.Parse(%q): %v", value, err)
	}
	return key
}

func TestAggregateExcludesDegenerate(t *testing.T) {
	key := mustKey(t, `Cantonese-HK\noisy_100`)
	eval := Evaluator{Tokenizer: NewTokenizer([]string{"Cantonese"})}
	records := []Record{
		eval.Evaluate(Sample{ID: "a", Method: "whisper", Key: key, GroundTruth: "樓價都會受影響", Hypothesis: "樓價都會受影響"}),
		eval.Evaluate(Sample{ID: "b", Method: "whisper", Key: key, GroundTruth: "樓價都會受影響", Hypothesis: "no speech recognized"}),
		eval.Evaluate(Sample{ID: "c", Method: "whisper", Key: key, GroundTruth: "", Hypothesis: "anything"}),
	}
	if !records[2].Degenerate {
		t.Fatal("empty reference should be degenerate")
	}

	aggs := AggregateRecords(records)
	if len(aggs) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(aggs))
	}
	agg := aggs[0]
	if agg.Count != 2 || agg.Excluded != 1 {
		t.Fatalf("Count=%d Excluded=%d, want 2 and 1", agg.Count, agg.Excluded)
	}
	mean, ok := agg.Mean(MetricErrorRate)
	if !ok || !almostEqual(mean, (0+18.0/7.0)/2) {
		t.Fatalf("mean error rate = %v, %v", mean, ok)
	}
	if mean <= 1 {
		t.Fatalf("aggregate error rate should exceed 1 with a sentinel hypothesis, got %v", mean)
	}
	if _, ok := agg.Mean(MetricNumberAccuracy); ok {
		t.Fatal("number accuracy should be undefined for a non-number category")
	}
}

func TestAggregateIsRecomputedFromInput(t *testing.T) {
	eval := Evaluator{}
	en := mustKey(t, "English-HK")
	first := []Record{
		eval.Evaluate(Sample{ID: "1", Method: "m", Key: en, GroundTruth: "one two", Hypothesis: "one two"}),
	}
	again := append(first, eval.Evaluate(Sample{ID: "2", Method: "m", Key: en, GroundTruth: "one two", Hypothesis: "one"}))

	a := AggregateRecords(first)
	b := AggregateRecords(again)
	c := AggregateRecords(first)
	if a[0].Count != 1 || b[0].Count != 2 || c[0].Count != 1 {
		t.Fatalf("counts = %d %d %d", a[0].Count, b[0].Count, c[0].Count)
	}
	if a[0].Means[MetricErrorRate] != c[0].Means[MetricErrorRate] {
		t.Fatal("aggregation is not deterministic")
	}
	if !almostEqual(b[0].Means[MetricErrorRate], 0.25) {
		t.Fatalf("mean error rate = %v, want 0.25", b[0].Means[MetricErrorRate])
	}
}

func TestAggregateOrdering(t *testing.T) {
	eval := Evaluator{}
	keys := []string{`English-HK\noisy_100`, `English-HK\noisy_25`, "English-HK", `Cantonese-HK\noisy_0`}
	var records []Record
	for _, method := range []string{"zeta", "alpha"} {
		for _, k := range keys {
			records = append(records, eval.Evaluate(Sample{Method: method, Key: mustKey(t, k), GroundTruth: "x", Hypothesis: "x"}))
		}
	}
	aggs := AggregateRecords(records)
	want := []string{`Cantonese-HK\noisy_0`, "English-HK", `English-HK\noisy_25`, `English-HK\noisy_100`}
	if len(aggs) != 8 {
		t.Fatalf("expected 8 aggregates, got %d", len(aggs))
	}
	for i, agg := range aggs[:4] {
		if agg.Method != "alpha" || agg.Key.String() != want[i] {
			t.Fatalf("aggs[%d] = %s %s, want alpha %s", i, agg.Method, agg.Key, want[i])
		}
	}
}

func TestEvaluateNumbersAndVocabulary(t *testing.T) {
	eval := Evaluator{Vocabularies: []Vocabulary{{Terms: []string{"Central"}}}}
	key := mustKey(t, "English-HK-Numbers")
	rec := eval.Evaluate(Sample{Method: "m", Key: key, GroundTruth: "Bus 101 to Central at 5", Hypothesis: "bus 101 to central at 9"})
	if acc, ok := rec.Metric(MetricNumberAccuracy); !ok || acc != 0.5 {
		t.Fatalf("number accuracy = %v, %v", acc, ok)
	}
	if acc, ok := rec.Metric(MetricVocabularyAccuracy); !ok || acc != 1 {
		t.Fatalf("vocabulary accuracy = %v, %v", acc, ok)
	}
}

func TestEvaluateNamedVocabularies(t *testing.T) {
	eval := Evaluator{Vocabularies: []Vocabulary{
		{Name: "bank", Terms: []string{"HSBC", "Octopus"}},
		{Name: "profanity", Terms: []string{"damn"}},
		{Name: "transport", Terms: []string{"MTR"}},
	}}
	rec := eval.Evaluate(Sample{
		Method:      "m",
		Key:         mustKey(t, "English-HK"),
		GroundTruth: "Pay HSBC with Octopus, damn it",
		Hypothesis:  "pay hsbc with cash damn it",
	})
	if acc, ok := rec.Metric(VocabularyMetric("bank")); !ok || acc != 0.5 {
		t.Fatalf("bank accuracy = %v, %v", acc, ok)
	}
	if acc, ok := rec.Metric("vocabulary_accuracy:profanity"); !ok || acc != 1 {
		t.Fatalf("profanity accuracy = %v, %v", acc, ok)
	}
	if _, ok := rec.Metric(VocabularyMetric("transport")); ok {
		t.Fatal("vocabulary absent from the reference must stay undefined")
	}
	if _, ok := rec.Vocabulary["transport"]; ok {
		t.Fatal("unexpected transport vocabulary result")
	}
	if got := rec.Vocabulary["bank"].Matched; len(got) != 1 || got[0] != "HSBC" {
		t.Fatalf("bank matched = %v", got)
	}
	for metric, want := range map[string]string{"vocabulary_accuracy": "", "vocabulary_accuracy:bank": "bank"} {
		if name, ok := VocabularyName(metric); !ok || name != want {
			t.Errorf("VocabularyName(%q) = %q, %v", metric, name, ok)
		}
	}
	if _, ok := VocabularyName(MetricErrorRate); ok {
		t.Error("error rate is not a vocabulary metric")
	}
}

func TestOverall(t *testing.T) {
	eval := Evaluator{}
	records := []Record{
		eval.Evaluate(Sample{Method: "m", Key: mustKey(t, "English-HK"), GroundTruth: "a b", Hypothesis: "a b"}),
		eval.Evaluate(Sample{Method: "m", Key: mustKey(t, `English-HK\noisy_50`), GroundTruth: "a b", Hypothesis: "a"}),
		eval.Evaluate(Sample{Method: "other", Key: mustKey(t, "English-HK"), GroundTruth: "a b", Hypothesis: ""}),
	}
	overall := Overall(records, "m")
	if overall.Count != 2 || !almostEqual(overall.Means[MetricErrorRate], 0.25) {
		t.Fatalf("overall = %+v", overall)
	}
	if got := Methods(records); len(got) != 2 || got[0] != "m" || got[1] != "other" {
		t.Fatalf("Methods = %v", got)
	}
}

func TestSummarizeLatencies(t *testing.T) {
	if got := SummarizeLatencies(nil); got != (LatencySummary{}) {
		t.Fatalf("empty summary = %+v", got)
	}
	var lat []time.Duration
	for _, s := range []int{5, 1, 4, 2, 3} {
		lat = append(lat, time.Duration(s)*time.Second)
	}
	got := SummarizeLatencies(lat)
	if got.Count != 5 || got.Mean != 3*time.Second || got.Median != 3*time.Second {
		t.Fatalf("summary = %+v", got)
	}
	if got.Max != 5*time.Second || got.P95 != 5*time.Second {
		t.Fatalf("summary = %+v", got)
	}
	if got.StdDev < 1580*time.Millisecond || got.StdDev > 1582*time.Millisecond {
		t.Fatalf("StdDev = %v", got.StdDev)
	}
	single := SummarizeLatencies([]time.Duration{time.Second})
	if single.StdDev != 0 {
		t.Fatalf("single-sample StdDev = %v", single.StdDev)
	}
}

func TestSummarizeStage(t *testing.T) {
	calls := []StageCall{
		{Latency: time.Second, Audio: 4 * time.Second},
		{Latency: 3 * time.Second, Audio: 6 * time.Second},
		{Latency: 2 * time.Second},
		{Latency: 30 * time.Second, Audio: time.Second, Failed: true},
	}
	got := SummarizeStage(8, calls)
	if got.Concurrency != 8 || got.Calls != 4 || got.Succeeded != 3 {
		t.Fatalf("counts = %+v", got)
	}
	if !almostEqual(got.SuccessRate(), 0.75) {
		t.Fatalf("success rate = %v", got.SuccessRate())
	}
	if got.Latency.Count != 3 || got.Latency.Mean != 2*time.Second || got.Latency.Max != 3*time.Second {
		t.Fatalf("latency = %+v", got.Latency)
	}
	if got.RTFCount != 2 || !almostEqual(got.MeanRTF, 0.375) || !almostEqual(got.P95RTF, 0.5) {
		t.Fatalf("rtf = %d %v %v", got.RTFCount, got.MeanRTF, got.P95RTF)
	}

	empty := SummarizeStage(2, nil)
	if empty.SuccessRate() != 0 || empty.Latency.Count != 0 || empty.RTFCount != 0 {
		t.Fatalf("empty stage = %+v", empty)
	}
}
