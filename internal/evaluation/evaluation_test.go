package evaluation

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"sttbench/internal/config"
	"sttbench/internal/metrics"
	"sttbench/internal/testset"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCleanHypothesis(t *testing.T) {
	in := "Detected language: en\nTRANSCRIPTION:\n  hello   there\nUTTERANCE 1\nworld\n"
	if got := CleanHypothesis(in); got != "hello there world" {
		t.Fatalf("CleanHypothesis = %q", got)
	}
}

func TestLoadVocabulary(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "vocab.yaml", "- HSBC\n- PayMe\n- \"  \"\n")
	write(t, dir, "vocab.json", `["HSBC", "FPS"]`)

	got, err := LoadVocabulary(filepath.Join(dir, "vocab.yaml"))
	if err != nil || len(got) != 2 || got[1] != "PayMe" {
		t.Fatalf("yaml vocabulary %v, %v", got, err)
	}
	got, err = LoadVocabulary(filepath.Join(dir, "vocab.json"))
	if err != nil || len(got) != 2 || got[1] != "FPS" {
		t.Fatalf("json vocabulary %v, %v", got, err)
	}
	if got, err := LoadVocabulary(""); err != nil || got != nil {
		t.Fatalf("empty path: %v, %v", got, err)
	}
}

func TestLoadVocabularyDropsRepeatedTerms(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "vocab.yaml", "- HSBC\n- PayMe\n- \" HSBC \"\n- FPS\n- PayMe\n- hsbc\n")

	got, err := LoadVocabulary(filepath.Join(dir, "vocab.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"HSBC", "PayMe", "FPS", "hsbc"}
	if !slices.Equal(got, want) {
		t.Fatalf("LoadVocabulary = %q, want %q", got, want)
	}
}

func TestLoadVocabularies(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "default.yaml", "- MTR\n")
	write(t, dir, "profanity.yaml", "- damn\n")
	write(t, dir, "bank.yaml", "- HSBC\n- HSBC\n")
	write(t, dir, "empty.yaml", "[]\n")

	got, err := LoadVocabularies(config.Evaluation{
		VocabularyFile: filepath.Join(dir, "default.yaml"),
		Vocabularies: map[string]string{
			"profanity": filepath.Join(dir, "profanity.yaml"),
			"bank":      filepath.Join(dir, "bank.yaml"),
			"empty":     filepath.Join(dir, "empty.yaml"),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, v := range got {
		names = append(names, v.Name)
	}
	if !slices.Equal(names, []string{"", "bank", "profanity"}) {
		t.Fatalf("vocabulary order = %q", names)
	}
	if len(got[1].Terms) != 1 {
		t.Fatalf("bank terms = %q", got[1].Terms)
	}

	_, err = LoadVocabularies(config.Evaluation{Vocabularies: map[string]string{"gone": filepath.Join(dir, "missing.yaml")}})
	if err == nil || !strings.Contains(err.Error(), "vocabulary gone") {
		t.Fatalf("expected named load error, got %v", err)
	}
}

func TestRunnerScoresTestSet(t *testing.T) {
	root := t.TempDir()
	write(t, root, "TC-1/English-HK/a1.vtt", "WEBVTT\n\n00:00.000 --> 00:02.000\nopen the HSBC app\n")
	write(t, root, "TC-1/English-HK/a1.google.txt", "Detected language: en\nopen the HSBC app\n")
	write(t, root, "TC-1/English-HK/a1.fano.txt", "open a hsbc up")
	write(t, root, "TC-1/English-HK-Numbers/n1.vtt", "WEBVTT\n\n00:00.000 --> 00:02.000\npay 300 dollars\n")
	write(t, root, "TC-1/English-HK-Numbers/n1.google.txt", "pay 3 hundred dollars")
	write(t, root, "TC-1/Cantonese-HK/c1.vtt", "WEBVTT\n\n00:00.000 --> 00:02.000\n。。。\n")
	write(t, root, "TC-1/Cantonese-HK/c1.google.txt", "你好")
	write(t, root, "TC-1/Cantonese-HK/orphan.google.txt", "你好")

	items, failures, err := testset.Scan(root, testset.Layout{})
	if err != nil || len(failures) != 0 {
		t.Fatalf("scan: %v %v", failures, err)
	}

	r := &Runner{Evaluator: metrics.Evaluator{
		Tokenizer:    metrics.NewTokenizer([]string{"Cantonese"}),
		Vocabularies: []metrics.Vocabulary{{Terms: []string{"HSBC"}}, {Name: "apps", Terms: []string{"app"}}},
	}}
	records, summary := r.Run(context.Background(), items)
	if summary.Failed() != 1 || summary.Failures[0].Reason != ErrNoReference.Error() {
		t.Fatalf("expected the orphan hypothesis to fail, got %+v", summary)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	byKey := map[string]metrics.Record{}
	for _, rec := range records {
		byKey[rec.SampleID+"|"+rec.Method] = rec
	}
	c1 := byKey["TC-1/Cantonese-HK/c1|google"]
	if !c1.Degenerate || c1.Mode != metrics.Characters {
		t.Fatalf("expected degenerate character record, got %+v", c1)
	}

	google := byKey["TC-1/English-HK/a1|google"]
	if v, _ := google.Metric(metrics.MetricErrorRate); v != 0 {
		t.Fatalf("google error rate %v", v)
	}
	if v, ok := google.Metric(metrics.MetricVocabularyAccuracy); !ok || v != 1 {
		t.Fatalf("google vocabulary %v %v", v, ok)
	}
	if v, ok := google.Metric(metrics.VocabularyMetric("apps")); !ok || v != 1 {
		t.Fatalf("google apps vocabulary %v %v", v, ok)
	}
	if google.GroundTruth != "open the HSBC app" || google.Hypothesis != "open the HSBC app" {
		t.Fatalf("texts = %q / %q", google.GroundTruth, google.Hypothesis)
	}

	fano := byKey["TC-1/English-HK/a1|fano"]
	if v, _ := fano.Metric(metrics.MetricErrorRate); math.Abs(v-0.5) > 1e-9 {
		t.Fatalf("fano error rate %v, want 0.5", v)
	}
	if _, ok := fano.Metric(metrics.VocabularyMetric("apps")); !ok {
		t.Fatal("apps vocabulary should be defined when the reference has the term")
	}

	n1 := byKey["TC-1/English-HK-Numbers/n1|google"]
	if v, ok := n1.Metric(metrics.MetricNumberAccuracy); !ok || v != 0 {
		t.Fatalf("number accuracy %v %v", v, ok)
	}
}

func TestRunnerScoresSegmentation(t *testing.T) {
	root := t.TempDir()
	write(t, root, "TC-4/English-HK/s1.vtt", "WEBVTT\n\n00:00.000 --> 00:01.000\ngood morning\n\n00:01.000 --> 00:02.000\nhow are you\n")
	write(t, root, "TC-4/English-HK/s1.google.txt", "Good morning. How are you?")
	write(t, root, "TC-4/English-HK/s1.fano.txt", "goodmorninghow are you")

	items, _, err := testset.Scan(root, testset.Layout{})
	if err != nil {
		t.Fatal(err)
	}
	r := &Runner{}
	records, _ := r.Run(context.Background(), items)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	want := map[string]float64{"fano": 0, "google": 1}
	for _, rec := range records {
		got, ok := rec.Metric(metrics.MetricSegmentationAccuracy)
		if !ok || got != want[rec.Method] {
			t.Errorf("%s segmentation = %v, %v; want %v", rec.Method, got, ok, want[rec.Method])
		}
		if rec.GroundTruth != "good morning how are you" {
			t.Errorf("%s ground truth = %q", rec.Method, rec.GroundTruth)
		}
	}
}
