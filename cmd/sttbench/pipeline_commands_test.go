package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sttbench/internal/sampling"
	"sttbench/internal/testsupport"
	"sttbench/internal/vtt"
)

func TestChunkThenSample(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithChunkSizes(5))
	configPath := writeTestConfig(t, cfg)

	testsupport.WriteVTT(t, filepath.Join(cfg.Paths.DatasetDir, "vid1", "vid1.vtt"), []vtt.Cue{
		{Start: 1 * time.Second, End: 4 * time.Second, Text: "hello there"},
		{Start: 6 * time.Second, End: 9 * time.Second, Text: "second line"},
	})
	testsupport.WriteTone(t, filepath.Join(cfg.Paths.NoisyDir, "vid1", "noisy_0.wav"), cfg.Chunking.SampleRate, 12)

	out, _, err := runCLI(t, []string{"chunk"}, configPath)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	requireContains(t, out, "Chunking")
	chunkDir := filepath.Join(cfg.Paths.ChunkedDir, "vid1", "chunk_5", "noisy_0")
	requireFile(t, filepath.Join(chunkDir, "audio_0.wav"))
	requireFile(t, filepath.Join(chunkDir, "audio_0.vtt"))
	requireFile(t, filepath.Join(chunkDir, "audio_2.wav"))

	out, _, err = runCLI(t, []string{"sample", "--per-category", "2", "--seed", "7"}, configPath)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	requireContains(t, out, "Seed: 7")

	manifest, err := sampling.ReadManifest(filepath.Join(cfg.Paths.SampledDir, sampling.ManifestName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(manifest.Categories) != 1 || manifest.Categories[0].Name != "chunk_5" {
		t.Fatalf("unexpected categories %+v", manifest.Categories)
	}
	if got := manifest.Categories[0]; got.Available != 3 || len(got.Samples) != 2 {
		t.Fatalf("expected 2 of 3 samples, got %+v", got)
	}
	for _, sample := range manifest.Categories[0].Samples {
		requireFile(t, sample.Audio)
	}
}

func TestChunkRefusesMissingDatasetDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	if err := os.RemoveAll(cfg.Paths.DatasetDir); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"chunk"}, configPath); err == nil {
		t.Fatal("expected preflight failure")
	}
}

func TestTranscribeEvaluateReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Config struct {
				LanguageCode string `json:"languageCode"`
			} `json:"config"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Config.LanguageCode != "en-HK" {
			http.Error(w, "bad language", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"transcript":"hello word"}]}]}`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithEndpoint(srv.URL))
	configPath := writeTestConfig(t, cfg)

	uttDir := filepath.Join(cfg.Paths.TestsetDir, "suite1", "English-HK")
	testsupport.WriteTone(t, filepath.Join(uttDir, "utt1.wav"), 1000, 1)
	testsupport.WriteVTT(t, filepath.Join(uttDir, "utt1.vtt"), []vtt.Cue{
		{Start: 0, End: time.Second, Text: "hello world"},
	})

	out, _, err := runCLI(t, []string{"transcribe"}, configPath)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	requireContains(t, out, "Transcription")
	hypothesis, err := os.ReadFile(filepath.Join(uttDir, "utt1.http.txt"))
	if err != nil {
		t.Fatalf("read hypothesis: %v", err)
	}
	if string(hypothesis) != "hello word" {
		t.Fatalf("unexpected hypothesis %q", hypothesis)
	}

	out, _, err = runCLI(t, []string{"evaluate"}, configPath)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	requireContains(t, out, "50.00%")

	out, _, err = runCLI(t, []string{"report", "--format", "csv"}, configPath)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	requireContains(t, out, "English-HK")
	requireContains(t, out, "Latency")

	out, _, err = runCLI(t, []string{"report", "--samples", "--format", "csv"}, configPath)
	if err != nil {
		t.Fatalf("report --samples: %v", err)
	}
	requireContains(t, out, "Ground truth")
	requireContains(t, out, "hello world")
	requireContains(t, out, "hello word")

	out, _, err = runCLI(t, []string{"report", "--list"}, configPath)
	if err != nil {
		t.Fatalf("report --list: %v", err)
	}
	requireContains(t, out, "transcribe")
	requireContains(t, out, "evaluate")

	out, _, err = runCLI(t, []string{"report", "--save", "--format", "markdown"}, configPath)
	if err != nil {
		t.Fatalf("report --save: %v", err)
	}
	requireContains(t, out, "Wrote report")
	matches, _ := filepath.Glob(filepath.Join(cfg.Paths.ReportDir, "report_*.md"))
	if len(matches) != 1 {
		t.Fatalf("expected one saved report, got %v", matches)
	}
}

func TestReportWithoutRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	if _, _, err := runCLI(t, []string{"report"}, configPath); err == nil {
		t.Fatal("expected error when no evaluation run exists")
	}
}

func TestStressThenReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"transcript":"hello"}]}]}`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithEndpoint(srv.URL))
	configPath := writeTestConfig(t, cfg)
	uttDir := filepath.Join(cfg.Paths.TestsetDir, "suite1", "English-HK")
	testsupport.WriteTone(t, filepath.Join(uttDir, "utt1.wav"), 1000, 1)

	out, _, err := runCLI(t, []string{"stress", "--stages", "1,2", "--duration", "0"}, configPath)
	if err != nil {
		t.Fatalf("stress: %v", err)
	}
	requireContains(t, out, "Stress: http")
	requireContains(t, out, "100.00%")

	out, _, err = runCLI(t, []string{"report", "--stress"}, configPath)
	if err != nil {
		t.Fatalf("report --stress: %v", err)
	}
	requireContains(t, out, "Stress: http")
	requireContains(t, out, "Mean RTF")

	if _, _, err := runCLI(t, []string{"report", "--stress", "--samples"}, configPath); err == nil {
		t.Fatal("expected --samples to refuse a stress run")
	}
	if _, _, err := runCLI(t, []string{"stress", "--stages", "0"}, configPath); err == nil {
		t.Fatal("expected zero concurrency to be rejected")
	}
}

func TestReportStressWithoutRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	_, _, err := runCLI(t, []string{"report", "--stress"}, configPath)
	if err == nil {
		t.Fatal("expected error when no stress run exists")
	}
	requireContains(t, err.Error(), "stress")
}

func TestTestsetBuildsAndReusesSelection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Testset.MetadataFile = filepath.Join(testsupport.BaseDir(cfg), "videos.yaml")
	testsupport.WriteText(t, cfg.Testset.MetadataFile, "- youtube_video_id: vid1\n  language: cantonese\n  accent: hk\n")
	configPath := writeTestConfig(t, cfg)

	for i, text := range []string{"早晨", "三號巴士", "再見"} {
		stem := filepath.Join(cfg.Paths.ChunkedDir, "vid1", "chunk_5", "noisy_0", "audio_"+string(rune('0'+i)))
		testsupport.WriteTone(t, stem+".wav", cfg.Chunking.SampleRate, 1)
		testsupport.WriteVTT(t, stem+".vtt", []vtt.Cue{{Start: 0, End: time.Second, Text: text}})
	}

	out, _, err := runCLI(t, []string{"testset", "--per-category", "1", "--seed", "3"}, configPath)
	if err != nil {
		t.Fatalf("testset: %v", err)
	}
	requireContains(t, out, "Test set")
	requireContains(t, out, "Cantonese-HK: 1 of 2")
	requireContains(t, out, "Cantonese-HK-Numbers: 1 of 1")
	numbersDir := filepath.Join(cfg.Paths.TestsetDir, "TC-1", "Cantonese-HK-Numbers")
	requireFile(t, filepath.Join(numbersDir, "vid1_chunk_5_noisy_0_audio_1.wav"))
	requireFile(t, filepath.Join(numbersDir, "vid1_chunk_5_noisy_0_audio_1.vtt"))

	out, _, err = runCLI(t, []string{"testset"}, configPath)
	if err != nil {
		t.Fatalf("testset rerun: %v", err)
	}
	requireContains(t, out, "reused")

	if _, _, err := runCLI(t, []string{"testset", "--suite", "a/b"}, configPath); err == nil {
		t.Fatal("expected nested suite to be rejected")
	}
}

func TestTestsetNeedsMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	if _, _, err := runCLI(t, []string{"testset"}, configPath); err == nil {
		t.Fatal("expected preflight failure without a metadata file")
	}
}
