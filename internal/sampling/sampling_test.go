package sampling

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// buildTree creates count chunks for each size under two videos.
func buildTree(t *testing.T, root string, count int) {
	t.Helper()
	for _, video := range []string{"vidA", "vidB"} {
		for _, size := range []string{"chunk_8", "chunk_30"} {
			for i := 0; i < count; i++ {
				stem := filepath.Join(root, video, size, "noisy_0", fmt.Sprintf("audio_%d", i))
				writeFile(t, stem+".wav", "RIFF"+stem)
				if i%2 == 0 {
					writeFile(t, stem+".vtt", "WEBVTT\n")
				}
			}
		}
	}
}

func TestDiscoverGroupsByCategory(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, 3)
	writeFile(t, filepath.Join(root, "stray.wav"), "x")

	got, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 2 || len(got["chunk_8"]) != 6 || len(got["chunk_30"]) != 6 {
		t.Fatalf("unexpected categories %v", got)
	}
	withTranscript := 0
	for _, c := range got["chunk_8"] {
		if c.Transcript != "" {
			withTranscript++
		}
	}
	if withTranscript != 4 {
		t.Fatalf("expected 4 transcripts, got %d", withTranscript)
	}
}

func TestDrawIsReproducible(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, 10)
	categories, err := Discover(root)
	if err != nil {
		t.Fatal(err)
	}

	r1, _ := NewRand(42)
	r2, _ := NewRand(42)
	a := Draw(categories, 5, r1)
	b := Draw(categories, 5, r2)
	for name := range categories {
		if len(a[name]) != 5 {
			t.Fatalf("%s: drew %d", name, len(a[name]))
		}
		seen := map[string]bool{}
		for i := range a[name] {
			if a[name][i].Audio != b[name][i].Audio {
				t.Fatalf("%s: draws differ at %d", name, i)
			}
			if seen[a[name][i].Audio] {
				t.Fatalf("%s: duplicate draw %s", name, a[name][i].Audio)
			}
			seen[a[name][i].Audio] = true
		}
	}

	r3, _ := NewRand(1)
	all := Draw(categories, 100, r3)
	if len(all["chunk_8"]) != 20 {
		t.Fatalf("expected every candidate when fewer than n, got %d", len(all["chunk_8"]))
	}
}

func TestSamplerRunCopiesAndWritesManifest(t *testing.T) {
	root := t.TempDir()
	chunked := filepath.Join(root, "chunked")
	buildTree(t, chunked, 4)
	out := filepath.Join(root, "sampled")

	s := &Sampler{ChunkedDir: chunked, OutputDir: out, PerCategory: 3, Seed: 7, Workers: 2}
	manifest, summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed() != 0 || summary.Processed != 6 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if manifest.Seed != 7 || len(manifest.Categories) != 2 {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
	for _, cat := range manifest.Categories {
		if cat.Available != 8 || len(cat.Samples) != 3 {
			t.Fatalf("unexpected category %+v", cat)
		}
		for _, e := range cat.Samples {
			if filepath.Dir(e.Audio) != filepath.Join(out, cat.Name) {
				t.Fatalf("sample outside category dir: %s", e.Audio)
			}
			src, _ := os.ReadFile(e.Source)
			dst, err := os.ReadFile(e.Audio)
			if err != nil || string(src) != string(dst) {
				t.Fatalf("copy mismatch for %s: %v", e.Audio, err)
			}
			if e.Transcript != "" {
				if _, err := os.Stat(e.Transcript); err != nil {
					t.Fatalf("missing transcript copy: %v", err)
				}
			}
		}
	}

	loaded, err := ReadManifest(filepath.Join(out, ManifestName))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if loaded.Seed != 7 || loaded.Categories[0].Samples[0].Audio != manifest.Categories[0].Samples[0].Audio {
		t.Fatalf("manifest round trip mismatch: %+v", loaded)
	}

	_, again, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if again.Skipped != 6 {
		t.Fatalf("rerun should skip existing samples, got %+v", again)
	}
}

func TestSampleName(t *testing.T) {
	c := Candidate{VideoID: "abc", Variant: "noisy_25", Audio: "/x/abc/chunk_8/noisy_25/audio_3.wav"}
	if got := c.SampleName(); got != "abc_noisy_25_audio_3" {
		t.Fatalf("SampleName = %q", got)
	}
}
