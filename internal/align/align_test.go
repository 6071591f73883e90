package align

import (
	"testing"
	"time"

	"sttbench/internal/media/audio"
	"sttbench/internal/vtt"
)

func TestBoundaryCueAppearsInBothChunks(t *testing.T) {
	track := vtt.ParseString("WEBVTT\n\n00:00.000 --> 00:05.020\nHi, I'm Selva...\n")
	windows, err := audio.PlanWindows(5020*time.Millisecond, 5*time.Second)
	if err != nil {
		t.Fatalf("PlanWindows: %v", err)
	}
	aligned := All(track.Cues, windows)
	if len(aligned) != 2 {
		t.Fatalf("expected 2 aligned transcripts, got %d", len(aligned))
	}
	first, second := aligned[0], aligned[1]
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected cue in both chunks, got %d and %d", len(first), len(second))
	}
	if first[0].Start != 0 || first[0].End != 5*time.Second {
		t.Fatalf("first chunk cue = %+v, want end clamped at 5s", first[0])
	}
	if second[0].Start != 0 || second[0].End != 20*time.Millisecond {
		t.Fatalf("second chunk cue = %+v, want start clamped at 0", second[0])
	}
	if first[0].Text != "Hi, I'm Selva..." || second[0].Text != first[0].Text {
		t.Fatalf("full text must be kept in both chunks: %q / %q", first[0].Text, second[0].Text)
	}
}

func TestWindowInsideSilenceIsEmpty(t *testing.T) {
	cues := []vtt.Cue{
		{Start: 0, End: time.Second, Text: "a"},
		{Start: 9 * time.Second, End: 10 * time.Second, Text: "b"},
	}
	if got := Window(cues, 2*time.Second, 8*time.Second); len(got) != 0 {
		t.Fatalf("expected empty transcript, got %+v", got)
	}
}

func TestWindowUsesHalfOpenBounds(t *testing.T) {
	cues := []vtt.Cue{
		{Start: 0, End: 5 * time.Second, Text: "ends at boundary"},
		{Start: 10 * time.Second, End: 12 * time.Second, Text: "starts at boundary"},
	}
	got := Window(cues, 5*time.Second, 10*time.Second)
	if len(got) != 0 {
		t.Fatalf("touching cues must not overlap, got %+v", got)
	}
}

func TestWindowTimingStaysInsideChunk(t *testing.T) {
	cues := []vtt.Cue{
		{Start: 500 * time.Millisecond, End: 3 * time.Second, Text: "a"},
		{Start: 2 * time.Second, End: 20 * time.Second, Text: "long"},
		{Start: 7 * time.Second, End: 7500 * time.Millisecond, Text: "inside"},
		{Start: 6 * time.Second, End: 9 * time.Second, Text: "overlap"},
	}
	windows, err := audio.PlanWindows(21*time.Second, 4*time.Second)
	if err != nil {
		t.Fatalf("PlanWindows: %v", err)
	}
	for _, w := range windows {
		for _, cue := range Chunk(cues, w) {
			if cue.Start < 0 || cue.Start > cue.End || cue.End > w.Duration() {
				t.Fatalf("window %+v produced out-of-range cue %+v", w, cue)
			}
		}
	}
	second := Chunk(cues, windows[1])
	if len(second) != 3 {
		t.Fatalf("expected 3 cues in [4s,8s), got %+v", second)
	}
	if second[0].Text != "long" || second[1].Text != "inside" || second[2].Text != "overlap" {
		t.Fatalf("source order not preserved: %+v", second)
	}
	if second[1].Start != 3*time.Second || second[1].End != 3500*time.Millisecond {
		t.Fatalf("inner cue not shifted: %+v", second[1])
	}
}

func TestWindowEmptySpan(t *testing.T) {
	cues := []vtt.Cue{{Start: 0, End: time.Second, Text: "a"}}
	if got := Window(cues, time.Second, time.Second); got != nil {
		t.Fatalf("expected nil for empty window, got %+v", got)
	}
}
