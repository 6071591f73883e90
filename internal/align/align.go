// Package align restricts a subtitle track to chunk windows.
//
// A cue belongs to every window it overlaps, even partially. Its full text is
// kept and its timing is shifted to be relative to the window start, then
// clamped to the window. A cue straddling a boundary therefore appears, in
// full, in both neighbouring chunks; word error rates measured near chunk
// boundaries are inflated by this duplication and reports should be read
// with that in mind.
package align

import (
	"time"

	"sttbench/internal/media/audio"
	"sttbench/internal/vtt"
)

// Overlaps reports whether cue intersects the half-open window [start, end).
func Overlaps(cue vtt.Cue, start, end time.Duration) bool {
	return cue.Start < end && cue.End > start
}

// Window returns the cues overlapping [start, end), re-timed relative to
// start. The result is empty, not nil-error, for a window inside silence.
func Window(cues []vtt.Cue, start, end time.Duration) []vtt.Cue {
	span := end - start
	if span <= 0 {
		return nil
	}
	var out []vtt.Cue
	for _, cue := range cues {
		if !Overlaps(cue, start, end) {
			continue
		}
		out = append(out, vtt.Cue{
			Start: clamp(max(cue.Start, start)-start, span),
			End:   clamp(min(cue.End, end)-start, span),
			Text:  cue.Text,
		})
	}
	return out
}

// Chunk aligns cues to an audio chunk's window.
func Chunk(cues []vtt.Cue, w audio.Window) []vtt.Cue {
	return Window(cues, w.Start, w.End)
}

// All aligns cues to every window, preserving window order.
func All(cues []vtt.Cue, windows []audio.Window) [][]vtt.Cue {
	out := make([][]vtt.Cue, len(windows))
	for i, w := range windows {
		out[i] = Chunk(cues, w)
	}
	return out
}

func clamp(d, span time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > span {
		return span
	}
	return d
}
