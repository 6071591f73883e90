package vtt

import (
	"fmt"
	"regexp"
	"strings"

	"sttbench/internal/fileutil"
)

// Format renders cues as a WebVTT document.
func Format(cues []Cue) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, cue := range cues {
		b.WriteByte('\n')
		b.WriteString(FormatTimestamp(cue.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(cue.End))
		b.WriteByte('\n')
		b.WriteString(cue.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteFile atomically writes cues to path as a WebVTT document.
func WriteFile(path string, cues []Cue) error {
	if err := fileutil.WriteFileAtomic(path, []byte(Format(cues))); err != nil {
		return fmt.Errorf("write vtt: %w", err)
	}
	return nil
}

var inlineTagRe = regexp.MustCompile(`<[^>]+>`)

// Segments returns each cue's text with inline tags removed.
func Segments(cues []Cue) []string {
	out := make([]string, 0, len(cues))
	for _, cue := range cues {
		text := strings.Join(strings.Fields(inlineTagRe.ReplaceAllString(cue.Text, "")), " ")
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

// PlainText joins all cue texts into a single space-separated transcript.
func PlainText(cues []Cue) string {
	return strings.Join(Segments(cues), " ")
}
