package vtt

import (
	"reflect"
	"testing"
	"time"
)

func TestFormatRoundTrip(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 5 * time.Second, Text: "Hi, I'm Selva..."},
		{Start: time.Hour + ms(1), End: time.Hour + ms(2500), Text: "later"},
	}
	rendered := Format(cues)
	want := "WEBVTT\n\n00:00:00.000 --> 00:00:05.000\nHi, I'm Selva...\n\n01:00:00.001 --> 01:00:02.500\nlater\n"
	if rendered != want {
		t.Fatalf("Format =\n%s\nwant\n%s", rendered, want)
	}
	parsed := ParseString(rendered)
	if !reflect.DeepEqual(parsed.Cues, cues) {
		t.Fatalf("round trip mismatch: %#v", parsed.Cues)
	}
}

func TestPlainTextStripsTags(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: time.Second, Text: "<v Speaker>hello</v>   there"},
		{Start: time.Second, End: 2 * time.Second, Text: "<c>   </c>"},
		{Start: 2 * time.Second, End: 3 * time.Second, Text: "樓價都會受影響"},
	}
	if got := PlainText(cues); got != "hello there 樓價都會受影響" {
		t.Fatalf("PlainText = %q", got)
	}
	if got := Segments(cues); len(got) != 2 {
		t.Fatalf("Segments = %q", got)
	}
}

func TestFormatTimestampClampsNegative(t *testing.T) {
	if got := FormatTimestamp(-time.Second); got != "00:00:00.000" {
		t.Fatalf("FormatTimestamp(-1s) = %q", got)
	}
}
