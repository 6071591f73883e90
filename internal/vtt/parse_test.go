package vtt

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func TestParseWhisperTrack(t *testing.T) {
	content := `WEBVTT
Kind: captions
Language: yue

NOTE generated by whisper

00:00.000 --> 00:05.020
Hi, I'm Selva...

1
00:00:05.020 --> 00:00:07.500 align:start position:0%
second line
continues here

00:00:07.000 --> 00:00:09.250
<c>overlapping</c> speech
`
	track := ParseString(content)
	if len(track.Defects) != 0 {
		t.Fatalf("unexpected defects: %v", track.Defects)
	}
	want := []Cue{
		{Start: 0, End: ms(5020), Text: "Hi, I'm Selva..."},
		{Start: ms(5020), End: ms(7500), Text: "second line continues here"},
		{Start: ms(7000), End: ms(9250), Text: "<c>overlapping</c> speech"},
	}
	if !reflect.DeepEqual(track.Cues, want) {
		t.Fatalf("cues = %#v\nwant %#v", track.Cues, want)
	}
}

func TestParseSkipsDefectiveCues(t *testing.T) {
	content := `WEBVTT

00:00:01.000 --> 00:00:0x.000
lost text

00:00:02.000 --> 00:00:03.000

00:00:03.000 --> 00:00:04.000
00:00:04.000 --> 00:00:05.000
kept

00:00:06.000 --> 00:00:05.000
backwards
`
	track := ParseString(content)
	if len(track.Cues) != 1 || track.Cues[0].Text != "kept" {
		t.Fatalf("unexpected cues: %#v", track.Cues)
	}
	if len(track.Defects) != 4 {
		t.Fatalf("expected 4 defects, got %d: %v", len(track.Defects), track.Defects)
	}
	wantKinds := []error{ErrMalformedTimestamp, ErrEmptyCueText, ErrEmptyCueText, ErrMalformedTimestamp}
	wantLines := []int{3, 6, 8, 12}
	for i, defect := range track.Defects {
		if !errors.Is(defect, wantKinds[i]) {
			t.Errorf("defect %d = %v, want %v", i, defect, wantKinds[i])
		}
		if defect.Line != wantLines[i] {
			t.Errorf("defect %d line = %d, want %d", i, defect.Line, wantLines[i])
		}
	}
}

func TestParseHeaderFollowedByTiming(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Cue
	}{
		{
			name:    "webvtt header",
			content: "WEBVTT\n00:00:00.000 --> 00:00:02.000\nhello there\n\n00:00:02.000 --> 00:00:04.000\nsecond\n",
			want: []Cue{
				{Start: 0, End: ms(2000), Text: "hello there"},
				{Start: ms(2000), End: ms(4000), Text: "second"},
			},
		},
		{
			name:    "header metadata lines",
			content: "WEBVTT\nKind: captions\n00:00:01.000 --> 00:00:02.000\nfirst\n",
			want:    []Cue{{Start: ms(1000), End: ms(2000), Text: "first"}},
		},
		{
			name:    "note block stays ignored",
			content: "WEBVTT\n\nNOTE spoken text below\nnot a cue\n\n00:00:01.000 --> 00:00:02.000\nkept\n",
			want:    []Cue{{Start: ms(1000), End: ms(2000), Text: "kept"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := ParseString(tt.content)
			if len(track.Defects) != 0 {
				t.Fatalf("unexpected defects: %v", track.Defects)
			}
			if !reflect.DeepEqual(track.Cues, tt.want) {
				t.Fatalf("cues = %#v\nwant %#v", track.Cues, tt.want)
			}
		})
	}
}

func TestParseDefectReasonNamesKindOnce(t *testing.T) {
	track := ParseString("WEBVTT\n\n00:00:01.000 --> 00:00:0x.000\nlost\n\n00:0a:01.000 --> 00:00:02.000\nlost too\n")
	if len(track.Defects) != 2 {
		t.Fatalf("expected 2 defects, got %v", track.Defects)
	}
	wantDetail := []string{"00:00:0x.000", "00:0a:01.000"}
	for i, defect := range track.Defects {
		msg := defect.Error()
		if n := strings.Count(msg, ErrMalformedTimestamp.Error()); n != 1 {
			t.Errorf("reason %q repeats the defect kind %d times", msg, n)
		}
		if !strings.Contains(msg, wantDetail[i]) {
			t.Errorf("reason %q missing offending value %q", msg, wantDetail[i])
		}
	}
}

func TestParseIsDeterministic(t *testing.T) {
	content := "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\na\n\n00:00:00.500 --> 00:00:02.000\nb\n"
	first := ParseString(content)
	second := ParseString(content)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parse not idempotent: %#v vs %#v", first, second)
	}
	if len(first.Cues) != 2 {
		t.Fatalf("overlapping cues must pass through, got %d", len(first.Cues))
	}
}

func TestParseSRTStyle(t *testing.T) {
	content := "1\r\n00:05:46,345 --> 00:05:48,514\r\nTACTICAL.\r\n\r\n2\r\n00:06:06,282 --> 00:06:07,992\r\nVISUAL.\r\n"
	track := ParseString(content)
	if len(track.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %d (%v)", len(track.Cues), track.Defects)
	}
	if track.Cues[0].Start != 5*time.Minute+ms(46345) {
		t.Fatalf("unexpected start %v", track.Cues[0].Start)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"00:00:05.020", ms(5020), false},
		{"01:02:03.004", time.Hour + 2*time.Minute + 3*time.Second + ms(4), false},
		{"02:03.004", 2*time.Minute + 3*time.Second + ms(4), false},
		{"00:00:05,020", ms(5020), false},
		{"00:00:05", 0, true},
		{"00:61:05.000", 0, true},
		{"a:00:05.000", 0, true},
		{"00:00:05.02", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrMalformedTimestamp) {
				t.Errorf("ParseTimestamp(%q) err = %v, want ErrMalformedTimestamp", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimestamp(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.whisper.auto.vtt")
	if err := os.WriteFile(path, []byte("WEBVTT\n\n00:00.000 --> 00:01.000\nhello\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	track, err := ParseFile(path, nil)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(track.Cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(track.Cues))
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.vtt"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}
