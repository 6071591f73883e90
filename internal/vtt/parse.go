package vtt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Cue is one timed text entry of a subtitle track.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Duration returns the span covered by the cue.
func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

// Track is the result of parsing a subtitle document. Cues keep source order;
// Defects lists every cue that was skipped.
type Track struct {
	Cues    []Cue
	Defects []*CueError
}

// pendingCue accumulates the text lines following a timing line.
type pendingCue struct {
	line  int
	start time.Duration
	end   time.Duration
	text  []string
}

type parser struct {
	track   Track
	current *pendingCue
	// skipping discards text that belongs to a rejected timing line.
	skipping bool
}

// Parse reads a WebVTT (or SRT-like) document. Only read failures are
// returned as errors; cue-level problems land in Track.Defects.
func Parse(r io.Reader) (Track, error) {
	p := &parser{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	blockStart := true
	ignoreBlock := false
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSpace(line)

		if line == "" {
			p.flush()
			p.skipping = false
			blockStart = true
			ignoreBlock = false
			continue
		}
		if ignoreBlock {
			if !strings.Contains(line, "-->") {
				continue
			}
			// A header directly followed by a timing line still opens a cue.
			ignoreBlock = false
		}
		if blockStart {
			blockStart = false
			if isMetadataBlock(line) {
				ignoreBlock = true
				continue
			}
		}
		if strings.Contains(line, "-->") {
			p.flush()
			p.startCue(lineNo, line)
			continue
		}
		if p.skipping {
			continue
		}
		if p.current == nil {
			// Cue identifiers and SRT indices precede the timing line.
			continue
		}
		p.current.text = append(p.current.text, line)
	}
	if err := scanner.Err(); err != nil {
		return Track{}, fmt.Errorf("read subtitle track: %w", err)
	}
	p.flush()
	return p.track, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(content string) Track {
	track, _ := Parse(strings.NewReader(content))
	return track
}

// ParseFile parses the track at path and logs each skipped cue.
func ParseFile(path string, logger *slog.Logger) (Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Track{}, fmt.Errorf("read vtt: %w", err)
	}
	track, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Track{}, err
	}
	if logger != nil {
		for _, defect := range track.Defects {
			logger.Warn("skipping subtitle cue",
				slog.String("file", path),
				slog.Int("line", defect.Line),
				slog.String("reason", defect.Error()),
			)
		}
	}
	return track, nil
}

func isMetadataBlock(line string) bool {
	if line == "WEBVTT" || strings.HasPrefix(line, "WEBVTT ") || strings.HasPrefix(line, "WEBVTT\t") {
		return true
	}
	for _, prefix := range []string{"NOTE", "STYLE", "REGION"} {
		if line == prefix || strings.HasPrefix(line, prefix+" ") || strings.HasPrefix(line, prefix+"\t") {
			return true
		}
	}
	return false
}

func (p *parser) startCue(lineNo int, line string) {
	startText, endText, _ := strings.Cut(line, "-->")
	// Cue settings (align:, position:) follow the end timestamp.
	if fields := strings.Fields(endText); len(fields) > 0 {
		endText = fields[0]
	}
	start, err := ParseTimestamp(startText)
	if err != nil {
		p.reject(lineNo, ErrMalformedTimestamp, fmt.Sprintf("start %q", strings.TrimSpace(startText)))
		return
	}
	end, err := ParseTimestamp(endText)
	if err != nil {
		p.reject(lineNo, ErrMalformedTimestamp, fmt.Sprintf("end %q", strings.TrimSpace(endText)))
		return
	}
	if end <= start {
		p.reject(lineNo, ErrMalformedTimestamp, fmt.Sprintf("end %s not after start %s", FormatTimestamp(end), FormatTimestamp(start)))
		return
	}
	p.skipping = false
	p.current = &pendingCue{line: lineNo, start: start, end: end}
}

func (p *parser) reject(lineNo int, kind error, detail string) {
	p.current = nil
	p.skipping = true
	p.track.Defects = append(p.track.Defects, &CueError{Line: lineNo, Err: kind, Detail: detail})
}

func (p *parser) flush() {
	cue := p.current
	p.current = nil
	if cue == nil {
		return
	}
	text := strings.Join(cue.text, " ")
	if strings.TrimSpace(text) == "" {
		p.track.Defects = append(p.track.Defects, &CueError{Line: cue.line, Err: ErrEmptyCueText})
		return
	}
	p.track.Cues = append(p.track.Cues, Cue{Start: cue.start, End: cue.end, Text: text})
}
