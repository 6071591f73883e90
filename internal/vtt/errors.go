package vtt

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTimestamp marks a timing line whose timestamps cannot be decomposed.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrEmptyCueText marks a timing line that is not followed by any text.
	ErrEmptyCueText = errors.New("empty cue text")
)

// CueError describes a recoverable defect found while parsing a track.
type CueError struct {
	Line   int
	Detail string
	Err    error
}

func (e *CueError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %v: %s", e.Line, e.Err, e.Detail)
}

func (e *CueError) Unwrap() error {
	return e.Err
}
