// Package vtt reads and writes WebVTT subtitle tracks.
//
// Parsing is tolerant: cues with malformed timestamps or without text are
// skipped and reported as defects so one bad cue never discards a whole
// machine-generated transcript. The writer emits the HH:MM:SS.mmm form used
// for per-chunk reference transcripts.
package vtt
