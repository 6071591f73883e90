// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//
// Inspect is the entry point. The helpers on Result answer the questions the
// dataset commands ask before decoding: does the file carry audio, how long
// is it, and at what rate was it recorded.
package ffprobe
