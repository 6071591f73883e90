// Package audio holds decoded PCM audio and slices it into fixed-length chunks.
//
// Decoding and resampling belong to ffmpeg (see internal/media/ffmpeg); this
// package only reads and writes the mono PCM WAV files ffmpeg produces and
// computes chunk windows over them.
//
// Key types:
//   - Buffer: mono float samples tagged with a sample rate
//   - Window: a [Start, End) time range within a source file
//   - Chunk: a window plus the samples it covers
//
// Primary entry points:
//   - PlanWindows: contiguous fixed-size windows over a duration
//   - Segment: windows plus sample slices for a buffer
//   - ReadWAV / WriteWAV: PCM file I/O
package audio
