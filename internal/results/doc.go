// Package results persists evaluation and transcription runs in SQLite.
//
// A run is one invocation of `sttbench evaluate` or `sttbench transcribe`.
// Evaluate runs own scored records; transcribe runs own per-call latencies.
// Reports always reload a run's full record set and re-aggregate it, so
// stored aggregates never drift from the records they summarize.
//
// Writers hold an exclusive file lock (results.lock) for the duration of a
// run. The schema is versioned; a mismatched database must be removed.
package results
