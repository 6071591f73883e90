// Package metrics scores speech-to-text hypotheses against reference
// transcripts and aggregates the scores by category.
//
// Error rate is the token edit distance divided by the reference token count.
// Tokens are words for space-delimited scripts and characters for scripts
// without word boundaries; the caller chooses the mode per language. Error
// rates are never clamped: a long spurious hypothesis can push the error rate
// past 1 and the recognition rate below 0, and both values are kept as-is.
//
// Aggregates are always rebuilt from the complete record slice. Nothing in
// this package keeps running sums.
package metrics
