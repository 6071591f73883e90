// Package provider sends test audio to a speech-to-text service and writes
// the returned transcripts as hypothesis files.
//
// # HTTP provider
//
// HTTPProvider posts {"config":{"languageCode":...},"audio":{"content":<base64>}}
// and joins results[].alternatives[0].transcript with newlines. A successful
// call with no transcript yields NoSpeech. Failed calls are retried on HTTP
// 408/429/5xx and network timeouts with exponential backoff, then surface as
// ErrProvider.
//
// # Batch
//
// Transcriber walks test-set items, resolves each item's provider language,
// and writes <stem>.<method>.txt next to the audio. A failed call still writes
// a hypothesis (ErrorHypothesis) so the failure is visible in the scores.
// Latency is measured per successful call.
package provider
