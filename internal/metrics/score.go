package metrics

import (
	"errors"
)

// ErrDegenerateReference marks a pair whose reference has no tokens. Such
// pairs are excluded from aggregates and counted separately.
var ErrDegenerateReference = errors.New("degenerate reference")

// Score holds the per-pair accuracy figures.
type Score struct {
	Mode            TokenMode
	RefTokens       int
	HypTokens       int
	Distance        int
	ErrorRate       float64
	RecognitionRate float64
	SentenceError   float64
}

// ScorePair compares a hypothesis with its reference. Provider failure text is
// scored like any other hypothesis.
func ScorePair(groundTruth, hypothesis string, mode TokenMode) (Score, error) {
	ref := Tokenize(groundTruth, mode)
	hyp := Tokenize(hypothesis, mode)
	score := Score{Mode: mode, RefTokens: len(ref), HypTokens: len(hyp)}
	if len(ref) == 0 {
		return score, ErrDegenerateReference
	}
	score.Distance = EditDistance(ref, hyp)
	score.ErrorRate = float64(score.Distance) / float64(len(ref))
	score.RecognitionRate = 1 - score.ErrorRate
	if score.ErrorRate > 0 {
		score.SentenceError = 1
	}
	return score, nil
}
