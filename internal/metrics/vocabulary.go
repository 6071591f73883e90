package metrics

import (
	"strings"

	"golang.org/x/text/cases"
)

var caseFold = cases.Fold()

// vocabularySep joins the vocabulary metric name and a vocabulary name.
const vocabularySep = ":"

// Vocabulary is a named list of domain terms. The unnamed vocabulary reports
// under MetricVocabularyAccuracy.
type Vocabulary struct {
	Name  string
	Terms []string
}

// Metric returns the metric name accuracy against v is recorded under.
func (v Vocabulary) Metric() string {
	return VocabularyMetric(v.Name)
}

// VocabularyMetric maps a vocabulary name to its metric name, for example
// "vocabulary_accuracy:profanity".
func VocabularyMetric(name string) string {
	if name == "" {
		return MetricVocabularyAccuracy
	}
	return MetricVocabularyAccuracy + vocabularySep + name
}

// VocabularyName reverses VocabularyMetric. ok is false for other metrics.
func VocabularyName(metric string) (name string, ok bool) {
	if metric == MetricVocabularyAccuracy {
		return "", true
	}
	return strings.CutPrefix(metric, MetricVocabularyAccuracy+vocabularySep)
}

// VocabularyResult reports how many listed terms the reference contains and
// how many of those the hypothesis reproduced.
type VocabularyResult struct {
	InReference []string
	Matched     []string
}

// Defined reports whether any vocabulary term occurs in the reference.
func (v VocabularyResult) Defined() bool {
	return len(v.InReference) > 0
}

// Accuracy returns Matched/InReference. The second value is false when no
// term occurs in the reference.
func (v VocabularyResult) Accuracy() (float64, bool) {
	if !v.Defined() {
		return 0, false
	}
	return float64(len(v.Matched)) / float64(len(v.InReference)), true
}

// VocabularyAccuracy checks each term for case-insensitive containment in the
// reference and then in the hypothesis.
func VocabularyAccuracy(groundTruth, hypothesis string, vocabulary []string) VocabularyResult {
	var result VocabularyResult
	if len(vocabulary) == 0 {
		return result
	}
	gt := caseFold.String(groundTruth)
	hyp := caseFold.String(hypothesis)
	for _, term := range vocabulary {
		folded := caseFold.String(strings.TrimSpace(term))
		if folded == "" || !strings.Contains(gt, folded) {
			continue
		}
		result.InReference = append(result.InReference, term)
		if strings.Contains(hyp, folded) {
			result.Matched = append(result.Matched, term)
		}
	}
	return result
}
