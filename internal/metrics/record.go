package metrics

import (
	"errors"

	"sttbench/internal/category"
)

// Metric names used in Record.Metrics and Aggregate.Means.
const (
	MetricErrorRate          = "error_rate"
	MetricRecognitionRate    = "recognition_rate"
	MetricSentenceError      = "sentence_error"
	MetricNumberAccuracy     = "number_accuracy"
	MetricVocabularyAccuracy = "vocabulary_accuracy"
	// MetricSegmentationAccuracy is recorded when the reference has at least
	// two cues.
	MetricSegmentationAccuracy = "segmentation_accuracy"
)

// Sample is one reference/hypothesis pair to score.
type Sample struct {
	ID          string
	Method      string
	Key         category.Key
	GroundTruth string
	// Segments holds the reference cue texts in order. Optional.
	Segments   []string
	Hypothesis string
}

// Record is the scored form of a Sample. Degenerate records carry no metrics
// but keep both texts.
type Record struct {
	SampleID    string
	Method      string
	Key         category.Key
	Mode        TokenMode
	Degenerate  bool
	GroundTruth string
	Hypothesis  string
	Metrics     map[string]float64
	// Vocabulary is keyed by vocabulary name and only lists vocabularies
	// with at least one term in the reference.
	Vocabulary map[string]VocabularyResult
	GTNumbers  []string
	HypNumbers []string
}

// Metric returns a named metric and whether the record defines it.
func (r Record) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[name]
	return v, ok
}

// Evaluator scores samples. Vocabularies may be empty.
type Evaluator struct {
	Tokenizer    *Tokenizer
	Vocabularies []Vocabulary
}

// Evaluate scores a single sample. Number accuracy is computed for number
// categories, vocabulary accuracy per vocabulary whenever one of its terms
// occurs in the reference, and segmentation accuracy when the sample carries
// two or more reference segments.
func (e Evaluator) Evaluate(sample Sample) Record {
	mode := e.Tokenizer.ModeFor(sample.Key.Language)
	record := Record{
		SampleID:    sample.ID,
		Method:      sample.Method,
		Key:         sample.Key,
		Mode:        mode,
		GroundTruth: sample.GroundTruth,
		Hypothesis:  sample.Hypothesis,
	}
	score, err := ScorePair(sample.GroundTruth, sample.Hypothesis, mode)
	if errors.Is(err, ErrDegenerateReference) {
		record.Degenerate = true
		return record
	}
	record.Metrics = map[string]float64{
		MetricErrorRate:       score.ErrorRate,
		MetricRecognitionRate: score.RecognitionRate,
		MetricSentenceError:   score.SentenceError,
	}
	if sample.Key.Numbers {
		record.GTNumbers = ExtractNumbers(sample.GroundTruth, mode)
		record.HypNumbers = ExtractNumbers(sample.Hypothesis, mode)
		record.Metrics[MetricNumberAccuracy] = NumberAccuracy(record.GTNumbers, record.HypNumbers)
	}
	for _, vocab := range e.Vocabularies {
		result := VocabularyAccuracy(sample.GroundTruth, sample.Hypothesis, vocab.Terms)
		acc, ok := result.Accuracy()
		if !ok {
			continue
		}
		if record.Vocabulary == nil {
			record.Vocabulary = make(map[string]VocabularyResult, len(e.Vocabularies))
		}
		record.Vocabulary[vocab.Name] = result
		record.Metrics[vocab.Metric()] = acc
	}
	if acc, ok := SegmentationAccuracy(sample.Segments, sample.Hypothesis); ok {
		record.Metrics[MetricSegmentationAccuracy] = acc
	}
	return record
}
