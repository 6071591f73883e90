package preflight

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"sttbench/internal/config"
	"sttbench/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Stage names the pipeline step a check set is for.
type Stage string

const (
	StageNoise      Stage = "noise"
	StageChunk      Stage = "chunk"
	StageSample     Stage = "sample"
	StageTestset    Stage = "testset"
	StageTranscribe Stage = "transcribe"
	StageStress     Stage = "stress"
	StageEvaluate   Stage = "evaluate"
)

// RunFor executes the checks stage needs.
func RunFor(ctx context.Context, cfg *config.Config, stage Stage) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	switch stage {
	case StageNoise:
		results = append(results, binaryResults(CheckSystemDeps(ctx, cfg))...)
		results = append(results, CheckDirectoryReadable("Dataset directory", cfg.Paths.DatasetDir))
		results = append(results, CheckDirectoryAccess("Noisy directory", cfg.Paths.NoisyDir))
		if hasNoisyLevel(cfg.Noise.LevelsPercent) {
			results = append(results, CheckFileReadable("Master noise file", cfg.Noise.MasterNoiseFile))
		}
	case StageChunk:
		results = append(results, CheckDirectoryReadable("Dataset directory", cfg.Paths.DatasetDir))
		results = append(results, CheckDirectoryReadable("Noisy directory", cfg.Paths.NoisyDir))
		results = append(results, CheckDirectoryAccess("Chunked directory", cfg.Paths.ChunkedDir))
	case StageSample:
		results = append(results, CheckDirectoryReadable("Chunked directory", cfg.Paths.ChunkedDir))
		results = append(results, CheckDirectoryAccess("Sampled directory", cfg.Paths.SampledDir))
	case StageTestset:
		results = append(results, CheckDirectoryReadable("Chunked directory", cfg.Paths.ChunkedDir))
		results = append(results, CheckFileReadable("Metadata file", cfg.Testset.MetadataFile))
		results = append(results, CheckDirectoryAccess("Test set directory", cfg.Paths.TestsetDir))
	case StageTranscribe:
		results = append(results, CheckDirectoryAccess("Test set directory", cfg.Paths.TestsetDir))
		results = append(results, CheckEndpoint(ctx, cfg.Provider.Endpoint, cfg.Provider.APIKey))
	case StageStress:
		results = append(results, CheckDirectoryReadable("Test set directory", cfg.Paths.TestsetDir))
		results = append(results, CheckEndpoint(ctx, cfg.Provider.Endpoint, cfg.Provider.APIKey))
	case StageEvaluate:
		results = append(results, CheckDirectoryReadable("Test set directory", cfg.Paths.TestsetDir))
		if cfg.Evaluation.VocabularyFile != "" {
			results = append(results, CheckFileReadable("Vocabulary file", cfg.Evaluation.VocabularyFile))
		}
		for _, name := range slices.Sorted(maps.Keys(cfg.Evaluation.Vocabularies)) {
			results = append(results, CheckFileReadable("Vocabulary "+name, cfg.Evaluation.Vocabularies[name]))
		}
	}
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	return results
}

// RunAll executes every check.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []Result
	for _, stage := range []Stage{StageNoise, StageChunk, StageSample, StageTestset, StageTranscribe, StageEvaluate} {
		for _, r := range RunFor(ctx, cfg, stage) {
			if seen[r.Name] {
				continue
			}
			seen[r.Name] = true
			out = append(out, r)
		}
	}
	return out
}

// FirstFailure returns the first failed result as an error, or nil.
func FirstFailure(results []Result) error {
	for _, r := range results {
		if !r.Passed {
			return fmt.Errorf("preflight %s: %s", r.Name, r.Detail)
		}
	}
	return nil
}

func binaryResults(statuses []deps.Status) []Result {
	out := make([]Result, 0, len(statuses))
	for _, s := range statuses {
		r := Result{Name: s.Name, Passed: s.Available || s.Optional, Detail: s.Detail}
		if s.Available {
			r.Detail = s.Command
			if s.Version != "" {
				r.Detail = s.Version
			}
		}
		out = append(out, r)
	}
	return out
}

func hasNoisyLevel(levels []int) bool {
	for _, l := range levels {
		if l > 0 {
			return true
		}
	}
	return false
}
