package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeChunking()
	if err := c.normalizeNoise(); err != nil {
		return err
	}
	if err := c.normalizeTestset(); err != nil {
		return err
	}
	c.normalizeProvider()
	c.normalizeStress()
	if err := c.normalizeEvaluation(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.dataset_dir", &c.Paths.DatasetDir, defaultDatasetDir},
		{"paths.noisy_dir", &c.Paths.NoisyDir, defaultNoisyDir},
		{"paths.chunked_dir", &c.Paths.ChunkedDir, defaultChunkedDir},
		{"paths.sampled_dir", &c.Paths.SampledDir, defaultSampledDir},
		{"paths.testset_dir", &c.Paths.TestsetDir, defaultTestsetDir},
		{"paths.report_dir", &c.Paths.ReportDir, defaultReportDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeChunking() {
	sizes := slices.Clone(c.Chunking.ChunkSizesSeconds)
	slices.Sort(sizes)
	c.Chunking.ChunkSizesSeconds = slices.Compact(sizes)
	if c.Chunking.SampleRate == 0 {
		c.Chunking.SampleRate = defaultSampleRate
	}
	suffixes := make([]string, 0, len(c.Chunking.TranscriptSuffixes))
	for _, suffix := range c.Chunking.TranscriptSuffixes {
		suffix = strings.TrimSpace(suffix)
		if suffix == "" {
			continue
		}
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		suffixes = append(suffixes, suffix)
	}
	c.Chunking.TranscriptSuffixes = suffixes
}

func (c *Config) normalizeNoise() error {
	c.Noise.MasterNoiseFile = strings.TrimSpace(c.Noise.MasterNoiseFile)
	if c.Noise.MasterNoiseFile != "" {
		expanded, err := expandPath(c.Noise.MasterNoiseFile)
		if err != nil {
			return fmt.Errorf("noise.master_noise_file: %w", err)
		}
		c.Noise.MasterNoiseFile = expanded
	}
	levels := slices.Clone(c.Noise.LevelsPercent)
	slices.Sort(levels)
	c.Noise.LevelsPercent = slices.Compact(levels)
	c.Noise.Bitrate = strings.TrimSpace(c.Noise.Bitrate)
	if c.Noise.Bitrate == "" {
		c.Noise.Bitrate = defaultNoiseBitrate
	}
	return nil
}

func (c *Config) normalizeTestset() error {
	c.Testset.MetadataFile = strings.TrimSpace(c.Testset.MetadataFile)
	if c.Testset.MetadataFile != "" {
		expanded, err := expandPath(c.Testset.MetadataFile)
		if err != nil {
			return fmt.Errorf("testset.metadata_file: %w", err)
		}
		c.Testset.MetadataFile = expanded
	}
	c.Testset.Suite = strings.TrimSpace(c.Testset.Suite)
	if c.Testset.Suite == "" {
		c.Testset.Suite = defaultTestsetSuite
	}
	return nil
}

func (c *Config) normalizeProvider() {
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	if c.Provider.Name == "" {
		c.Provider.Name = defaultProviderName
	}
	c.Provider.Endpoint = strings.TrimSpace(c.Provider.Endpoint)
	c.Provider.APIKey = strings.TrimSpace(c.Provider.APIKey)
	if c.Provider.APIKey == "" {
		if value, ok := os.LookupEnv("STT_API_KEY"); ok {
			c.Provider.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Provider.TimeoutSeconds == 0 {
		c.Provider.TimeoutSeconds = defaultProviderTimeout
	}
	if c.Provider.Concurrency == 0 {
		c.Provider.Concurrency = defaultConcurrency
	}
}

func (c *Config) normalizeStress() {
	if c.Stress.StageDurationSeconds == 0 {
		c.Stress.StageDurationSeconds = defaultStageDuration
	}
}

func (c *Config) normalizeEvaluation() error {
	langs := make([]string, 0, len(c.Evaluation.CharacterLanguages))
	for _, lang := range c.Evaluation.CharacterLanguages {
		langs = append(langs, strings.TrimSpace(lang))
	}
	c.Evaluation.CharacterLanguages = langs
	c.Evaluation.VocabularyFile = strings.TrimSpace(c.Evaluation.VocabularyFile)
	if c.Evaluation.VocabularyFile != "" {
		expanded, err := expandPath(c.Evaluation.VocabularyFile)
		if err != nil {
			return fmt.Errorf("evaluation.vocabulary_file: %w", err)
		}
		c.Evaluation.VocabularyFile = expanded
	}
	if len(c.Evaluation.Vocabularies) > 0 {
		vocabularies := make(map[string]string, len(c.Evaluation.Vocabularies))
		for name, path := range c.Evaluation.Vocabularies {
			expanded, err := expandPath(strings.TrimSpace(path))
			if err != nil {
				return fmt.Errorf("evaluation.vocabularies.%s: %w", name, err)
			}
			vocabularies[strings.TrimSpace(name)] = expanded
		}
		c.Evaluation.Vocabularies = vocabularies
	}
	c.Evaluation.HypothesisExt = normalizeExt(c.Evaluation.HypothesisExt, defaultHypothesisExt)
	c.Evaluation.ReferenceExt = normalizeExt(c.Evaluation.ReferenceExt, defaultReferenceExt)
	return nil
}

func normalizeExt(ext, fallback string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return fallback
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
