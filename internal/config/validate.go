package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateNoise(); err != nil {
		return err
	}
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateTestset(); err != nil {
		return err
	}
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateStress(); err != nil {
		return err
	}
	if err := c.validateEvaluation(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateChunking() error {
	if len(c.Chunking.ChunkSizesSeconds) == 0 {
		return errors.New("chunking.chunk_sizes_seconds must list at least one size")
	}
	for _, size := range c.Chunking.ChunkSizesSeconds {
		if size <= 0 {
			return fmt.Errorf("chunking.chunk_sizes_seconds: %v must be positive", size)
		}
	}
	if c.Chunking.SampleRate <= 0 {
		return errors.New("chunking.sample_rate must be positive")
	}
	if c.Chunking.Workers < 0 {
		return errors.New("chunking.workers must be zero (auto) or positive")
	}
	if len(c.Chunking.TranscriptSuffixes) == 0 {
		return errors.New("chunking.transcript_suffixes must list at least one suffix")
	}
	return nil
}

func (c *Config) validateNoise() error {
	for _, level := range c.Noise.LevelsPercent {
		if level < 0 || level > maxNoiseLevelPercent {
			return fmt.Errorf("noise.levels_percent: %d must be between 0 and %d", level, maxNoiseLevelPercent)
		}
	}
	return nil
}

func (c *Config) validateSampling() error {
	if c.Sampling.PerCategory <= 0 {
		return errors.New("sampling.per_category must be positive")
	}
	return nil
}

func (c *Config) validateTestset() error {
	if c.Testset.PerCategory < 0 {
		return errors.New("testset.per_category must not be negative")
	}
	if strings.ContainsAny(c.Testset.Suite, `/\`) || strings.HasPrefix(c.Testset.Suite, ".") {
		return fmt.Errorf("testset.suite %q must be a plain folder name", c.Testset.Suite)
	}
	return nil
}

func (c *Config) validateProvider() error {
	if c.Provider.TimeoutSeconds <= 0 {
		return errors.New("provider.timeout_seconds must be positive")
	}
	if c.Provider.Concurrency <= 0 {
		return errors.New("provider.concurrency must be positive")
	}
	if c.Provider.Endpoint != "" {
		u, err := url.Parse(c.Provider.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("provider.endpoint %q must be an absolute URL", c.Provider.Endpoint)
		}
	}
	return nil
}

func (c *Config) validateStress() error {
	if len(c.Stress.Stages) == 0 {
		return errors.New("stress.stages must list at least one concurrency level")
	}
	for _, stage := range c.Stress.Stages {
		if stage <= 0 {
			return fmt.Errorf("stress.stages: %d must be positive", stage)
		}
	}
	if c.Stress.StageDurationSeconds <= 0 {
		return errors.New("stress.stage_duration_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEvaluation() error {
	if slices.Contains(c.Evaluation.CharacterLanguages, "") {
		return errors.New("evaluation.character_languages must not contain empty entries")
	}
	for name, path := range c.Evaluation.Vocabularies {
		if name == "" || strings.ContainsAny(name, ": \t") {
			return fmt.Errorf("evaluation.vocabularies: name %q must be non-empty without spaces or colons", name)
		}
		if path == "" {
			return fmt.Errorf("evaluation.vocabularies.%s: path is required", name)
		}
	}
	if c.Evaluation.HypothesisExt == c.Evaluation.ReferenceExt {
		return errors.New("evaluation.hypothesis_ext and evaluation.reference_ext must differ")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}
