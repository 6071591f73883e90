package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the dataset tree locations.
type Paths struct {
	DatasetDir string `toml:"dataset_dir"`
	NoisyDir   string `toml:"noisy_dir"`
	ChunkedDir string `toml:"chunked_dir"`
	SampledDir string `toml:"sampled_dir"`
	TestsetDir string `toml:"testset_dir"`
	ReportDir  string `toml:"report_dir"`
	StateDir   string `toml:"state_dir"`
}

// Chunking contains configuration for fixed-length chunk generation.
type Chunking struct {
	ChunkSizesSeconds  []float64 `toml:"chunk_sizes_seconds"`
	SampleRate         int       `toml:"sample_rate"`
	Workers            int       `toml:"workers"`
	TranscriptSuffixes []string  `toml:"transcript_suffixes"`
}

// Noise contains configuration for synthetic background noise.
type Noise struct {
	MasterNoiseFile string `toml:"master_noise_file"`
	LevelsPercent   []int  `toml:"levels_percent"`
	Bitrate         string `toml:"bitrate"`
}

// Sampling contains configuration for per-category test sampling.
type Sampling struct {
	PerCategory int    `toml:"per_category"`
	Seed        uint64 `toml:"seed"`
}

// Testset contains configuration for curating the evaluation tree from
// chunked audio.
type Testset struct {
	// MetadataFile lists each video's language and accent.
	MetadataFile string `toml:"metadata_file"`
	Suite        string `toml:"suite"`
	// PerCategory caps the chunks copied into each category; 0 keeps all.
	PerCategory int    `toml:"per_category"`
	Seed        uint64 `toml:"seed"`
}

// Provider contains configuration for the speech-to-text endpoint.
type Provider struct {
	Name               string            `toml:"name"`
	Endpoint           string            `toml:"endpoint"`
	APIKey             string            `toml:"api_key"`
	LanguageMap        map[string]string `toml:"language_map"`
	TimeoutSeconds     int               `toml:"timeout_seconds"`
	Concurrency        int               `toml:"concurrency"`
	InsecureSkipVerify bool              `toml:"insecure_skip_verify"`
}

// Stress contains configuration for stepped-concurrency load tests.
type Stress struct {
	// Stages lists the concurrent call counts, run in order.
	Stages               []int `toml:"stages"`
	StageDurationSeconds int   `toml:"stage_duration_seconds"`
}

// Evaluation contains configuration for scoring hypotheses.
type Evaluation struct {
	// CharacterLanguages lists languages scored per character rather than per
	// word. An entry matches a full folder language or its base name.
	CharacterLanguages []string `toml:"character_languages"`
	VocabularyFile     string   `toml:"vocabulary_file"`
	// Vocabularies maps a vocabulary name to a term list file. Each one is
	// scored as its own metric next to VocabularyFile.
	Vocabularies  map[string]string `toml:"vocabularies"`
	HypothesisExt string            `toml:"hypothesis_ext"`
	ReferenceExt  string            `toml:"reference_ext"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sttbench.
//
// Configuration sections by subsystem:
//   - Paths: dataset, noisy, chunked, sampled, testset, report, and state trees
//   - Chunking: chunk sizes, decode sample rate, worker fan-out
//   - Noise: master noise track and mix levels
//   - Sampling: files per chunk category and RNG seed
//   - Testset: video metadata and per-category caps for the curated tree
//   - Provider: STT endpoint, credentials, language codes
//   - Stress: load-test stages
//   - Evaluation: tokenization and vocabulary settings
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Chunking   Chunking   `toml:"chunking"`
	Noise      Noise      `toml:"noise"`
	Sampling   Sampling   `toml:"sampling"`
	Testset    Testset    `toml:"testset"`
	Provider   Provider   `toml:"provider"`
	Stress     Stress     `toml:"stress"`
	Evaluation Evaluation `toml:"evaluation"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sttbench.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the batch commands write into.
// The dataset and testset trees are inputs and are left alone.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.NoisyDir, c.Paths.ChunkedDir, c.Paths.SampledDir, c.Paths.ReportDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for decoding and mixing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// ResultsDBPath returns the sqlite database location inside the state directory.
func (c *Config) ResultsDBPath() string {
	return filepath.Join(c.Paths.StateDir, "results.db")
}

// ResultsLockPath returns the lock file guarding writes to the results store.
func (c *Config) ResultsLockPath() string {
	return filepath.Join(c.Paths.StateDir, "results.lock")
}

// LogPath returns the log file written by commands alongside console output.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "sttbench.log")
}

// ProviderLanguage maps a category language such as "Cantonese-HK" to the
// provider's language code. The second value is false when no mapping exists.
func (c *Config) ProviderLanguage(language string) (string, bool) {
	code, ok := c.Provider.LanguageMap[language]
	if ok {
		return code, true
	}
	// Folder names for number variants carry a suffix the map does not.
	code, ok = c.Provider.LanguageMap[strings.TrimSuffix(language, "-Numbers")]
	return code, ok
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	redacted := *c
	if redacted.Provider.APIKey != "" {
		redacted.Provider.APIKey = "********"
	}
	data, err := toml.Marshal(redacted)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
