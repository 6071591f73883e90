package config

const (
	defaultConfigPath      = "~/.config/sttbench/config.toml"
	defaultDatasetDir      = "~/sttbench/dataset"
	defaultNoisyDir        = "~/sttbench/noisy"
	defaultChunkedDir      = "~/sttbench/chunked"
	defaultSampledDir      = "~/sttbench/sampled"
	defaultTestsetDir      = "~/sttbench/testset"
	defaultReportDir       = "~/sttbench/reports"
	defaultStateDir        = "~/.local/share/sttbench"
	defaultSampleRate      = 16000
	defaultNoiseBitrate    = "192k"
	defaultPerCategory     = 50
	defaultTestsetSuite    = "TC-1"
	defaultTestsetCap      = 100
	defaultProviderName    = "http"
	defaultProviderTimeout = 60
	defaultConcurrency     = 4
	defaultStageDuration   = 60
	defaultHypothesisExt   = ".txt"
	defaultReferenceExt    = ".vtt"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	maxNoiseLevelPercent   = 200
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DatasetDir: defaultDatasetDir,
			NoisyDir:   defaultNoisyDir,
			ChunkedDir: defaultChunkedDir,
			SampledDir: defaultSampledDir,
			TestsetDir: defaultTestsetDir,
			ReportDir:  defaultReportDir,
			StateDir:   defaultStateDir,
		},
		Chunking: Chunking{
			ChunkSizesSeconds:  []float64{8, 30, 60},
			SampleRate:         defaultSampleRate,
			TranscriptSuffixes: []string{".whisper.auto.vtt", ".vtt"},
		},
		Noise: Noise{
			LevelsPercent: []int{0, 25, 50, 75, 100},
			Bitrate:       defaultNoiseBitrate,
		},
		Sampling: Sampling{
			PerCategory: defaultPerCategory,
		},
		Testset: Testset{
			Suite:       defaultTestsetSuite,
			PerCategory: defaultTestsetCap,
		},
		Provider: Provider{
			Name:           defaultProviderName,
			TimeoutSeconds: defaultProviderTimeout,
			Concurrency:    defaultConcurrency,
			LanguageMap: map[string]string{
				"Cantonese-HK": "yue-Hant-HK",
				"English-HK":   "en-HK",
				"English-UK":   "en-GB",
				"English-US":   "en-US",
				"Mandarin-CN":  "cmn-Hans-CN",
				"Mandarin-TW":  "cmn-Hant-TW",
			},
		},
		Stress: Stress{
			Stages:               []int{2, 4, 8, 16},
			StageDurationSeconds: defaultStageDuration,
		},
		Evaluation: Evaluation{
			CharacterLanguages: []string{"Cantonese", "Mandarin"},
			HypothesisExt:      defaultHypothesisExt,
			ReferenceExt:       defaultReferenceExt,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
