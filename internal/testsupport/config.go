package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sttbench/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose directories all live under a unique temp
// directory. Every directory is created before options run.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths = config.Paths{
		DatasetDir: filepath.Join(base, "dataset"),
		NoisyDir:   filepath.Join(base, "noisy"),
		ChunkedDir: filepath.Join(base, "chunked"),
		SampledDir: filepath.Join(base, "sampled"),
		TestsetDir: filepath.Join(base, "testset"),
		ReportDir:  filepath.Join(base, "reports"),
		StateDir:   filepath.Join(base, "state"),
	}
	cfgVal.Chunking.SampleRate = 1000
	cfgVal.Chunking.Workers = 2
	cfgVal.Provider.Endpoint = "http://127.0.0.1:0/transcribe"
	cfgVal.Provider.APIKey = "test"

	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, dir := range []string{cfgVal.Paths.DatasetDir, cfgVal.Paths.TestsetDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithEndpoint points the provider at endpoint.
func WithEndpoint(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provider.Endpoint = endpoint
	}
}

// WithChunkSizes overrides the chunk sizes in seconds.
func WithChunkSizes(sizes ...float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Chunking.ChunkSizesSeconds = sizes
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
