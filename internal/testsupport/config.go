package testsupport

import (
	"path/filepath"
	"testing"

	"fecclean/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Logging goes to the console handler at error level so test output stays quiet.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RawDir = filepath.Join(base, "raw")
	cfgVal.Paths.CleanedDir = filepath.Join(base, "cleaned")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.FEC.APIKey = "test"
	cfgVal.FEC.BaseURL = "http://127.0.0.1:0"
	cfgVal.Logging.Level = "error"

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

// WithFECServer points the fetcher at a test server.
func WithFECServer(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FEC.BaseURL = url
	}
}

// WithColumns restricts cleaning to the named columns.
func WithColumns(columns ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cleaning.Columns = append([]string(nil), columns...)
	}
}

// WithPasses replaces the default light/deep/loose passes.
func WithPasses(passes ...config.Pass) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cleaning.Passes = append([]config.Pass(nil), passes...)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
