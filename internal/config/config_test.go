package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"fecclean/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	t.Setenv("FEC_API_KEY", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantRaw := filepath.Join(tempHome, ".local", "share", "fecclean", "raw")
	if cfg.Paths.RawDir != wantRaw {
		t.Fatalf("unexpected raw dir: got %q want %q", cfg.Paths.RawDir, wantRaw)
	}
	if cfg.DatabasePath() != filepath.Join(tempHome, ".local", "share", "fecclean", "state", "fecclean.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Cleaning.NGramSize != 3 || cfg.Cleaning.TopK != 10 {
		t.Fatalf("unexpected cleaning defaults: %+v", cfg.Cleaning)
	}
	if len(cfg.Cleaning.Passes) != 3 {
		t.Fatalf("expected three default passes, got %+v", cfg.Cleaning.Passes)
	}
	if pass, ok := cfg.Pass("Deep"); !ok || pass.Floor != 0.9 {
		t.Fatalf("Pass(deep) = %+v, %v", pass, ok)
	}
	if cfg.FEC.APIKey != "DEMO_KEY" {
		t.Fatalf("expected DEMO_KEY fallback, got %q", cfg.FEC.APIKey)
	}
	if cfg.FEC.HourlyQuota != 1000 || cfg.QuotaSleep().Hours() != 1 {
		t.Fatalf("unexpected quota defaults: %+v", cfg.FEC)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CleanedDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPathReplacesPasses(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "fecclean.toml")

	type pass struct {
		Name  string  `toml:"name"`
		Floor float64 `toml:"floor"`
	}
	type payload struct {
		Cleaning struct {
			NGramSize int      `toml:"ngram_size"`
			Columns   []string `toml:"columns"`
			Passes    []pass   `toml:"passes"`
		} `toml:"cleaning"`
		FEC struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"fec"`
	}
	custom := payload{}
	custom.Cleaning.NGramSize = 2
	custom.Cleaning.Columns = []string{" contributor_city ", "contributor_city", ""}
	custom.Cleaning.Passes = []pass{{Name: " Strict ", Floor: 0.99}}
	custom.FEC.APIKey = "abc123"
	custom.FEC.BaseURL = "https://example.com/v1/"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Cleaning.NGramSize != 2 {
		t.Fatalf("expected ngram size 2, got %d", cfg.Cleaning.NGramSize)
	}
	if len(cfg.Cleaning.Columns) != 1 || cfg.Cleaning.Columns[0] != "contributor_city" {
		t.Fatalf("expected deduplicated columns, got %q", cfg.Cleaning.Columns)
	}
	if len(cfg.Cleaning.Passes) != 1 || cfg.Cleaning.Passes[0].Name != "strict" {
		t.Fatalf("expected file passes to replace defaults, got %+v", cfg.Cleaning.Passes)
	}
	if cfg.FEC.APIKey != "abc123" {
		t.Fatalf("expected FEC key from file, got %q", cfg.FEC.APIKey)
	}
	if cfg.FEC.BaseURL != "https://example.com/v1" {
		t.Fatalf("expected trimmed base url, got %q", cfg.FEC.BaseURL)
	}
}

func TestEnvVarFillsMissingAPIKey(t *testing.T) {
	t.Setenv("FEC_API_KEY", "env-key")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.FEC.APIKey != "env-key" {
		t.Fatalf("expected FEC key from env, got %q", cfg.FEC.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_fec_api_key_here") {
		t.Fatalf("sample config missing placeholder FEC key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if len(cfg.Cleaning.Passes) != 3 {
		t.Fatalf("expected three passes in sample, got %+v", cfg.Cleaning.Passes)
	}
	if !strings.Contains(cfg.Paths.StateDir, "fecclean") {
		t.Fatalf("expected state dir to contain fecclean, got %q", cfg.Paths.StateDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"ngram size":     func(c *config.Config) { c.Cleaning.NGramSize = 0 },
		"top k":          func(c *config.Config) { c.Cleaning.TopK = -1 },
		"workers":        func(c *config.Config) { c.Cleaning.Workers = -2 },
		"floor high":     func(c *config.Config) { c.Cleaning.Passes[0].Floor = 1.5 },
		"floor negative": func(c *config.Config) { c.Cleaning.Passes[1].Floor = -0.1 },
		"duplicate pass": func(c *config.Config) { c.Cleaning.Passes[2].Name = "light" },
		"pass separator": func(c *config.Config) { c.Cleaning.Passes[0].Name = "a/b" },
		"no passes":      func(c *config.Config) { c.Cleaning.Passes = nil },
		"per page":       func(c *config.Config) { c.FEC.PerPage = 500 },
		"quota":          func(c *config.Config) { c.FEC.HourlyQuota = 0 },
		"log format":     func(c *config.Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
