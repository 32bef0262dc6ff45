package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RawDir     string `toml:"raw_dir"`
	CleanedDir string `toml:"cleaned_dir"`
	StateDir   string `toml:"state_dir"`
}

// Pass is one named similarity floor. Each pass produces its own output file.
type Pass struct {
	Name  string  `toml:"name"`
	Floor float64 `toml:"floor"`
}

// Cleaning contains the column driver parameters.
type Cleaning struct {
	NGramSize int      `toml:"ngram_size"`
	TopK      int      `toml:"top_k"`
	Workers   int      `toml:"workers"`
	Columns   []string `toml:"columns"`
	Passes    []Pass   `toml:"passes"`
}

// FEC contains configuration for the OpenFEC schedule_a fetcher.
type FEC struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	Cycle             string `toml:"cycle"`
	CommitteeType     string `toml:"committee_type"`
	PerPage           int    `toml:"per_page"`
	HourlyQuota       int    `toml:"hourly_quota"`
	QuotaSleepSeconds int    `toml:"quota_sleep_seconds"`
	RequestTimeout    int    `toml:"request_timeout"`
	MaxPages          int    `toml:"max_pages"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for fecclean.
//
// Configuration sections by subsystem:
//   - Paths: raw input, cleaned output, and state (history database, lock, logs)
//   - Cleaning: n-gram size, top-K, workers, target columns, and named passes
//   - FEC: OpenFEC API access and the hourly request quota
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Cleaning Cleaning `toml:"cleaning"`
	FEC      FEC      `toml:"fec"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fecclean/config.toml")
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

		// Passes listed in the file replace the defaults instead of extending them.
		cfg.Cleaning.Passes = nil
		decoder := toml.NewDecoder(file)
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fecclean.toml")
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

// EnsureDirectories creates the cleaned output and state directories.
// The raw directory is only read, so a missing one is reported by the batch
// runner instead.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CleanedDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite history database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "fecclean.db")
}

// LockPath returns the file guarding against concurrent batch runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "fecclean.lock")
}

// LogPath returns the log file written next to the history database.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "fecclean.log")
}

// Pass looks up a configured pass by name.
func (c *Config) Pass(name string) (Pass, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range c.Cleaning.Passes {
		if p.Name == name {
			return p, true
		}
	}
	return Pass{}, false
}

// QuotaSleep is how long the fetcher pauses once the hourly quota is spent.
func (c *Config) QuotaSleep() time.Duration {
	return time.Duration(c.FEC.QuotaSleepSeconds) * time.Second
}

// RequestTimeout bounds a single OpenFEC request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.FEC.RequestTimeout) * time.Second
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
