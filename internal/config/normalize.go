package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCleaning()
	c.normalizeFEC()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RawDir) == "" {
		c.Paths.RawDir = defaultRawDir
	}
	if c.Paths.RawDir, err = expandPath(strings.TrimSpace(c.Paths.RawDir)); err != nil {
		return fmt.Errorf("paths.raw_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CleanedDir) == "" {
		c.Paths.CleanedDir = defaultCleanedDir
	}
	if c.Paths.CleanedDir, err = expandPath(strings.TrimSpace(c.Paths.CleanedDir)); err != nil {
		return fmt.Errorf("paths.cleaned_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCleaning() {
	if c.Cleaning.NGramSize == 0 {
		c.Cleaning.NGramSize = defaultNGramSize
	}
	if c.Cleaning.TopK == 0 {
		c.Cleaning.TopK = defaultTopK
	}
	if len(c.Cleaning.Columns) > 0 {
		cols := make([]string, 0, len(c.Cleaning.Columns))
		seen := make(map[string]struct{}, len(c.Cleaning.Columns))
		for _, col := range c.Cleaning.Columns {
			col = strings.TrimSpace(col)
			if col == "" {
				continue
			}
			if _, exists := seen[col]; exists {
				continue
			}
			seen[col] = struct{}{}
			cols = append(cols, col)
		}
		c.Cleaning.Columns = cols
	}
	if len(c.Cleaning.Passes) == 0 {
		c.Cleaning.Passes = DefaultPasses()
	}
	for i := range c.Cleaning.Passes {
		c.Cleaning.Passes[i].Name = strings.ToLower(strings.TrimSpace(c.Cleaning.Passes[i].Name))
	}
}

func (c *Config) normalizeFEC() {
	c.FEC.APIKey = strings.TrimSpace(c.FEC.APIKey)
	if c.FEC.APIKey == "" {
		if value, ok := os.LookupEnv("FEC_API_KEY"); ok {
			c.FEC.APIKey = strings.TrimSpace(value)
		}
	}
	if c.FEC.APIKey == "" {
		c.FEC.APIKey = defaultFECAPIKey
	}
	c.FEC.BaseURL = strings.TrimRight(strings.TrimSpace(c.FEC.BaseURL), "/")
	if c.FEC.BaseURL == "" {
		c.FEC.BaseURL = defaultFECBaseURL
	}
	c.FEC.Cycle = strings.TrimSpace(c.FEC.Cycle)
	if c.FEC.Cycle == "" {
		c.FEC.Cycle = defaultFECCycle
	}
	c.FEC.CommitteeType = strings.TrimSpace(c.FEC.CommitteeType)
	if c.FEC.CommitteeType == "" {
		c.FEC.CommitteeType = defaultFECCommitteeType
	}
	if c.FEC.PerPage == 0 {
		c.FEC.PerPage = defaultFECPerPage
	}
	if c.FEC.HourlyQuota == 0 {
		c.FEC.HourlyQuota = defaultFECHourlyQuota
	}
	if c.FEC.RequestTimeout == 0 {
		c.FEC.RequestTimeout = defaultFECRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
