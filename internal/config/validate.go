package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCleaning(); err != nil {
		return err
	}
	if err := c.validatePasses(); err != nil {
		return err
	}
	if err := c.validateFEC(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCleaning() error {
	if c.Cleaning.NGramSize < 1 {
		return errors.New("cleaning.ngram_size must be at least 1")
	}
	if c.Cleaning.TopK < 1 {
		return errors.New("cleaning.top_k must be at least 1")
	}
	if c.Cleaning.Workers < 0 {
		return errors.New("cleaning.workers must be >= 0 (0 uses every CPU)")
	}
	return nil
}

func (c *Config) validatePasses() error {
	if len(c.Cleaning.Passes) == 0 {
		return errors.New("cleaning.passes must include at least one pass")
	}
	seen := make(map[string]struct{}, len(c.Cleaning.Passes))
	for i, pass := range c.Cleaning.Passes {
		if pass.Name == "" {
			return fmt.Errorf("cleaning.passes[%d].name must be set", i)
		}
		if strings.ContainsAny(pass.Name, `/\ `) {
			return fmt.Errorf("cleaning.passes[%d].name %q must not contain spaces or path separators", i, pass.Name)
		}
		if _, dup := seen[pass.Name]; dup {
			return fmt.Errorf("cleaning.passes: duplicate pass name %q", pass.Name)
		}
		seen[pass.Name] = struct{}{}
		if pass.Floor < 0 || pass.Floor > 1 {
			return fmt.Errorf("cleaning.passes[%d].floor must be between 0 and 1", i)
		}
	}
	return nil
}

func (c *Config) validateFEC() error {
	if c.FEC.PerPage < 1 || c.FEC.PerPage > 100 {
		return errors.New("fec.per_page must be between 1 and 100")
	}
	if err := ensurePositiveMap(map[string]int{
		"fec.hourly_quota":    c.FEC.HourlyQuota,
		"fec.request_timeout": c.FEC.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.FEC.QuotaSleepSeconds < 0 {
		return errors.New("fec.quota_sleep_seconds must be >= 0")
	}
	if c.FEC.MaxPages < 0 {
		return errors.New("fec.max_pages must be >= 0 (0 fetches every page)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
