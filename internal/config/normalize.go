package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEnrichment()
	c.normalizeOptimizer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.Directory, err = expandPath(c.Paths.Directory); err != nil {
		return fmt.Errorf("paths.directory: %w", err)
	}
	if c.Paths.Locations, err = expandPath(c.Paths.Locations); err != nil {
		return fmt.Errorf("paths.locations: %w", err)
	}
	if strings.TrimSpace(c.Paths.Legacy) == "" && c.Paths.Directory != "" {
		c.Paths.Legacy = filepath.Join(c.Paths.Directory, "..", "cu")
	}
	if c.Paths.Legacy, err = expandPath(c.Paths.Legacy); err != nil {
		return fmt.Errorf("paths.legacy: %w", err)
	}
	if strings.TrimSpace(c.Journal.Path) == "" && c.Paths.Directory != "" {
		c.Journal.Path = filepath.Join(c.MetaDir(), "journal.db")
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeEnrichment() {
	c.Enrichment.BaseURL = strings.TrimRight(strings.TrimSpace(c.Enrichment.BaseURL), "/")
	if c.Enrichment.BaseURL == "" {
		c.Enrichment.BaseURL = defaultEnrichmentBaseURL
	}
	c.Enrichment.AccessToken = strings.TrimSpace(c.Enrichment.AccessToken)
	c.Enrichment.Email = strings.TrimSpace(c.Enrichment.Email)
}

func (c *Config) normalizeOptimizer() {
	if c.Optimizer.CycleSeconds <= 0 {
		c.Optimizer.CycleSeconds = defaultOptimizerCycle
	}
	if c.Optimizer.MemoryHighWater <= 0 || c.Optimizer.MemoryHighWater > 1 {
		c.Optimizer.MemoryHighWater = defaultMemoryHighWater
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
