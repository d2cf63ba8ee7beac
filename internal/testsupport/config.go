// Package testsupport provides shared helpers for package tests: seeded
// configurations and synthetic track files.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"igclog/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp track directory per
// test. The journal is disabled and enrichment has no token, so tests hit
// no network unless they opt in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Directory = filepath.Join(base, "flights")
	cfgVal.Paths.Legacy = filepath.Join(base, "cu")
	cfgVal.Journal.Enabled = false
	cfgVal.Journal.Path = filepath.Join(base, "journal.db")
	// Point at a closed local port so accidental lookups fail fast instead
	// of leaving tests waiting on a real service.
	cfgVal.Enrichment.BaseURL = "http://127.0.0.1:1"
	// Keep optimization quick on synthetic tracks.
	cfgVal.Optimizer.CycleSeconds = 5

	for _, dir := range []string{cfgVal.Paths.Directory, cfgVal.Paths.Legacy} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithJournal enables journal persistence on the test config.
func WithJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = true
	}
}

// WithEnrichment points the test config at a mock enrichment service.
func WithEnrichment(baseURL, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.BaseURL = baseURL
		b.cfg.Enrichment.AccessToken = token
	}
}

// WithLocations writes the given places as the locations dataset and wires
// it into the config.
func WithLocations(data []byte) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "locations.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			b.t.Fatalf("write locations dataset: %v", err)
		}
		b.cfg.Paths.Locations = path
	}
}

// WithPilot sets pilot defaults on the test config.
func WithPilot(name, glider string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pilot.Name = name
		b.cfg.Pilot.Glider = glider
	}
}
