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

// Paths contains directory configuration.
type Paths struct {
	// Directory is the working directory holding the IGC track files. Derived
	// artifacts are written to <directory>/meta.
	Directory string `toml:"directory"`
	// Locations points at the merged place dataset (locations.json) used for
	// reverse geocoding. Empty disables place lookups.
	Locations string `toml:"locations"`
	// Legacy points at the directory with pre-existing flight records that
	// take precedence over computed values. Defaults to <directory>/../cu.
	Legacy string `toml:"legacy"`
}

// Pilot contains defaults applied to records whose track headers lack them.
type Pilot struct {
	Name   string `toml:"name"`
	Glider string `toml:"glider"`
}

// Enrichment contains configuration for the remote timezone/elevation service.
type Enrichment struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
	Email       string `toml:"email"`
	// Elevations toggles fetching the per-fix elevation profile.
	Elevations bool `toml:"elevations"`
}

// Optimizer contains resource bounds for the scoring stage.
type Optimizer struct {
	// CycleSeconds is the wall-clock budget for one optimization run.
	CycleSeconds int `toml:"cycle_seconds"`
	// MemoryHighWater is the heap usage ratio that aborts optimization with
	// the best result so far.
	MemoryHighWater float64 `toml:"memory_high_water"`
}

// Goals contains season targets shown in the logbook summary.
type Goals struct {
	DistanceKm    float64 `toml:"distance_km"`
	DurationHours float64 `toml:"duration_hours"`
	Flights       int     `toml:"flights"`
}

// Journal contains configuration for the run journal database.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for igclog.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Pilot      Pilot      `toml:"pilot"`
	Enrichment Enrichment `toml:"enrichment"`
	Optimizer  Optimizer  `toml:"optimizer"`
	Goals      Goals      `toml:"goals"`
	Journal    Journal    `toml:"journal"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/igclog/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
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

// Save writes the configuration back to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, path)
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

	projectPath, err := filepath.Abs("igclog.toml")
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

// SetDirectory points the configuration at a different track directory and
// re-derives the legacy and journal paths that hang off it.
func (c *Config) SetDirectory(dir string) error {
	c.Paths.Directory = dir
	c.Paths.Legacy = ""
	c.Journal.Path = ""
	return c.normalizePaths()
}

// MetaDir returns the derived-artifact directory under the working directory.
func (c *Config) MetaDir() string {
	return filepath.Join(c.Paths.Directory, "meta")
}

// EnsureDirectories creates the meta directory for pipeline operation.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.Directory) == "" {
		return errors.New("paths.directory is not set")
	}
	if err := os.MkdirAll(c.MetaDir(), 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.MetaDir(), err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
