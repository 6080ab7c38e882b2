// Package config provides configuration loading and structs for the miru pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxImagesUnbounded disables corpus truncation when set as CorpusConfig.MaxImages.
const MaxImagesUnbounded = -1

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Descriptor DescriptorConfig `yaml:"descriptor"`
	Search     SearchConfig     `yaml:"search"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the descriptor cache, index snapshot, and run artifacts.
type StorageConfig struct {
	// CachePath is the SQLite descriptor cache; empty disables caching.
	CachePath string `yaml:"cache_path"`
	// IndexPath is an optional index snapshot written after a run and reused by serve.
	IndexPath string `yaml:"index_path"`
	// OutputDir receives the CSV report and the top-K match copies.
	OutputDir string `yaml:"output_dir"`
}

// CorpusConfig holds corpus discovery and query settings.
type CorpusConfig struct {
	Directory   string   `yaml:"directory"`
	QueryImage  string   `yaml:"query_image"`
	Annotations []string `yaml:"annotations"`
	Extensions  []string `yaml:"extensions"`
	// MaxImages truncates discovery; MaxImagesUnbounded (-1) means no truncation,
	// 0 means unset and takes the default.
	MaxImages int `yaml:"max_images"`
}

// DescriptorConfig holds feature and descriptor settings.
type DescriptorConfig struct {
	// Feature is "gradient" (128-dim float-native) or "binary" (32-dim, cast to float).
	Feature string `yaml:"feature"`
	// Mode is "global" or "region".
	Mode string `yaml:"mode"`
	// CellSize is the grid cell edge in pixels for region mode.
	CellSize int `yaml:"cell_size"`
	// Workers is the descriptor worker pool size; 0 uses the CPU count.
	Workers int `yaml:"workers"`
}

// SearchConfig holds query-time settings.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// MaxImagesLabel returns the corpus bound as used in artifact names and report
// rows: "all" when unbounded, the number otherwise.
func (c *CorpusConfig) MaxImagesLabel() string {
	if c.MaxImages == MaxImagesUnbounded {
		return "all"
	}
	return strconv.Itoa(c.MaxImages)
}

// Load reads and parses the config file at path, applies defaults, expands
// paths, and validates. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.CachePath = expandPath(cfg.Storage.CachePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.OutputDir = expandPath(cfg.Storage.OutputDir, configDir)
	cfg.Corpus.Directory = expandPath(cfg.Corpus.Directory, configDir)
	cfg.Corpus.QueryImage = expandPath(cfg.Corpus.QueryImage, configDir)
	for i := range cfg.Corpus.Annotations {
		cfg.Corpus.Annotations[i] = expandPath(cfg.Corpus.Annotations[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum-valued fields. Load calls this; callers constructing a
// Config directly (tests, serve) should call it themselves.
func (c *Config) Validate() error {
	switch c.Descriptor.Feature {
	case "gradient", "binary":
	default:
		return fmt.Errorf("unknown feature type %q (want gradient or binary)", c.Descriptor.Feature)
	}
	switch c.Descriptor.Mode {
	case "global", "region":
	default:
		return fmt.Errorf("unknown descriptor mode %q (want global or region)", c.Descriptor.Mode)
	}
	if c.Descriptor.CellSize <= 0 {
		return fmt.Errorf("cell_size must be positive, got %d", c.Descriptor.CellSize)
	}
	if c.Corpus.MaxImages < MaxImagesUnbounded {
		return fmt.Errorf("max_images must be positive or %d (unbounded), got %d", MaxImagesUnbounded, c.Corpus.MaxImages)
	}
	return nil
}

// expandPath converts a path to absolute. Empty paths stay empty (disabled
// features). Paths starting with "./" are relative to configDir; other
// relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
