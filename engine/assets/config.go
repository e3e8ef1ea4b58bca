package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultIndexFilename is the name of the index file inside the root directory.
const DefaultIndexFilename = "asset_index.toml"

/** @brief The configuration for the asset registry. */
type RegistryConfig struct {
	/** @brief Base directory for every relative asset path. */
	RootDirectory string `toml:"root_directory"`
	/** @brief Index file, relative to the root or absolute. A directory means DefaultIndexFilename inside it. */
	IndexFile string `toml:"index_file"`
	/** @brief One of debug, info, warn, error. */
	LogLevel string `toml:"log_level"`
	/** @brief Number of workers used when warming handles. */
	PreloadWorkers int `toml:"preload_workers"`
}

func DefaultRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		IndexFile:      DefaultIndexFilename,
		LogLevel:       "info",
		PreloadWorkers: 4,
	}
}

// LoadRegistryConfig reads a TOML configuration file on top of the defaults.
// A relative root directory is taken relative to the file's directory.
func LoadRegistryConfig(path string) (*RegistryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry config: %w", err)
	}
	cfg := DefaultRegistryConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse registry config %s: %w", path, err)
	}
	if cfg.RootDirectory != "" && !filepath.IsAbs(cfg.RootDirectory) {
		cfg.RootDirectory = filepath.Join(filepath.Dir(path), cfg.RootDirectory)
	}
	if cfg.IndexFile == "" {
		cfg.IndexFile = DefaultIndexFilename
	}
	if cfg.PreloadWorkers <= 0 {
		return nil, fmt.Errorf("parse registry config %s: preload_workers must be > 0", path)
	}
	return cfg, nil
}
