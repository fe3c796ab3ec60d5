package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ConfigPathEnv names a config file to use when no path is given explicitly
const ConfigPathEnv = "EVENTS_PIPELINE_CONFIG"

// configPaths returns possible config file locations, in order of preference
func configPaths() []string {
	var paths []string
	if configPath := os.Getenv(ConfigPathEnv); configPath != "" {
		paths = append(paths, configPath)
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".commerce-events-pipeline", "config.yaml"),
			filepath.Join(homeDir, ".config", "commerce-events-pipeline", "config.yaml"),
		)
	}

	// Local config, convenient for dev
	return append(paths, "config.yaml")
}

// Load reads the configuration from path when set, otherwise from the
// first config file found in the usual locations. Environment variables
// override file values; with no file the environment and defaults are
// used alone. The result is not validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return LoadConfigFromEnv()
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	for _, candidate := range configPaths() {
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return candidate
	}
	return ""
}
