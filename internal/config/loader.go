// Package config provides configuration loading for the agent binary.
//
// Configuration is resolved in layers, later layers overriding earlier
// ones: built-in defaults, the YAML config file, then PYROSCOPE_*
// environment variables.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPaths are searched in order when no config file is given
// explicitly. A missing file is not an error; the defaults apply.
var DefaultPaths = []string{
	"/etc/pyroscope/agent.yaml",
	"./pyroscope-agent.yaml",
}

// Load resolves the agent configuration.
//
// When path is empty, the DefaultPaths are probed and the first existing
// file is used; if none exists the defaults are returned with environment
// overrides applied. An explicitly given path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultAgentConfig()

	if path == "" {
		for _, p := range DefaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path != "" {
		//nolint:gosec // G304: Path is from trusted config directory.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Apply environment variable overrides (layered configuration).
	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return cfg, nil
}
