package config

import (
	"os"

	"github.com/aurabx/wgagentd/internal/werrors"
	"gopkg.in/yaml.v3"
)

// MARK: Load
// Loads configuration from a YAML file, applies defaults, and validates
// the result before handing it back to the caller.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, werrors.Wrap(werrors.Config, "reading config file", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, werrors.Wrap(werrors.Config, "parsing config", err)
	}
	if cfg.Networks == nil {
		cfg.Networks = make(map[string]NetworkConfig)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MARK: Network
// Returns the named network's configuration, or false if it doesn't exist.
func (c *Config) Network(name string) (NetworkConfig, bool) {
	n, ok := c.Networks[name]
	return n, ok
}
