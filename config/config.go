package config

import (
	"os"
	"path/filepath"

	"code.meridianprotocol.io/meridian/core/execution"
	"code.meridianprotocol.io/meridian/metrics"

	"github.com/BurntSushi/toml"
)

// Config ties together the configuration of every package of the node.
type Config struct {
	Execution execution.Config
	Metrics   metrics.Config
}

// NewDefaultConfig returns the default configuration of every package.
func NewDefaultConfig() Config {
	return Config{
		Execution: execution.NewDefaultConfig(),
		Metrics:   metrics.NewDefaultConfig(),
	}
}

// Read loads the configuration from rootPath, applying the file on top of
// the defaults.
func Read(rootPath string) (*Config, error) {
	path := filepath.Join(rootPath, configFileName)
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewDefaultConfig()
	if _, err := toml.Decode(string(buf), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
