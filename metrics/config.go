package metrics

import (
	"code.meridianprotocol.io/meridian/config/encoding"
	"code.meridianprotocol.io/meridian/logging"
)

const namedLogger = "metrics"

// Config represents the configuration of the metric package
type Config struct {
	Level   encoding.LogLevel
	Enabled bool
	Path    string
	Port    int
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:   encoding.LogLevel{Level: logging.InfoLevel},
		Enabled: false,
		Path:    "/metrics",
		Port:    2112,
	}
}
