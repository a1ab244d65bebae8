package execution

import (
	"code.meridianprotocol.io/meridian/config/encoding"
	"code.meridianprotocol.io/meridian/logging"
)

const namedLogger = "execution"

// Config represents the execution engine configuration.
type Config struct {
	// logging level
	Level encoding.LogLevel
}

// NewDefaultConfig creates an instance of the package specific
// configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
