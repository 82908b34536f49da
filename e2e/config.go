package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_READ_TIMEOUT bounds how long a scenario waits for a wire event
	ReadTimeout time.Duration `envconfig:"E2E_READ_TIMEOUT" default:"5s"`
	// E2E_DEBUG_JSON allows dumping full wire frames for debugging
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
